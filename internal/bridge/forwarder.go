package bridge

import (
	"fmt"
	"sync/atomic"
	"time"

	"sersniff/internal/capture"
	ncerr "sersniff/internal/errors"
	"sersniff/internal/events"
	"sersniff/internal/serialport"
	"sersniff/util"
)

// DefaultIdleWait is how long a forwarder sleeps when its source has
// nothing to read.
const DefaultIdleWait = time.Millisecond

// Forwarder copies one direction of the bridge: every chunk read from
// Source is published to Sink as a capture event and then written to
// Dest.  It runs until the shared running flag clears or an I/O error
// occurs.
type Forwarder struct {
	Direction capture.Direction
	Source    serialport.Port
	Dest      serialport.Port
	Sink      events.Sink
	IdleWait  time.Duration
	Logger    *util.Logger

	// Now stamps capture events; defaults to time.Now.
	Now func() time.Time

	// OnFailure is called once, on the forwarder goroutine, with the
	// error that ended the loop.
	OnFailure func(dir capture.Direction, err error)

	chunks atomic.Uint64
	bytes  atomic.Uint64
}

// Run executes the copy loop.  It returns the terminal I/O error, or
// nil if the loop ended because running was cleared.
func (f *Forwarder) Run(running *atomic.Bool) error {
	idle := f.IdleWait
	if idle <= 0 {
		idle = DefaultIdleWait
	}
	now := f.Now
	if now == nil {
		now = time.Now
	}

	for running.Load() {
		n, err := f.Source.BytesAvailable()
		if err != nil {
			return f.fail(running, err)
		}
		if n == 0 {
			time.Sleep(idle)
			continue
		}

		data, err := f.Source.ReadAvailable()
		if err != nil {
			return f.fail(running, err)
		}
		if len(data) == 0 {
			continue
		}

		ev, err := capture.New(f.Direction, now(), data)
		if err != nil {
			continue
		}
		f.Sink.Capture(ev)
		f.chunks.Add(1)
		f.bytes.Add(uint64(len(data)))

		if err := f.Dest.Write(data); err != nil {
			return f.fail(running, err)
		}
	}
	return nil
}

// fail reports err unless the session already asked us to stop, in
// which case the error is a side effect of teardown.
func (f *Forwarder) fail(running *atomic.Bool, err error) error {
	if !running.Load() {
		return nil
	}
	if f.Logger != nil {
		f.Logger.Error("%s forwarder stopped: %v", f.Direction, err)
	}
	if f.OnFailure != nil {
		f.OnFailure(f.Direction, err)
	}
	return err
}

// Forwarded returns the number of chunks and bytes this forwarder has
// captured so far.
func (f *Forwarder) Forwarded() (chunks, bytes uint64) {
	return f.chunks.Load(), f.bytes.Load()
}

// failureMessage renders the status text for a forwarder failure.
func failureMessage(dir capture.Direction, err error) string {
	kind := "I/O"
	switch {
	case ncerr.Is(err, ncerr.ErrWriteFailed):
		kind = "write"
	case ncerr.Is(err, ncerr.ErrReadFailed):
		kind = "read"
	}
	return fmt.Sprintf("%s forwarder %s error: %v", dir, kind, err)
}
