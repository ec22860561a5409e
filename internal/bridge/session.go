package bridge

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sersniff/internal/capture"
	ncerr "sersniff/internal/errors"
	"sersniff/internal/events"
	"sersniff/internal/serialport"
	"sersniff/util"
)

// Failure records a forwarder that stopped on an I/O error.
type Failure struct {
	Direction capture.Direction
	Err       error
	At        time.Time
}

// Session owns one virtual/physical endpoint pair and the two
// forwarders between them.  All methods are safe for concurrent use;
// Connect, Start and Stop are serialised.
type Session struct {
	Opener   serialport.Opener
	Sink     events.Sink
	Logger   *util.Logger
	IdleWait time.Duration

	// Now stamps events and the start time; defaults to time.Now.
	Now func() time.Time

	ctrl sync.Mutex // serialises Connect/Start/Stop

	mu         sync.Mutex // guards the fields below
	state      State
	virtual    serialport.Port
	physical   serialport.Port
	baud       int
	startedAt  time.Time
	failures   []Failure
	forwarders []*Forwarder

	running atomic.Bool
	wg      sync.WaitGroup
}

// New returns an idle session.  A nil sink discards everything.
func New(opener serialport.Opener, sink events.Sink, logger *util.Logger) *Session {
	if sink == nil {
		sink = events.Discard
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Session{Opener: opener, Sink: sink, Logger: logger.WithComponent("bridge")}
}

func (s *Session) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Validate checks caller-supplied connection parameters.  It touches no
// device.
func Validate(virtualEP, physicalEP string, baud int) error {
	v, p := strings.TrimSpace(virtualEP), strings.TrimSpace(physicalEP)
	switch {
	case v == "":
		return &ncerr.ValidationError{Field: "virtual", Message: "endpoint is required"}
	case p == "":
		return &ncerr.ValidationError{Field: "physical", Message: "endpoint is required"}
	case v == p:
		return &ncerr.ValidationError{
			Field:   "physical",
			Value:   p,
			Message: "virtual and physical endpoints must differ",
			Hint:    "the virtual endpoint faces the application, the physical one the device",
		}
	case baud <= 0:
		return &ncerr.ValidationError{Field: "baud", Value: baud, Message: "must be a positive integer"}
	}
	return nil
}

// Connect validates the parameters and opens both endpoints.  If the
// second open fails the first handle is closed again and the session
// stays Idle.
func (s *Session) Connect(virtualEP, physicalEP string, baud int) error {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	if err := Validate(virtualEP, physicalEP, baud); err != nil {
		return err
	}
	virtualEP, physicalEP = strings.TrimSpace(virtualEP), strings.TrimSpace(physicalEP)

	if st := s.State(); st != StateIdle {
		return fmt.Errorf("%w: connect while %s (stop first)", ncerr.ErrInvalidState, st)
	}
	if !IsRecommendedBaud(baud) {
		s.Logger.Warn("baud rate %d is outside the recommended set %v", baud, RecommendedBaudRates)
	}

	v, err := s.open(virtualEP, baud)
	if err != nil {
		s.connectFailed(err)
		return err
	}
	p, err := s.open(physicalEP, baud)
	if err != nil {
		if cerr := v.Close(); cerr != nil {
			s.Logger.Warn("closing %s after failed connect: %v", v.Endpoint(), cerr)
		}
		s.connectFailed(err)
		return err
	}

	s.mu.Lock()
	s.virtual, s.physical, s.baud = v, p, baud
	s.failures = nil
	s.state = StateConnected
	s.mu.Unlock()

	msg := fmt.Sprintf("connected %s <-> %s @ %d baud", v.Endpoint(), p.Endpoint(), baud)
	s.Logger.Verbose("%s", msg)
	s.status(events.Status{Kind: events.StatusConnected, Success: true, Message: msg})
	return nil
}

func (s *Session) open(endpoint string, baud int) (serialport.Port, error) {
	port, err := s.Opener.Open(endpoint, baud)
	if err != nil {
		if !ncerr.IsConnectionFailed(err) {
			err = ncerr.Wrap(ncerr.OpOpen, endpoint, err)
		}
		return nil, err
	}
	return port, nil
}

func (s *Session) connectFailed(err error) {
	s.Logger.Error("connect: %v", err)
	s.status(events.Status{
		Kind:    events.StatusConnectionFailed,
		Message: fmt.Sprintf("connection failed: %v", err),
	})
}

// Start spawns both forwarders.  Valid only from Connected.
func (s *Session) Start() error {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	s.mu.Lock()
	if s.state != StateConnected {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: start while %s (connect first)", ncerr.ErrInvalidState, st)
	}
	s.startedAt = s.now()
	s.forwarders = []*Forwarder{
		s.newForwarder(capture.ToDevice, s.virtual, s.physical),
		s.newForwarder(capture.FromDevice, s.physical, s.virtual),
	}
	fwds := s.forwarders
	msg := fmt.Sprintf("forwarding %s <-> %s @ %d baud", s.virtual.Endpoint(), s.physical.Endpoint(), s.baud)
	s.running.Store(true)
	s.state = StateRunning
	s.mu.Unlock()

	for _, f := range fwds {
		s.wg.Add(1)
		go func(f *Forwarder) {
			defer s.wg.Done()
			f.Run(&s.running) //nolint:errcheck // reported through OnFailure
		}(f)
	}

	s.Logger.Info("%s", msg)
	s.status(events.Status{Kind: events.StatusStarted, Success: true, Message: msg})
	return nil
}

func (s *Session) newForwarder(dir capture.Direction, src, dst serialport.Port) *Forwarder {
	return &Forwarder{
		Direction: dir,
		Source:    src,
		Dest:      dst,
		Sink:      s.Sink,
		IdleWait:  s.IdleWait,
		Logger:    s.Logger.WithField("direction", dir.String()),
		Now:       s.now,
		OnFailure: s.forwarderFailed,
	}
}

// forwarderFailed runs on the failing forwarder's goroutine.  The other
// direction is left running; only Stop tears the session down.
func (s *Session) forwarderFailed(dir capture.Direction, err error) {
	s.mu.Lock()
	if s.state == StateRunning {
		s.state = StateFailed
	}
	s.failures = append(s.failures, Failure{Direction: dir, Err: err, At: s.now()})
	s.mu.Unlock()

	s.status(events.Status{
		Kind:      events.StatusForwarderFailed,
		Direction: dir,
		Message:   failureMessage(dir, err),
	})
}

// Stop clears the running flag, waits for both forwarders to exit and
// closes both endpoints.  Calling Stop on an idle session is a no-op.
//
// A forwarder notices the cleared flag after its current iteration, so
// Stop normally returns within one idle wait plus one read.  A forwarder
// blocked writing into a stalled sink holds Stop for up to the handle's
// write timeout (serialport.DefaultWriteTimeout unless configured).
func (s *Session) Stop() error {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	if s.State() == StateIdle {
		return nil
	}

	s.running.Store(false)
	s.wg.Wait()

	for dir, n := range s.Forwarded() {
		s.Logger.Verbose("%s: forwarded %d chunks, %d bytes", dir, n[0], n[1])
	}

	s.mu.Lock()
	v, p := s.virtual, s.physical
	s.virtual, s.physical = nil, nil
	s.forwarders = nil
	s.startedAt = time.Time{}
	s.state = StateIdle
	s.mu.Unlock()

	var errs []error
	for _, port := range []serialport.Port{v, p} {
		if port == nil {
			continue
		}
		if err := port.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	s.Logger.Info("bridge stopped")
	s.status(events.Status{Kind: events.StatusStopped, Success: true, Message: "bridge stopped"})
	return ncerr.Join(errs...)
}

func (s *Session) status(st events.Status) {
	if st.Time.IsZero() {
		st.Time = s.now()
	}
	s.Sink.Status(st)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Running reports whether the forwarders have been asked to run.
func (s *Session) Running() bool { return s.running.Load() }

// StartedAt returns the start time; ok is false until Start succeeds.
func (s *Session) StartedAt() (t time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt, !s.startedAt.IsZero()
}

// Endpoints returns the connected endpoint names, empty when idle.
func (s *Session) Endpoints() (virtualEP, physicalEP string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.virtual != nil {
		virtualEP = s.virtual.Endpoint()
	}
	if s.physical != nil {
		physicalEP = s.physical.Endpoint()
	}
	return virtualEP, physicalEP
}

// Failures returns the forwarder failures of the current session.
func (s *Session) Failures() []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Failure(nil), s.failures...)
}

// Forwarded returns chunks and bytes captured per direction so far.
func (s *Session) Forwarded() map[capture.Direction][2]uint64 {
	s.mu.Lock()
	fwds := s.forwarders
	s.mu.Unlock()

	out := make(map[capture.Direction][2]uint64, len(fwds))
	for _, f := range fwds {
		c, b := f.Forwarded()
		out[f.Direction] = [2]uint64{c, b}
	}
	return out
}
