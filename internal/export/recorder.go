package export

import (
	"fmt"
	"io"
	"sync"
	"time"

	"sersniff/internal/capture"
	ncerr "sersniff/internal/errors"
	"sersniff/internal/events"
	"sersniff/internal/stats"
	"sersniff/util"
)

// Recorder keeps every capture event of the session and writes the
// configured exports on Close.  It is driven by the monitor goroutine;
// Close must be called after the monitor has stopped.
type Recorder struct {
	TextPath string
	PcapPath string
	Logger   *util.Logger

	// Now stamps the text log header; defaults to time.Now.
	Now func() time.Time

	evs       []capture.Event
	closeOnce sync.Once
	closeErr  error
}

// NewRecorder returns a recorder writing to the given paths.  An empty
// path disables that export.
func NewRecorder(textPath, pcapPath string, logger *util.Logger) *Recorder {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Recorder{TextPath: textPath, PcapPath: pcapPath, Logger: logger.WithComponent("export")}
}

// OnCapture records ev.
func (r *Recorder) OnCapture(ev capture.Event) { r.evs = append(r.evs, ev) }

// OnStatus is a no-op; statuses are not exported.
func (r *Recorder) OnStatus(events.Status) {}

// OnStats is a no-op.
func (r *Recorder) OnStats(stats.Snapshot) {}

// OnClear drops everything recorded so far.
func (r *Recorder) OnClear() { r.evs = nil }

// Events returns the recorded events.
func (r *Recorder) Events() []capture.Event { return r.evs }

// Close writes the exports.  Only the first call writes.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		if r.TextPath != "" {
			now := time.Now
			if r.Now != nil {
				now = r.Now
			}
			at := now()
			errs = append(errs, r.writeFile(r.TextPath, func(w io.Writer) error {
				return WriteText(w, r.evs, at)
			}))
		}
		if r.PcapPath != "" {
			if n := Truncated(r.evs); n > 0 {
				r.Logger.Warn("%d chunks exceed %d bytes and are truncated in %s", n, SnapLen-1, r.PcapPath)
			}
			errs = append(errs, r.writeFile(r.PcapPath, func(w io.Writer) error {
				return WritePcap(w, r.evs)
			}))
		}
		r.closeErr = ncerr.Join(errs...)
	})
	return r.closeErr
}

func (r *Recorder) writeFile(path string, write func(io.Writer) error) error {
	f, err := Create(path)
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	r.Logger.Info("wrote %d events to %s", len(r.evs), path)
	return nil
}
