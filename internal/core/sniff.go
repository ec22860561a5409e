package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"sersniff/internal/bridge"
	ncerr "sersniff/internal/errors"
	"sersniff/internal/events"
	"sersniff/internal/monitor"
	"sersniff/internal/serialport"
	"sersniff/util"
)

// AttachFunc creates an observer that needs a live connection (NATS).
// It runs at the start of SniffMode.Run so that a dry run or a bad
// configuration never touches the network.
type AttachFunc func() (monitor.Observer, io.Closer, error)

// SniffMode bridges one virtual/physical pair and streams the captured
// traffic to its observers until the context is cancelled.
type SniffMode struct {
	Virtual  string
	Physical string
	Baud     int
	Opener   serialport.Opener

	Observers []monitor.Observer
	Closers   []io.Closer // closed after the consumer loop drained
	Attach    []AttachFunc

	PollInterval  time.Duration
	TickInterval  time.Duration
	StatsInterval time.Duration

	// FailFast ends the run as soon as one direction fails instead of
	// keeping the healthy direction alive.
	FailFast bool
	// DryRun opens and closes both endpoints, then returns.
	DryRun bool

	// Reset requests a counter reset while running (SIGUSR1).
	Reset <-chan struct{}
	// Clear empties the console view and the recorded export while
	// running (SIGUSR2).
	Clear <-chan struct{}

	// Report receives the final detailed statistics.
	Report     io.Writer
	ShowReport bool

	Logger *util.Logger

	// Session is populated by Run; exposed for tests.
	Session *bridge.Session
}

// Run connects, starts forwarding and blocks until ctx is done (or,
// with FailFast, until a forwarder fails).  Teardown order: stop the
// session, drain the consumer loop, then close exporters and
// publishers.
func (m *SniffMode) Run(ctx context.Context) (err error) {
	observers := append([]monitor.Observer(nil), m.Observers...)
	closers := append([]io.Closer(nil), m.Closers...)
	defer func() {
		for _, c := range closers {
			if cerr := c.Close(); cerr != nil {
				m.Logger.Error("%v", cerr)
				err = ncerr.Join(err, cerr)
			}
		}
	}()

	if !m.DryRun {
		for _, attach := range m.Attach {
			o, c, aerr := attach()
			if aerr != nil {
				closers = closers[len(m.Closers):]
				return aerr
			}
			observers = append(observers, o)
			closers = append(closers, c)
		}
	}

	q := events.NewQueue()
	sess := bridge.New(m.Opener, q, m.Logger)
	sess.IdleWait = m.PollInterval
	m.Session = sess

	mon := monitor.New(q, m.Logger, observers...)
	if m.TickInterval > 0 {
		mon.Interval = m.TickInterval
	}
	if m.StatsInterval > 0 {
		mon.StatsInterval = m.StatsInterval
	}

	monCtx, stopMonitor := context.WithCancel(context.Background())
	monDone := make(chan struct{})
	go func() {
		defer close(monDone)
		mon.Run(monCtx) //nolint:errcheck // returns nil on cancel
	}()
	finish := func() {
		stopMonitor()
		<-monDone
	}

	if err := sess.Connect(m.Virtual, m.Physical, m.Baud); err != nil {
		finish()
		return err
	}

	if m.DryRun {
		v, p := sess.Endpoints()
		m.Logger.Info("dry run: %s and %s open at %d baud", v, p, m.Baud)
		serr := sess.Stop()
		finish()
		closers = nil // no exports for a dry run
		return serr
	}

	if err := sess.Start(); err != nil {
		sess.Stop() //nolint:errcheck
		finish()
		return err
	}

	runErr := m.wait(ctx, sess, mon)

	stopErr := sess.Stop()
	finish()

	if m.ShowReport && m.Report != nil {
		fmt.Fprintf(m.Report, "\n%s\n", mon.Snapshot().Detail())
	}
	return ncerr.Join(runErr, stopErr)
}

// wait blocks until the run should end.  Forwarder failures are
// watched on the tick cadence.
func (m *SniffMode) wait(ctx context.Context, sess *bridge.Session, mon *monitor.Monitor) error {
	interval := m.TickInterval
	if interval <= 0 {
		interval = monitor.DefaultInterval
	}
	watch := time.NewTicker(interval)
	defer watch.Stop()

	reported := 0
	for {
		select {
		case <-ctx.Done():
			m.Logger.Verbose("shutting down: %v", ctx.Err())
			return nil
		case <-m.Reset:
			mon.ResetCounts()
			m.Logger.Info("counters reset")
		case <-m.Clear:
			mon.Clear(sess.Running())
			m.Logger.Info("captured traffic cleared")
		case <-watch.C:
			failures := sess.Failures()
			if len(failures) == reported {
				continue
			}
			reported = len(failures)
			if m.FailFast {
				f := failures[0]
				return fmt.Errorf("%s forwarder: %w", f.Direction, f.Err)
			}
			if reported == 1 {
				f := failures[0]
				m.Logger.Warn("%s forwarder failed; %s keeps forwarding", f.Direction, f.Direction.Opposite())
			}
			if reported == 2 {
				m.Logger.Warn("both directions failed; press Ctrl-C to stop")
			}
		}
	}
}
