// Package monitor is the single consumer of the bridge's event queue.
//
// The loop drains the queue on a fixed tick, folds capture events into
// the stats aggregator and fans everything out to observers.  The
// aggregator is owned by the loop goroutine; other goroutines change it
// only through commands (ResetCounts, Clear).  Commands travel through
// the same queue as the events, so each one takes effect exactly at its
// position in the stream.
package monitor

import (
	"context"
	"time"

	"sersniff/internal/capture"
	"sersniff/internal/events"
	"sersniff/internal/stats"
	"sersniff/util"
)

const (
	DefaultInterval      = 100 * time.Millisecond
	DefaultStatsInterval = time.Second
)

// Observer receives the drained stream on the loop goroutine.  A slow
// observer delays the next drain but never blocks the forwarders.
type Observer interface {
	OnCapture(ev capture.Event)
	OnStatus(st events.Status)
	OnStats(s stats.Snapshot)
}

// Clearer is implemented by observers that keep a view which Clear
// should empty.
type Clearer interface {
	OnClear()
}

// Monitor drives the consumer loop.
type Monitor struct {
	Queue         *events.Queue
	Stats         *stats.Aggregator
	Observers     []Observer
	Interval      time.Duration
	StatsInterval time.Duration
	Logger        *util.Logger

	// Now is used for stats snapshots; defaults to time.Now.
	Now func() time.Time
}

// New returns a monitor over q with a fresh aggregator.
func New(q *events.Queue, logger *util.Logger, observers ...Observer) *Monitor {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Monitor{
		Queue:         q,
		Stats:         stats.New(),
		Observers:     observers,
		Interval:      DefaultInterval,
		StatsInterval: DefaultStatsInterval,
		Logger:        logger.WithComponent("monitor"),
	}
}

func (m *Monitor) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// ResetCounts asks the loop to zero the counters and keep the start
// time.  Events queued before the call are discarded from the counts;
// events queued after it are counted.
func (m *Monitor) ResetCounts() { m.send(events.CommandResetCounts) }

// Clear asks the loop to empty observer views.  While a session is
// running only the counters reset; otherwise the aggregator is reset
// completely.
func (m *Monitor) Clear(running bool) {
	if running {
		m.send(events.CommandClearRunning)
		return
	}
	m.send(events.CommandClearIdle)
}

func (m *Monitor) send(c events.Command) {
	if m.Queue == nil {
		return
	}
	m.Queue.Command(c)
}

// Run loops until ctx is cancelled.  Before returning it drains the
// queue one last time and publishes a final snapshot, so nothing that
// was queued is lost.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	statsInterval := m.StatsInterval
	if statsInterval <= 0 {
		statsInterval = DefaultStatsInterval
	}

	tick := time.NewTicker(interval)
	defer tick.Stop()
	statsTick := time.NewTicker(statsInterval)
	defer statsTick.Stop()

	m.Logger.Debug("consumer loop started (tick %s, stats %s)", interval, statsInterval)

	var wake <-chan struct{}
	if m.Queue != nil {
		wake = m.Queue.Wake()
	}
	for {
		select {
		case <-ctx.Done():
			m.Flush()
			m.publishStats()
			m.Logger.Debug("consumer loop finished")
			return nil
		case <-wake:
			m.Flush()
		case <-tick.C:
			m.Flush()
		case <-statsTick.C:
			m.Flush()
			m.publishStats()
		}
	}
}

// Flush drains the queue once and dispatches every item.  Only the loop
// goroutine (or a caller that owns the monitor after Run returned) may
// call it.
func (m *Monitor) Flush() int {
	if m.Queue == nil {
		return 0
	}
	items := m.Queue.Drain()
	for _, it := range items {
		if it.IsCommand() {
			m.apply(it.Command)
			continue
		}
		if it.IsCapture() {
			m.Stats.Apply(*it.Capture)
			for _, o := range m.Observers {
				o.OnCapture(*it.Capture)
			}
			continue
		}
		st := *it.Status
		if st.Kind == events.StatusStarted {
			m.Stats.Start(st.Time)
		}
		for _, o := range m.Observers {
			o.OnStatus(st)
		}
	}
	return len(items)
}

func (m *Monitor) apply(c events.Command) {
	m.Logger.Verbose("applying %s", c)
	switch c {
	case events.CommandResetCounts:
		m.Stats.ResetCounts()
	case events.CommandClearRunning, events.CommandClearIdle:
		if c == events.CommandClearRunning {
			m.Stats.ResetCounts()
		} else {
			m.Stats.Reset()
		}
		for _, o := range m.Observers {
			if cl, ok := o.(Clearer); ok {
				cl.OnClear()
			}
		}
	}
	m.publishStats()
}

func (m *Monitor) publishStats() {
	snap := m.Stats.Snapshot(m.now())
	for _, o := range m.Observers {
		o.OnStats(snap)
	}
}

// Snapshot returns the current statistics.  Safe only from the loop
// goroutine or after Run returned.
func (m *Monitor) Snapshot() stats.Snapshot {
	return m.Stats.Snapshot(m.now())
}
