package events

import (
	"sync"

	"sersniff/internal/capture"
)

// Command is an instruction for the consumer that must take effect at a
// precise point in the stream: everything queued before it is affected,
// everything after it is not.
type Command int

const (
	CommandNone Command = iota
	// CommandResetCounts zeroes the counters and keeps the start time.
	CommandResetCounts
	// CommandClearRunning empties the views of a running session; only
	// the counters reset.
	CommandClearRunning
	// CommandClearIdle empties the views and resets all statistics.
	CommandClearIdle
)

func (c Command) String() string {
	switch c {
	case CommandNone:
		return "none"
	case CommandResetCounts:
		return "reset-counts"
	case CommandClearRunning:
		return "clear(running)"
	case CommandClearIdle:
		return "clear(idle)"
	}
	return "unknown"
}

// Item is one queued entry: exactly one of Capture, Status or Command
// is set.
type Item struct {
	Capture *capture.Event
	Status  *Status
	Command Command
}

// IsCapture reports whether the item carries a capture event.
func (it Item) IsCapture() bool { return it.Capture != nil }

// IsCommand reports whether the item carries a consumer command.
func (it Item) IsCommand() bool { return it.Command != CommandNone }

// Queue is an unbounded multi-producer, single-consumer queue.
// Producers append under a short critical section; the consumer swaps
// the whole backlog out in Drain.  The zero value is ready to use.
type Queue struct {
	mu      sync.Mutex
	items   []Item
	spare   []Item
	pushed  uint64
	drained uint64
	wake    chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Capture implements Sink.
func (q *Queue) Capture(ev capture.Event) {
	q.push(Item{Capture: &ev})
}

// Status implements Sink.
func (q *Queue) Status(st Status) {
	q.push(Item{Status: &st})
}

// Command queues c behind everything already pushed and wakes the
// consumer.
func (q *Queue) Command(c Command) {
	if c == CommandNone {
		return
	}
	q.push(Item{Command: c})
	if q.wake != nil {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
}

func (q *Queue) push(it Item) {
	q.mu.Lock()
	q.items = append(q.items, it)
	q.pushed++
	q.mu.Unlock()
}

// Drain returns every item queued since the previous Drain, in push
// order.  The returned slice is owned by the caller until the next
// Drain call, which may reuse its backing array.
func (q *Queue) Drain() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	clear(q.spare)
	q.items = q.spare[:0]
	q.spare = out
	q.drained += uint64(len(out))
	return out
}

// Len returns the current backlog.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Counts returns the lifetime number of pushed and drained items.
func (q *Queue) Counts() (pushed, drained uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushed, q.drained
}

// Wake is signalled (coalesced) whenever a Command is queued, so the
// consumer can apply it without waiting for its next tick.  Data pushes
// do not signal.  It is nil for a zero-value Queue.
func (q *Queue) Wake() <-chan struct{} { return q.wake }
