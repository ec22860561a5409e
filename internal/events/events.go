// Package events is the hand-off boundary between the forwarding
// goroutines and whatever consumes their output.
//
// Producers push capture events and status notifications into a Sink;
// the Queue implementation never blocks a producer on the consumer and
// preserves each producer's push order.  Growth is bounded only by
// memory: a slow consumer makes the queue longer, it never drops.
package events

import (
	"fmt"
	"time"

	"sersniff/internal/capture"
)

// StatusKind names a session or forwarder transition.
type StatusKind int

const (
	StatusConnected StatusKind = iota
	StatusConnectionFailed
	StatusStarted
	StatusForwarderFailed
	StatusStopped
)

func (k StatusKind) String() string {
	switch k {
	case StatusConnected:
		return "connected"
	case StatusConnectionFailed:
		return "connection_failed"
	case StatusStarted:
		return "started"
	case StatusForwarderFailed:
		return "forwarder_failed"
	case StatusStopped:
		return "stopped"
	}
	return fmt.Sprintf("status(%d)", int(k))
}

// Status is a connection-status notification.  Direction is only
// meaningful for StatusForwarderFailed.
type Status struct {
	Kind      StatusKind
	Success   bool
	Direction capture.Direction
	Message   string
	Time      time.Time
}

// Sink receives everything the bridge produces.  Implementations must
// be safe for concurrent use by both forwarders and must not block on
// downstream processing.
type Sink interface {
	Capture(ev capture.Event)
	Status(st Status)
}

// Funcs adapts a pair of plain callbacks to Sink.  Nil callbacks are
// skipped.  The callbacks run on the producer goroutine, so they must
// be quick; use a Queue to decouple slow consumers.
type Funcs struct {
	OnCapture func(ev capture.Event)
	OnStatus  func(success bool, message string)
}

// Capture implements Sink.
func (f Funcs) Capture(ev capture.Event) {
	if f.OnCapture != nil {
		f.OnCapture(ev)
	}
}

// Status implements Sink.
func (f Funcs) Status(st Status) {
	if f.OnStatus != nil {
		f.OnStatus(st.Success, st.Message)
	}
}

// Discard is a Sink that drops everything.
var Discard Sink = Funcs{}
