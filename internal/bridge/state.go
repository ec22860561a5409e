// Package bridge pairs a virtual and a physical serial endpoint and
// forwards traffic between them in both directions, publishing every
// forwarded chunk as a capture event.
//
// Lifecycle:
//
//	Idle ──Connect──▶ Connected ──Start──▶ Running
//	                     │                    │ forwarder I/O error
//	                     │                    ▼
//	                     └──────Stop◀──── Failed
//
// Stop from Running, Connected or Failed tears everything down and
// returns to Idle.  Stop from Idle does nothing.
package bridge

// State is a session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnected
	StateRunning
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// RecommendedBaudRates are the line speeds offered to users.  Other
// positive values are accepted.
var RecommendedBaudRates = []int{9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600}

// IsRecommendedBaud reports whether baud is in RecommendedBaudRates.
func IsRecommendedBaud(baud int) bool {
	for _, b := range RecommendedBaudRates {
		if b == baud {
			return true
		}
	}
	return false
}
