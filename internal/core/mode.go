// Package core is the orchestration layer.  It composes the serial
// endpoints, the bridge session, the consumer loop and its observers
// into complete operational modes, and provides a builder that selects
// the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	serialport  →  bridge  →  events  →  monitor (+ observers)  →  core  →  cmd (CLI)
//
// The builder in this package is the single dispatch point for the
// command line.
package core

import "context"

// Mode represents a complete operational mode of sersniff (sniff or
// list-ports).  Each mode owns its full lifecycle from opening devices
// to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
