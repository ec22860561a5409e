package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultBaud is used when neither flag, env nor file sets one.
	DefaultBaud = 9600

	// DefaultReadTimeout is the serial read timeout class.
	DefaultReadTimeout = 100 * time.Millisecond

	// DefaultWriteTimeout bounds how long a write may wait for the
	// device to accept data.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultPollInterval is how long a forwarder yields when its source
	// has nothing to read.
	DefaultPollInterval = time.Millisecond

	// DefaultTickInterval is the consumer loop's drain cadence.
	DefaultTickInterval = 100 * time.Millisecond

	// DefaultStatsInterval is how often the stats summary is refreshed.
	DefaultStatsInterval = time.Second

	// DefaultFormat is the console rendering.
	DefaultFormat = "line"

	// DefaultNATSSubject is the base subject for published events.
	DefaultNATSSubject = "sersniff"

	// EnvPrefix prefixes every supported environment variable.
	EnvPrefix = "SERSNIFF_"
)
