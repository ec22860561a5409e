// Package config defines the runtime configuration for sersniff and
// the helpers that parse user-supplied values.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sersniff/internal/capture"
	ncerr "sersniff/internal/errors"
)

// Config holds every tuneable for a single sersniff run.
type Config struct {
	// ── Endpoints ────────────────────────────────────────────────────
	Virtual  string `yaml:"virtual"`  // faces the application
	Physical string `yaml:"physical"` // faces the device
	Baud     int    `yaml:"baud"`

	// ── Timing ───────────────────────────────────────────────────────
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	PollInterval  time.Duration `yaml:"poll_interval"` // forwarder idle wait
	TickInterval  time.Duration `yaml:"tick_interval"` // consumer drain cadence
	StatsInterval time.Duration `yaml:"stats_interval"`
	FailFast      bool          `yaml:"fail_fast"`

	// ── Output ───────────────────────────────────────────────────────
	Format      string `yaml:"format"`
	NoColor     bool   `yaml:"no_color"`
	NoStats     bool   `yaml:"no_stats"`
	ExportPath  string `yaml:"export"`
	PcapPath    string `yaml:"pcap"`
	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`
	Verbose     int    `yaml:"verbose"`

	// ── Run mode (command line only) ─────────────────────────────────
	ConfigPath string `yaml:"-"`
	ListPorts  bool   `yaml:"-"`
	DryRun     bool   `yaml:"-"`
}

// Defaults returns a Config with every tuneable at its default.
func Defaults() Config {
	return Config{
		Baud:          DefaultBaud,
		ReadTimeout:   DefaultReadTimeout,
		WriteTimeout:  DefaultWriteTimeout,
		PollInterval:  DefaultPollInterval,
		TickInterval:  DefaultTickInterval,
		StatsInterval: DefaultStatsInterval,
		Format:        DefaultFormat,
		NATSSubject:   DefaultNATSSubject,
	}
}

// CaptureFormat returns the parsed output format.
func (c *Config) CaptureFormat() (capture.Format, error) {
	return capture.ParseFormat(c.Format)
}

// ── Parsers ──────────────────────────────────────────────────────────

// ParseBaud accepts a positive decimal baud rate such as "115200".
func ParseBaud(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ncerr.Invalid("baud", s, "not a number")
	}
	if n <= 0 {
		return 0, ncerr.Invalid("baud", n, "must be a positive integer")
	}
	return n, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Endpoint pairing rules are enforced again by the bridge at connect
// time; here they only produce friendlier messages.
func (c *Config) Validate() error {
	if c.ListPorts {
		return nil
	}

	if strings.TrimSpace(c.Virtual) == "" || strings.TrimSpace(c.Physical) == "" {
		return &ncerr.ValidationError{
			Field:   "endpoints",
			Message: "a virtual and a physical endpoint are required",
			Hint:    "sersniff [options] <virtual> <physical>, or --list-ports to see what is attached",
		}
	}
	if strings.TrimSpace(c.Virtual) == strings.TrimSpace(c.Physical) {
		return &ncerr.ValidationError{
			Field:   "physical",
			Value:   c.Physical,
			Message: "virtual and physical endpoints must differ",
		}
	}
	if c.Baud <= 0 {
		return &ncerr.ValidationError{
			Field:   "baud",
			Value:   c.Baud,
			Message: "must be a positive integer",
			Hint:    "common rates: 9600, 19200, 38400, 57600, 115200",
		}
	}
	if _, err := c.CaptureFormat(); err != nil {
		return &ncerr.ValidationError{Field: "format", Value: c.Format, Message: err.Error()}
	}

	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"read-timeout", c.ReadTimeout},
		{"write-timeout", c.WriteTimeout},
		{"poll", c.PollInterval},
		{"tick", c.TickInterval},
		{"stats-interval", c.StatsInterval},
	} {
		if d.val <= 0 {
			return ncerr.Invalid(d.name, d.val, "must be a positive duration")
		}
	}

	if c.ExportPath != "" && c.ExportPath == c.PcapPath {
		return &ncerr.ValidationError{
			Field:   "pcap",
			Value:   c.PcapPath,
			Message: "text export and pcap export cannot share a file",
		}
	}
	if c.NATSSubject != "" && strings.ContainsAny(c.NATSSubject, " \t*>") {
		return &ncerr.ValidationError{
			Field:   "nats-subject",
			Value:   c.NATSSubject,
			Message: "must be a literal subject without spaces or wildcards",
		}
	}
	return nil
}

// String summarises the effective configuration for debug logging.
func (c *Config) String() string {
	return fmt.Sprintf("virtual=%s physical=%s baud=%d format=%s poll=%s tick=%s stats=%s fail-fast=%t",
		c.Virtual, c.Physical, c.Baud, c.Format, c.PollInterval, c.TickInterval, c.StatsInterval, c.FailFast)
}
