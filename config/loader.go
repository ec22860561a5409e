package config

// loader.go - configuration loading from a YAML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (LoadFromEnv)
//   3. Config file  (LoadFile)
//   4. Defaults   (defaults.go)

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ── Config file ──────────────────────────────────────────────────────

// LoadFile overlays the YAML document at path onto cfg.  Keys absent
// from the file leave cfg untouched; unknown keys are an error so typos
// do not pass silently.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty file
		}
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration from defaults, the optional file at
// path and the environment, in that order.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	LoadFromEnv(&cfg)
	return cfg, nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the SERSNIFF_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Durations accept Go
// syntax ("250ms") or a bare number of milliseconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.
func LoadFromEnv(cfg *Config) {
	if v := env("VIRTUAL"); v != "" {
		cfg.Virtual = v
	}
	if v := env("PHYSICAL"); v != "" {
		cfg.Physical = v
	}
	if v := envInt("BAUD"); v > 0 {
		cfg.Baud = v
	}

	// Timing
	if v := envDuration("READ_TIMEOUT"); v > 0 {
		cfg.ReadTimeout = v
	}
	if v := envDuration("WRITE_TIMEOUT"); v > 0 {
		cfg.WriteTimeout = v
	}
	if v := envDuration("POLL"); v > 0 {
		cfg.PollInterval = v
	}
	if v := envDuration("TICK"); v > 0 {
		cfg.TickInterval = v
	}
	if v := envDuration("STATS_INTERVAL"); v > 0 {
		cfg.StatsInterval = v
	}
	if envBool("FAIL_FAST") {
		cfg.FailFast = true
	}

	// Output
	if v := env("FORMAT"); v != "" {
		cfg.Format = v
	}
	if envBool("NO_COLOR") || os.Getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}
	if envBool("NO_STATS") {
		cfg.NoStats = true
	}
	if v := env("EXPORT"); v != "" {
		cfg.ExportPath = v
	}
	if v := env("PCAP"); v != "" {
		cfg.PcapPath = v
	}
	if v := env("NATS_URL"); v != "" {
		cfg.NATSURL = v
	}
	if v := env("NATS_SUBJECT"); v != "" {
		cfg.NATSSubject = v
	}
	if v := envInt("VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ConfigPathFromEnv returns SERSNIFF_CONFIG.
func ConfigPathFromEnv() string { return env("CONFIG") }

// ── helpers ──────────────────────────────────────────────────────────

func env(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

func envInt(key string) int {
	v := env(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(env(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string) time.Duration {
	v := env(key)
	if v == "" {
		return 0
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
