package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv_Endpoints(t *testing.T) {
	t.Setenv("SERSNIFF_VIRTUAL", "pty")
	t.Setenv("SERSNIFF_PHYSICAL", "/dev/ttyUSB0")
	t.Setenv("SERSNIFF_BAUD", "115200")
	cfg := Defaults()
	LoadFromEnv(&cfg)
	if cfg.Virtual != "pty" || cfg.Physical != "/dev/ttyUSB0" {
		t.Errorf("endpoints = %q, %q", cfg.Virtual, cfg.Physical)
	}
	if cfg.Baud != 115200 {
		t.Errorf("Baud = %d, want 115200", cfg.Baud)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "TRUE", "Yes"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("SERSNIFF_FAIL_FAST", v)
			t.Setenv("SERSNIFF_NO_STATS", v)
			cfg := Defaults()
			LoadFromEnv(&cfg)
			if !cfg.FailFast {
				t.Error("FailFast should be true")
			}
			if !cfg.NoStats {
				t.Error("NoStats should be true")
			}
		})
	}
}

func TestLoadFromEnv_NoColorConvention(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	cfg := Defaults()
	LoadFromEnv(&cfg)
	if !cfg.NoColor {
		t.Error("NO_COLOR should disable colour")
	}
}

func TestLoadFromEnv_Durations(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"250", 250 * time.Millisecond},
		{"2s", 2 * time.Second},
		{"500us", 500 * time.Microsecond},
		{"soon", DefaultPollInterval}, // invalid: untouched
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("SERSNIFF_POLL", tt.value)
			cfg := Defaults()
			LoadFromEnv(&cfg)
			if cfg.PollInterval != tt.want {
				t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Outputs(t *testing.T) {
	t.Setenv("SERSNIFF_FORMAT", "hex")
	t.Setenv("SERSNIFF_EXPORT", "/tmp/log.txt")
	t.Setenv("SERSNIFF_PCAP", "/tmp/log.pcap.zst")
	t.Setenv("SERSNIFF_NATS_URL", "nats://127.0.0.1:4222")
	t.Setenv("SERSNIFF_NATS_SUBJECT", "lab.bench1")
	t.Setenv("SERSNIFF_VERBOSE", "3")

	cfg := Defaults()
	LoadFromEnv(&cfg)

	if cfg.Format != "hex" {
		t.Errorf("Format = %q", cfg.Format)
	}
	if cfg.ExportPath != "/tmp/log.txt" || cfg.PcapPath != "/tmp/log.pcap.zst" {
		t.Errorf("exports = %q, %q", cfg.ExportPath, cfg.PcapPath)
	}
	if cfg.NATSURL != "nats://127.0.0.1:4222" || cfg.NATSSubject != "lab.bench1" {
		t.Errorf("nats = %q, %q", cfg.NATSURL, cfg.NATSSubject)
	}
	if cfg.Verbose != 3 {
		t.Errorf("Verbose = %d, want 3", cfg.Verbose)
	}
}

func TestLoadFromEnv_NoOverrideWhenEmpty(t *testing.T) {
	os.Clearenv()

	cfg := Config{Virtual: "COM4", Baud: 57600}
	LoadFromEnv(&cfg)

	if cfg.Virtual != "COM4" {
		t.Errorf("Virtual was overridden: %q", cfg.Virtual)
	}
	if cfg.Baud != 57600 {
		t.Errorf("Baud was overridden: %d", cfg.Baud)
	}
}

func TestLoadFromEnv_InvalidIntIgnored(t *testing.T) {
	t.Setenv("SERSNIFF_BAUD", "fast")
	cfg := Defaults()
	LoadFromEnv(&cfg)
	if cfg.Baud != DefaultBaud {
		t.Errorf("Baud should stay %d for invalid input, got %d", DefaultBaud, cfg.Baud)
	}
}

// ── Config file ──────────────────────────────────────────────────────

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sersniff.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
virtual: COM4
physical: COM7
baud: 38400
poll_interval: 2ms
stats_interval: 5s
format: detail
pcap: trace.pcap
`)
	cfg := Defaults()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Virtual != "COM4" || cfg.Physical != "COM7" || cfg.Baud != 38400 {
		t.Errorf("endpoints = %q %q %d", cfg.Virtual, cfg.Physical, cfg.Baud)
	}
	if cfg.PollInterval != 2*time.Millisecond || cfg.StatsInterval != 5*time.Second {
		t.Errorf("durations = %v %v", cfg.PollInterval, cfg.StatsInterval)
	}
	if cfg.Format != "detail" || cfg.PcapPath != "trace.pcap" {
		t.Errorf("outputs = %q %q", cfg.Format, cfg.PcapPath)
	}
	// untouched keys keep their defaults
	if cfg.TickInterval != DefaultTickInterval {
		t.Errorf("TickInterval = %v", cfg.TickInterval)
	}
}

func TestLoadFile_UnknownKey(t *testing.T) {
	path := writeFile(t, "baudrate: 9600\n")
	cfg := Defaults()
	if err := LoadFile(path, &cfg); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadFile_Empty(t *testing.T) {
	path := writeFile(t, "")
	cfg := Defaults()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("empty file should be accepted: %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg := Defaults()
	if err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "baud: 38400\nformat: detail\n")
	t.Setenv("SERSNIFF_BAUD", "115200")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Baud != 115200 {
		t.Errorf("env should beat file: Baud = %d", cfg.Baud)
	}
	if cfg.Format != "detail" {
		t.Errorf("file should beat defaults: Format = %q", cfg.Format)
	}
	if cfg.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("WriteTimeout = %v", cfg.WriteTimeout)
	}
}
