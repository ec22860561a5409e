package core

import (
	"bytes"
	"testing"

	"sersniff/config"
	"sersniff/internal/console"
	"sersniff/internal/export"
	"sersniff/util"
)

func sniffConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Virtual = "pty"
	cfg.Physical = "/dev/ttyUSB0"
	return &cfg
}

// TestBuild_Sniff verifies that Build produces a SniffMode with the
// console printer as its only observer by default.
func TestBuild_Sniff(t *testing.T) {
	mode, err := Build(sniffConfig(), Streams{Out: &bytes.Buffer{}}, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	m, ok := mode.(*SniffMode)
	if !ok {
		t.Fatalf("expected *SniffMode, got %T", mode)
	}
	if len(m.Observers) != 1 {
		t.Fatalf("observers = %d, want 1", len(m.Observers))
	}
	if _, ok := m.Observers[0].(*console.Printer); !ok {
		t.Errorf("expected *console.Printer, got %T", m.Observers[0])
	}
	if len(m.Closers) != 0 || len(m.Attach) != 0 {
		t.Errorf("no exporters or publishers expected")
	}
	if m.Baud != config.DefaultBaud || m.PollInterval != config.DefaultPollInterval {
		t.Errorf("defaults not carried: baud=%d poll=%v", m.Baud, m.PollInterval)
	}
}

// TestBuild_ListPorts verifies Build produces a ListMode.
func TestBuild_ListPorts(t *testing.T) {
	cfg := &config.Config{ListPorts: true}
	mode, err := Build(cfg, Streams{}, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := mode.(*ListMode); !ok {
		t.Errorf("expected *ListMode, got %T", mode)
	}
}

func TestBuild_Exporters(t *testing.T) {
	cfg := sniffConfig()
	cfg.ExportPath = "log.txt"
	cfg.PcapPath = "log.pcap.zst"
	cfg.NATSURL = "nats://127.0.0.1:4222"

	mode, err := Build(cfg, Streams{Out: &bytes.Buffer{}}, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	m := mode.(*SniffMode)
	if len(m.Observers) != 2 {
		t.Fatalf("observers = %d, want printer + recorder", len(m.Observers))
	}
	rec, ok := m.Observers[1].(*export.Recorder)
	if !ok {
		t.Fatalf("expected *export.Recorder, got %T", m.Observers[1])
	}
	if rec.TextPath != "log.txt" || rec.PcapPath != "log.pcap.zst" {
		t.Errorf("recorder paths = %q, %q", rec.TextPath, rec.PcapPath)
	}
	if len(m.Closers) != 1 {
		t.Errorf("recorder should be closed on teardown")
	}
	if len(m.Attach) != 1 {
		t.Errorf("NATS publisher should be attached lazily")
	}
}

func TestBuild_BadFormat(t *testing.T) {
	cfg := sniffConfig()
	cfg.Format = "json"
	if _, err := Build(cfg, Streams{}, util.NewLogger(0)); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestBuild_NoStats(t *testing.T) {
	cfg := sniffConfig()
	cfg.NoStats = true
	mode, err := Build(cfg, Streams{Out: &bytes.Buffer{}}, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	m := mode.(*SniffMode)
	if m.ShowReport {
		t.Error("report should be suppressed")
	}
	if m.Observers[0].(*console.Printer).ShowStats {
		t.Error("stats line should be suppressed")
	}
}
