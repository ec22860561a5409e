// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"sersniff/config"
	"sersniff/internal/core"
	"sersniff/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X sersniff/cmd.version=1.1.0"
var version = "1.0.0" //nolint:gochecknoglobals

type action int

const (
	actionRun action = iota
	actionHelp
	actionVersion
)

// invocation is the outcome of parsing the command line.
type invocation struct {
	cfg   config.Config
	act   action
	quiet bool
	fs    *flag.FlagSet
}

// Execute parses args and runs the selected sersniff mode.
func Execute(ctx context.Context, args []string) error {
	inv, err := parse(args)
	if err != nil {
		return err
	}
	cfg := inv.cfg
	switch inv.act {
	case actionHelp:
		printUsage(inv.fs)
		return nil
	case actionVersion:
		fmt.Printf("sersniff %s\n", version)
		return nil
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	verbosity := cfg.Verbose + 1
	if inv.quiet {
		verbosity = 0
	}
	logger := util.NewLogger(verbosity)
	logger.Debug("effective config: %s", cfg.String())

	mode, err := core.Build(&cfg, core.Streams{}, logger)
	if err != nil {
		return err
	}
	if sniff, ok := mode.(*core.SniffMode); ok {
		reset, clearView, stop := notifyControl()
		defer stop()
		sniff.Reset, sniff.Clear = reset, clearView
	}
	return mode.Run(ctx)
}

// parse builds the effective configuration: defaults, then the config
// file, then SERSNIFF_* variables, then any flag the user actually set.
func parse(args []string) (*invocation, error) {
	var fc config.Config
	fs := flag.NewFlagSet("sersniff", flag.ContinueOnError)
	inv := &invocation{fs: fs}

	// ── endpoints ────────────────────────────────────────────────
	var baud string
	fs.StringVarP(&baud, "baud", "b", fmt.Sprint(config.DefaultBaud), "Baud rate for both endpoints")
	fs.StringVarP(&fc.ConfigPath, "config", "c", "", "YAML config file (default $SERSNIFF_CONFIG)")
	fs.DurationVar(&fc.ReadTimeout, "read-timeout", config.DefaultReadTimeout, "Serial read timeout")
	fs.DurationVar(&fc.WriteTimeout, "write-timeout", config.DefaultWriteTimeout, "Give up on a write after this long")

	// ── forwarding ───────────────────────────────────────────────
	fs.DurationVar(&fc.PollInterval, "poll", config.DefaultPollInterval, "Idle wait when a source has no data")
	fs.DurationVar(&fc.TickInterval, "tick", config.DefaultTickInterval, "Display refresh cadence")
	fs.DurationVar(&fc.StatsInterval, "stats-interval", config.DefaultStatsInterval, "Stats summary cadence")
	fs.BoolVar(&fc.FailFast, "fail-fast", false, "Stop when either direction fails")

	// ── output ───────────────────────────────────────────────────
	fs.StringVarP(&fc.Format, "format", "f", config.DefaultFormat, "Console format: line, detail or hex")
	fs.BoolVar(&fc.NoColor, "no-color", false, "Disable coloured output")
	fs.BoolVar(&fc.NoStats, "no-stats", false, "Hide the stats line and final report")
	fs.StringVarP(&fc.ExportPath, "export", "o", "", "Write a text log on exit (.zst compresses)")
	fs.StringVar(&fc.PcapPath, "pcap", "", "Write a pcap capture on exit (.zst compresses)")
	fs.StringVar(&fc.NATSURL, "nats-url", "", "Publish events to this NATS server")
	fs.StringVar(&fc.NATSSubject, "nats-subject", config.DefaultNATSSubject, "Base NATS subject")
	fs.CountVarP(&fc.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVarP(&inv.quiet, "quiet", "q", false, "Only log errors")

	// ── modes ────────────────────────────────────────────────────
	fs.BoolVarP(&fc.ListPorts, "list-ports", "L", false, "List serial ports and exit")
	fs.BoolVar(&fc.DryRun, "dry-run", false, "Open both endpoints, close them and exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if showHelp || len(args) == 0 {
		inv.act = actionHelp
		return inv, nil
	}
	if showVersion {
		inv.act = actionVersion
		return inv, nil
	}

	// ── layered config ───────────────────────────────────────────
	path := fc.ConfigPath
	if path == "" {
		path = config.ConfigPathFromEnv()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = path

	var ferr error
	fs.Visit(func(f *flag.Flag) {
		if ferr != nil {
			return
		}
		ferr = overlay(&cfg, &fc, f.Name, baud)
	})
	if ferr != nil {
		return nil, ferr
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(&cfg, fs.Args()); err != nil {
		return nil, err
	}
	inv.cfg = cfg
	return inv, nil
}

// overlay copies one explicitly set flag from fc onto cfg.
func overlay(cfg, fc *config.Config, name, baud string) error {
	switch name {
	case "baud":
		n, err := config.ParseBaud(baud)
		if err != nil {
			return err
		}
		cfg.Baud = n
	case "read-timeout":
		cfg.ReadTimeout = fc.ReadTimeout
	case "write-timeout":
		cfg.WriteTimeout = fc.WriteTimeout
	case "poll":
		cfg.PollInterval = fc.PollInterval
	case "tick":
		cfg.TickInterval = fc.TickInterval
	case "stats-interval":
		cfg.StatsInterval = fc.StatsInterval
	case "fail-fast":
		cfg.FailFast = fc.FailFast
	case "format":
		cfg.Format = fc.Format
	case "no-color":
		cfg.NoColor = fc.NoColor
	case "no-stats":
		cfg.NoStats = fc.NoStats
	case "export":
		cfg.ExportPath = fc.ExportPath
	case "pcap":
		cfg.PcapPath = fc.PcapPath
	case "nats-url":
		cfg.NATSURL = fc.NATSURL
	case "nats-subject":
		cfg.NATSSubject = fc.NATSSubject
	case "verbose":
		cfg.Verbose = fc.Verbose
	case "list-ports":
		cfg.ListPorts = fc.ListPorts
	case "dry-run":
		cfg.DryRun = fc.DryRun
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
		// endpoints may come from the config file or environment
	case 2:
		cfg.Virtual, cfg.Physical = remaining[0], remaining[1]
	case 1:
		return fmt.Errorf("physical endpoint required (usage: sersniff [options] <virtual> <physical>)")
	default:
		return fmt.Errorf("too many arguments: expected <virtual> <physical>, got %d", len(remaining))
	}
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `sersniff – Serial Port Sniffer v%s

Bridges a virtual serial endpoint to a physical one and shows every
byte that crosses in either direction.

Usage:
  sersniff [options] <virtual> <physical>     Sniff
  sersniff -L                                 List serial ports

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  sersniff pty /dev/ttyUSB0                   Bridge a fresh pty to a USB adapter
  sersniff -b 115200 -f detail COM4 COM7      Windows pair (com0com), detailed view
  sersniff -o session.txt --pcap cap.pcap.zst pty /dev/ttyACM0
  sersniff --nats-url nats://localhost:4222 pty /dev/ttyS1

Send SIGUSR1 to reset the counters and SIGUSR2 to clear the captured
traffic (view and export) while running.
`)
}
