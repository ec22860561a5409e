package core

import (
	"fmt"
	"io"
	"os"

	"sersniff/config"
	"sersniff/internal/console"
	"sersniff/internal/export"
	"sersniff/internal/monitor"
	"sersniff/internal/publish"
	"sersniff/internal/serialport"
	"sersniff/util"
)

// Streams are the writers a mode prints to.  Zero fields default to
// os.Stdout and os.Stderr.
type Streams struct {
	Out  io.Writer // capture events, port listings
	Info io.Writer // status lines, stats, final report
}

func (s Streams) withDefaults() Streams {
	if s.Out == nil {
		s.Out = os.Stdout
	}
	if s.Info == nil {
		s.Info = os.Stderr
	}
	return s
}

// Build constructs the appropriate Mode from the given configuration.
func Build(cfg *config.Config, streams Streams, logger *util.Logger) (Mode, error) {
	streams = streams.withDefaults()
	if cfg.ListPorts {
		return &ListMode{List: serialport.ListPorts, Out: streams.Out, Logger: logger}, nil
	}
	return buildSniff(cfg, streams, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildSniff(cfg *config.Config, streams Streams, logger *util.Logger) (Mode, error) {
	format, err := cfg.CaptureFormat()
	if err != nil {
		return nil, fmt.Errorf("format: %w", err)
	}

	color := !cfg.NoColor && console.IsTerminal(streams.Out)
	printer := console.NewPrinter(streams.Out, streams.Info, format, color)
	printer.ShowStats = !cfg.NoStats

	m := &SniffMode{
		Virtual:  cfg.Virtual,
		Physical: cfg.Physical,
		Baud:     cfg.Baud,
		Opener: serialport.SystemOpener{
			Options: serialport.Options{
				ReadTimeout:  cfg.ReadTimeout,
				WriteTimeout: cfg.WriteTimeout,
			},
			Logger: logger,
		},
		Observers:     []monitor.Observer{printer},
		PollInterval:  cfg.PollInterval,
		TickInterval:  cfg.TickInterval,
		StatsInterval: cfg.StatsInterval,
		FailFast:      cfg.FailFast,
		DryRun:        cfg.DryRun,
		Report:        streams.Info,
		ShowReport:    !cfg.NoStats,
		Logger:        logger,
	}

	if cfg.ExportPath != "" || cfg.PcapPath != "" {
		rec := export.NewRecorder(cfg.ExportPath, cfg.PcapPath, logger)
		m.Observers = append(m.Observers, rec)
		m.Closers = append(m.Closers, rec)
	}

	if cfg.NATSURL != "" {
		url, subject := cfg.NATSURL, cfg.NATSSubject
		m.Attach = append(m.Attach, func() (monitor.Observer, io.Closer, error) {
			pub, err := publish.Dial(url, subject, logger)
			if err != nil {
				return nil, nil, err
			}
			return pub, pub, nil
		})
	}
	return m, nil
}
