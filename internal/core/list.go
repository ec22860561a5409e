package core

import (
	"context"
	"fmt"
	"io"

	"sersniff/internal/serialport"
	"sersniff/util"
)

// ListMode prints the serial ports the system knows about.
type ListMode struct {
	List   func() ([]serialport.PortInfo, error)
	Out    io.Writer
	Logger *util.Logger
}

// Run enumerates once and prints one port per line.
func (m *ListMode) Run(ctx context.Context) error {
	ports, err := m.List()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(ports) == 0 {
		m.Logger.Info("no serial ports found")
		return nil
	}
	for _, p := range ports {
		if _, err := fmt.Fprintln(m.Out, p.String()); err != nil {
			return err
		}
	}
	m.Logger.Verbose("%d port(s)", len(ports))
	return nil
}
