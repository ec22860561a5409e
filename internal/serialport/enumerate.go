package serialport

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes one serial port present on the system.
type PortInfo struct {
	Name         string
	Product      string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
}

// String renders "name - product (VID:PID)" with absent parts omitted.
func (p PortInfo) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Product != "" {
		b.WriteString(" - ")
		b.WriteString(p.Product)
	}
	if p.IsUSB && p.VID != "" {
		fmt.Fprintf(&b, " (%s:%s)", strings.ToUpper(p.VID), strings.ToUpper(p.PID))
	}
	return b.String()
}

// ListPorts enumerates serial ports with USB metadata where the OS
// provides it, sorted by name.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate ports: %w", err)
	}
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		out = append(out, PortInfo{
			Name:         d.Name,
			Product:      d.Product,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
