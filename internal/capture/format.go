package capture

import (
	"fmt"
	"strings"
)

// Format selects one of the three renderings of an event.
type Format int

const (
	// FormatDetail is the multi-line entry: header, HEX, ASC and a rule.
	FormatDetail Format = iota
	// FormatLine is the one-line combined view: "[ts] >>> HEX | ASCII".
	FormatLine
	// FormatHex is the raw hex dump line: "[ts] >>> HEX".
	FormatHex
)

// ParseFormat accepts "detail", "line" or "hex".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "detail", "":
		return FormatDetail, nil
	case "line":
		return FormatLine, nil
	case "hex":
		return FormatHex, nil
	}
	return 0, fmt.Errorf("unknown format %q (want detail, line or hex)", s)
}

func (f Format) String() string {
	switch f {
	case FormatLine:
		return "line"
	case FormatHex:
		return "hex"
	default:
		return "detail"
	}
}

// Rule separates detail entries.
var Rule = strings.Repeat("-", 60)

// Render returns the event in the given format, newline terminated.
func (e Event) Render(f Format) string {
	switch f {
	case FormatLine:
		return fmt.Sprintf("[%s] %s %s | %s\n", e.Timestamp(), e.direction.Arrow(), e.Hex(), e.ASCII())
	case FormatHex:
		return fmt.Sprintf("[%s] %s %s\n", e.Timestamp(), e.direction.Arrow(), e.Hex())
	default:
		return fmt.Sprintf("[%s] %s (%d bytes)\nHEX: %s\nASC: %s\n%s\n",
			e.Timestamp(), e.direction.Arrow(), e.Len(), e.Hex(), e.ASCII(), Rule)
	}
}
