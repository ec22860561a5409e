// Package capture defines the immutable record of one forwarded chunk
// and its textual renderings.
package capture

import (
	"fmt"
	"strings"
	"time"
)

// Direction tags which way a chunk travelled through the bridge.
type Direction uint8

const (
	// ToDevice is traffic read from the virtual endpoint and written to
	// the physical one (application → device).
	ToDevice Direction = iota
	// FromDevice is traffic read from the physical endpoint and written
	// to the virtual one (device → application).
	FromDevice
)

// String returns the snake-case name used in logs and subjects.
func (d Direction) String() string {
	switch d {
	case ToDevice:
		return "to_device"
	case FromDevice:
		return "from_device"
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// Arrow returns the marker used in rendered lines.
func (d Direction) Arrow() string {
	if d == ToDevice {
		return ">>>"
	}
	return "<<<"
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == ToDevice {
		return FromDevice
	}
	return ToDevice
}

// Event is one forwarded chunk: exactly the bytes returned by a single
// read, never coalesced or split.  Events are immutable; Data returns a
// copy.
type Event struct {
	direction Direction
	time      time.Time
	data      []byte
}

// New builds an Event from a non-empty chunk.  The bytes are copied so
// the caller may reuse its buffer.
func New(dir Direction, at time.Time, data []byte) (Event, error) {
	if len(data) == 0 {
		return Event{}, fmt.Errorf("capture: empty chunk")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return Event{direction: dir, time: at, data: buf}, nil
}

// Direction reports which way the chunk travelled.
func (e Event) Direction() Direction { return e.direction }

// Time is the wall-clock capture time.
func (e Event) Time() time.Time { return e.time }

// Len is the chunk size in bytes.
func (e Event) Len() int { return len(e.data) }

// Data returns a copy of the captured bytes.
func (e Event) Data() []byte {
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out
}

// Hex renders the bytes as space-separated uppercase pairs, e.g. "48 49".
func (e Event) Hex() string { return Hex(e.data) }

// ASCII renders printable bytes verbatim and everything else as '.'.
func (e Event) ASCII() string { return ASCII(e.data) }

// Timestamp formats the capture time with millisecond precision.
func (e Event) Timestamp() string { return e.time.Format(TimestampLayout) }

// TimestampLayout is the clock format used in every rendering.
const TimestampLayout = "15:04:05.000"

const hexDigits = "0123456789ABCDEF"

// Hex renders p as space-separated uppercase two-digit hex.
func Hex(p []byte) string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(p)*3 - 1)
	for i, c := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0F])
	}
	return b.String()
}

// ASCII renders bytes 0x20..0x7E verbatim and every other byte as '.'.
func ASCII(p []byte) string {
	out := make([]byte, len(p))
	for i, c := range p {
		if c >= 0x20 && c <= 0x7E {
			out[i] = c
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
