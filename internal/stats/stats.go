// Package stats folds the capture event stream into running traffic
// counters for one bridge session.
//
// An Aggregator is owned by the single goroutine that drains the event
// queue; it is deliberately not synchronised.  Forwarders never touch
// it.  A nil *Aggregator is a valid no-op receiver.
package stats

import (
	"encoding/json"
	"fmt"
	"time"

	"sersniff/internal/capture"
)

// Aggregator holds per-direction byte and packet counters plus the
// session start time.
type Aggregator struct {
	bytes     [2]uint64
	packets   [2]uint64
	startTime time.Time
}

// New returns an empty aggregator with no start time.
func New() *Aggregator { return &Aggregator{} }

// Start records the session start time.
func (a *Aggregator) Start(t time.Time) {
	if a == nil {
		return
	}
	a.startTime = t
}

// Started reports whether a start time is set.
func (a *Aggregator) Started() bool { return a != nil && !a.startTime.IsZero() }

// StartTime returns the recorded start time (zero if not started).
func (a *Aggregator) StartTime() time.Time {
	if a == nil {
		return time.Time{}
	}
	return a.startTime
}

// Apply counts one capture event.
func (a *Aggregator) Apply(ev capture.Event) {
	if a == nil {
		return
	}
	d := ev.Direction()
	if int(d) >= len(a.bytes) {
		return
	}
	a.bytes[d] += uint64(ev.Len())
	a.packets[d]++
}

// ResetCounts zeroes all four counters and keeps the start time.
func (a *Aggregator) ResetCounts() {
	if a == nil {
		return
	}
	a.bytes = [2]uint64{}
	a.packets = [2]uint64{}
}

// Reset zeroes everything including the start time.  Callers must only
// do this while no session is running.
func (a *Aggregator) Reset() {
	if a == nil {
		return
	}
	*a = Aggregator{}
}

// Bytes returns the byte counter for dir.
func (a *Aggregator) Bytes(dir capture.Direction) uint64 {
	if a == nil || int(dir) >= len(a.bytes) {
		return 0
	}
	return a.bytes[dir]
}

// Packets returns the packet counter for dir.
func (a *Aggregator) Packets(dir capture.Direction) uint64 {
	if a == nil || int(dir) >= len(a.packets) {
		return 0
	}
	return a.packets[dir]
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of the counters and derived values.
// Elapsed and Throughput are only meaningful when Started is true.
type Snapshot struct {
	Started           bool          `json:"started"`
	Elapsed           time.Duration `json:"-"`
	ElapsedSeconds    float64       `json:"elapsed_seconds"`
	BytesToDevice     uint64        `json:"bytes_to_device"`
	BytesFromDevice   uint64        `json:"bytes_from_device"`
	PacketsToDevice   uint64        `json:"packets_to_device"`
	PacketsFromDevice uint64        `json:"packets_from_device"`
	TotalBytes        uint64        `json:"total_bytes"`
	TotalPackets      uint64        `json:"total_packets"`
	AvgPacketSize     float64       `json:"avg_packet_size"`
	Throughput        float64       `json:"throughput_bps"`
	ToDeviceShare     float64       `json:"to_device_share_pct"`
	FromDeviceShare   float64       `json:"from_device_share_pct"`
}

// Snapshot computes derived values as of now.
func (a *Aggregator) Snapshot(now time.Time) Snapshot {
	if a == nil {
		return Snapshot{}
	}
	s := Snapshot{
		BytesToDevice:     a.bytes[capture.ToDevice],
		BytesFromDevice:   a.bytes[capture.FromDevice],
		PacketsToDevice:   a.packets[capture.ToDevice],
		PacketsFromDevice: a.packets[capture.FromDevice],
	}
	s.TotalBytes = s.BytesToDevice + s.BytesFromDevice
	s.TotalPackets = s.PacketsToDevice + s.PacketsFromDevice
	if s.TotalPackets > 0 {
		s.AvgPacketSize = float64(s.TotalBytes) / float64(s.TotalPackets)
	}
	if s.TotalBytes > 0 {
		s.ToDeviceShare = float64(s.BytesToDevice) / float64(s.TotalBytes) * 100
		s.FromDeviceShare = float64(s.BytesFromDevice) / float64(s.TotalBytes) * 100
	}
	if !a.startTime.IsZero() {
		s.Started = true
		s.Elapsed = now.Sub(a.startTime)
		s.ElapsedSeconds = s.Elapsed.Seconds()
		if s.ElapsedSeconds > 0 {
			s.Throughput = float64(s.TotalBytes) / s.ElapsedSeconds
		}
	}
	return s
}

// Summary renders the one-line status summary.
func (s Snapshot) Summary() string {
	if !s.Started {
		return "stats: ready"
	}
	return fmt.Sprintf("elapsed %.0fs | >> %dB/%dP | << %dB/%dP | total %dB/%dP",
		s.ElapsedSeconds,
		s.BytesToDevice, s.PacketsToDevice,
		s.BytesFromDevice, s.PacketsFromDevice,
		s.TotalBytes, s.TotalPackets)
}

// Detail renders the multi-line detailed statistics report.
func (s Snapshot) Detail() string {
	if !s.Started {
		return "no data processed yet; start a session first"
	}
	return fmt.Sprintf(`Elapsed:          %.1f s
To device:        %d bytes, %d packets
From device:      %d bytes, %d packets
Total:            %d bytes, %d packets
Avg packet size:  %.1f bytes
Throughput:       %.1f bytes/s
Direction split:  out %.1f%% / in %.1f%%`,
		s.ElapsedSeconds,
		s.BytesToDevice, s.PacketsToDevice,
		s.BytesFromDevice, s.PacketsFromDevice,
		s.TotalBytes, s.TotalPackets,
		s.AvgPacketSize, s.Throughput,
		s.ToDeviceShare, s.FromDeviceShare)
}

// JSON returns the snapshot as an indented JSON string.
func (s Snapshot) JSON() string {
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
