// Package export writes a session's captured events to disk once, when
// the session ends.  Two encodings are available: the sectioned text
// log and a pcap file readable by Wireshark or tcpdump.  A path ending
// in ".zst" is zstd-compressed.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/klauspost/compress/zstd"

	"sersniff/internal/capture"
)

const (
	// LinkTypeUser0 is DLT_USER0.  Each record starts with one
	// pseudo-header byte holding the capture.Direction.
	LinkTypeUser0 = layers.LinkType(147)

	// SnapLen is the pcap snapshot length, the largest record Wireshark
	// accepts.  Larger chunks are truncated in the capture length, never
	// in the original length; see Truncated.
	SnapLen = 262144

	textHeader = "=== USB/Serial Sniffer Log ==="
	dateLayout = "2006-01-02 15:04:05"
)

var sectionRule = strings.Repeat("=", 50)

// ── Text ─────────────────────────────────────────────────────────────

// WriteText writes the four-section log: to-device entries, from-device
// entries, all traffic in line form and a raw hex dump.
func WriteText(w io.Writer, evs []capture.Event, at time.Time) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\nDate: %s\n", textHeader, at.Format(dateLayout))

	section(bw, "TO DEVICE (application -> device):")
	for _, ev := range evs {
		if ev.Direction() == capture.ToDevice {
			bw.WriteString(ev.Render(capture.FormatDetail))
		}
	}

	section(bw, "FROM DEVICE (device -> application):")
	for _, ev := range evs {
		if ev.Direction() == capture.FromDevice {
			bw.WriteString(ev.Render(capture.FormatDetail))
		}
	}

	section(bw, "ALL TRAFFIC:")
	for _, ev := range evs {
		bw.WriteString(ev.Render(capture.FormatLine))
	}

	section(bw, "RAW HEX DUMP:")
	for _, ev := range evs {
		bw.WriteString(ev.Render(capture.FormatHex))
	}
	return bw.Flush()
}

func section(w *bufio.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n", title, sectionRule)
}

// ── Pcap ─────────────────────────────────────────────────────────────

// WritePcap writes evs as a DLT_USER0 capture.
func WritePcap(w io.Writer, evs []capture.Event) error {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(SnapLen, LinkTypeUser0); err != nil {
		return fmt.Errorf("pcap header: %w", err)
	}
	for i, ev := range evs {
		record := make([]byte, 0, ev.Len()+1)
		record = append(record, byte(ev.Direction()))
		record = append(record, ev.Data()...)
		if len(record) > SnapLen {
			record = record[:SnapLen]
		}
		ci := gopacket.CaptureInfo{
			Timestamp:     ev.Time(),
			CaptureLength: len(record),
			Length:        ev.Len() + 1,
		}
		if err := pw.WritePacket(ci, record); err != nil {
			return fmt.Errorf("pcap record %d: %w", i, err)
		}
	}
	return nil
}

// Truncated returns how many of evs do not fit a pcap record whole.
func Truncated(evs []capture.Event) int {
	n := 0
	for _, ev := range evs {
		if ev.Len()+1 > SnapLen {
			n++
		}
	}
	return n
}

// ReadPcap decodes a capture written by WritePcap.  Compressed input
// must be decompressed by the caller (see Open).
func ReadPcap(r io.Reader) ([]capture.Event, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("pcap header: %w", err)
	}
	if pr.LinkType() != LinkTypeUser0 {
		return nil, fmt.Errorf("unexpected link type %d", pr.LinkType())
	}

	var out []capture.Event
	for {
		data, ci, err := pr.ReadPacketData()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if len(data) < 2 {
			return out, fmt.Errorf("record %d too short", len(out))
		}
		ev, err := capture.New(capture.Direction(data[0]), ci.Timestamp, data[1:])
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}

// ── Files ────────────────────────────────────────────────────────────

// Create opens path for writing, truncating it.  A ".zst" suffix wraps
// the file in a zstd encoder; Close flushes the encoder and the file.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !compressed(path) {
		return f, nil
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &zstdFile{enc: enc, f: f}, nil
}

// Open opens path for reading, decompressing ".zst" files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !compressed(path) {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &zstdReader{dec: dec, f: f}, nil
}

func compressed(path string) bool { return strings.HasSuffix(path, ".zst") }

type zstdFile struct {
	enc *zstd.Encoder
	f   *os.File
}

func (z *zstdFile) Write(p []byte) (int, error) { return z.enc.Write(p) }

func (z *zstdFile) Close() error {
	encErr := z.enc.Close()
	fileErr := z.f.Close()
	if encErr != nil {
		return encErr
	}
	return fileErr
}

type zstdReader struct {
	dec *zstd.Decoder
	f   *os.File
}

func (z *zstdReader) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdReader) Close() error {
	z.dec.Close()
	return z.f.Close()
}
