// Package publish mirrors the monitor stream onto NATS subjects so other
// processes can follow a capture live.
//
// Subjects, for a base subject S:
//
//	S.to_device    capture records, application -> device
//	S.from_device  capture records, device -> application
//	S.status       session status changes
//	S.stats        periodic statistics snapshots
//
// Every payload is a CBOR map (RFC 8949 core deterministic encoding).
package publish

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/nats-io/nats.go"

	"sersniff/internal/capture"
	"sersniff/internal/events"
	"sersniff/internal/stats"
	"sersniff/util"
)

// DefaultSubject is the base subject when none is configured.
const DefaultSubject = "sersniff"

var encMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic("publish: CBOR encoder initialization failed: " + err.Error())
	}
}

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// CaptureRecord is the payload published for each capture event.
type CaptureRecord struct {
	Direction string    `cbor:"direction"`
	Time      time.Time `cbor:"time"`
	Length    int       `cbor:"length"`
	Data      []byte    `cbor:"data"`
	Hex       string    `cbor:"hex"`
	ASCII     string    `cbor:"ascii"`
}

// StatusRecord is the payload published for each status change.
type StatusRecord struct {
	Kind      string    `cbor:"kind"`
	Success   bool      `cbor:"success"`
	Direction string    `cbor:"direction,omitempty"`
	Message   string    `cbor:"message"`
	Time      time.Time `cbor:"time"`
}

// StatsRecord is the payload published with each stats tick.
type StatsRecord struct {
	ElapsedSeconds    float64 `cbor:"elapsed_seconds"`
	BytesToDevice     uint64  `cbor:"bytes_to_device"`
	BytesFromDevice   uint64  `cbor:"bytes_from_device"`
	PacketsToDevice   uint64  `cbor:"packets_to_device"`
	PacketsFromDevice uint64  `cbor:"packets_from_device"`
	Throughput        float64 `cbor:"throughput_bps"`
}

// Publisher is a monitor observer that publishes to NATS.  Publish
// failures are counted and logged, never propagated: a broken broker
// must not stall the capture.
type Publisher struct {
	conn    Conn
	subject string
	logger  *util.Logger

	published uint64
	failed    uint64
}

// Dial connects to the NATS server at url.
func Dial(url, subject string, logger *util.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("sersniff"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats %s: %w", url, err)
	}
	p := New(nc, subject, logger)
	p.logger.Info("publishing to %s on %s", p.subject, nc.ConnectedUrl())
	return p, nil
}

// New wraps an existing connection.
func New(conn Conn, subject string, logger *util.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Publisher{conn: conn, subject: subject, logger: logger.WithComponent("publish")}
}

// Subject returns the subject for a suffix such as "status".
func (p *Publisher) Subject(suffix string) string { return p.subject + "." + suffix }

// OnCapture publishes ev on the subject for its direction.
func (p *Publisher) OnCapture(ev capture.Event) {
	p.publish(p.Subject(ev.Direction().String()), CaptureRecord{
		Direction: ev.Direction().String(),
		Time:      ev.Time(),
		Length:    ev.Len(),
		Data:      ev.Data(),
		Hex:       ev.Hex(),
		ASCII:     ev.ASCII(),
	})
}

// OnStatus publishes st on the status subject.
func (p *Publisher) OnStatus(st events.Status) {
	rec := StatusRecord{
		Kind:    st.Kind.String(),
		Success: st.Success,
		Message: st.Message,
		Time:    st.Time,
	}
	if st.Kind == events.StatusForwarderFailed {
		rec.Direction = st.Direction.String()
	}
	p.publish(p.Subject("status"), rec)
}

// OnStats publishes a snapshot once the session has started.
func (p *Publisher) OnStats(s stats.Snapshot) {
	if !s.Started {
		return
	}
	p.publish(p.Subject("stats"), StatsRecord{
		ElapsedSeconds:    s.ElapsedSeconds,
		BytesToDevice:     s.BytesToDevice,
		BytesFromDevice:   s.BytesFromDevice,
		PacketsToDevice:   s.PacketsToDevice,
		PacketsFromDevice: s.PacketsFromDevice,
		Throughput:        s.Throughput,
	})
}

func (p *Publisher) publish(subject string, v interface{}) {
	data, err := encMode.Marshal(v)
	if err == nil {
		err = p.conn.Publish(subject, data)
	}
	if err != nil {
		p.failed++
		if p.failed == 1 {
			p.logger.Warn("publish %s: %v", subject, err)
		} else {
			p.logger.Debug("publish %s: %v", subject, err)
		}
		return
	}
	p.published++
}

// Counts returns how many messages were published and how many failed.
func (p *Publisher) Counts() (published, failed uint64) { return p.published, p.failed }

// Close drains the connection so buffered messages are flushed.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	p.logger.Verbose("published %d messages (%d failed)", p.published, p.failed)
	return nil
}

// Decode unmarshals a payload produced by this package.
func Decode(data []byte, v interface{}) error { return cbor.Unmarshal(data, v) }
