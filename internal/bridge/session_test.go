package bridge

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sersniff/internal/capture"
	ncerr "sersniff/internal/errors"
	"sersniff/internal/events"
	"sersniff/internal/stats"
)

const waitFor = 2 * time.Second

type fixture struct {
	virtual  *fakePort
	physical *fakePort
	opener   *fakeOpener
	queue    *events.Queue
	session  *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		virtual:  newFakePort("COM4"),
		physical: newFakePort("/dev/ttyUSB0"),
		queue:    events.NewQueue(),
	}
	f.opener = newFakeOpener(f.virtual, f.physical)
	f.session = New(f.opener, f.queue, nil)
	f.session.IdleWait = 50 * time.Microsecond
	t.Cleanup(func() { f.session.Stop() }) //nolint:errcheck
	return f
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	require.NoError(t, f.session.Connect("COM4", "/dev/ttyUSB0", 9600))
	require.NoError(t, f.session.Start())
	require.Equal(t, StateRunning, f.session.State())
}

func split(items []events.Item) (caps []capture.Event, sts []events.Status) {
	for _, it := range items {
		if it.IsCapture() {
			caps = append(caps, *it.Capture)
		} else {
			sts = append(sts, *it.Status)
		}
	}
	return caps, sts
}

func kinds(sts []events.Status) []events.StatusKind {
	out := make([]events.StatusKind, len(sts))
	for i, s := range sts {
		out[i] = s.Kind
	}
	return out
}

// TestSession_HelloScenario: "HI" arrives on the virtual endpoint and
// comes out as one ToDevice capture and two bytes on the device.
func TestSession_HelloScenario(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.virtual.inject([]byte{0x48, 0x49})
	require.Eventually(t, func() bool {
		return bytes.Equal(f.physical.written(), []byte("HI"))
	}, waitFor, time.Millisecond)

	require.NoError(t, f.session.Stop())

	caps, sts := split(f.queue.Drain())
	require.Len(t, caps, 1)
	ev := caps[0]
	assert.Equal(t, capture.ToDevice, ev.Direction())
	assert.Equal(t, "48 49", ev.Hex())
	assert.Equal(t, "HI", ev.ASCII())

	agg := stats.New()
	for _, c := range caps {
		agg.Apply(c)
	}
	assert.Equal(t, uint64(2), agg.Bytes(capture.ToDevice))
	assert.Equal(t, uint64(1), agg.Packets(capture.ToDevice))

	assert.Equal(t,
		[]events.StatusKind{events.StatusConnected, events.StatusStarted, events.StatusStopped},
		kinds(sts))
}

// TestSession_PreservesReadOrder checks that every read becomes exactly
// one event, in read order, and the sink sees the same byte stream.
func TestSession_PreservesReadOrder(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	var want [][]byte
	var stream []byte
	for i := 0; i < 300; i++ {
		chunk := bytes.Repeat([]byte{byte(i)}, 1+i%17)
		want = append(want, chunk)
		stream = append(stream, chunk...)
	}
	f.physical.inject(want...)

	require.Eventually(t, func() bool {
		return len(f.virtual.written()) == len(stream)
	}, waitFor, time.Millisecond)
	require.NoError(t, f.session.Stop())

	assert.Equal(t, stream, f.virtual.written())

	caps, _ := split(f.queue.Drain())
	require.Len(t, caps, len(want))
	for i, ev := range caps {
		assert.Equal(t, capture.FromDevice, ev.Direction())
		assert.Equal(t, want[i], ev.Data(), "chunk %d", i)
		if i > 0 {
			assert.False(t, ev.Time().Before(caps[i-1].Time()), "timestamps must not go backwards")
		}
	}
}

func TestSession_BothDirections(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.virtual.inject([]byte("AT\r"))
	f.physical.inject([]byte("OK\r\n"))

	require.Eventually(t, func() bool {
		return bytes.Equal(f.physical.written(), []byte("AT\r")) &&
			bytes.Equal(f.virtual.written(), []byte("OK\r\n"))
	}, waitFor, time.Millisecond)

	fwd := f.session.Forwarded()
	assert.Equal(t, [2]uint64{1, 3}, fwd[capture.ToDevice])
	assert.Equal(t, [2]uint64{1, 4}, fwd[capture.FromDevice])
}

func TestSession_RejectsSelfPairing(t *testing.T) {
	f := newFixture(t)

	err := f.session.Connect("COM4", " COM4 ", 9600)
	require.Error(t, err)
	assert.True(t, ncerr.IsValidation(err))
	assert.Zero(t, f.opener.openCount(), "no endpoint may be opened")
	assert.Equal(t, StateIdle, f.session.State())
	assert.Empty(t, f.queue.Drain(), "validation errors are not status events")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		virtual  string
		physical string
		baud     int
		field    string
	}{
		{"ok", "COM4", "COM5", 9600, ""},
		{"ok odd baud", "pty", "/dev/ttyUSB0", 250000, ""},
		{"no virtual", "", "COM5", 9600, "virtual"},
		{"no physical", "COM4", "  ", 9600, "physical"},
		{"same", "/dev/ttyS0", "/dev/ttyS0", 9600, "physical"},
		{"zero baud", "COM4", "COM5", 0, "baud"},
		{"negative baud", "COM4", "COM5", -9600, "baud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.virtual, tt.physical, tt.baud)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ncerr.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSession_ConnectFailureClosesFirstHandle(t *testing.T) {
	f := newFixture(t)
	f.opener.fail["/dev/ttyUSB0"] = io.ErrUnexpectedEOF

	err := f.session.Connect("COM4", "/dev/ttyUSB0", 9600)
	require.Error(t, err)
	assert.True(t, ncerr.IsConnectionFailed(err))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, StateIdle, f.session.State())
	assert.Equal(t, 1, f.virtual.closeCount(), "the handle that did open must be closed")

	_, sts := split(f.queue.Drain())
	require.Len(t, sts, 1)
	assert.Equal(t, events.StatusConnectionFailed, sts[0].Kind)
	assert.False(t, sts[0].Success)

	// The session is still usable.
	delete(f.opener.fail, "/dev/ttyUSB0")
	require.NoError(t, f.session.Connect("COM4", "/dev/ttyUSB0", 9600))
	assert.Equal(t, StateConnected, f.session.State())
}

func TestSession_ConnectFailureFirstEndpoint(t *testing.T) {
	f := newFixture(t)

	err := f.session.Connect("COM9", "/dev/ttyUSB0", 9600)
	require.Error(t, err)
	assert.True(t, ncerr.IsConnectionFailed(err))
	assert.Equal(t, 1, f.opener.openCount(), "physical must not be opened after virtual failed")
	assert.Zero(t, f.physical.closeCount())
}

func TestSession_StateGuards(t *testing.T) {
	f := newFixture(t)

	err := f.session.Start()
	assert.True(t, errors.Is(err, ncerr.ErrInvalidState), "start from idle")

	require.NoError(t, f.session.Connect("COM4", "/dev/ttyUSB0", 115200))
	err = f.session.Connect("COM4", "/dev/ttyUSB0", 115200)
	assert.True(t, errors.Is(err, ncerr.ErrInvalidState), "connect while connected")

	require.NoError(t, f.session.Start())
	err = f.session.Start()
	assert.True(t, errors.Is(err, ncerr.ErrInvalidState), "start while running")

	started, ok := f.session.StartedAt()
	assert.True(t, ok)
	assert.False(t, started.IsZero())

	v, p := f.session.Endpoints()
	assert.Equal(t, "COM4", v)
	assert.Equal(t, "/dev/ttyUSB0", p)
}

func TestSession_StopIdempotent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Stop(), "stop from idle")

	f.run(t)
	require.NoError(t, f.session.Stop())
	assert.Equal(t, StateIdle, f.session.State())
	assert.Equal(t, 1, f.virtual.closeCount())
	assert.Equal(t, 1, f.physical.closeCount())
	f.queue.Drain()

	require.NoError(t, f.session.Stop())
	assert.Equal(t, 1, f.virtual.closeCount(), "second stop must not close again")
	assert.Empty(t, f.queue.Drain(), "second stop must not emit anything")

	_, ok := f.session.StartedAt()
	assert.False(t, ok)
	v, p := f.session.Endpoints()
	assert.Empty(t, v)
	assert.Empty(t, p)
}

func TestSession_StopFromConnected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Connect("COM4", "/dev/ttyUSB0", 9600))
	require.NoError(t, f.session.Stop())

	assert.Equal(t, StateIdle, f.session.State())
	assert.Equal(t, 1, f.virtual.closeCount())
	assert.Equal(t, 1, f.physical.closeCount())
}

// TestSession_PartialFailure: the FromDevice side breaks while ToDevice
// is healthy.  ToDevice keeps forwarding until Stop.
func TestSession_PartialFailure(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.physical.setPollErr(io.ErrUnexpectedEOF)
	require.Eventually(t, func() bool {
		return f.session.State() == StateFailed
	}, waitFor, time.Millisecond)

	_, sts := split(f.queue.Drain())
	var failed []events.Status
	for _, s := range sts {
		if s.Kind == events.StatusForwarderFailed {
			failed = append(failed, s)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, capture.FromDevice, failed[0].Direction)
	assert.False(t, failed[0].Success)
	assert.Contains(t, failed[0].Message, "from_device")
	assert.Contains(t, failed[0].Message, "read")

	// ToDevice is still alive.
	f.virtual.inject([]byte("still here"))
	require.Eventually(t, func() bool {
		return bytes.Equal(f.physical.written(), []byte("still here"))
	}, waitFor, time.Millisecond)

	failures := f.session.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, capture.FromDevice, failures[0].Direction)
	assert.True(t, ncerr.IsIOFailure(failures[0].Err))

	err := f.session.Connect("COM4", "/dev/ttyUSB0", 9600)
	assert.True(t, errors.Is(err, ncerr.ErrInvalidState), "failed session needs an explicit stop")

	require.NoError(t, f.session.Stop())
	assert.Equal(t, StateIdle, f.session.State())
	assert.Equal(t, 1, f.physical.closeCount())
}

func TestSession_WriteFailure(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.physical.setWriteErr(io.ErrClosedPipe)
	f.virtual.inject([]byte{0x01})

	require.Eventually(t, func() bool {
		return f.session.State() == StateFailed
	}, waitFor, time.Millisecond)

	caps, sts := split(f.queue.Drain())
	require.Len(t, caps, 1, "the chunk is captured before the write is attempted")

	last := sts[len(sts)-1]
	assert.Equal(t, events.StatusForwarderFailed, last.Kind)
	assert.Equal(t, capture.ToDevice, last.Direction)
	assert.Contains(t, last.Message, "write")
}

func TestSession_NoFailureReportedDuringStop(t *testing.T) {
	f := newFixture(t)
	f.run(t)
	require.NoError(t, f.session.Stop())

	_, sts := split(f.queue.Drain())
	for _, s := range sts {
		assert.NotEqual(t, events.StatusForwarderFailed, s.Kind)
	}
}

func TestSession_Callbacks(t *testing.T) {
	virtual, physical := newFakePort("a"), newFakePort("b")
	var got []capture.Event
	var msgs []string
	done := make(chan struct{})

	sink := events.Funcs{
		OnCapture: func(ev capture.Event) {
			got = append(got, ev)
			close(done)
		},
		OnStatus: func(ok bool, msg string) { msgs = append(msgs, msg) },
	}
	s := New(newFakeOpener(virtual, physical), sink, nil)
	s.IdleWait = 50 * time.Microsecond

	require.NoError(t, s.Connect("a", "b", 9600))
	require.NoError(t, s.Start())
	physical.inject([]byte{0xFF})

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("no capture delivered")
	}
	require.NoError(t, s.Stop())

	require.Len(t, got, 1)
	assert.Equal(t, ".", got[0].ASCII())
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[0], "connected a <-> b @ 9600 baud")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "failed", StateFailed.String())
}

func TestIsRecommendedBaud(t *testing.T) {
	assert.True(t, IsRecommendedBaud(9600))
	assert.True(t, IsRecommendedBaud(921600))
	assert.False(t, IsRecommendedBaud(250000))
}
