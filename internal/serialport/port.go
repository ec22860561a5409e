// Package serialport is the channel-handle abstraction over an OS
// serial device.  A Handle is always either fully open or fully closed;
// it exposes a non-blocking availability poll, a read that never waits
// for more bytes than are already buffered, and a write that returns
// only after the bytes have been handed to the line.
//
// The Linux backend drives termios directly through golang.org/x/sys;
// other platforms go through go.bug.st/serial.
package serialport

import (
	"sync"
	"sync/atomic"
	"time"

	ncerr "sersniff/internal/errors"
	"sersniff/util"
)

// PTYEndpoint is the endpoint name that asks the system opener for a
// fresh pseudo-terminal instead of an existing device (Linux only).
const PTYEndpoint = "pty"

const (
	// DefaultReadTimeout is the line read timeout configured on open.
	DefaultReadTimeout = 100 * time.Millisecond

	// DefaultWriteTimeout bounds how long a write may wait for the
	// device to accept more output before it is treated as failed.
	DefaultWriteTimeout = 5 * time.Second
)

// Port is what the bridge needs from an open endpoint.  Each Port is
// read by exactly one goroutine and written by exactly one other, so
// implementations must tolerate one concurrent reader and writer.
type Port interface {
	// Endpoint identifies the device (path or port name).
	Endpoint() string
	// BytesAvailable reports how many bytes can be read right now.
	BytesAvailable() (int, error)
	// ReadAvailable returns the bytes available at the time of the
	// call, or nil when there are none.  It never waits for more.
	ReadAvailable() ([]byte, error)
	// Write writes and flushes p before returning.
	Write(p []byte) error
	// Close releases the device.  It is safe to call more than once.
	Close() error
}

// Opener opens endpoints for a session.
type Opener interface {
	Open(endpoint string, baud int) (Port, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(endpoint string, baud int) (Port, error)

// Open implements Opener.
func (f OpenerFunc) Open(endpoint string, baud int) (Port, error) { return f(endpoint, baud) }

// Options tunes how a device is configured.  Zero fields take the
// package defaults.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	return o
}

// device is the platform backend behind a Handle.
type device interface {
	available() (int, error)
	// read fills p with up to len(p) already-buffered bytes.
	read(p []byte) (int, error)
	// write writes all of p and waits for it to drain.
	write(p []byte) error
	close() error
}

// Handle is an open serial endpoint configured 8N1.
type Handle struct {
	endpoint string
	baud     int
	dev      device

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func newHandle(endpoint string, baud int, dev device) *Handle {
	return &Handle{endpoint: endpoint, baud: baud, dev: dev}
}

// Open opens and configures endpoint at baud with 8 data bits, no
// parity and one stop bit.  Failures match errors.ErrConnectionFailed.
func Open(endpoint string, baud int, opts Options) (*Handle, error) {
	if baud <= 0 {
		return nil, ncerr.Wrap(ncerr.OpOpen, endpoint, ncerr.Invalid("baud", baud, "must be positive"))
	}
	dev, err := openDevice(endpoint, baud, opts.withDefaults())
	if err != nil {
		return nil, ncerr.Wrap(ncerr.OpOpen, endpoint, err)
	}
	return newHandle(endpoint, baud, dev), nil
}

// Endpoint implements Port.
func (h *Handle) Endpoint() string { return h.endpoint }

// Baud returns the configured line speed.
func (h *Handle) Baud() int { return h.baud }

// IsOpen reports whether the handle still permits operations.
func (h *Handle) IsOpen() bool { return !h.closed.Load() }

// BytesAvailable implements Port.
func (h *Handle) BytesAvailable() (int, error) {
	if h.closed.Load() {
		return 0, ncerr.Wrap(ncerr.OpPoll, h.endpoint, ncerr.ErrHandleClosed)
	}
	n, err := h.dev.available()
	if err != nil {
		return 0, ncerr.Wrap(ncerr.OpPoll, h.endpoint, err)
	}
	return n, nil
}

// ReadAvailable implements Port.
func (h *Handle) ReadAvailable() ([]byte, error) {
	n, err := h.BytesAvailable()
	if err != nil || n == 0 {
		return nil, err
	}

	var buf []byte
	if n <= util.DefaultBufSize {
		pooled := util.GetBuf()
		defer util.PutBuf(pooled)
		buf = (*pooled)[:n]
	} else {
		buf = make([]byte, n)
	}

	m, err := h.dev.read(buf)
	if err != nil {
		return nil, ncerr.Wrap(ncerr.OpRead, h.endpoint, err)
	}
	if m == 0 {
		return nil, nil
	}
	out := make([]byte, m)
	copy(out, buf[:m])
	return out, nil
}

// Write implements Port.
func (h *Handle) Write(p []byte) error {
	if h.closed.Load() {
		return ncerr.Wrap(ncerr.OpWrite, h.endpoint, ncerr.ErrHandleClosed)
	}
	if len(p) == 0 {
		return nil
	}
	return ncerr.Wrap(ncerr.OpWrite, h.endpoint, h.dev.write(p))
}

// Close implements Port.  Only the first call reaches the device.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeErr = ncerr.Wrap(ncerr.OpClose, h.endpoint, h.dev.close())
	})
	return h.closeErr
}

// SystemOpener opens real devices.  The endpoint PTYEndpoint allocates
// a pseudo-terminal and logs the path the application should open.
type SystemOpener struct {
	Options Options
	Logger  *util.Logger
}

// Open implements Opener.
func (o SystemOpener) Open(endpoint string, baud int) (Port, error) {
	if endpoint == PTYEndpoint {
		h, err := OpenPTY(baud, o.Options)
		if err != nil {
			return nil, err
		}
		if o.Logger != nil {
			o.Logger.Info("virtual endpoint ready at %s", h.Endpoint())
		}
		return h, nil
	}
	h, err := Open(endpoint, baud, o.Options)
	if err != nil {
		return nil, err
	}
	return h, nil
}
