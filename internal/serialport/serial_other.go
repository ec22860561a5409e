//go:build !linux

package serialport

import (
	"errors"
	"time"

	"go.bug.st/serial"

	ncerr "sersniff/internal/errors"
	"sersniff/util"
)

// probeTimeout bounds the read used to answer an availability poll.
// go.bug.st/serial has no portable "bytes waiting" query, so the probe
// reads with a short timeout and parks what it got until the next read.
const probeTimeout = 10 * time.Millisecond

// bugstDevice wraps a go.bug.st/serial port.
type bugstDevice struct {
	port    serial.Port
	pending []byte
}

func openDevice(endpoint string, baud int, _ Options) (device, error) {
	p, err := serial.Open(endpoint, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(probeTimeout); err != nil {
		p.Close() //nolint:errcheck
		return nil, err
	}
	return &bugstDevice{port: p}, nil
}

func (d *bugstDevice) available() (int, error) {
	if len(d.pending) > 0 {
		return len(d.pending), nil
	}
	buf := util.GetBuf()
	defer util.PutBuf(buf)

	n, err := d.port.Read(*buf)
	if err != nil {
		return 0, err
	}
	d.pending = append(d.pending[:0], (*buf)[:n]...)
	return n, nil
}

func (d *bugstDevice) read(p []byte) (int, error) {
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *bugstDevice) write(p []byte) error {
	for len(p) > 0 {
		n, err := d.port.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return d.port.Drain()
}

func (d *bugstDevice) close() error { return d.port.Close() }

// OpenPTY is only available on Linux.
func OpenPTY(int, Options) (*Handle, error) {
	return nil, ncerr.Wrap(ncerr.OpOpen, PTYEndpoint, errors.New("pseudo-terminals are only supported on linux"))
}
