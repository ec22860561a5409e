//go:build linux

package serialport

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// baudRates maps line speeds onto termios speed constants.
var baudRates = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

// fdDevice is a non-blocking tty file descriptor.  holds lists extra
// descriptors whose lifetime is tied to fd (the slave side of a PTY).
type fdDevice struct {
	fd           int
	holds        []int
	writeTimeout time.Duration
}

func openDevice(endpoint string, baud int, opts Options) (device, error) {
	fd, err := unix.Open(endpoint, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	if err := configure(fd, baud, opts.ReadTimeout); err != nil {
		unix.Close(fd) //nolint:errcheck
		return nil, err
	}
	// Refuse further opens so no second session can share the line.
	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		unix.Close(fd) //nolint:errcheck
		return nil, fmt.Errorf("exclusive lock: %w", err)
	}
	return &fdDevice{fd: fd, writeTimeout: opts.WriteTimeout}, nil
}

// configure puts fd into raw 8N1 mode at the given speed.
func configure(fd, baud int, readTimeout time.Duration) error {
	speed, ok := baudRates[baud]
	if !ok {
		return fmt.Errorf("unsupported baud rate %d", baud)
	}

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CBAUD | unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	t.Cflag |= speed | unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Ispeed = speed
	t.Ospeed = speed

	// VTIME is in deciseconds; it only applies if O_NONBLOCK is cleared.
	deci := readTimeout / (100 * time.Millisecond)
	if deci < 1 {
		deci = 1
	}
	if deci > 255 {
		deci = 255
	}
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = uint8(deci)

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}

func (d *fdDevice) available() (int, error) {
	return unix.IoctlGetInt(d.fd, unix.TIOCINQ)
}

func (d *fdDevice) read(p []byte) (int, error) {
	for {
		n, err := unix.Read(d.fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, nil
		default:
			return 0, err
		}
	}
}

func (d *fdDevice) write(p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(d.fd, p)
		switch err {
		case nil:
			p = p[n:]
		case unix.EINTR:
		case unix.EAGAIN:
			if err := d.waitWritable(); err != nil {
				return err
			}
		default:
			return err
		}
	}
	// tcdrain(3)
	return unix.IoctlSetInt(d.fd, unix.TCSBRK, 1)
}

func (d *fdDevice) waitWritable() error {
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLOUT}}
	timeout := int(d.writeTimeout / time.Millisecond)
	for {
		n, err := unix.Poll(fds, timeout)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("device not writable after %v", d.writeTimeout)
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return fmt.Errorf("device hung up (revents %#x)", fds[0].Revents)
		}
		return nil
	}
}

func (d *fdDevice) close() error {
	for _, fd := range d.holds {
		unix.Close(fd) //nolint:errcheck
	}
	return unix.Close(d.fd)
}
