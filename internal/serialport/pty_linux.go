//go:build linux

package serialport

import (
	"fmt"

	"golang.org/x/sys/unix"

	ncerr "sersniff/internal/errors"
)

// OpenPTY allocates a pseudo-terminal pair and returns a Handle on the
// master side.  The slave side is put into raw mode and kept open for
// the life of the handle so the master never sees EIO while no
// application is attached.  Endpoint() is the slave path.
func OpenPTY(baud int, opts Options) (*Handle, error) {
	opts = opts.withDefaults()

	master, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, ncerr.Wrap(ncerr.OpOpen, PTYEndpoint, err)
	}

	name, slave, err := openSlave(master)
	if err != nil {
		unix.Close(master) //nolint:errcheck
		return nil, ncerr.Wrap(ncerr.OpOpen, PTYEndpoint, err)
	}
	if err := configure(slave, baud, opts.ReadTimeout); err != nil {
		unix.Close(slave)  //nolint:errcheck
		unix.Close(master) //nolint:errcheck
		return nil, ncerr.Wrap(ncerr.OpOpen, name, err)
	}

	dev := &fdDevice{fd: master, holds: []int{slave}, writeTimeout: opts.WriteTimeout}
	return newHandle(name, baud, dev), nil
}

func openSlave(master int) (string, int, error) {
	if err := unix.IoctlSetPointerInt(master, unix.TIOCSPTLCK, 0); err != nil {
		return "", -1, fmt.Errorf("unlockpt: %w", err)
	}
	n, err := unix.IoctlGetUint32(master, unix.TIOCGPTN)
	if err != nil {
		return "", -1, fmt.Errorf("ptsname: %w", err)
	}
	name := fmt.Sprintf("/dev/pts/%d", n)
	slave, err := unix.Open(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return "", -1, err
	}
	return name, slave, nil
}
