//go:build linux

package ddc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// i2cSlave is the i2c-dev ioctl that binds a file descriptor to a slave address.
const i2cSlave = 0x0703

// i2cFile is an i2c-dev character device bound to one slave address and
// holding an exclusive advisory lock for its whole lifetime.
type i2cFile struct {
	fd int
}

// Open opens the i2c-dev device at path, locks it and binds it to address.
// The returned Device owns the handle; close it as soon as the operation
// is complete so other users of the bus are not starved.
func Open(path string, address uint16) (Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	if err := unix.IoctlSetInt(fd, i2cSlave, int(address)); err != nil {
		unix.Flock(fd, unix.LOCK_UN)
		unix.Close(fd)
		return nil, fmt.Errorf("set i2c address 0x%02x on %s: %w", address, path, err)
	}

	return NewConn(&i2cFile{fd: fd}), nil
}

func (f *i2cFile) Read(p []byte) (int, error) {
	return unix.Read(f.fd, p)
}

func (f *i2cFile) Write(p []byte) (int, error) {
	return unix.Write(f.fd, p)
}

func (f *i2cFile) Close() error {
	unix.Flock(f.fd, unix.LOCK_UN)
	return unix.Close(f.fd)
}
