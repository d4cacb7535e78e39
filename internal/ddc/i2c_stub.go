//go:build !linux

package ddc

import (
	"fmt"
	"runtime"
)

// Open is only implemented on Linux, where i2c-dev exists.
func Open(path string, address uint16) (Device, error) {
	return nil, fmt.Errorf("open %s: i2c-dev is not available on %s", path, runtime.GOOS)
}
