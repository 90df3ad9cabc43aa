//go:build windows

package filesystem

import (
	"errors"
	"syscall"
)

// ERROR_NOT_SAME_DEVICE
const errNotSameDevice = syscall.Errno(17)

// isCrossDevice reports whether a rename failed because source and
// destination are on different volumes (Windows)
func isCrossDevice(err error) bool {
	return errors.Is(err, errNotSameDevice)
}
