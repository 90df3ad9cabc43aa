//go:build !windows

package filesystem

import (
	"errors"
	"syscall"
)

// isCrossDevice reports whether a rename failed because source and
// destination are on different filesystems (Unix)
func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
