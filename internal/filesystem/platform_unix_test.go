//go:build !windows

package filesystem

import "syscall"

var errNotSameDeviceForTest = syscall.EXDEV
