//go:build windows

package filesystem

var errNotSameDeviceForTest = errNotSameDevice
