//go:build darwin

package mmap

import (
	"syscall"
	"unsafe"
)

const madvRandom = 1

// adviseRandom tells the kernel that access will jump around the mapping.
func adviseRandom(b []byte) error {
	_, _, errno := syscall.Syscall(syscall.SYS_MADVISE, uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)), madvRandom)
	if errno != 0 {
		return errno
	}
	return nil
}
