//go:build linux || darwin

package mmap

import (
	"os"
	"syscall"
)

const mapped = true

// mapFile maps size bytes of f read-only.
func mapFile(f *os.File, size int) ([]byte, error) {
	return syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ, syscall.MAP_SHARED)
}

// unmap wraps the munmap system call
func unmap(b []byte) error {
	return syscall.Munmap(b)
}
