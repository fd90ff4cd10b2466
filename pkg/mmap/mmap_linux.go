//go:build linux

package mmap

import "syscall"

// adviseRandom tells the kernel that access will jump around the mapping,
// as it does when a Parquet reader follows the footer to column chunks.
func adviseRandom(b []byte) error {
	return syscall.Madvise(b, syscall.MADV_RANDOM)
}
