//go:build !linux && !darwin

package mmap

import (
	"io"
	"os"
)

const mapped = false

// mapFile reads the file into memory on platforms without mmap support.
func mapFile(f *os.File, size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(f, b); err != nil {
		return nil, err
	}
	return b, nil
}

func unmap([]byte) error { return nil }

func adviseRandom([]byte) error { return nil }
