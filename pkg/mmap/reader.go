// Package mmap provides read-only memory-mapped files for decoders that need
// random access, such as Parquet footers.
package mmap

import (
	"errors"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/resultset/pkg/logger"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
)

// ErrClosed is returned by reads after Close.
var ErrClosed = errors.New("mmap: reader closed")

// Reader is a read-only view of a whole file. It implements io.ReaderAt and
// is safe for concurrent reads.
type Reader struct {
	file *os.File
	data []byte

	mu     sync.RWMutex
	closed bool
}

// Open maps filename into memory. Empty files are mapped as an empty view.
func Open(filename string) (*Reader, error) {
	file, err := os.Open(filename) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to open file").
			WithDetail("path", filename)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to stat file").
			WithDetail("path", filename)
	}

	// mmap rejects zero-length mappings.
	size := stat.Size()
	if size == 0 {
		return &Reader{file: file}, nil
	}
	if int64(int(size)) != size {
		file.Close()
		return nil, rserrors.New(rserrors.ErrorTypeFile, "file too large to map").
			WithDetail("path", filename).
			WithDetail("size", size)
	}

	data, err := mapFile(file, int(size))
	if err != nil {
		file.Close()
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to mmap file").
			WithDetail("path", filename)
	}

	if err := adviseRandom(data); err != nil {
		// Non-fatal, just log
		logger.Debug("madvise failed", zap.String("path", filename), zap.Error(err))
	}

	return &Reader{file: file, data: data}, nil
}

// Mapped reports whether Open uses a real memory mapping on this platform.
func Mapped() bool {
	return mapped
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (r *Reader) Bytes() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data
}

// Len returns the file size.
func (r *Reader) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// ReadAt implements io.ReaderAt.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, rserrors.New(rserrors.ErrorTypeValidation, "negative offset").WithDetail("offset", off)
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the file and closes it. It is idempotent.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if r.data != nil {
		if err := unmap(r.data); err != nil {
			errs = append(errs, err)
		}
		r.data = nil
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to close mapped file")
	}
	return nil
}
