package mmap

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/resultset/pkg/rserrors"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestOpen(t *testing.T) {
	data := []byte("PAR1 some bytes PAR1")
	r, err := Open(writeFile(t, data))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, data, r.Bytes())
	assert.Equal(t, len(data), r.Len())
}

func TestReadAt(t *testing.T) {
	r, err := Open(writeFile(t, []byte("0123456789")))
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, 4)
	n, err := r.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "3456", string(buf))

	n, err = r.ReadAt(buf, 8)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "89", string(buf[:n]))

	_, err = r.ReadAt(buf, 10)
	assert.Equal(t, io.EOF, err)

	_, err = r.ReadAt(buf, -1)
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeValidation))
}

func TestConcurrentReadAt(t *testing.T) {
	data := make([]byte, 1<<16)
	for i := range data {
		data[i] = byte(i)
	}
	r, err := Open(writeFile(t, data))
	require.NoError(t, err)
	defer r.Close()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			buf := make([]byte, 256)
			off := int64(w * 4096)
			_, err := r.ReadAt(buf, off)
			assert.NoError(t, err)
			assert.Equal(t, data[off:off+256], buf)
		}(w)
	}
	wg.Wait()
}

func TestEmptyFile(t *testing.T) {
	r, err := Open(writeFile(t, nil))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())
	_, err = r.ReadAt(make([]byte, 1), 0)
	assert.Equal(t, io.EOF, err)
	require.NoError(t, r.Close())
}

func TestClose(t *testing.T) {
	r, err := Open(writeFile(t, []byte("abc")))
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Nil(t, r.Bytes())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeFile))
}
