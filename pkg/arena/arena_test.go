package arena

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlloc(t *testing.T) {
	a := New()
	defer a.Release()

	ints, err := Alloc[int64](a, 5)
	require.NoError(t, err)
	assert.Len(t, ints, 5)
	for _, v := range ints {
		assert.Zero(t, v)
	}

	strs, err := Alloc[string](a, 3)
	require.NoError(t, err)
	assert.Len(t, strs, 3)

	empty, err := Alloc[bool](a, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.Equal(t, 8, a.Elements())
}

func TestAllocLarge(t *testing.T) {
	a := New()
	defer a.Release()

	big, err := Alloc[int8](a, maxPooledLen+1)
	require.NoError(t, err)
	assert.Len(t, big, maxPooledLen+1)
}

func TestAllocNegative(t *testing.T) {
	a := New()
	defer a.Release()

	_, err := Alloc[int32](a, -1)
	assert.Error(t, err)
}

func TestCopy(t *testing.T) {
	a := New()
	defer a.Release()

	src := []string{"x", "y"}
	dst, err := Copy(a, src)
	require.NoError(t, err)
	assert.Equal(t, src, dst)

	src[0] = "changed"
	assert.Equal(t, "x", dst[0])
}

func TestRelease(t *testing.T) {
	a := New()
	_, err := Alloc[int64](a, 10)
	require.NoError(t, err)
	require.True(t, a.Alive())

	a.Release()
	assert.False(t, a.Alive())
	a.Release()

	_, err = Alloc[int64](a, 1)
	assert.ErrorIs(t, err, ErrReleased)
}

func TestReusedBuffersAreZeroed(t *testing.T) {
	a := New()
	vals, err := Alloc[int64](a, 4)
	require.NoError(t, err)
	for i := range vals {
		vals[i] = int64(i + 1)
	}
	a.Release()

	b := New()
	defer b.Release()
	again, err := Alloc[int64](b, 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 0, 0}, again)
}

func TestWith(t *testing.T) {
	var captured *Arena
	err := With(func(a *Arena) error {
		captured = a
		_, err := Alloc[string](a, 2)
		return err
	})
	require.NoError(t, err)
	assert.False(t, captured.Alive())

	boom := errors.New("boom")
	err = With(func(a *Arena) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestConcurrentAlloc(t *testing.T) {
	a := New()
	defer a.Release()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Alloc[int32](a, 16)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 8*16, a.Elements())
}

func TestPoolStats(t *testing.T) {
	p := NewPool(func() *[]byte { b := make([]byte, 0, 8); return &b }, nil)

	b := p.Get()
	_, inUse, gets := p.Stats()
	assert.Equal(t, int64(1), inUse)
	assert.Equal(t, int64(1), gets)

	p.Put(b)
	allocated, inUse, _ := p.Stats()
	assert.Equal(t, int64(0), inUse)
	assert.GreaterOrEqual(t, allocated, int64(1))
}
