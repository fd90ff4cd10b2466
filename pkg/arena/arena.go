// Package arena owns the backing storage that result columns borrow.
//
// Columns are views over slices; Go cannot check that a view does not
// outlive its storage, so the relationship is made explicit. An Arena hands
// out slices from pooled buffers and takes them all back on Release. Any
// column or table built over those slices is valid only while the arena is
// alive. The usual way to respect that is scoped acquisition:
//
//	err := arena.With(func(a *arena.Arena) error {
//	    vals, err := arena.Alloc[int64](a, n)
//	    if err != nil {
//	        return err
//	    }
//	    fill(vals)
//	    tbl, err := table.FromPairs(table.Pair[S]{Name: id, Column: columnar.BigIntColumn[S](vals)})
//	    if err != nil {
//	        return err
//	    }
//	    return encode(tbl) // tbl must not escape fn
//	})
package arena

import (
	"errors"
	"reflect"
	"sync"

	"github.com/ajitpratap0/resultset/pkg/rserrors"
)

// maxPooledLen caps the element count of buffers kept for reuse.
const maxPooledLen = 1 << 20

// ErrReleased is returned when allocating from a released arena.
var ErrReleased = errors.New("arena released")

// pools holds one *Pool[*[]T] per element type.
var pools sync.Map

func poolFor[T any]() *Pool[*[]T] {
	key := reflect.TypeFor[T]()
	if p, ok := pools.Load(key); ok {
		return p.(*Pool[*[]T])
	}
	p, _ := pools.LoadOrStore(key, NewPool(
		func() *[]T { s := make([]T, 0, 1024); return &s },
		func(s *[]T) { clear((*s)[:cap(*s)]); *s = (*s)[:0] },
	))
	return p.(*Pool[*[]T])
}

// Arena tracks pooled buffers handed out for column storage. It is safe for
// concurrent use.
type Arena struct {
	mu       sync.Mutex
	released bool
	buffers  []func()
	elements int
}

// New creates a live arena.
func New() *Arena {
	return &Arena{}
}

// Alloc returns a zeroed slice of n elements owned by a.
func Alloc[T any](a *Arena, n int) ([]T, error) {
	if n < 0 {
		return nil, rserrors.New(rserrors.ErrorTypeValidation, "negative allocation size").
			WithDetail("size", n)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		return nil, rserrors.Wrap(ErrReleased, rserrors.ErrorTypeInternal, "cannot allocate")
	}

	if n > maxPooledLen {
		a.elements += n
		return make([]T, n), nil
	}

	p := poolFor[T]()
	buf := p.Get()
	if cap(*buf) < n {
		*buf = make([]T, n)
	}
	*buf = (*buf)[:n]
	a.buffers = append(a.buffers, func() { p.Put(buf) })
	a.elements += n
	return *buf, nil
}

// Copy allocates a slice in a and copies src into it.
func Copy[T any](a *Arena, src []T) ([]T, error) {
	dst, err := Alloc[T](a, len(src))
	if err != nil {
		return nil, err
	}
	copy(dst, src)
	return dst, nil
}

// Alive reports whether a has not been released.
func (a *Arena) Alive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.released
}

// Elements returns the total number of elements allocated from a.
func (a *Arena) Elements() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.elements
}

// Release returns every buffer to its pool. Slices obtained from a must not
// be used afterwards. Release is idempotent.
func (a *Arena) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		return
	}
	a.released = true
	for _, put := range a.buffers {
		put()
	}
	a.buffers = nil
}

// With runs fn with a fresh arena and releases it when fn returns, even if
// fn panics.
func With(fn func(a *Arena) error) error {
	a := New()
	defer a.Release()
	return fn(a)
}
