package columnar

import (
	"errors"
	"fmt"

	"github.com/ajitpratap0/resultset/pkg/arena"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
)

var (
	// ErrNullValue is returned when appending nil. Columns have no nulls.
	ErrNullValue = errors.New("null values are not supported")
	// ErrTypeMismatch is returned when a value does not fit the builder's type.
	ErrTypeMismatch = errors.New("value does not match column type")
)

// maxInterned bounds the per-builder intern table. Distinct strings past the
// bound are stored as they arrive.
const maxInterned = 4096

// Builder accumulates the values of one column row by row, for sources
// that produce rows rather than columns. It is not safe for concurrent use.
type Builder[S scalar.Scalar] struct {
	typ ColumnType

	bools   []bool
	tinies  []int8
	ints    []int32
	bigints []int64
	wides   []Int128
	strs    []string
	scalars []S

	// interned deduplicates VARCHAR values so low-cardinality text columns
	// share one backing string per distinct value.
	interned map[string]string
}

// NewBuilder creates an empty builder for typ.
func NewBuilder[S scalar.Scalar](typ ColumnType) (*Builder[S], error) {
	if typ < ColumnTypeBoolean || typ > ColumnTypeScalar {
		return nil, rserrors.New(rserrors.ErrorTypeCapability, fmt.Sprintf("unknown column type %s", typ))
	}
	return &Builder[S]{typ: typ}, nil
}

// Type returns the column type being built.
func (b *Builder[S]) Type() ColumnType {
	return b.typ
}

// Len returns the number of values appended since the last Finish.
func (b *Builder[S]) Len() int {
	switch b.typ {
	case ColumnTypeBoolean:
		return len(b.bools)
	case ColumnTypeTinyInt:
		return len(b.tinies)
	case ColumnTypeInt:
		return len(b.ints)
	case ColumnTypeBigInt:
		return len(b.bigints)
	case ColumnTypeInt128:
		return len(b.wides)
	case ColumnTypeVarChar:
		return len(b.strs)
	default:
		return len(b.scalars)
	}
}

// Append adds one value. Narrower integers widen into wider column types:
// int16 fits INT, int16 and int32 fit BIGINT, and any of those fit
// DECIMAL(38,0). Narrowing is never done.
func (b *Builder[S]) Append(v interface{}) error {
	if v == nil {
		return ErrNullValue
	}

	switch b.typ {
	case ColumnTypeBoolean:
		if x, ok := v.(bool); ok {
			b.bools = append(b.bools, x)
			return nil
		}
	case ColumnTypeTinyInt:
		if x, ok := v.(int8); ok {
			b.tinies = append(b.tinies, x)
			return nil
		}
	case ColumnTypeInt:
		switch x := v.(type) {
		case int8:
			b.ints = append(b.ints, int32(x))
			return nil
		case int16:
			b.ints = append(b.ints, int32(x))
			return nil
		case int32:
			b.ints = append(b.ints, x)
			return nil
		}
	case ColumnTypeBigInt:
		if x, ok := widen64(v); ok {
			b.bigints = append(b.bigints, x)
			return nil
		}
	case ColumnTypeInt128:
		if x, ok := v.(Int128); ok {
			b.wides = append(b.wides, x)
			return nil
		}
		if x, ok := widen64(v); ok {
			b.wides = append(b.wides, Int128From64(x))
			return nil
		}
	case ColumnTypeVarChar:
		if x, ok := v.(string); ok {
			b.strs = append(b.strs, b.intern(x))
			return nil
		}
	case ColumnTypeScalar:
		if x, ok := v.(S); ok {
			b.scalars = append(b.scalars, x)
			return nil
		}
	}

	return rserrors.Wrap(ErrTypeMismatch, rserrors.ErrorTypeData, fmt.Sprintf("cannot append %T to %s column", v, b.typ)).
		WithDetail("type", b.typ.String())
}

func (b *Builder[S]) intern(s string) string {
	if v, ok := b.interned[s]; ok {
		return v
	}
	if b.interned == nil {
		b.interned = make(map[string]string)
	}
	if len(b.interned) < maxInterned {
		b.interned[s] = s
	}
	return s
}

func widen64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	}
	return 0, false
}

// Finish copies the accumulated values into a and returns them as a column.
// The builder is reset and can be reused.
func (b *Builder[S]) Finish(a *arena.Arena) (Column[S], error) {
	var (
		col Column[S]
		err error
	)
	switch b.typ {
	case ColumnTypeBoolean:
		var vals []bool
		vals, err = arena.Copy(a, b.bools)
		col, b.bools = BooleanColumn[S](vals), b.bools[:0]
	case ColumnTypeTinyInt:
		var vals []int8
		vals, err = arena.Copy(a, b.tinies)
		col, b.tinies = TinyIntColumn[S](vals), b.tinies[:0]
	case ColumnTypeInt:
		var vals []int32
		vals, err = arena.Copy(a, b.ints)
		col, b.ints = IntColumn[S](vals), b.ints[:0]
	case ColumnTypeBigInt:
		var vals []int64
		vals, err = arena.Copy(a, b.bigints)
		col, b.bigints = BigIntColumn[S](vals), b.bigints[:0]
	case ColumnTypeInt128:
		var vals []Int128
		vals, err = arena.Copy(a, b.wides)
		col, b.wides = Int128Column[S](vals), b.wides[:0]
	case ColumnTypeVarChar:
		var vals []string
		vals, err = arena.Copy(a, b.strs)
		col, b.strs = VarCharColumn[S](vals), b.strs[:0]
		clear(b.interned)
	default:
		var vals []S
		vals, err = arena.Copy(a, b.scalars)
		col, b.scalars = ScalarColumn[S](vals), b.scalars[:0]
	}
	if err != nil {
		return nil, err
	}
	return col, nil
}
