package columnar

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/resultset/pkg/arena"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
)

func TestBuilder(t *testing.T) {
	a := arena.New()
	defer a.Release()

	tests := []struct {
		typ    ColumnType
		values []interface{}
		want   Column[fe]
	}{
		{ColumnTypeBoolean, []interface{}{true, false}, BooleanColumn[fe]{true, false}},
		{ColumnTypeTinyInt, []interface{}{int8(-1), int8(2)}, TinyIntColumn[fe]{-1, 2}},
		{ColumnTypeInt, []interface{}{int8(1), int16(-2), int32(3)}, IntColumn[fe]{1, -2, 3}},
		{ColumnTypeBigInt, []interface{}{int16(1), int32(2), int64(-3)}, BigIntColumn[fe]{1, 2, -3}},
		{ColumnTypeInt128, []interface{}{int64(-1), Int128{Hi: 1}}, Int128Column[fe]{Int128From64(-1), {Hi: 1}}},
		{ColumnTypeVarChar, []interface{}{"a", ""}, VarCharColumn[fe]{"a", ""}},
		{ColumnTypeScalar, []interface{}{scalar.FromInt64(4)}, ScalarColumn[fe]{scalar.FromInt64(4)}},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			b, err := NewBuilder[fe](tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, b.Type())
			for _, v := range tt.values {
				require.NoError(t, b.Append(v))
			}
			assert.Equal(t, len(tt.values), b.Len())

			col, err := b.Finish(a)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, col), "got %v", col)
			assert.Equal(t, 0, b.Len())

			// A finished builder starts over.
			empty, err := b.Finish(a)
			require.NoError(t, err)
			assert.Equal(t, 0, empty.Len())
			assert.Equal(t, tt.typ, empty.Type())
		})
	}
}

func TestBuilderRejects(t *testing.T) {
	b, err := NewBuilder[fe](ColumnTypeInt)
	require.NoError(t, err)

	assert.ErrorIs(t, b.Append(nil), ErrNullValue)

	err = b.Append(int64(1))
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeData))

	assert.ErrorIs(t, b.Append("1"), ErrTypeMismatch)
	assert.Equal(t, 0, b.Len())

	tiny, err := NewBuilder[fe](ColumnTypeTinyInt)
	require.NoError(t, err)
	assert.ErrorIs(t, tiny.Append(int32(1)), ErrTypeMismatch)

	_, err = NewBuilder[fe](ColumnType(42))
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeCapability))
}

func TestBuilderReleasedArena(t *testing.T) {
	b, err := NewBuilder[fe](ColumnTypeBigInt)
	require.NoError(t, err)
	require.NoError(t, b.Append(int64(1)))

	a := arena.New()
	a.Release()
	_, err = b.Finish(a)
	assert.ErrorIs(t, err, arena.ErrReleased)
}

func TestBuilderCopiesIntoArena(t *testing.T) {
	a := arena.New()
	defer a.Release()

	b, err := NewBuilder[fe](ColumnTypeBigInt)
	require.NoError(t, err)
	require.NoError(t, b.Append(int64(7)))
	col, err := b.Finish(a)
	require.NoError(t, err)

	// Reusing the builder does not disturb the finished column.
	require.NoError(t, b.Append(int64(8)))
	assert.Equal(t, BigIntColumn[fe]{7}, col)
	assert.Equal(t, 1, a.Elements())
}

func TestBuilderInternsVarChar(t *testing.T) {
	a := arena.New()
	defer a.Release()

	b, err := NewBuilder[fe](ColumnTypeVarChar)
	require.NoError(t, err)

	x, y := strings.Repeat("ab", 8), strings.Repeat("ab", 8)
	require.NotSame(t, unsafe.StringData(x), unsafe.StringData(y))
	require.NoError(t, b.Append(x))
	require.NoError(t, b.Append(y))
	require.NoError(t, b.Append("other"))

	col, err := b.Finish(a)
	require.NoError(t, err)
	vals := col.(VarCharColumn[fe])
	assert.Equal(t, VarCharColumn[fe]{x, x, "other"}, vals)
	assert.Same(t, unsafe.StringData(vals[0]), unsafe.StringData(vals[1]))

	// The table is cleared on Finish.
	require.NoError(t, b.Append(y))
	col, err = b.Finish(a)
	require.NoError(t, err)
	assert.Same(t, unsafe.StringData(y), unsafe.StringData(col.(VarCharColumn[fe])[0]))
}
