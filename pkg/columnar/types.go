package columnar

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/ajitpratap0/resultset/pkg/scalar"
)

// ColumnType is the logical SQL type of a column.
type ColumnType int

const (
	ColumnTypeBoolean ColumnType = iota
	ColumnTypeTinyInt
	ColumnTypeInt
	ColumnTypeBigInt
	ColumnTypeInt128
	ColumnTypeVarChar
	ColumnTypeScalar
)

var columnTypeNames = [...]string{
	ColumnTypeBoolean: "BOOLEAN",
	ColumnTypeTinyInt: "TINYINT",
	ColumnTypeInt:     "INT",
	ColumnTypeBigInt:  "BIGINT",
	ColumnTypeInt128:  "DECIMAL(38,0)",
	ColumnTypeVarChar: "VARCHAR",
	ColumnTypeScalar:  "SCALAR",
}

func (t ColumnType) String() string {
	if t < 0 || int(t) >= len(columnTypeNames) {
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
	return columnTypeNames[t]
}

// ParseColumnType accepts the SQL names returned by String, plus the short
// aliases INT128 and TEXT. Matching is case-insensitive.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BOOLEAN", "BOOL":
		return ColumnTypeBoolean, nil
	case "TINYINT":
		return ColumnTypeTinyInt, nil
	case "INT", "INTEGER":
		return ColumnTypeInt, nil
	case "BIGINT":
		return ColumnTypeBigInt, nil
	case "INT128", "DECIMAL(38,0)":
		return ColumnTypeInt128, nil
	case "VARCHAR", "TEXT":
		return ColumnTypeVarChar, nil
	case "SCALAR":
		return ColumnTypeScalar, nil
	default:
		return 0, fmt.Errorf("unknown column type %q", s)
	}
}

// Int128 is a two's-complement 128-bit signed integer.
type Int128 struct {
	Hi int64
	Lo uint64
}

// Int128From64 sign-extends v.
func Int128From64(v int64) Int128 {
	hi := int64(0)
	if v < 0 {
		hi = -1
	}
	return Int128{Hi: hi, Lo: uint64(v)}
}

var (
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	two128    = new(big.Int).Lsh(big.NewInt(1), 128)
	mask64    = new(big.Int).SetUint64(^uint64(0))
)

// Int128FromBigInt converts b, reporting false if it is out of range.
func Int128FromBigInt(b *big.Int) (Int128, bool) {
	if b.Cmp(minInt128) < 0 || b.Cmp(maxInt128) > 0 {
		return Int128{}, false
	}
	x := new(big.Int).Set(b)
	if x.Sign() < 0 {
		x.Add(x, two128)
	}
	lo := new(big.Int).And(x, mask64).Uint64()
	hi := new(big.Int).Rsh(x, 64).Uint64()
	return Int128{Hi: int64(hi), Lo: lo}, true
}

// BigInt returns the value as an arbitrary-precision integer.
func (v Int128) BigInt() *big.Int {
	b := big.NewInt(v.Hi)
	b.Lsh(b, 64)
	return b.Add(b, new(big.Int).SetUint64(v.Lo))
}

func (v Int128) String() string {
	if (v.Hi == 0 && v.Lo <= 1<<63-1) || (v.Hi == -1 && v.Lo >= 1<<63) {
		return fmt.Sprint(int64(v.Lo))
	}
	return v.BigInt().String()
}

// Column is a typed, fixed-length, read-only view over a borrowed slice.
//
// The set of implementations is closed: only the variant types in this
// package satisfy it, and each variant fixes its element type, so a column
// whose tag disagrees with its values cannot be built.
type Column[S scalar.Scalar] interface {
	// Len returns the number of values.
	Len() int
	// Type returns the logical SQL type tag.
	Type() ColumnType
	column(S)
}

// Variants. Converting a slice to one of these types does not copy it; the
// column aliases the caller's storage and must not outlive it.
type (
	BooleanColumn[S scalar.Scalar] []bool
	TinyIntColumn[S scalar.Scalar] []int8
	IntColumn[S scalar.Scalar]     []int32
	BigIntColumn[S scalar.Scalar]  []int64
	Int128Column[S scalar.Scalar]  []Int128
	VarCharColumn[S scalar.Scalar] []string
	ScalarColumn[S scalar.Scalar]  []S
)

func (c BooleanColumn[S]) Len() int { return len(c) }
func (c TinyIntColumn[S]) Len() int { return len(c) }
func (c IntColumn[S]) Len() int     { return len(c) }
func (c BigIntColumn[S]) Len() int  { return len(c) }
func (c Int128Column[S]) Len() int  { return len(c) }
func (c VarCharColumn[S]) Len() int { return len(c) }
func (c ScalarColumn[S]) Len() int  { return len(c) }

func (BooleanColumn[S]) Type() ColumnType { return ColumnTypeBoolean }
func (TinyIntColumn[S]) Type() ColumnType { return ColumnTypeTinyInt }
func (IntColumn[S]) Type() ColumnType     { return ColumnTypeInt }
func (BigIntColumn[S]) Type() ColumnType  { return ColumnTypeBigInt }
func (Int128Column[S]) Type() ColumnType  { return ColumnTypeInt128 }
func (VarCharColumn[S]) Type() ColumnType { return ColumnTypeVarChar }
func (ScalarColumn[S]) Type() ColumnType  { return ColumnTypeScalar }

func (BooleanColumn[S]) column(S) {}
func (TinyIntColumn[S]) column(S) {}
func (IntColumn[S]) column(S)     {}
func (BigIntColumn[S]) column(S)  {}
func (Int128Column[S]) column(S)  {}
func (VarCharColumn[S]) column(S) {}
func (ScalarColumn[S]) column(S)  {}

// Equal reports whether a and b are the same variant with equal values.
// Nil columns are equal only to each other.
func Equal[S scalar.Scalar](a, b Column[S]) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case BooleanColumn[S]:
		y, ok := b.(BooleanColumn[S])
		return ok && slices.Equal(x, y)
	case TinyIntColumn[S]:
		y, ok := b.(TinyIntColumn[S])
		return ok && slices.Equal(x, y)
	case IntColumn[S]:
		y, ok := b.(IntColumn[S])
		return ok && slices.Equal(x, y)
	case BigIntColumn[S]:
		y, ok := b.(BigIntColumn[S])
		return ok && slices.Equal(x, y)
	case Int128Column[S]:
		y, ok := b.(Int128Column[S])
		return ok && slices.Equal(x, y)
	case VarCharColumn[S]:
		y, ok := b.(VarCharColumn[S])
		return ok && slices.Equal(x, y)
	case ScalarColumn[S]:
		y, ok := b.(ScalarColumn[S])
		return ok && slices.Equal(x, y)
	}
	return false
}

// Value returns the i-th value boxed in an interface. It is meant for
// debugging and row-oriented consumers; encoders switch on the variant.
func Value[S scalar.Scalar](c Column[S], i int) interface{} {
	switch x := c.(type) {
	case BooleanColumn[S]:
		return x[i]
	case TinyIntColumn[S]:
		return x[i]
	case IntColumn[S]:
		return x[i]
	case BigIntColumn[S]:
		return x[i]
	case Int128Column[S]:
		return x[i]
	case VarCharColumn[S]:
		return x[i]
	case ScalarColumn[S]:
		return x[i]
	}
	return nil
}
