// Package table provides Table, the validated in-memory form of a query
// result before it is encoded as an Arrow record batch or JSON.
//
// A Table is an ordered mapping from column identifier to column plus a
// cached row count. It is validated once, at construction, and is read-only
// afterwards: there is no API to add, remove or change columns. Column order
// is significant. It defines enumeration order and takes part in equality,
// matching the behavior of a record batch.
//
// Columns borrow their storage (see package arena). A Table is safe to read
// from many goroutines without locking, as long as nobody mutates or
// releases that storage while it is in use.
package table

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/resultset/pkg/columnar"
	"github.com/ajitpratap0/resultset/pkg/identifier"
	"github.com/ajitpratap0/resultset/pkg/logger"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
)

var (
	// ErrColumnLengthMismatch is returned when the columns passed to New do
	// not all have the same length. It always points at a bug in whatever
	// assembled the columns.
	ErrColumnLengthMismatch = errors.New("columns have different lengths")

	// ErrNilColumn is returned when the mapping holds a nil column.
	ErrNilColumn = errors.New("column is nil")

	// ErrDuplicateColumn is returned by Insert when the name is taken.
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Pair is one named column, used to build a table from a list.
type Pair[S scalar.Scalar] struct {
	Name   identifier.Identifier
	Column columnar.Column[S]
}

// Field describes one column of a table's schema.
type Field struct {
	Name identifier.Identifier
	Type columnar.ColumnType
}

// Table is an ordered set of equal-length named columns.
type Table[S scalar.Scalar] struct {
	columns *orderedmap.OrderedMap[identifier.Identifier, columnar.Column[S]]
	numRows int
}

// NewMapping returns an empty ordered mapping suitable for New.
func NewMapping[S scalar.Scalar]() *orderedmap.OrderedMap[identifier.Identifier, columnar.Column[S]] {
	return orderedmap.New[identifier.Identifier, columnar.Column[S]]()
}

// New validates m and wraps it in a Table. The table takes ownership of m;
// the caller must not modify it afterwards.
//
// The row count is the length of the first column in insertion order. Every
// other column must have that length, otherwise New fails with an error
// matching ErrColumnLengthMismatch. An empty (or nil) mapping yields a table
// with no columns and zero rows.
func New[S scalar.Scalar](m *orderedmap.OrderedMap[identifier.Identifier, columnar.Column[S]]) (*Table[S], error) {
	if m == nil {
		m = NewMapping[S]()
	}

	first := m.Oldest()
	if first == nil {
		return &Table[S]{columns: m}, nil
	}
	if first.Value == nil {
		return nil, nilColumn(first.Key)
	}

	numRows := first.Value.Len()
	for pair := first.Next(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			return nil, nilColumn(pair.Key)
		}
		if n := pair.Value.Len(); n != numRows {
			logger.Debug("rejected table with ragged columns",
				zap.Stringer("reference_column", first.Key),
				zap.Stringer("column", pair.Key),
				zap.Int("expected_rows", numRows),
				zap.Int("actual_rows", n))
			return nil, rserrors.Wrap(ErrColumnLengthMismatch, rserrors.ErrorTypeValidation, "cannot build table").
				WithDetail("column", pair.Key.String()).
				WithDetail("expected_rows", numRows).
				WithDetail("actual_rows", n)
		}
	}

	return &Table[S]{columns: m, numRows: numRows}, nil
}

// Insert adds col to m under name, failing with ErrDuplicateColumn instead
// of replacing a column that is already there. Decoders use it so a source
// with repeated names is rejected rather than collapsed.
func Insert[S scalar.Scalar](m *orderedmap.OrderedMap[identifier.Identifier, columnar.Column[S]], name identifier.Identifier, col columnar.Column[S]) error {
	if _, ok := m.Get(name); ok {
		return rserrors.Wrap(ErrDuplicateColumn, rserrors.ErrorTypeValidation, "cannot build table").
			WithDetail("column", name.String())
	}
	m.Set(name, col)
	return nil
}

// FromSeq collects seq into a mapping and calls New. A repeated name
// overwrites the earlier column but keeps its original position.
func FromSeq[S scalar.Scalar](seq iter.Seq2[identifier.Identifier, columnar.Column[S]]) (*Table[S], error) {
	m := NewMapping[S]()
	for name, col := range seq {
		m.Set(name, col)
	}
	return New(m)
}

// FromPairs is FromSeq over a list of pairs.
func FromPairs[S scalar.Scalar](pairs ...Pair[S]) (*Table[S], error) {
	m := NewMapping[S]()
	for _, p := range pairs {
		m.Set(p.Name, p.Column)
	}
	return New(m)
}

// MustNew is like FromPairs but panics on error. Intended for literals.
func MustNew[S scalar.Scalar](pairs ...Pair[S]) *Table[S] {
	t, err := FromPairs(pairs...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumColumns returns the number of columns.
func (t *Table[S]) NumColumns() int {
	if t.columns == nil {
		return 0
	}
	return t.columns.Len()
}

// NumRows returns the shared length of all columns.
func (t *Table[S]) NumRows() int {
	return t.numRows
}

// IsEmpty reports whether the table has no columns. A table with columns
// but zero rows is not empty.
func (t *Table[S]) IsEmpty() bool {
	return t.NumColumns() == 0
}

// IntoMapping moves the underlying mapping out of t. Afterwards t is an
// empty table; the caller owns the returned mapping.
func (t *Table[S]) IntoMapping() *orderedmap.OrderedMap[identifier.Identifier, columnar.Column[S]] {
	m := t.columns
	if m == nil {
		m = NewMapping[S]()
	}
	t.columns = nil
	t.numRows = 0
	return m
}

// Mapping returns a read-only view of the columns.
func (t *Table[S]) Mapping() View[S] {
	return View[S]{m: t.columns}
}

// ColumnNames yields the column identifiers in insertion order. Each call
// starts a fresh pass over the same order.
func (t *Table[S]) ColumnNames() iter.Seq[identifier.Identifier] {
	return t.Mapping().Keys()
}

// Column returns the column named id.
func (t *Table[S]) Column(id identifier.Identifier) (columnar.Column[S], bool) {
	return t.Mapping().Get(id)
}

// Schema returns the name and type of each column, in order.
func (t *Table[S]) Schema() []Field {
	fields := make([]Field, 0, t.NumColumns())
	for name, col := range t.Mapping().All() {
		fields = append(fields, Field{Name: name, Type: col.Type()})
	}
	return fields
}

// Equal reports whether t and other hold equal columns under equal names
// in the same order. Two tables with the same columns declared in a
// different order are not equal.
func (t *Table[S]) Equal(other *Table[S]) bool {
	if t == nil || other == nil {
		return t == other
	}
	a, b := t.Mapping(), other.Mapping()
	if !a.equalUnordered(b) {
		return false
	}
	next, stop := iter.Pull(b.Keys())
	defer stop()
	for name := range a.Keys() {
		if otherName, ok := next(); !ok || otherName != name {
			return false
		}
	}
	return true
}

// String returns a one-line summary such as "table[2x3](a BIGINT, b VARCHAR)",
// giving columns x rows.
func (t *Table[S]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "table[%dx%d](", t.NumColumns(), t.NumRows())
	i := 0
	for name, col := range t.Mapping().All() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name.String())
		sb.WriteByte(' ')
		sb.WriteString(col.Type().String())
		i++
	}
	sb.WriteByte(')')
	return sb.String()
}

func nilColumn(name identifier.Identifier) error {
	return rserrors.Wrap(ErrNilColumn, rserrors.ErrorTypeValidation, "cannot build table").
		WithDetail("column", name.String())
}
