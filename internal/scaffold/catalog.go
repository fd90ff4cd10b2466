// Package scaffold generates synthetic result tables for a fixed catalog of
// benchmark queries.
package scaffold

import (
	"strings"

	"github.com/ajitpratap0/resultset/pkg/columnar"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
)

// Bound returns the largest absolute value generated for a column of a table
// with size rows. A nil Bound means the column type's full range.
type Bound func(size int) int64

// ColumnSpec describes one generated column.
type ColumnSpec struct {
	Name  string
	Type  columnar.ColumnType
	Bound Bound
}

// Query is one catalog entry: a title, the SQL it benchmarks and the columns
// of the table it runs over.
type Query struct {
	Title   string
	SQL     string
	Columns []ColumnSpec
}

// SizeBound is the bound used by every bounded catalog column: a tenth of
// the table size, but at least 10.
func SizeBound(size int) int64 {
	return max(int64(size/10), 10)
}

var catalog = []Query{
	{
		Title: "Single Column Filter",
		SQL:   "SELECT b FROM table WHERE a = 0",
		Columns: []ColumnSpec{
			{Name: "a", Type: columnar.ColumnTypeBigInt, Bound: SizeBound},
			{Name: "b", Type: columnar.ColumnTypeVarChar},
		},
	},
	{
		Title: "Multi Column Filter",
		SQL:   "SELECT * FROM table WHERE ((a = 0) or (b = 1)) and (not (c = 'a'))",
		Columns: []ColumnSpec{
			{Name: "a", Type: columnar.ColumnTypeBigInt, Bound: SizeBound},
			{Name: "b", Type: columnar.ColumnTypeBigInt, Bound: SizeBound},
			{Name: "c", Type: columnar.ColumnTypeVarChar},
		},
	},
	{
		Title: "Arithmetic",
		SQL:   "SELECT a + b as r0, a * b - 2 as r1, c FROM table WHERE a <= b AND a >= 0",
		Columns: []ColumnSpec{
			{Name: "a", Type: columnar.ColumnTypeBigInt, Bound: SizeBound},
			{Name: "b", Type: columnar.ColumnTypeTinyInt, Bound: SizeBound},
			{Name: "c", Type: columnar.ColumnTypeVarChar},
		},
	},
	{
		Title: "Group By",
		SQL:   "SELECT a, COUNT(*) FROM table WHERE (c = TRUE) and (a <= b) and (a > 0) GROUP BY a",
		Columns: []ColumnSpec{
			{Name: "a", Type: columnar.ColumnTypeInt128, Bound: SizeBound},
			{Name: "b", Type: columnar.ColumnTypeTinyInt, Bound: SizeBound},
			{Name: "c", Type: columnar.ColumnTypeBoolean},
		},
	},
	{
		Title: "Aggregate",
		SQL:   "SELECT SUM(a) FROM table WHERE b = a OR c = 'ab'",
		Columns: []ColumnSpec{
			{Name: "a", Type: columnar.ColumnTypeBigInt, Bound: SizeBound},
			{Name: "b", Type: columnar.ColumnTypeInt, Bound: SizeBound},
			{Name: "c", Type: columnar.ColumnTypeVarChar},
		},
	},
}

// Queries returns the catalog in benchmark order. The slice is a copy.
func Queries() []Query {
	out := make([]Query, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a catalog query by title, ignoring case.
func Lookup(title string) (Query, error) {
	for _, q := range catalog {
		if strings.EqualFold(q.Title, title) {
			return q, nil
		}
	}
	return Query{}, rserrors.New(rserrors.ErrorTypeValidation, "unknown scaffold query").
		WithDetail("query", title)
}
