// Package tabletest contains helpers for tests that build and inspect
// tables. It is not part of the production API.
package tabletest

import (
	"testing"

	"github.com/ajitpratap0/resultset/pkg/columnar"
	"github.com/ajitpratap0/resultset/pkg/identifier"
	"github.com/ajitpratap0/resultset/pkg/scalar"
	"github.com/ajitpratap0/resultset/pkg/table"
)

// Column looks a column up by its textual name. The name is parsed as an
// identifier first; a malformed name or a missing column fails the test.
func Column[S scalar.Scalar](tb testing.TB, t *table.Table[S], name string) columnar.Column[S] {
	tb.Helper()
	id, err := identifier.Parse(name)
	if err != nil {
		tb.Fatalf("tabletest: parse column name %q: %v", name, err)
	}
	col, ok := t.Column(id)
	if !ok {
		tb.Fatalf("tabletest: no column %q in %s", name, t)
	}
	return col
}

// Pair builds a table.Pair from a textual name, panicking on a bad name.
func Pair[S scalar.Scalar](name string, col columnar.Column[S]) table.Pair[S] {
	return table.Pair[S]{Name: identifier.MustParse(name), Column: col}
}

// Names collects the table's column names as strings, in order.
func Names[S scalar.Scalar](t *table.Table[S]) []string {
	var names []string
	for id := range t.ColumnNames() {
		names = append(names, id.String())
	}
	return names
}
