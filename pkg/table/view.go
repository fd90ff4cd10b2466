package table

import (
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ajitpratap0/resultset/pkg/columnar"
	"github.com/ajitpratap0/resultset/pkg/identifier"
	"github.com/ajitpratap0/resultset/pkg/scalar"
)

// View is a read-only window onto a table's mapping. It shares the table's
// storage, so it is only as long-lived as the table's columns.
type View[S scalar.Scalar] struct {
	m *orderedmap.OrderedMap[identifier.Identifier, columnar.Column[S]]
}

// Len returns the number of columns.
func (v View[S]) Len() int {
	if v.m == nil {
		return 0
	}
	return v.m.Len()
}

// Get returns the column named id.
func (v View[S]) Get(id identifier.Identifier) (columnar.Column[S], bool) {
	if v.m == nil {
		return nil, false
	}
	return v.m.Get(id)
}

// All yields name/column pairs in insertion order.
func (v View[S]) All() iter.Seq2[identifier.Identifier, columnar.Column[S]] {
	return func(yield func(identifier.Identifier, columnar.Column[S]) bool) {
		if v.m == nil {
			return
		}
		for pair := v.m.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Keys yields column names in insertion order.
func (v View[S]) Keys() iter.Seq[identifier.Identifier] {
	return func(yield func(identifier.Identifier) bool) {
		for name := range v.All() {
			if !yield(name) {
				return
			}
		}
	}
}

// Values yields columns in insertion order.
func (v View[S]) Values() iter.Seq[columnar.Column[S]] {
	return func(yield func(columnar.Column[S]) bool) {
		for _, col := range v.All() {
			if !yield(col) {
				return
			}
		}
	}
}

// equalUnordered compares as sets of pairs, ignoring order.
func (v View[S]) equalUnordered(other View[S]) bool {
	if v.Len() != other.Len() {
		return false
	}
	for name, col := range v.All() {
		otherCol, ok := other.Get(name)
		if !ok || !columnar.Equal(col, otherCol) {
			return false
		}
	}
	return true
}
