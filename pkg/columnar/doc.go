// Package columnar defines the column variants that make up a result table.
//
// A column is one of a closed set of statically typed variants, each a named
// slice type:
//
//	BooleanColumn  []bool
//	TinyIntColumn  []int8
//	IntColumn      []int32
//	BigIntColumn   []int64
//	Int128Column   []Int128
//	VarCharColumn  []string
//	ScalarColumn   []S
//
// All variants are generic over the scalar capability S so that a table can
// only mix columns built over the same scalar type. Building a column is a
// slice conversion and never copies:
//
//	vals := []int64{1, 2, 3}
//	col := columnar.BigIntColumn[scalar.FieldElement](vals)
//
// The column borrows vals. Its owner (usually an arena.Arena) must keep the
// storage alive and unmodified for as long as the column is read.
package columnar
