package json

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"sync"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/resultset/pkg/columnar"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
	"github.com/ajitpratap0/resultset/pkg/table"
)

// Layout selects how a table is rendered.
type Layout string

const (
	// LayoutColumns renders a table as one object mapping each column name
	// to an array of its values, keys in column order.
	LayoutColumns Layout = "columns"
	// LayoutRows renders one object per row, newline delimited.
	LayoutRows Layout = "rows"
)

// ParseLayout converts a layout name, defaulting to LayoutColumns for "".
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case "", LayoutColumns:
		return LayoutColumns, nil
	case LayoutRows, "lines", "jsonl":
		return LayoutRows, nil
	}
	return "", rserrors.New(rserrors.ErrorTypeConfig, fmt.Sprintf("unknown JSON layout %q", s))
}

// MarshalTable renders tbl in the given layout.
//
// BOOLEAN, TINYINT, INT and BIGINT values become JSON literals. DECIMAL(38,0)
// and SCALAR values are emitted as decimal strings since they do not fit a
// float64.
func MarshalTable[S scalar.Scalar](tbl *table.Table[S], layout Layout) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	var err error
	switch layout {
	case LayoutColumns:
		err = appendColumns(buf, tbl)
	case LayoutRows:
		err = appendRows(buf, tbl)
	default:
		return nil, rserrors.New(rserrors.ErrorTypeConfig, fmt.Sprintf("unknown JSON layout %q", layout))
	}
	if err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// TableEncoder streams tables to a writer. In LayoutColumns the output is a
// JSON array with one element per table; in LayoutRows every row of every
// table is a line.
type TableEncoder[S scalar.Scalar] struct {
	w       io.Writer
	layout  Layout
	mu      sync.Mutex
	tables  int
	written int64
	closed  bool
}

// NewTableEncoder creates a streaming table encoder.
func NewTableEncoder[S scalar.Scalar](w io.Writer, layout Layout) *TableEncoder[S] {
	return &TableEncoder[S]{w: w, layout: layout}
}

// Encode writes one table.
func (e *TableEncoder[S]) Encode(tbl *table.Table[S]) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return rserrors.New(rserrors.ErrorTypeInternal, "table encoder is closed")
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	switch e.layout {
	case LayoutColumns:
		if e.tables == 0 {
			buf.WriteByte('[')
		} else {
			buf.WriteByte(',')
		}
		if err := appendColumns(buf, tbl); err != nil {
			return err
		}
	case LayoutRows:
		if err := appendRows(buf, tbl); err != nil {
			return err
		}
	default:
		return rserrors.New(rserrors.ErrorTypeConfig, fmt.Sprintf("unknown JSON layout %q", e.layout))
	}

	n, err := e.w.Write(buf.Bytes())
	e.written += int64(n)
	if err != nil {
		return rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to write JSON")
	}
	e.tables++
	return nil
}

// Close terminates the output. It does not close the underlying writer.
func (e *TableEncoder[S]) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.layout != LayoutColumns {
		e.closed = true
		return nil
	}
	e.closed = true

	tail := "]\n"
	if e.tables == 0 {
		tail = "[]\n"
	}
	n, err := io.WriteString(e.w, tail)
	e.written += int64(n)
	if err != nil {
		return rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to write JSON")
	}
	return nil
}

// BytesWritten returns the number of bytes written so far.
func (e *TableEncoder[S]) BytesWritten() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.written
}

func appendColumns[S scalar.Scalar](buf *bytes.Buffer, tbl *table.Table[S]) error {
	buf.WriteByte('{')
	first := true
	for name, col := range tbl.Mapping().All() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		if err := appendString(buf, name.String()); err != nil {
			return err
		}
		buf.WriteString(":[")
		for i := 0; i < col.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendValue(buf, col, i); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return nil
}

func appendRows[S scalar.Scalar](buf *bytes.Buffer, tbl *table.Table[S]) error {
	view := tbl.Mapping()
	keys := make([][]byte, 0, view.Len())
	cols := make([]columnar.Column[S], 0, view.Len())
	for name, col := range view.All() {
		key, err := gojson.Marshal(name.String())
		if err != nil {
			return rserrors.Wrap(err, rserrors.ErrorTypeData, "failed to encode column name")
		}
		keys = append(keys, key)
		cols = append(cols, col)
	}

	for row := 0; row < tbl.NumRows(); row++ {
		buf.WriteByte('{')
		for c, col := range cols {
			if c > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[c])
			buf.WriteByte(':')
			if err := appendValue(buf, col, row); err != nil {
				return err
			}
		}
		buf.WriteString("}\n")
	}
	return nil
}

func appendValue[S scalar.Scalar](buf *bytes.Buffer, col columnar.Column[S], i int) error {
	var scratch [32]byte
	switch c := col.(type) {
	case columnar.BooleanColumn[S]:
		buf.Write(strconv.AppendBool(scratch[:0], c[i]))
	case columnar.TinyIntColumn[S]:
		buf.Write(strconv.AppendInt(scratch[:0], int64(c[i]), 10))
	case columnar.IntColumn[S]:
		buf.Write(strconv.AppendInt(scratch[:0], int64(c[i]), 10))
	case columnar.BigIntColumn[S]:
		buf.Write(strconv.AppendInt(scratch[:0], c[i], 10))
	case columnar.Int128Column[S]:
		buf.WriteByte('"')
		buf.WriteString(c[i].String())
		buf.WriteByte('"')
	case columnar.VarCharColumn[S]:
		return appendString(buf, c[i])
	case columnar.ScalarColumn[S]:
		buf.WriteByte('"')
		buf.WriteString(c[i].String())
		buf.WriteByte('"')
	default:
		return rserrors.New(rserrors.ErrorTypeCapability, fmt.Sprintf("cannot encode %T", col))
	}
	return nil
}

func appendString(buf *bytes.Buffer, s string) error {
	data, err := gojson.Marshal(s)
	if err != nil {
		return rserrors.Wrap(err, rserrors.ErrorTypeData, "failed to encode string")
	}
	buf.Write(data)
	return nil
}
