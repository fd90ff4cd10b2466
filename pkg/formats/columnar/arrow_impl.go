package columnar

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/resultset/pkg/arena"
	column "github.com/ajitpratap0/resultset/pkg/columnar"
	"github.com/ajitpratap0/resultset/pkg/identifier"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
	"github.com/ajitpratap0/resultset/pkg/table"
)

// TypeMetadataKey is the Arrow field metadata key carrying the column's SQL type.
const TypeMetadataKey = "resultset.type"

// ArrowType returns the Arrow data type used for a column type.
func ArrowType(ct column.ColumnType) (arrow.DataType, error) {
	switch ct {
	case column.ColumnTypeBoolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case column.ColumnTypeTinyInt:
		return arrow.PrimitiveTypes.Int8, nil
	case column.ColumnTypeInt:
		return arrow.PrimitiveTypes.Int32, nil
	case column.ColumnTypeBigInt:
		return arrow.PrimitiveTypes.Int64, nil
	case column.ColumnTypeInt128:
		return &arrow.Decimal128Type{Precision: 38, Scale: 0}, nil
	case column.ColumnTypeVarChar:
		return arrow.BinaryTypes.String, nil
	case column.ColumnTypeScalar:
		return arrow.BinaryTypes.Binary, nil
	default:
		return nil, rserrors.Wrap(ErrUnsupportedType, rserrors.ErrorTypeCapability, ct.String())
	}
}

// ArrowSchema converts a table schema to an Arrow schema. Fields are not
// nullable and carry the SQL type in their metadata.
func ArrowSchema(fields []table.Field) (*arrow.Schema, error) {
	out := make([]arrow.Field, 0, len(fields))
	for _, f := range fields {
		dt, err := ArrowType(f.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, arrow.Field{
			Name:     f.Name.String(),
			Type:     dt,
			Metadata: arrow.NewMetadata([]string{TypeMetadataKey}, []string{f.Type.String()}),
		})
	}
	return arrow.NewSchema(out, nil), nil
}

// ToRecord converts tbl to an Arrow record batch. TinyInt, Int and BigInt
// columns are wrapped without copying, so the record borrows their storage
// and must be released before that storage is. The caller owns the record.
func ToRecord[S scalar.Scalar](tbl *table.Table[S], mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	schema, err := ArrowSchema(tbl.Schema())
	if err != nil {
		return nil, err
	}

	arrs := make([]arrow.Array, 0, tbl.NumColumns())
	defer func() {
		for _, a := range arrs {
			a.Release()
		}
	}()

	for name, col := range tbl.Mapping().All() {
		arr, err := toArray(col, mem)
		if err != nil {
			return nil, rserrors.Wrap(err, rserrors.ErrorTypeData, "cannot convert column").
				WithDetail("column", name.String())
		}
		arrs = append(arrs, arr)
	}

	return array.NewRecord(schema, arrs, int64(tbl.NumRows())), nil
}

func toArray[S scalar.Scalar](col column.Column[S], mem memory.Allocator) (arrow.Array, error) {
	switch c := col.(type) {
	case column.BooleanColumn[S]:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.AppendValues(c, nil)
		return b.NewArray(), nil

	case column.TinyIntColumn[S]:
		return wrapFixedWidth(arrow.PrimitiveTypes.Int8, len(c), arrow.Int8Traits.CastToBytes(c)), nil

	case column.IntColumn[S]:
		return wrapFixedWidth(arrow.PrimitiveTypes.Int32, len(c), arrow.Int32Traits.CastToBytes(c)), nil

	case column.BigIntColumn[S]:
		return wrapFixedWidth(arrow.PrimitiveTypes.Int64, len(c), arrow.Int64Traits.CastToBytes(c)), nil

	case column.Int128Column[S]:
		b := array.NewDecimal128Builder(mem, &arrow.Decimal128Type{Precision: 38, Scale: 0})
		defer b.Release()
		b.Reserve(len(c))
		for _, v := range c {
			b.Append(decimal128.New(v.Hi, v.Lo))
		}
		return b.NewArray(), nil

	case column.VarCharColumn[S]:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.AppendValues(c, nil)
		return b.NewArray(), nil

	case column.ScalarColumn[S]:
		b := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
		defer b.Release()
		b.Reserve(len(c))
		for _, v := range c {
			b.Append(v.Bytes())
		}
		return b.NewArray(), nil
	}
	return nil, rserrors.Wrap(ErrUnsupportedType, rserrors.ErrorTypeCapability, fmt.Sprintf("%T", col))
}

// wrapFixedWidth builds an array whose value buffer aliases vals.
func wrapFixedWidth(dt arrow.DataType, n int, vals []byte) arrow.Array {
	data := array.NewData(dt, n, []*memory.Buffer{nil, memory.NewBufferBytes(vals)}, nil, 0, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

// FromRecord converts an Arrow record batch into a table whose columns live
// in a. Column names are restored with identifier.ParseNormalized; a name
// that occurs twice fails with table.ErrDuplicateColumn.
func FromRecord[S scalar.Scalar](rec arrow.Record, a *arena.Arena, decode scalar.Decoder[S]) (*table.Table[S], error) {
	m := table.NewMapping[S]()
	for i, field := range rec.Schema().Fields() {
		name, err := identifier.ParseNormalized(field.Name)
		if err != nil {
			return nil, err
		}
		col, err := fromArray(rec.Column(i), a, decode)
		if err != nil {
			errType := rserrors.ErrorTypeData
			if errors.Is(err, ErrUnsupportedType) {
				errType = rserrors.ErrorTypeCapability
			}
			return nil, rserrors.Wrap(err, errType, "cannot decode column").
				WithDetail("column", field.Name)
		}
		if err := table.Insert(m, name, col); err != nil {
			return nil, err
		}
	}
	return table.New(m)
}

func fromArray[S scalar.Scalar](arr arrow.Array, a *arena.Arena, decode scalar.Decoder[S]) (column.Column[S], error) {
	if arr.NullN() > 0 {
		return nil, ErrNullValue
	}
	n := arr.Len()

	switch c := arr.(type) {
	case *array.Boolean:
		vals, err := arena.Alloc[bool](a, n)
		if err != nil {
			return nil, err
		}
		for i := range vals {
			vals[i] = c.Value(i)
		}
		return column.BooleanColumn[S](vals), nil

	case *array.Int8:
		vals, err := arena.Copy(a, c.Int8Values())
		return column.TinyIntColumn[S](vals), err

	case *array.Int32:
		vals, err := arena.Copy(a, c.Int32Values())
		return column.IntColumn[S](vals), err

	case *array.Int64:
		vals, err := arena.Copy(a, c.Int64Values())
		return column.BigIntColumn[S](vals), err

	case *array.Decimal128:
		// Only integral decimals fit DECIMAL(38,0); a scaled value would be
		// read back as its unscaled integer.
		if dt := c.DataType().(*arrow.Decimal128Type); dt.Scale != 0 {
			return nil, rserrors.Wrap(ErrUnsupportedType, rserrors.ErrorTypeCapability, dt.String())
		}
		vals, err := arena.Alloc[column.Int128](a, n)
		if err != nil {
			return nil, err
		}
		for i := range vals {
			v := c.Value(i)
			vals[i] = column.Int128{Hi: v.HighBits(), Lo: v.LowBits()}
		}
		return column.Int128Column[S](vals), nil

	case *array.String:
		vals, err := arena.Alloc[string](a, n)
		if err != nil {
			return nil, err
		}
		for i := range vals {
			// Value aliases the Arrow buffer.
			vals[i] = strings.Clone(c.Value(i))
		}
		return column.VarCharColumn[S](vals), nil

	case *array.Binary:
		if decode == nil {
			return nil, rserrors.New(rserrors.ErrorTypeConfig, "no scalar decoder configured")
		}
		vals, err := arena.Alloc[S](a, n)
		if err != nil {
			return nil, err
		}
		for i := range vals {
			if vals[i], err = decode(c.Value(i)); err != nil {
				return nil, err
			}
		}
		return column.ScalarColumn[S](vals), nil
	}

	return nil, rserrors.Wrap(ErrUnsupportedType, rserrors.ErrorTypeCapability, arr.DataType().String())
}

// arrowWriter writes tables as record batches of an Arrow IPC stream.
type arrowWriter[S scalar.Scalar] struct {
	out         *countingWriter
	config      *WriterConfig
	fields      []table.Field
	ipcWriter   *ipc.Writer
	rowsWritten int64
	mu          sync.Mutex
	pool        memory.Allocator
}

func newArrowWriter[S scalar.Scalar](w io.Writer, config *WriterConfig) (*arrowWriter[S], error) {
	switch config.Compression {
	case "", "none", "zstd", "lz4":
	default:
		return nil, rserrors.New(rserrors.ErrorTypeConfig, "unsupported Arrow compression").
			WithDetail("compression", config.Compression)
	}
	return &arrowWriter[S]{
		out:    &countingWriter{w: w},
		config: config,
		pool:   memory.NewGoAllocator(),
	}, nil
}

func (aw *arrowWriter[S]) WriteTable(tbl *table.Table[S]) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	fields := tbl.Schema()
	if aw.ipcWriter == nil {
		schema, err := ArrowSchema(fields)
		if err != nil {
			return err
		}
		opts := []ipc.Option{ipc.WithSchema(schema), ipc.WithAllocator(aw.pool)}
		switch aw.config.Compression {
		case "zstd":
			opts = append(opts, ipc.WithZstd())
		case "lz4":
			opts = append(opts, ipc.WithLZ4())
		}
		aw.ipcWriter = ipc.NewWriter(aw.out, opts...)
		aw.fields = fields
	} else if !sameSchema(aw.fields, fields) {
		return schemaMismatch(aw.fields, fields)
	}

	rec, err := ToRecord(tbl, aw.pool)
	if err != nil {
		return err
	}
	defer rec.Release()

	if err := aw.ipcWriter.Write(rec); err != nil {
		return rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to write record batch")
	}
	aw.rowsWritten += rec.NumRows()
	return nil
}

func (aw *arrowWriter[S]) Close() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	if aw.ipcWriter == nil {
		return nil
	}
	if err := aw.ipcWriter.Close(); err != nil {
		return rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to close Arrow writer")
	}
	return nil
}

func (aw *arrowWriter[S]) Format() Format {
	return Arrow
}

func (aw *arrowWriter[S]) BytesWritten() int64 {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.out.n
}

func (aw *arrowWriter[S]) RowsWritten() int64 {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.rowsWritten
}

func readArrow[S scalar.Scalar](r io.Reader, a *arena.Arena, decode scalar.Decoder[S]) ([]*table.Table[S], error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to open Arrow stream")
	}
	defer rdr.Release()

	var tables []*table.Table[S]
	for rdr.Next() {
		tbl, err := FromRecord(rdr.Record(), a, decode)
		if err != nil {
			return nil, err
		}
		tables = append(tables, tbl)
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to read Arrow stream")
	}
	return tables, nil
}
