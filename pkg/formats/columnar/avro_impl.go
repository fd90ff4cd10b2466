package columnar

import (
	"io"
	"sync"

	"github.com/linkedin/goavro/v2"

	column "github.com/ajitpratap0/resultset/pkg/columnar"
	jsonpool "github.com/ajitpratap0/resultset/pkg/json"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
	"github.com/ajitpratap0/resultset/pkg/table"
)

// AvroRecordName is the name of the record type in generated Avro schemas.
const AvroRecordName = "ResultRow"

// avroWriter writes tables row by row into an Avro object container file.
type avroWriter[S scalar.Scalar] struct {
	out         *countingWriter
	config      *WriterConfig
	fields      []table.Field
	ocfWriter   *goavro.OCFWriter
	rowsWritten int64
	mu          sync.Mutex
}

func newAvroWriter[S scalar.Scalar](w io.Writer, config *WriterConfig) (*avroWriter[S], error) {
	if _, err := getAvroCompression(config.Compression); err != nil {
		return nil, err
	}
	return &avroWriter[S]{
		out:    &countingWriter{w: w},
		config: config,
	}, nil
}

func (aw *avroWriter[S]) WriteTable(tbl *table.Table[S]) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	fields := tbl.Schema()
	if aw.ocfWriter == nil {
		schema, err := AvroSchema(fields)
		if err != nil {
			return err
		}
		codec, err := goavro.NewCodec(schema)
		if err != nil {
			return rserrors.Wrap(err, rserrors.ErrorTypeData, "failed to create Avro codec")
		}
		compression, _ := getAvroCompression(aw.config.Compression)
		ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
			W:               aw.out,
			Codec:           codec,
			CompressionName: compression,
		})
		if err != nil {
			return rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to create Avro writer")
		}
		aw.ocfWriter = ocf
		aw.fields = fields
	} else if !sameSchema(aw.fields, fields) {
		return schemaMismatch(aw.fields, fields)
	}

	if tbl.NumRows() == 0 {
		return nil
	}

	rows := make([]interface{}, tbl.NumRows())
	for i := range rows {
		rows[i] = make(map[string]interface{}, tbl.NumColumns())
	}
	for name, col := range tbl.Mapping().All() {
		key := name.String()
		for i := range rows {
			rows[i].(map[string]interface{})[key] = avroNative(col, i)
		}
	}

	// OCFWriter emits one block per Append call.
	if err := aw.ocfWriter.Append(rows); err != nil {
		return rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to write Avro block")
	}
	aw.rowsWritten += int64(len(rows))
	return nil
}

// Close is a no-op beyond locking: OCFWriter flushes on every Append.
func (aw *avroWriter[S]) Close() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return nil
}

func (aw *avroWriter[S]) Format() Format {
	return Avro
}

func (aw *avroWriter[S]) BytesWritten() int64 {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.out.n
}

func (aw *avroWriter[S]) RowsWritten() int64 {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.rowsWritten
}

// AvroSchema renders the Avro record schema for a table schema. Column names
// must be valid Avro names, which rules out most quoted identifiers.
func AvroSchema(fields []table.Field) (string, error) {
	avroFields := make([]map[string]interface{}, 0, len(fields))
	for _, f := range fields {
		name := f.Name.String()
		if !validAvroName(name) {
			return "", rserrors.New(rserrors.ErrorTypeCapability, "column name is not a valid Avro name").
				WithDetail("column", name)
		}
		avroFields = append(avroFields, map[string]interface{}{
			"name": name,
			"type": avroType(f.Type),
			"doc":  f.Type.String(),
		})
	}

	schema := map[string]interface{}{
		"type":   "record",
		"name":   AvroRecordName,
		"fields": avroFields,
	}
	out, err := jsonpool.Marshal(schema)
	if err != nil {
		return "", rserrors.Wrap(err, rserrors.ErrorTypeInternal, "failed to encode Avro schema")
	}
	return string(out), nil
}

func avroType(ct column.ColumnType) string {
	switch ct {
	case column.ColumnTypeBoolean:
		return "boolean"
	case column.ColumnTypeTinyInt, column.ColumnTypeInt:
		return "int"
	case column.ColumnTypeBigInt:
		return "long"
	case column.ColumnTypeScalar:
		return "bytes"
	default:
		// INT128 has no native Avro type and travels as decimal text.
		return "string"
	}
}

func avroNative[S scalar.Scalar](col column.Column[S], i int) interface{} {
	switch c := col.(type) {
	case column.BooleanColumn[S]:
		return c[i]
	case column.TinyIntColumn[S]:
		return int32(c[i])
	case column.IntColumn[S]:
		return c[i]
	case column.BigIntColumn[S]:
		return c[i]
	case column.Int128Column[S]:
		return c[i].String()
	case column.VarCharColumn[S]:
		return c[i]
	case column.ScalarColumn[S]:
		return c[i].Bytes()
	}
	return nil
}

func validAvroName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func getAvroCompression(compression string) (string, error) {
	switch compression {
	case "", "none":
		return goavro.CompressionNullLabel, nil
	case "snappy":
		return goavro.CompressionSnappyLabel, nil
	case "deflate":
		return goavro.CompressionDeflateLabel, nil
	default:
		return "", rserrors.New(rserrors.ErrorTypeConfig, "unsupported Avro compression").
			WithDetail("compression", compression)
	}
}
