// Package columnar encodes result tables into columnar file formats and
// decodes them back.
//
// Arrow is the primary target: a Table is the in-memory analog of an Arrow
// record batch, and ToRecord converts one to the other without copying
// fixed-width integer columns. Parquet and Avro writers are layered on top.
package columnar

import (
	"errors"
	"fmt"
	"io"

	"github.com/ajitpratap0/resultset/pkg/arena"
	column "github.com/ajitpratap0/resultset/pkg/columnar"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
	"github.com/ajitpratap0/resultset/pkg/table"
)

// Format represents a columnar storage format
type Format string

const (
	// Arrow is the Apache Arrow IPC stream format
	Arrow Format = "arrow"
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
	// Avro is Apache Avro object container format
	Avro Format = "avro"
)

var (
	// ErrUnsupportedType is returned for Arrow types that have no column variant.
	ErrUnsupportedType = errors.New("unsupported column type")
	// ErrNullValue is returned when decoding a column that contains nulls.
	ErrNullValue = column.ErrNullValue
	// ErrSchemaMismatch is returned when a writer receives a table whose
	// schema differs from the first table it wrote.
	ErrSchemaMismatch = errors.New("table schema differs from stream schema")
)

// Writer encodes a sequence of tables that share one schema.
type Writer[S scalar.Scalar] interface {
	// WriteTable encodes one table. The first call fixes the schema.
	WriteTable(tbl *table.Table[S]) error
	// Close flushes buffered data and finalizes the output.
	Close() error
	// Format returns the columnar format
	Format() Format
	// BytesWritten returns bytes written to the underlying writer
	BytesWritten() int64
	// RowsWritten returns the total row count of all tables written
	RowsWritten() int64
}

// WriterConfig configures columnar writers
type WriterConfig struct {
	Format Format
	// Compression is format specific: "none", "zstd" or "lz4" for Arrow;
	// "none", "snappy", "zstd", "gzip" for Parquet; "none", "snappy",
	// "deflate" for Avro.
	Compression string
}

// DefaultWriterConfig returns default writer configuration
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Format:      Arrow,
		Compression: "none",
	}
}

// NewWriter creates a writer for config.Format.
func NewWriter[S scalar.Scalar](w io.Writer, config *WriterConfig) (Writer[S], error) {
	if config == nil {
		config = DefaultWriterConfig()
	}

	switch config.Format {
	case Arrow:
		return newArrowWriter[S](w, config)
	case Parquet:
		return newParquetWriter[S](w, config)
	case Avro:
		return newAvroWriter[S](w, config)
	default:
		return nil, rserrors.New(rserrors.ErrorTypeCapability, fmt.Sprintf("unsupported columnar format: %s", config.Format))
	}
}

// ReadTables decodes every table in r. Column data is copied into a, so the
// returned tables are valid while a is alive. Scalar columns are rebuilt
// with decode.
//
// Arrow streams yield one table per record batch. A Parquet file yields a
// single table holding all of its row groups.
func ReadTables[S scalar.Scalar](r io.Reader, format Format, a *arena.Arena, decode scalar.Decoder[S]) ([]*table.Table[S], error) {
	switch format {
	case Arrow:
		return readArrow(r, a, decode)
	case Parquet:
		return readParquet(r, a, decode)
	default:
		return nil, rserrors.New(rserrors.ErrorTypeCapability, fmt.Sprintf("reading %s is not supported", format))
	}
}

// FormatInfo provides information about columnar formats
type FormatInfo struct {
	Format        Format
	Name          string
	FileExtension string
	MIMEType      string
	Readable      bool
}

// GetFormatInfo returns information about a columnar format
func GetFormatInfo(format Format) *FormatInfo {
	switch format {
	case Arrow:
		return &FormatInfo{
			Format:        Arrow,
			Name:          "Apache Arrow IPC stream",
			FileExtension: ".arrows",
			MIMEType:      "application/vnd.apache.arrow.stream",
			Readable:      true,
		}
	case Parquet:
		return &FormatInfo{
			Format:        Parquet,
			Name:          "Apache Parquet",
			FileExtension: ".parquet",
			MIMEType:      "application/x-parquet",
			Readable:      true,
		}
	case Avro:
		return &FormatInfo{
			Format:        Avro,
			Name:          "Apache Avro",
			FileExtension: ".avro",
			MIMEType:      "application/x-avro",
		}
	default:
		return nil
	}
}

// countingWriter tracks the number of bytes passed through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func schemaMismatch(want, got []table.Field) error {
	return rserrors.Wrap(ErrSchemaMismatch, rserrors.ErrorTypeValidation, "cannot write table").
		WithDetail("stream_columns", len(want)).
		WithDetail("table_columns", len(got))
}

func sameSchema(a, b []table.Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
