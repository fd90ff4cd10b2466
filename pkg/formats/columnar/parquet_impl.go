package columnar

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/resultset/pkg/arena"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
	"github.com/ajitpratap0/resultset/pkg/table"
)

// parquetWriter writes each table as one or more row groups of a Parquet file.
type parquetWriter[S scalar.Scalar] struct {
	out         *countingWriter
	config      *WriterConfig
	codec       compress.Compression
	fields      []table.Field
	fileWriter  *pqarrow.FileWriter
	rowsWritten int64
	mu          sync.Mutex
	pool        memory.Allocator
}

func newParquetWriter[S scalar.Scalar](w io.Writer, config *WriterConfig) (*parquetWriter[S], error) {
	codec, err := getParquetCompression(config.Compression)
	if err != nil {
		return nil, err
	}
	return &parquetWriter[S]{
		out:    &countingWriter{w: w},
		config: config,
		codec:  codec,
		pool:   memory.NewGoAllocator(),
	}, nil
}

func (pw *parquetWriter[S]) WriteTable(tbl *table.Table[S]) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	fields := tbl.Schema()
	if pw.fileWriter == nil {
		schema, err := ArrowSchema(fields)
		if err != nil {
			return err
		}

		props := parquet.NewWriterProperties(
			parquet.WithCompression(pw.codec),
			parquet.WithAllocator(pw.pool),
		)
		// The stored Arrow schema lets readers recover TINYINT and the
		// column metadata exactly.
		arrowProps := pqarrow.NewArrowWriterProperties(
			pqarrow.WithAllocator(pw.pool),
			pqarrow.WithStoreSchema(),
		)

		fw, err := pqarrow.NewFileWriter(schema, pw.out, props, arrowProps)
		if err != nil {
			return rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to create Parquet writer")
		}
		pw.fileWriter = fw
		pw.fields = fields
	} else if !sameSchema(pw.fields, fields) {
		return schemaMismatch(pw.fields, fields)
	}

	rec, err := ToRecord(tbl, pw.pool)
	if err != nil {
		return err
	}
	defer rec.Release()

	if err := pw.fileWriter.Write(rec); err != nil {
		return rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to write row group")
	}
	pw.rowsWritten += rec.NumRows()
	return nil
}

func (pw *parquetWriter[S]) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.fileWriter == nil {
		return nil
	}
	if err := pw.fileWriter.Close(); err != nil {
		return rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to close Parquet writer")
	}
	return nil
}

func (pw *parquetWriter[S]) Format() Format {
	return Parquet
}

func (pw *parquetWriter[S]) BytesWritten() int64 {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.out.n
}

func (pw *parquetWriter[S]) RowsWritten() int64 {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.rowsWritten
}

func readParquet[S scalar.Scalar](r io.Reader, a *arena.Arena, decode scalar.Decoder[S]) ([]*table.Table[S], error) {
	// Parquet needs random access for the footer.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to read Parquet data")
	}
	tbl, err := ReadParquet(bytes.NewReader(data), a, decode)
	if err != nil {
		return nil, err
	}
	return []*table.Table[S]{tbl}, nil
}

// ReadParquet decodes a whole Parquet file from a random-access source into
// one table. Row groups are concatenated in file order.
func ReadParquet[S scalar.Scalar](r parquet.ReaderAtSeeker, a *arena.Arena, decode scalar.Decoder[S]) (*table.Table[S], error) {
	fr, err := file.NewParquetReader(r)
	if err != nil {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to open Parquet file")
	}
	defer fr.Close()

	pool := memory.NewGoAllocator()
	arrowReader, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{}, pool)
	if err != nil {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to create Arrow reader")
	}

	tbl, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to read Parquet table")
	}
	defer tbl.Release()

	rec, err := flattenTable(tbl, pool)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	return FromRecord(rec, a, decode)
}

// flattenTable concatenates the chunks of every column into a single record.
func flattenTable(tbl arrow.Table, mem memory.Allocator) (arrow.Record, error) {
	arrs := make([]arrow.Array, 0, tbl.NumCols())
	defer func() {
		for _, a := range arrs {
			a.Release()
		}
	}()

	for i := 0; i < int(tbl.NumCols()); i++ {
		col := tbl.Column(i)
		chunks := col.Data().Chunks()
		var arr arrow.Array
		if len(chunks) == 0 {
			arr = array.MakeArrayOfNull(mem, col.DataType(), 0)
		} else {
			var err error
			if arr, err = array.Concatenate(chunks, mem); err != nil {
				return nil, rserrors.Wrap(err, rserrors.ErrorTypeData, "failed to concatenate column chunks").
					WithDetail("column", col.Name())
			}
		}
		arrs = append(arrs, arr)
	}
	return array.NewRecord(tbl.Schema(), arrs, tbl.NumRows()), nil
}

func getParquetCompression(compression string) (compress.Compression, error) {
	switch compression {
	case "", "none":
		return compress.Codecs.Uncompressed, nil
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	default:
		return compress.Codecs.Uncompressed, rserrors.New(rserrors.ErrorTypeConfig, "unsupported Parquet compression").
			WithDetail("compression", compression)
	}
}
