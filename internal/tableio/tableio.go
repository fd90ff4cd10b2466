// Package tableio connects table encoders to files: it layers a stream
// compressor under a format writer on the way out and reverses both on the
// way in.
package tableio

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/resultset/pkg/arena"
	"github.com/ajitpratap0/resultset/pkg/compression"
	"github.com/ajitpratap0/resultset/pkg/config"
	"github.com/ajitpratap0/resultset/pkg/formats/columnar"
	jsonpool "github.com/ajitpratap0/resultset/pkg/json"
	"github.com/ajitpratap0/resultset/pkg/logger"
	"github.com/ajitpratap0/resultset/pkg/metrics"
	"github.com/ajitpratap0/resultset/pkg/mmap"
	"github.com/ajitpratap0/resultset/pkg/observability"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
	"github.com/ajitpratap0/resultset/pkg/table"
)

// FormatJSON is the output format name for the JSON table encoder.
const FormatJSON = "json"

// tableWriter is the part of columnar.Writer the sink drives.
type tableWriter[S scalar.Scalar] interface {
	WriteTable(tbl *table.Table[S]) error
	Close() error
	BytesWritten() int64
}

type jsonWriter[S scalar.Scalar] struct {
	*jsonpool.TableEncoder[S]
}

func (w jsonWriter[S]) WriteTable(tbl *table.Table[S]) error {
	return w.Encode(tbl)
}

// Sink encodes a sequence of tables into one output.
type Sink[S scalar.Scalar] struct {
	format    string
	writer    tableWriter[S]
	stream    io.WriteCloser
	out       *countingWriter
	collector *metrics.Collector

	mu       sync.Mutex
	reported int64
	rows     int64
	closed   bool
}

// NewSink prepares w to receive tables encoded per cfg. Compression in
// cfg.Compression wraps the whole encoded stream; cfg.Codec is passed to the
// columnar writer. A nil collector uses metrics.Default().
func NewSink[S scalar.Scalar](w io.Writer, cfg config.OutputConfig, collector *metrics.Collector) (*Sink[S], error) {
	if collector == nil {
		collector = metrics.Default()
	}

	alg, err := compression.ParseAlgorithm(cfg.Compression)
	if err != nil {
		return nil, err
	}
	comp, err := compression.NewCompressor(&compression.Config{Algorithm: alg, Level: compression.Default})
	if err != nil {
		return nil, err
	}

	out := &countingWriter{w: w}
	stream, err := comp.NewWriter(out)
	if err != nil {
		return nil, err
	}

	var tw tableWriter[S]
	switch cfg.Format {
	case FormatJSON:
		layout, err := jsonpool.ParseLayout(cfg.JSONLayout)
		if err != nil {
			return nil, err
		}
		tw = jsonWriter[S]{jsonpool.NewTableEncoder[S](stream, layout)}
	default:
		tw, err = columnar.NewWriter[S](stream, &columnar.WriterConfig{
			Format:      columnar.Format(cfg.Format),
			Compression: cfg.Codec,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Sink[S]{
		format:    cfg.Format,
		writer:    tw,
		stream:    stream,
		out:       out,
		collector: collector,
	}, nil
}

// Write encodes one table.
func (s *Sink[S]) Write(ctx context.Context, tbl *table.Table[S]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return rserrors.New(rserrors.ErrorTypeInternal, "sink is closed")
	}

	return observability.Trace(ctx, "tableio.write", func(ctx context.Context) error {
		timer := metrics.NewTimer()
		if err := s.writer.WriteTable(tbl); err != nil {
			return err
		}
		s.rows += int64(tbl.NumRows())
		s.report(timer)
		logger.WithContext(ctx).Debug("encoded table",
			zap.String("format", s.format),
			zap.Int("rows", tbl.NumRows()))
		return nil
	}, attribute.String("format", s.format), attribute.Int("rows", tbl.NumRows()))
}

// Close finalizes the format and then the compression stream. It does not
// close the underlying writer.
func (s *Sink[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	timer := metrics.NewTimer()
	if err := s.writer.Close(); err != nil {
		return err
	}
	s.report(timer)
	if err := s.stream.Close(); err != nil {
		return rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to finish compressed stream")
	}
	return nil
}

// report records the encoded bytes produced since the last report.
func (s *Sink[S]) report(timer *metrics.Timer) {
	n := s.writer.BytesWritten()
	s.collector.RecordEncoded(s.format, n-s.reported, timer.Stop())
	s.reported = n
}

// BytesWritten returns bytes written to the underlying writer, after
// compression.
func (s *Sink[S]) BytesWritten() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.n
}

// RowsWritten returns the total row count written.
func (s *Sink[S]) RowsWritten() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// FileName returns the conventional file name for base with the given output
// settings, such as "t.parquet.zst".
func FileName(base string, cfg config.OutputConfig) string {
	ext := "." + FormatJSON
	if cfg.Format != FormatJSON {
		if info := columnar.GetFormatInfo(columnar.Format(cfg.Format)); info != nil {
			ext = info.FileExtension
		}
	}
	alg, err := compression.ParseAlgorithm(cfg.Compression)
	if err != nil {
		return base + ext
	}
	return base + ext + compression.Extension(alg)
}

// DetectFormat infers the columnar format and the stream compression from a
// file name. The compression suffix, if any, is stripped before looking at
// the format suffix.
func DetectFormat(path string) (columnar.Format, compression.Algorithm, error) {
	alg := compression.FromPath(path)
	if alg != compression.None {
		path = strings.TrimSuffix(path, filepath.Ext(path))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".arrows", ".arrow":
		return columnar.Arrow, alg, nil
	case ".parquet":
		return columnar.Parquet, alg, nil
	}
	return "", alg, rserrors.New(rserrors.ErrorTypeCapability, "cannot infer a readable format from file name").
		WithDetail("path", path)
}

// Read decodes every table in r, which holds format data compressed with
// alg. Column data is allocated from a. Decompression stops with
// compression.ErrTooLarge once the stream expands past
// cfg.MaxDecompressedSize.
func Read[S scalar.Scalar](r io.Reader, format columnar.Format, alg compression.Algorithm, cfg config.InputConfig, a *arena.Arena, decode scalar.Decoder[S]) ([]*table.Table[S], error) {
	comp, err := compression.NewCompressor(&compression.Config{
		Algorithm:           alg,
		MaxDecompressedSize: cfg.MaxDecompressedSize,
	})
	if err != nil {
		return nil, err
	}
	src, err := comp.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return columnar.ReadTables(src, format, a, decode)
}

// ReadFile opens path and decodes it with the format and compression implied
// by its name. Uncompressed Parquet files are memory-mapped rather than read
// into a buffer.
func ReadFile[S scalar.Scalar](path string, cfg config.InputConfig, a *arena.Arena, decode scalar.Decoder[S]) ([]*table.Table[S], error) {
	format, alg, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	if format == columnar.Parquet && alg == compression.None {
		m, err := mmap.Open(path)
		if err != nil {
			return nil, err
		}
		defer m.Close()

		// FromRecord copies every value into a, so nothing outlives the mapping.
		tbl, err := columnar.ReadParquet(bytes.NewReader(m.Bytes()), a, decode)
		if err != nil {
			return nil, err
		}
		return []*table.Table[S]{tbl}, nil
	}

	f, err := os.Open(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeFile, "failed to open input").
			WithDetail("path", path)
	}
	defer f.Close()

	return Read(f, format, alg, cfg, a, decode)
}
