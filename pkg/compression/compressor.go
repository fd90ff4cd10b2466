// Package compression wraps the stream codecs used for encoded result files.
//
// Every algorithm is exposed both as a streaming writer and reader, which the
// CLI layers under columnar and JSON output, and as one-shot Compress and
// Decompress helpers. Both paths produce the same framed stream format, so a
// file written by NewWriter can be read back with Decompress.
//
// Speed (fastest to slowest): LZ4 > Snappy/S2 > Zstd > Gzip/Deflate.
// Compression ratio (best to worst): Zstd > Gzip/Deflate > Snappy/S2 > LZ4.
package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/resultset/pkg/arena"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents framed snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2, Deflate}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// ErrTooLarge is returned when decompressed output exceeds the configured limit.
var ErrTooLarge = errors.New("decompressed data exceeds size limit")

// Compressor provides compression and decompression functionality.
// All implementations are safe for concurrent use.
type Compressor interface {
	// Compress compresses data and returns the compressed bytes.
	Compress(data []byte) ([]byte, error)
	// Decompress decompresses data and returns the original bytes.
	Decompress(data []byte) ([]byte, error)
	// NewWriter wraps dst. Closing the writer flushes the stream but does
	// not close dst.
	NewWriter(dst io.Writer) (io.WriteCloser, error)
	// NewReader wraps src. Reading past the configured size limit fails
	// with ErrTooLarge.
	NewReader(src io.Reader) (io.ReadCloser, error)
	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm
	// Level returns the compression level configured.
	Level() Level
}

// Config represents compressor configuration.
type Config struct {
	Algorithm Algorithm `yaml:"algorithm"`
	Level     Level     `yaml:"level"`
	// MaxDecompressedSize bounds the output of Decompress and of readers
	// from NewReader. Zero means unlimited.
	MaxDecompressedSize int64 `yaml:"max_decompressed_size"`
}

// DefaultConfig returns the default configuration: zstd at the default level.
func DefaultConfig() *Config {
	return &Config{
		Algorithm: Zstd,
		Level:     Default,
	}
}

// ParseAlgorithm converts a name to an Algorithm. The empty string is None.
func ParseAlgorithm(s string) (Algorithm, error) {
	if s == "" {
		return None, nil
	}
	alg := Algorithm(strings.ToLower(s))
	for _, known := range Algorithms {
		if alg == known {
			return alg, nil
		}
	}
	return "", rserrors.New(rserrors.ErrorTypeConfig, fmt.Sprintf("unsupported compression algorithm: %s", s))
}

var extensions = map[Algorithm]string{
	Gzip:    ".gz",
	Snappy:  ".sz",
	LZ4:     ".lz4",
	Zstd:    ".zst",
	S2:      ".s2",
	Deflate: ".deflate",
}

// Extension returns the conventional file suffix for alg, or "" for None.
func Extension(alg Algorithm) string {
	return extensions[alg]
}

// FromPath infers the algorithm from a file name's suffix.
func FromPath(path string) Algorithm {
	ext := strings.ToLower(filepath.Ext(path))
	for alg, e := range extensions {
		if e == ext {
			return alg
		}
	}
	return None
}

// NewCompressor creates a new compressor based on the provided configuration.
// If config is nil, default configuration is used.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}

	c := &streamCompressor{
		algorithm: config.Algorithm,
		level:     config.Level,
		limit:     config.MaxDecompressedSize,
	}

	switch config.Algorithm {
	case None, "":
		c.algorithm = None
		c.newWriter = func(dst io.Writer) (io.WriteCloser, error) { return nopWriteCloser{dst}, nil }
		c.newReader = func(src io.Reader) (io.ReadCloser, error) { return io.NopCloser(src), nil }
	case Gzip:
		level := mapGzipLevel(config.Level)
		c.newWriter = func(dst io.Writer) (io.WriteCloser, error) { return gzip.NewWriterLevel(dst, level) }
		c.newReader = func(src io.Reader) (io.ReadCloser, error) { return gzip.NewReader(src) }
	case Deflate:
		level := mapDeflateLevel(config.Level)
		c.newWriter = func(dst io.Writer) (io.WriteCloser, error) { return flate.NewWriter(dst, level) }
		c.newReader = func(src io.Reader) (io.ReadCloser, error) { return flate.NewReader(src), nil }
	case Snappy:
		c.newWriter = func(dst io.Writer) (io.WriteCloser, error) { return snappy.NewBufferedWriter(dst), nil }
		c.newReader = func(src io.Reader) (io.ReadCloser, error) { return io.NopCloser(snappy.NewReader(src)), nil }
	case S2:
		opts := mapS2Level(config.Level)
		c.newWriter = func(dst io.Writer) (io.WriteCloser, error) { return s2.NewWriter(dst, opts...), nil }
		c.newReader = func(src io.Reader) (io.ReadCloser, error) { return io.NopCloser(s2.NewReader(src)), nil }
	case LZ4:
		level := mapLZ4Level(config.Level)
		c.newWriter = func(dst io.Writer) (io.WriteCloser, error) {
			w := lz4.NewWriter(dst)
			if err := w.Apply(lz4.CompressionLevelOption(level)); err != nil {
				return nil, err
			}
			return w, nil
		}
		c.newReader = func(src io.Reader) (io.ReadCloser, error) { return io.NopCloser(lz4.NewReader(src)), nil }
	case Zstd:
		level := mapZstdLevel(config.Level)
		c.newWriter = func(dst io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(dst, zstd.WithEncoderLevel(level))
		}
		c.newReader = func(src io.Reader) (io.ReadCloser, error) {
			dec, err := zstd.NewReader(src)
			if err != nil {
				return nil, err
			}
			return dec.IOReadCloser(), nil
		}
	default:
		return nil, rserrors.New(rserrors.ErrorTypeConfig, fmt.Sprintf("unsupported compression algorithm: %s", config.Algorithm))
	}
	return c, nil
}

var bufferPool = arena.NewPool(
	func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, 64*1024)) },
	func(b *bytes.Buffer) { b.Reset() },
)

type streamCompressor struct {
	algorithm Algorithm
	level     Level
	limit     int64
	newWriter func(io.Writer) (io.WriteCloser, error)
	newReader func(io.Reader) (io.ReadCloser, error)
}

func (c *streamCompressor) Algorithm() Algorithm { return c.algorithm }

func (c *streamCompressor) Level() Level { return c.level }

func (c *streamCompressor) NewWriter(dst io.Writer) (io.WriteCloser, error) {
	w, err := c.newWriter(dst)
	if err != nil {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeConfig, "failed to create compressor").
			WithDetail("algorithm", string(c.algorithm))
	}
	return w, nil
}

func (c *streamCompressor) NewReader(src io.Reader) (io.ReadCloser, error) {
	r, err := c.newReader(src)
	if err != nil {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeData, "failed to open compressed stream").
			WithDetail("algorithm", string(c.algorithm))
	}
	if c.limit > 0 {
		return &limitedReader{rc: r, limit: c.limit}, nil
	}
	return r, nil
}

func (c *streamCompressor) Compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	w, err := c.NewWriter(buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeData, "compression failed")
	}
	if err := w.Close(); err != nil {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeData, "compression failed")
	}
	return bytes.Clone(buf.Bytes()), nil
}

func (c *streamCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := c.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	if _, err := io.Copy(buf, r); err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeData, "decompression failed").
			WithDetail("algorithm", string(c.algorithm))
	}
	return bytes.Clone(buf.Bytes()), nil
}

// limitedReader fails with ErrTooLarge once the stream yields more than
// limit bytes. Bytes up to the limit are still returned.
type limitedReader struct {
	rc    io.ReadCloser
	limit int64
	n     int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.n > l.limit {
		return 0, l.tooLarge()
	}
	if rem := l.limit + 1 - l.n; int64(len(p)) > rem {
		p = p[:rem]
	}
	n, err := l.rc.Read(p)
	l.n += int64(n)
	if l.n > l.limit {
		return n - int(l.n-l.limit), l.tooLarge()
	}
	return n, err
}

func (l *limitedReader) Close() error {
	return l.rc.Close()
}

func (l *limitedReader) tooLarge() error {
	return rserrors.Wrap(ErrTooLarge, rserrors.ErrorTypeData, "decompression aborted").
		WithDetail("limit", l.limit)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}

func mapS2Level(level Level) []s2.WriterOption {
	switch level {
	case Better:
		return []s2.WriterOption{s2.WriterBetterCompression()}
	case Best:
		return []s2.WriterOption{s2.WriterBestCompression()}
	default:
		return nil
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
