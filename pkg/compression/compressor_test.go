package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/resultset/pkg/rserrors"
)

var sample = []byte(strings.Repeat("select a, b from t where a = 0; ", 200))

func TestRoundTrip(t *testing.T) {
	for _, alg := range Algorithms {
		for _, level := range []Level{Fastest, Default, Better, Best} {
			c, err := NewCompressor(&Config{Algorithm: alg, Level: level})
			require.NoError(t, err)
			assert.Equal(t, alg, c.Algorithm())
			assert.Equal(t, level, c.Level())

			compressed, err := c.Compress(sample)
			require.NoError(t, err, alg)
			if alg != None {
				assert.Less(t, len(compressed), len(sample), alg)
			}

			got, err := c.Decompress(compressed)
			require.NoError(t, err, alg)
			assert.Equal(t, sample, got, alg)
		}
	}
}

func TestStreamMatchesOneShot(t *testing.T) {
	for _, alg := range Algorithms {
		t.Run(string(alg), func(t *testing.T) {
			c, err := NewCompressor(&Config{Algorithm: alg})
			require.NoError(t, err)

			var buf bytes.Buffer
			w, err := c.NewWriter(&buf)
			require.NoError(t, err)
			for i := 0; i < 4; i++ {
				_, err := w.Write(sample[:len(sample)/4])
				require.NoError(t, err)
			}
			require.NoError(t, w.Close())

			got, err := c.Decompress(buf.Bytes())
			require.NoError(t, err)
			assert.Len(t, got, 4*(len(sample)/4))

			r, err := c.NewReader(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			streamed, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, got, streamed)
		})
	}
}

func TestDecompressLimit(t *testing.T) {
	c, err := NewCompressor(&Config{Algorithm: Zstd, MaxDecompressedSize: 100})
	require.NoError(t, err)

	compressed, err := c.Compress(sample)
	require.NoError(t, err)

	_, err = c.Decompress(compressed)
	assert.ErrorIs(t, err, ErrTooLarge)

	small, err := c.Compress(sample[:100])
	require.NoError(t, err)
	got, err := c.Decompress(small)
	require.NoError(t, err)
	assert.Equal(t, sample[:100], got)
}

func TestDecompressCorrupt(t *testing.T) {
	c, err := NewCompressor(&Config{Algorithm: Gzip})
	require.NoError(t, err)
	_, err = c.Decompress([]byte("not gzip"))
	require.Error(t, err)
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeData))
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, Zstd, alg)

	alg, err = ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, None, alg)

	_, err = ParseAlgorithm("brotli")
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeConfig))

	_, err = NewCompressor(&Config{Algorithm: "brotli"})
	assert.Error(t, err)
}

func TestExtensions(t *testing.T) {
	for _, alg := range Algorithms {
		if alg == None {
			assert.Empty(t, Extension(alg))
			continue
		}
		assert.Equal(t, alg, FromPath("out/result.arrows"+Extension(alg)))
	}
	assert.Equal(t, None, FromPath("result.json"))
	assert.Equal(t, Gzip, FromPath("RESULT.GZ"))
}

func TestDefaultConfig(t *testing.T) {
	c, err := NewCompressor(nil)
	require.NoError(t, err)
	assert.Equal(t, Zstd, c.Algorithm())
}

func BenchmarkCompress(b *testing.B) {
	data := bytes.Repeat(sample, 50)
	for _, alg := range Algorithms {
		c, err := NewCompressor(&Config{Algorithm: alg})
		if err != nil {
			b.Fatal(err)
		}
		b.Run(string(alg), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := c.Compress(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func TestNewReaderLimit(t *testing.T) {
	zeros := make([]byte, 10<<20)
	for _, alg := range Algorithms {
		t.Run(string(alg), func(t *testing.T) {
			plain, err := NewCompressor(&Config{Algorithm: alg})
			require.NoError(t, err)
			compressed, err := plain.Compress(zeros)
			require.NoError(t, err)

			limited, err := NewCompressor(&Config{Algorithm: alg, MaxDecompressedSize: 1024})
			require.NoError(t, err)
			r, err := limited.NewReader(bytes.NewReader(compressed))
			require.NoError(t, err)
			defer r.Close()

			data, err := io.ReadAll(r)
			require.ErrorIs(t, err, ErrTooLarge)
			assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeData))
			assert.Len(t, data, 1024)

			_, err = r.Read(make([]byte, 8))
			assert.ErrorIs(t, err, ErrTooLarge)
		})
	}
}

func TestNewReaderAtLimit(t *testing.T) {
	c, err := NewCompressor(&Config{Algorithm: Zstd, MaxDecompressedSize: int64(len(sample))})
	require.NoError(t, err)
	compressed, err := c.Compress(sample)
	require.NoError(t, err)

	r, err := c.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, sample, data)
}
