package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/resultset/pkg/rserrors"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty name", func(c *Config) { c.Name = "" }, "name"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Output.Format = "csv" }, "output.format"},
		{"bad compression", func(c *Config) { c.Output.Compression = "brotli" }, "output.compression"},
		{"bad layout", func(c *Config) { c.Output.JSONLayout = "table" }, "output.json_layout"},
		{"negative decompression limit", func(c *Config) { c.Input.MaxDecompressedSize = -1 }, "input.max_decompressed_size"},
		{"negative size", func(c *Config) { c.Scaffold.Size = -1 }, "scaffold.size"},
		{"zero tables", func(c *Config) { c.Scaffold.Tables = 0 }, "scaffold.tables"},
		{"negative timeout", func(c *Config) { c.Postgres.QueryTimeout = -time.Second }, "postgres.query_timeout"},
		{"negative max rows", func(c *Config) { c.Postgres.MaxRows = -5 }, "postgres.max_rows"},
		{"bad exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }, "tracing.exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeConfig))
			field, _ := rserrors.DetailOf(err, "field")
			assert.Equal(t, tt.field, field)
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("RS_TEST_HOST", "db.local")
	t.Setenv("RS_TEST_EMPTY", "")

	tests := []struct {
		in, want string
	}{
		{"host: ${RS_TEST_HOST}", "host: db.local"},
		{"host: ${RS_TEST_MISSING}", "host: "},
		{"host: ${RS_TEST_MISSING:-localhost}", "host: localhost"},
		{"host: ${RS_TEST_EMPTY:-fallback}", "host: fallback"},
		{"a: ${RS_TEST_HOST}, b: ${RS_TEST_HOST}", "a: db.local, b: db.local"},
		{"unterminated ${RS_TEST_HOST", "unterminated ${RS_TEST_HOST"},
		{"no vars", "no vars"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, substituteEnvVars(tt.in), tt.in)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	cfg := Default()
	cfg.Output.Format = "avro"
	cfg.Postgres.DSN = "postgres://localhost/db"
	cfg.Postgres.QueryTimeout = 90 * time.Second
	cfg.Scaffold.Seed = 42
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "avro", loaded.Output.Format)
	assert.Equal(t, "postgres://localhost/db", loaded.Postgres.DSN)
	assert.Equal(t, 90*time.Second, loaded.Postgres.QueryTimeout)
	assert.Equal(t, uint64(42), loaded.Scaffold.Seed)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeFile))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("output: [unclosed"), 0o600))
	_, err = LoadFile(bad)
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeConfig))

	invalidFile := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalidFile, []byte("output:\n  format: xml\n"), 0o600))
	_, err = LoadFile(invalidFile)
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeConfig))
}
