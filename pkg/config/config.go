package config

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/resultset/pkg/compression"
	"github.com/ajitpratap0/resultset/pkg/logger"
	"github.com/ajitpratap0/resultset/pkg/observability"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
)

// Output formats accepted in OutputConfig.Format.
var outputFormats = map[string]bool{
	"arrow":   true,
	"parquet": true,
	"avro":    true,
	"json":    true,
}

// Config is the resultset tool configuration. Every section has defaults,
// so a YAML file only needs the keys it overrides.
type Config struct {
	// Name identifies this configuration in logs
	Name string `yaml:"name" json:"name"`

	Log      logger.Config               `yaml:"log" json:"log"`
	Output   OutputConfig                `yaml:"output" json:"output"`
	Input    InputConfig                 `yaml:"input" json:"input"`
	Scaffold ScaffoldConfig              `yaml:"scaffold" json:"scaffold"`
	Postgres PostgresConfig              `yaml:"postgres" json:"postgres"`
	Tracing  observability.TracingConfig `yaml:"tracing" json:"tracing"`
	Metrics  MetricsConfig               `yaml:"metrics" json:"metrics"`
}

// OutputConfig controls how tables are encoded.
type OutputConfig struct {
	// Format is arrow, parquet, avro or json
	Format string `yaml:"format" json:"format"`
	// Codec is the compression inside the columnar container (Arrow IPC
	// body compression, Parquet page codec, Avro block codec).
	Codec string `yaml:"codec" json:"codec"`
	// Compression wraps the whole output stream
	Compression string `yaml:"compression" json:"compression"`
	// JSONLayout is columns or rows
	JSONLayout string `yaml:"json_layout" json:"json_layout"`
	// Path is the output file; empty or "-" means stdout
	Path string `yaml:"path" json:"path"`
}

// InputConfig controls how encoded tables are read back.
type InputConfig struct {
	// MaxDecompressedSize bounds the bytes a compressed input may expand
	// to. Zero means unlimited.
	MaxDecompressedSize int64 `yaml:"max_decompressed_size" json:"max_decompressed_size"`
}

// ScaffoldConfig drives synthetic table generation.
type ScaffoldConfig struct {
	// Query is the catalog title to generate a table for
	Query string `yaml:"query" json:"query"`
	// Size is the number of rows
	Size int `yaml:"size" json:"size"`
	// Seed makes generation reproducible
	Seed uint64 `yaml:"seed" json:"seed"`
	// Tables is how many tables to generate into one output
	Tables int `yaml:"tables" json:"tables"`
}

// PostgresConfig configures the Postgres table loader.
type PostgresConfig struct {
	DSN            string        `yaml:"dsn" json:"dsn"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	QueryTimeout   time.Duration `yaml:"query_timeout" json:"query_timeout"`
	// MaxRows caps loaded rows; zero means unlimited
	MaxRows int `yaml:"max_rows" json:"max_rows"`
}

// MetricsConfig controls Prometheus metric reporting.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Print dumps a metric snapshot to stderr when a command finishes
	Print bool `yaml:"print" json:"print"`
}

// Default returns a configuration with every section populated.
//
// Example:
//
//	cfg := config.Default()
//	cfg.Output.Format = "parquet"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
func Default() *Config {
	return &Config{
		Name: "resultset",
		Log:  logger.DefaultConfig(),
		Output: OutputConfig{
			Format:      "arrow",
			Codec:       "none",
			Compression: string(compression.None),
			JSONLayout:  "columns",
		},
		Input: InputConfig{
			MaxDecompressedSize: 1 << 30,
		},
		Scaffold: ScaffoldConfig{
			Query:  "Single Column Filter",
			Size:   1000,
			Seed:   1,
			Tables: 1,
		},
		Postgres: PostgresConfig{
			ConnectTimeout: 10 * time.Second,
			QueryTimeout:   30 * time.Second,
		},
		Tracing: observability.DefaultTracingConfig(),
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate validates the configuration for correctness.
// It checks required fields and ensures values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Name == "" {
		return invalid("name is required", "name", c.Name)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level is not a valid level", "log.level", c.Log.Level)
	}
	if !outputFormats[c.Output.Format] {
		return invalid(fmt.Sprintf("output.format must be one of arrow, parquet, avro, json; got %q", c.Output.Format),
			"output.format", c.Output.Format)
	}
	if _, err := compression.ParseAlgorithm(c.Output.Compression); err != nil {
		return invalid("output.compression is not a supported algorithm", "output.compression", c.Output.Compression)
	}
	switch c.Output.JSONLayout {
	case "", "columns", "rows":
	default:
		return invalid("output.json_layout must be columns or rows", "output.json_layout", c.Output.JSONLayout)
	}
	if c.Input.MaxDecompressedSize < 0 {
		return invalid("input.max_decompressed_size cannot be negative", "input.max_decompressed_size", c.Input.MaxDecompressedSize)
	}
	if c.Scaffold.Size < 0 {
		return invalid("scaffold.size cannot be negative", "scaffold.size", c.Scaffold.Size)
	}
	if c.Scaffold.Tables < 1 {
		return invalid("scaffold.tables must be positive", "scaffold.tables", c.Scaffold.Tables)
	}
	if c.Postgres.ConnectTimeout < 0 || c.Postgres.QueryTimeout < 0 {
		return invalid("postgres timeouts cannot be negative", "postgres.query_timeout", c.Postgres.QueryTimeout)
	}
	if c.Postgres.MaxRows < 0 {
		return invalid("postgres.max_rows cannot be negative", "postgres.max_rows", c.Postgres.MaxRows)
	}
	switch c.Tracing.Exporter {
	case "", observability.ExporterNone, observability.ExporterStdout:
	default:
		return invalid("tracing.exporter must be none or stdout", "tracing.exporter", c.Tracing.Exporter)
	}
	return nil
}

func invalid(msg, field string, value interface{}) error {
	return rserrors.New(rserrors.ErrorTypeConfig, msg).
		WithDetail("field", field).
		WithDetail("value", value)
}
