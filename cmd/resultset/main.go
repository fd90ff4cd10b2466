package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/resultset/pkg/config"
	"github.com/ajitpratap0/resultset/pkg/logger"
	"github.com/ajitpratap0/resultset/pkg/metrics"
	"github.com/ajitpratap0/resultset/pkg/observability"
	"github.com/ajitpratap0/resultset/pkg/scalar"
)

var version = "0.1.0"

// S is the scalar every command builds tables over.
type S = scalar.FieldElement

// configKeyAnnotation marks a flag with the config key it overrides.
const configKeyAnnotation = "resultset/config-key"

// app carries the state shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	collector  *metrics.Collector
	shutdown   observability.ShutdownFunc
	profile    profiler
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	a.v.SetEnvPrefix("RESULTSET")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "resultset",
		Short: "resultset - columnar query result tables",
		Long: `resultset builds, encodes and inspects query result tables: named,
equal-length, typed columns in a fixed order.

Settings come from a YAML file (--config), RESULTSET_* environment variables
and command line flags, in increasing order of precedence.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("trace", "none", "Trace exporter (none, stdout)")
	root.PersistentFlags().Bool("print-metrics", false, "Print a metrics snapshot to stderr on exit")
	a.profile.addFlags(root.PersistentFlags())
	bindKey(root.PersistentFlags(), "log-level", "log.level")
	bindKey(root.PersistentFlags(), "trace", "tracing.exporter")
	bindKey(root.PersistentFlags(), "print-metrics", "metrics.print")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "resultset v%s\n", version)
				fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
				fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			},
		},
		newCatalogCmd(),
		newGenerateCmd(a),
		newInspectCmd(a),
		newQueryCmd(a),
	)
	return root
}

// bindKey records that flag overrides the config key.
func bindKey(flags *pflag.FlagSet, flag, key string) {
	_ = flags.SetAnnotation(flag, configKeyAnnotation, []string{key})
}

// setup resolves the configuration and starts logging, tracing and metrics.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if a.configFile != "" {
		loaded, err := config.LoadFile(a.configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys, ok := f.Annotations[configKeyAnnotation]; ok && bindErr == nil {
			bindErr = a.v.BindPFlag(keys[0], f)
		}
	})
	if bindErr != nil {
		return bindErr
	}
	applyOverrides(a.v, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if cfg.Tracing.Writer == nil {
		cfg.Tracing.Writer = os.Stderr
	}
	shutdown, err := observability.InitTracing(cfg.Tracing)
	if err != nil {
		return err
	}
	a.shutdown = shutdown

	if cfg.Metrics.Enabled {
		a.collector = metrics.Default()
	} else {
		a.collector = metrics.NewCollector(nil)
	}

	if err := a.profile.start(); err != nil {
		return err
	}

	logger.Debug("configuration resolved",
		zap.String("name", cfg.Name),
		zap.String("command", cmd.Name()),
		zap.String("config_file", a.configFile))
	return nil
}

func (a *app) teardown(cmd *cobra.Command) error {
	if err := a.profile.stop(); err != nil {
		logger.Warn("failed to write profiles", zap.Error(err))
	}
	if a.cfg != nil && a.cfg.Metrics.Print {
		if err := printMetrics(cmd, a.collector); err != nil {
			logger.Warn("failed to gather metrics", zap.Error(err))
		}
	}

	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			logger.Warn("failed to shut down tracing", zap.Error(err))
		}
	}
	_ = logger.Sync()
	return nil
}

// applyOverrides copies every key set by a flag or environment variable
// into cfg.
func applyOverrides(v *viper.Viper, cfg *config.Config) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	integer := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	str("name", &cfg.Name)
	str("log.level", &cfg.Log.Level)
	str("output.format", &cfg.Output.Format)
	str("output.codec", &cfg.Output.Codec)
	str("output.compression", &cfg.Output.Compression)
	str("output.json_layout", &cfg.Output.JSONLayout)
	str("output.path", &cfg.Output.Path)
	if v.IsSet("input.max_decompressed_size") {
		cfg.Input.MaxDecompressedSize = v.GetInt64("input.max_decompressed_size")
	}
	str("scaffold.query", &cfg.Scaffold.Query)
	integer("scaffold.size", &cfg.Scaffold.Size)
	integer("scaffold.tables", &cfg.Scaffold.Tables)
	if v.IsSet("scaffold.seed") {
		cfg.Scaffold.Seed = v.GetUint64("scaffold.seed")
	}
	str("postgres.dsn", &cfg.Postgres.DSN)
	integer("postgres.max_rows", &cfg.Postgres.MaxRows)
	if v.IsSet("postgres.query_timeout") {
		cfg.Postgres.QueryTimeout = v.GetDuration("postgres.query_timeout")
	}
	str("tracing.exporter", &cfg.Tracing.Exporter)
	if v.IsSet("metrics.print") {
		cfg.Metrics.Print = v.GetBool("metrics.print")
	}
}

func printMetrics(cmd *cobra.Command, collector *metrics.Collector) error {
	samples, err := collector.Snapshot()
	if err != nil {
		return err
	}
	w := cmd.ErrOrStderr()
	for _, s := range samples {
		labels := make([]string, 0, len(s.Labels))
		for k, v := range s.Labels {
			labels = append(labels, fmt.Sprintf("%s=%q", k, v))
		}
		sort.Strings(labels)
		fmt.Fprintf(w, "%s{%s} %g", s.Name, strings.Join(labels, ","), s.Value)
		if s.Sum != 0 {
			fmt.Fprintf(w, " sum=%g", s.Sum)
		}
		fmt.Fprintln(w)
	}
	return nil
}
