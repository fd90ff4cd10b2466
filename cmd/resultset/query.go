package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/resultset/internal/tableio"
	"github.com/ajitpratap0/resultset/pkg/arena"
	"github.com/ajitpratap0/resultset/pkg/config"
	"github.com/ajitpratap0/resultset/pkg/logger"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
	"github.com/ajitpratap0/resultset/pkg/source/postgres"
)

func newQueryCmd(a *app) *cobra.Command {
	var sql string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run SQL against PostgreSQL and print the result table as JSON",
		Long: `Run a query through the PostgreSQL loader and print the resulting table.
Only BOOLEAN, SMALLINT, INTEGER, BIGINT, integral NUMERIC, text and BYTEA
result columns are supported, and NULLs are rejected.

Example:
  resultset query --dsn postgres://localhost/db --sql "SELECT id, name FROM users"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.query(cmd.Context(), cmd.OutOrStdout(), sql)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&sql, "sql", "", "SQL to run (required)")
	flags.String("dsn", "", "PostgreSQL connection string")
	flags.Int("max-rows", 0, "Fail if the result has more rows (0 = unlimited)")
	flags.Duration("timeout", 0, "Query timeout (default from config)")
	flags.String("json-layout", "columns", "JSON layout (columns, rows)")
	_ = cmd.MarkFlagRequired("sql")

	bindKey(flags, "dsn", "postgres.dsn")
	bindKey(flags, "max-rows", "postgres.max_rows")
	bindKey(flags, "timeout", "postgres.query_timeout")
	bindKey(flags, "json-layout", "output.json_layout")
	return cmd
}

func (a *app) query(ctx context.Context, stdout io.Writer, sql string) error {
	pg := a.cfg.Postgres
	if pg.DSN == "" {
		return rserrors.New(rserrors.ErrorTypeConfig, "postgres.dsn is required (flag --dsn or RESULTSET_POSTGRES_DSN)")
	}

	pool, err := postgres.Connect(ctx, pg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return arena.With(func(ar *arena.Arena) error {
		tbl, err := postgres.Load(ctx, pool, ar, sql, postgres.Options[S]{
			MaxRows:   pg.MaxRows,
			Timeout:   pg.QueryTimeout,
			Decode:    scalar.FromBytes,
			Collector: a.collector,
		})
		if err != nil {
			return err
		}

		// Query output is always JSON; only the layout is configurable.
		out := config.OutputConfig{
			Format:      tableio.FormatJSON,
			Compression: "none",
			JSONLayout:  a.cfg.Output.JSONLayout,
		}
		sink, err := tableio.NewSink[S](stdout, out, a.collector)
		if err != nil {
			return err
		}
		if err := sink.Write(ctx, tbl); err != nil {
			return err
		}
		if err := sink.Close(); err != nil {
			return err
		}
		logger.Debug("query printed", zap.Int64("bytes", sink.BytesWritten()))
		return nil
	})
}
