// Package postgres materializes the result of a SQL query as a table.
//
// Each result column maps onto one column variant by its type OID:
//
//	bool                         BOOLEAN
//	smallint, integer            INT
//	bigint                       BIGINT
//	numeric (integral values)    DECIMAL(38,0)
//	text, varchar, char, name    VARCHAR
//	bytea                        SCALAR (via the configured decoder)
//
// Any other type, and any NULL value, fails the load.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/resultset/pkg/arena"
	"github.com/ajitpratap0/resultset/pkg/columnar"
	"github.com/ajitpratap0/resultset/pkg/config"
	"github.com/ajitpratap0/resultset/pkg/identifier"
	"github.com/ajitpratap0/resultset/pkg/logger"
	"github.com/ajitpratap0/resultset/pkg/metrics"
	"github.com/ajitpratap0/resultset/pkg/observability"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
	"github.com/ajitpratap0/resultset/pkg/table"
)

var (
	// ErrUnsupportedType is returned for result columns with no column variant.
	ErrUnsupportedType = errors.New("unsupported postgres type")
	// ErrNullValue is returned when a result contains NULL.
	ErrNullValue = columnar.ErrNullValue
	// ErrTooManyRows is returned when a result exceeds Options.MaxRows.
	ErrTooManyRows = errors.New("result exceeds row limit")
)

// Querier is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Options tune a load.
type Options[S scalar.Scalar] struct {
	// MaxRows caps the result size; zero means unlimited.
	MaxRows int
	// Timeout bounds the query; zero means no extra deadline.
	Timeout time.Duration
	// Decode turns bytea values into scalars. Without it bytea columns are
	// rejected.
	Decode scalar.Decoder[S]
	// Collector records the table build; nil uses metrics.Default().
	Collector *metrics.Collector
}

// Connect opens a connection pool from cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeConfig, "failed to parse connection string")
	}
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeConnection, "failed to create connection pool")
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, rserrors.Wrap(err, rserrors.ErrorTypeConnection, "failed to connect to PostgreSQL")
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("database", poolConfig.ConnConfig.Database))
	return pool, nil
}

// ColumnTypeForOID returns the column type used for a Postgres type OID.
func ColumnTypeForOID(oid uint32) (columnar.ColumnType, error) {
	switch oid {
	case pgtype.BoolOID:
		return columnar.ColumnTypeBoolean, nil
	case pgtype.Int2OID, pgtype.Int4OID:
		return columnar.ColumnTypeInt, nil
	case pgtype.Int8OID:
		return columnar.ColumnTypeBigInt, nil
	case pgtype.NumericOID:
		return columnar.ColumnTypeInt128, nil
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID:
		return columnar.ColumnTypeVarChar, nil
	case pgtype.ByteaOID:
		return columnar.ColumnTypeScalar, nil
	}
	return 0, rserrors.Wrap(ErrUnsupportedType, rserrors.ErrorTypeCapability, fmt.Sprintf("type OID %d", oid)).
		WithDetail("oid", oid)
}

// Load runs sql on q and returns the result as a table. Column storage is
// allocated from a, so the table is valid while a is alive.
func Load[S scalar.Scalar](ctx context.Context, q Querier, a *arena.Arena, sql string, opts Options[S], args ...any) (*table.Table[S], error) {
	collector := opts.Collector
	if collector == nil {
		collector = metrics.Default()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	ctx = context.WithValue(ctx, logger.QueryKey, sql)
	ctx, span := observability.StartSpan(ctx, "postgres.load", attribute.String("db.statement", sql))
	defer span.End()

	tbl, err := load(ctx, q, a, sql, opts, args)
	observability.EndWithError(span, err)

	rows := 0
	if tbl != nil {
		rows = tbl.NumRows()
		span.SetAttributes(attribute.Int("rows", rows))
	}
	collector.RecordBuild(rows, err)
	if err != nil {
		logger.WithContext(ctx).Warn("postgres load failed", zap.Error(err))
		return nil, err
	}
	logger.WithContext(ctx).Info("loaded table from PostgreSQL",
		zap.Int("rows", rows),
		zap.Int("columns", tbl.NumColumns()))
	return tbl, nil
}

func load[S scalar.Scalar](ctx context.Context, q Querier, a *arena.Arena, sql string, opts Options[S], args []any) (*table.Table[S], error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, queryError(ctx, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	builders := make([]*columnar.Builder[S], len(fields))
	for i, fd := range fields {
		ct, err := ColumnTypeForOID(fd.DataTypeOID)
		if err != nil {
			return nil, rserrors.Wrap(err, rserrors.ErrorTypeCapability, "cannot load column").
				WithDetail("column", fd.Name)
		}
		if ct == columnar.ColumnTypeScalar && opts.Decode == nil {
			return nil, rserrors.New(rserrors.ErrorTypeConfig, "bytea column requires a scalar decoder").
				WithDetail("column", fd.Name)
		}
		if builders[i], err = columnar.NewBuilder[S](ct); err != nil {
			return nil, err
		}
	}

	n := 0
	for rows.Next() {
		n++
		if opts.MaxRows > 0 && n > opts.MaxRows {
			return nil, rserrors.Wrap(ErrTooManyRows, rserrors.ErrorTypeData, "result too large").
				WithDetail("max_rows", opts.MaxRows)
		}
		values, err := rows.Values()
		if err != nil {
			return nil, rserrors.Wrap(err, rserrors.ErrorTypeData, "failed to get row values")
		}
		for i, v := range values {
			if err := appendValue(builders[i], v, opts.Decode); err != nil {
				return nil, rserrors.Wrap(err, rserrors.ErrorTypeData, "cannot convert value").
					WithDetail("column", fields[i].Name).
					WithDetail("row", n-1)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, err)
	}

	m := table.NewMapping[S]()
	for i, b := range builders {
		name, err := identifier.ParseNormalized(fields[i].Name)
		if err != nil {
			return nil, err
		}
		col, err := b.Finish(a)
		if err != nil {
			return nil, err
		}
		// SELECT a, a yields two fields with one name.
		if err := table.Insert(m, name, col); err != nil {
			return nil, err
		}
	}
	return table.New(m)
}

func queryError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return rserrors.Wrap(err, rserrors.ErrorTypeTimeout, "query timed out")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return rserrors.Wrap(err, rserrors.ErrorTypeQuery, "query failed").
			WithDetail("sqlstate", pgErr.Code)
	}
	if pgconn.SafeToRetry(err) {
		return rserrors.Wrap(err, rserrors.ErrorTypeConnection, "query failed")
	}
	return rserrors.Wrap(err, rserrors.ErrorTypeQuery, "query failed")
}

// appendValue converts a driver value to the builder's representation.
// pgx decodes int2, int4, int8, bool and text natively; numeric and bytea
// need conversion first.
func appendValue[S scalar.Scalar](b *columnar.Builder[S], v any, decode scalar.Decoder[S]) error {
	switch x := v.(type) {
	case pgtype.Numeric:
		wide, err := numericToInt128(x)
		if err != nil {
			return err
		}
		return b.Append(wide)
	case []byte:
		if b.Type() != columnar.ColumnTypeScalar {
			return b.Append(x)
		}
		s, err := decode(x)
		if err != nil {
			return err
		}
		return b.Append(s)
	}
	return b.Append(v)
}

var bigTen = big.NewInt(10)

// numericToInt128 accepts integral numerics that fit in 128 bits.
func numericToInt128(n pgtype.Numeric) (columnar.Int128, error) {
	if n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return columnar.Int128{}, rserrors.New(rserrors.ErrorTypeData, "numeric is not a finite number")
	}

	v := new(big.Int).Set(n.Int)
	switch {
	case n.Exp > 0:
		v.Mul(v, new(big.Int).Exp(bigTen, big.NewInt(int64(n.Exp)), nil))
	case n.Exp < 0:
		div := new(big.Int).Exp(bigTen, big.NewInt(int64(-n.Exp)), nil)
		var rem big.Int
		v.QuoRem(v, div, &rem)
		if rem.Sign() != 0 {
			return columnar.Int128{}, rserrors.New(rserrors.ErrorTypeData, "numeric has a fractional part")
		}
	}

	out, ok := columnar.Int128FromBigInt(v)
	if !ok {
		return columnar.Int128{}, rserrors.New(rserrors.ErrorTypeData, "numeric does not fit in 128 bits")
	}
	return out, nil
}
