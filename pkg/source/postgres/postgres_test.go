package postgres

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/resultset/pkg/arena"
	"github.com/ajitpratap0/resultset/pkg/columnar"
	"github.com/ajitpratap0/resultset/pkg/identifier"
	"github.com/ajitpratap0/resultset/pkg/metrics"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
	"github.com/ajitpratap0/resultset/pkg/table"
	"github.com/ajitpratap0/resultset/pkg/testutil"
)

type S = scalar.FieldElement

// fakeRows serves a fixed result set through the pgx.Rows interface.
type fakeRows struct {
	fields []pgconn.FieldDescription
	values [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Scan(...any) error                            { return errors.New("not implemented") }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

type fakeQuerier struct {
	rows    *fakeRows
	err     error
	lastSQL string
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.lastSQL = sql
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func field(name string, oid uint32) pgconn.FieldDescription {
	return pgconn.FieldDescription{Name: name, DataTypeOID: oid}
}

func numeric(v int64, exp int32) pgtype.Numeric {
	return pgtype.Numeric{Int: big.NewInt(v), Exp: exp, Valid: true}
}

func TestColumnTypeForOID(t *testing.T) {
	tests := []struct {
		oid  uint32
		want columnar.ColumnType
	}{
		{pgtype.BoolOID, columnar.ColumnTypeBoolean},
		{pgtype.Int2OID, columnar.ColumnTypeInt},
		{pgtype.Int4OID, columnar.ColumnTypeInt},
		{pgtype.Int8OID, columnar.ColumnTypeBigInt},
		{pgtype.NumericOID, columnar.ColumnTypeInt128},
		{pgtype.TextOID, columnar.ColumnTypeVarChar},
		{pgtype.VarcharOID, columnar.ColumnTypeVarChar},
		{pgtype.BPCharOID, columnar.ColumnTypeVarChar},
		{pgtype.NameOID, columnar.ColumnTypeVarChar},
		{pgtype.ByteaOID, columnar.ColumnTypeScalar},
	}
	for _, tt := range tests {
		got, err := ColumnTypeForOID(tt.oid)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "oid %d", tt.oid)
	}

	_, err := ColumnTypeForOID(pgtype.Float8OID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeCapability))
	oid, ok := rserrors.DetailOf(err, "oid")
	require.True(t, ok)
	assert.Equal(t, uint32(pgtype.Float8OID), oid)
}

func TestNumericToInt128(t *testing.T) {
	got, err := numericToInt128(numeric(12300, -2))
	require.NoError(t, err)
	assert.Equal(t, columnar.Int128From64(123), got)

	got, err = numericToInt128(numeric(-5, 2))
	require.NoError(t, err)
	assert.Equal(t, columnar.Int128From64(-500), got)

	huge, ok := new(big.Int).SetString("170141183460469231731687303715884105727", 10)
	require.True(t, ok)
	got, err = numericToInt128(pgtype.Numeric{Int: huge, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, huge, got.BigInt())

	_, err = numericToInt128(numeric(12345, -2))
	assert.Error(t, err)

	_, err = numericToInt128(pgtype.Numeric{Int: new(big.Int).Add(huge, big.NewInt(1)), Valid: true})
	assert.Error(t, err)

	_, err = numericToInt128(pgtype.Numeric{NaN: true, Valid: true})
	assert.Error(t, err)

	_, err = numericToInt128(pgtype.Numeric{InfinityModifier: pgtype.Infinity, Valid: true})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	a := arena.New()
	defer a.Release()

	rows := &fakeRows{
		fields: []pgconn.FieldDescription{
			field("flag", pgtype.BoolOID),
			field("small", pgtype.Int2OID),
			field("num", pgtype.Int4OID),
			field("big", pgtype.Int8OID),
			field("wide", pgtype.NumericOID),
			field("Label", pgtype.TextOID),
			field("s", pgtype.ByteaOID),
		},
		values: [][]any{
			{true, int16(1), int32(10), int64(100), numeric(1, 3), "a", scalar.FromInt64(7).Bytes()},
			{false, int16(-1), int32(-10), int64(-100), numeric(-2, 0), "b", scalar.FromInt64(8).Bytes()},
		},
	}
	q := &fakeQuerier{rows: rows}

	tbl, err := Load(context.Background(), q, a, "SELECT * FROM t", Options[S]{
		Decode:    scalar.FromBytes,
		Collector: metrics.NewCollector(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t", q.lastSQL)
	assert.True(t, rows.closed)
	assert.Equal(t, 7, tbl.NumColumns())
	assert.Equal(t, 2, tbl.NumRows())

	col, ok := tbl.Column(identifier.MustParse("flag"))
	require.True(t, ok)
	assert.Equal(t, columnar.BooleanColumn[S]{true, false}, col)

	col, ok = tbl.Column(identifier.MustParse("small"))
	require.True(t, ok)
	assert.Equal(t, columnar.IntColumn[S]{1, -1}, col)

	col, ok = tbl.Column(identifier.MustParse("big"))
	require.True(t, ok)
	assert.Equal(t, columnar.BigIntColumn[S]{100, -100}, col)

	col, ok = tbl.Column(identifier.MustParse("wide"))
	require.True(t, ok)
	assert.Equal(t, columnar.Int128Column[S]{columnar.Int128From64(1000), columnar.Int128From64(-2)}, col)

	label, err := identifier.ParseNormalized("Label")
	require.NoError(t, err)
	col, ok = tbl.Column(label)
	require.True(t, ok)
	assert.Equal(t, columnar.VarCharColumn[S]{"a", "b"}, col)

	col, ok = tbl.Column(identifier.MustParse("s"))
	require.True(t, ok)
	assert.Equal(t, columnar.ScalarColumn[S]{scalar.FromInt64(7), scalar.FromInt64(8)}, col)
}

func TestLoadEmptyResult(t *testing.T) {
	a := arena.New()
	defer a.Release()

	q := &fakeQuerier{rows: &fakeRows{fields: []pgconn.FieldDescription{field("a", pgtype.Int8OID)}}}
	tbl, err := Load(context.Background(), q, a, "SELECT a FROM t WHERE false", Options[S]{Collector: metrics.NewCollector(nil)})
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.NumColumns())
	assert.Equal(t, 0, tbl.NumRows())
}

func TestLoadErrors(t *testing.T) {
	opts := Options[S]{Decode: scalar.FromBytes, Collector: metrics.NewCollector(nil)}

	t.Run("null value", func(t *testing.T) {
		a := arena.New()
		defer a.Release()
		q := &fakeQuerier{rows: &fakeRows{
			fields: []pgconn.FieldDescription{field("a", pgtype.Int8OID)},
			values: [][]any{{int64(1)}, {nil}},
		}}
		_, err := Load(context.Background(), q, a, "q", opts)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNullValue)
		row, ok := rserrors.DetailOf(err, "row")
		require.True(t, ok)
		assert.Equal(t, 1, row)
	})

	t.Run("unsupported type", func(t *testing.T) {
		a := arena.New()
		defer a.Release()
		q := &fakeQuerier{rows: &fakeRows{fields: []pgconn.FieldDescription{field("f", pgtype.Float8OID)}}}
		_, err := Load(context.Background(), q, a, "q", opts)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedType)
		column, ok := rserrors.DetailOf(err, "column")
		require.True(t, ok)
		assert.Equal(t, "f", column)
	})

	t.Run("duplicate column names", func(t *testing.T) {
		a := arena.New()
		defer a.Release()
		q := &fakeQuerier{rows: &fakeRows{
			fields: []pgconn.FieldDescription{field("a", pgtype.Int8OID), field("a", pgtype.Int8OID)},
			values: [][]any{{int64(1), int64(2)}},
		}}
		tbl, err := Load(context.Background(), q, a, "SELECT a, a FROM t", opts)
		assert.Nil(t, tbl)
		require.ErrorIs(t, err, table.ErrDuplicateColumn)
		assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeValidation))
		column, ok := rserrors.DetailOf(err, "column")
		require.True(t, ok)
		assert.Equal(t, "a", column)
	})

	t.Run("bytea without decoder", func(t *testing.T) {
		a := arena.New()
		defer a.Release()
		q := &fakeQuerier{rows: &fakeRows{fields: []pgconn.FieldDescription{field("s", pgtype.ByteaOID)}}}
		_, err := Load(context.Background(), q, a, "q", Options[S]{Collector: metrics.NewCollector(nil)})
		require.Error(t, err)
		assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeConfig))
	})

	t.Run("row limit", func(t *testing.T) {
		a := arena.New()
		defer a.Release()
		q := &fakeQuerier{rows: &fakeRows{
			fields: []pgconn.FieldDescription{field("a", pgtype.Int4OID)},
			values: [][]any{{int32(1)}, {int32(2)}, {int32(3)}},
		}}
		_, err := Load(context.Background(), q, a, "q", Options[S]{MaxRows: 2, Collector: metrics.NewCollector(nil)})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTooManyRows)
	})

	t.Run("query error", func(t *testing.T) {
		a := arena.New()
		defer a.Release()
		q := &fakeQuerier{err: &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}}
		_, err := Load(context.Background(), q, a, "q", opts)
		require.Error(t, err)
		assert.True(t, rserrors.IsType(err, rserrors.ErrorTypeQuery))
		code, ok := rserrors.DetailOf(err, "sqlstate")
		require.True(t, ok)
		assert.Equal(t, "42P01", code)
	})

	t.Run("iteration error", func(t *testing.T) {
		a := arena.New()
		defer a.Release()
		q := &fakeQuerier{rows: &fakeRows{
			fields: []pgconn.FieldDescription{field("a", pgtype.Int4OID)},
			err:    errors.New("connection reset"),
		}}
		_, err := Load(context.Background(), q, a, "q", opts)
		assert.Error(t, err)
	})

	t.Run("released arena", func(t *testing.T) {
		a := arena.New()
		a.Release()
		q := &fakeQuerier{rows: &fakeRows{
			fields: []pgconn.FieldDescription{field("a", pgtype.Int4OID)},
			values: [][]any{{int32(1)}},
		}}
		_, err := Load(context.Background(), q, a, "q", opts)
		assert.ErrorIs(t, err, arena.ErrReleased)
	})
}

func TestLoadTraces(t *testing.T) {
	spans := testutil.RecordSpans(t)
	a := arena.New()
	defer a.Release()

	q := &fakeQuerier{rows: &fakeRows{
		fields: []pgconn.FieldDescription{field("a", pgtype.Int4OID)},
		values: [][]any{{int32(1)}},
	}}
	_, err := Load(testutil.Context(t), q, a, "SELECT a FROM t", Options[S]{Collector: metrics.NewCollector(nil)})
	require.NoError(t, err)

	got := spans.GetSpans()
	require.Len(t, got, 1)
	assert.Equal(t, "postgres.load", got[0].Name)
	var rows int64
	for _, kv := range got[0].Attributes {
		if kv.Key == "rows" {
			rows = kv.Value.AsInt64()
		}
	}
	assert.Equal(t, int64(1), rows)
}
