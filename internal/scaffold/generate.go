package scaffold

import (
	"context"
	"math"
	"math/rand/v2"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/resultset/pkg/arena"
	"github.com/ajitpratap0/resultset/pkg/columnar"
	"github.com/ajitpratap0/resultset/pkg/identifier"
	"github.com/ajitpratap0/resultset/pkg/logger"
	"github.com/ajitpratap0/resultset/pkg/metrics"
	"github.com/ajitpratap0/resultset/pkg/observability"
	"github.com/ajitpratap0/resultset/pkg/rserrors"
	"github.com/ajitpratap0/resultset/pkg/scalar"
	"github.com/ajitpratap0/resultset/pkg/table"
)

// alphabet is small so that equality predicates like c = 'a' select a useful
// fraction of rows.
const alphabet = "abc"

// maxVarCharLen is the longest generated string.
const maxVarCharLen = 3

// Generator materializes catalog tables into an arena.
type Generator[S scalar.Scalar] struct {
	// Rand is the randomness source. Required.
	Rand *rand.Rand
	// Scalar maps a bounded integer to a scalar. Required only for
	// SCALAR columns.
	Scalar func(int64) S
	// Collector records each build; nil uses metrics.Default().
	Collector *metrics.Collector
}

// NewGenerator returns a field-element generator seeded with seed.
func NewGenerator(seed uint64) *Generator[scalar.FieldElement] {
	return &Generator[scalar.FieldElement]{
		Rand:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Scalar: scalar.FromInt64,
	}
}

// Generate builds a table with size rows for q. Bounded integer columns are
// uniform in [-bound, bound], clamped to the column type's range.
func (g *Generator[S]) Generate(ctx context.Context, a *arena.Arena, q Query, size int) (*table.Table[S], error) {
	collector := g.Collector
	if collector == nil {
		collector = metrics.Default()
	}

	ctx = context.WithValue(ctx, logger.QueryKey, q.Title)
	ctx, span := observability.StartSpan(ctx, "scaffold.generate",
		attribute.String("query", q.Title),
		attribute.Int("size", size))
	defer span.End()

	tbl, err := g.generate(a, q, size)
	observability.EndWithError(span, err)
	if err != nil {
		collector.RecordBuild(0, err)
		logger.WithContext(ctx).Warn("scaffold generation failed", zap.Error(err))
		return nil, err
	}
	collector.RecordBuild(tbl.NumRows(), nil)
	logger.WithContext(ctx).Debug("generated scaffold table",
		zap.Int("rows", tbl.NumRows()),
		zap.Int("columns", tbl.NumColumns()))
	return tbl, nil
}

func (g *Generator[S]) generate(a *arena.Arena, q Query, size int) (*table.Table[S], error) {
	if size < 0 {
		return nil, rserrors.New(rserrors.ErrorTypeValidation, "negative table size").
			WithDetail("size", size)
	}
	if g.Rand == nil {
		return nil, rserrors.New(rserrors.ErrorTypeConfig, "generator has no randomness source")
	}

	m := table.NewMapping[S]()
	for _, cs := range q.Columns {
		name, err := identifier.Parse(cs.Name)
		if err != nil {
			return nil, err
		}
		col, err := g.column(a, cs, size)
		if err != nil {
			return nil, rserrors.Wrap(err, rserrors.ErrorTypeData, "cannot generate column").
				WithDetail("column", cs.Name)
		}
		m.Set(name, col)
	}
	return table.New(m)
}

func (g *Generator[S]) column(a *arena.Arena, cs ColumnSpec, size int) (columnar.Column[S], error) {
	bound := func(limit int64) int64 {
		if cs.Bound == nil {
			return limit
		}
		return min(cs.Bound(size), limit)
	}

	switch cs.Type {
	case columnar.ColumnTypeBoolean:
		vals, err := arena.Alloc[bool](a, size)
		if err != nil {
			return nil, err
		}
		for i := range vals {
			vals[i] = g.Rand.IntN(2) == 1
		}
		return columnar.BooleanColumn[S](vals), nil

	case columnar.ColumnTypeTinyInt:
		vals, err := arena.Alloc[int8](a, size)
		if err != nil {
			return nil, err
		}
		b := bound(math.MaxInt8)
		for i := range vals {
			vals[i] = int8(g.uniform(b))
		}
		return columnar.TinyIntColumn[S](vals), nil

	case columnar.ColumnTypeInt:
		vals, err := arena.Alloc[int32](a, size)
		if err != nil {
			return nil, err
		}
		b := bound(math.MaxInt32)
		for i := range vals {
			vals[i] = int32(g.uniform(b))
		}
		return columnar.IntColumn[S](vals), nil

	case columnar.ColumnTypeBigInt:
		vals, err := arena.Alloc[int64](a, size)
		if err != nil {
			return nil, err
		}
		b := bound(math.MaxInt64)
		for i := range vals {
			vals[i] = g.uniform(b)
		}
		return columnar.BigIntColumn[S](vals), nil

	case columnar.ColumnTypeInt128:
		vals, err := arena.Alloc[columnar.Int128](a, size)
		if err != nil {
			return nil, err
		}
		for i := range vals {
			if cs.Bound == nil {
				vals[i] = columnar.Int128{Hi: int64(g.Rand.Uint64()), Lo: g.Rand.Uint64()}
			} else {
				vals[i] = columnar.Int128From64(g.uniform(bound(math.MaxInt64)))
			}
		}
		return columnar.Int128Column[S](vals), nil

	case columnar.ColumnTypeVarChar:
		vals, err := arena.Alloc[string](a, size)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, maxVarCharLen)
		for i := range vals {
			n := g.Rand.IntN(maxVarCharLen + 1)
			for j := 0; j < n; j++ {
				buf[j] = alphabet[g.Rand.IntN(len(alphabet))]
			}
			vals[i] = string(buf[:n])
		}
		return columnar.VarCharColumn[S](vals), nil

	case columnar.ColumnTypeScalar:
		if g.Scalar == nil {
			return nil, rserrors.New(rserrors.ErrorTypeConfig, "generator has no scalar constructor")
		}
		vals, err := arena.Alloc[S](a, size)
		if err != nil {
			return nil, err
		}
		b := bound(math.MaxInt64)
		for i := range vals {
			vals[i] = g.Scalar(g.uniform(b))
		}
		return columnar.ScalarColumn[S](vals), nil
	}

	return nil, rserrors.New(rserrors.ErrorTypeCapability, "cannot generate column type").
		WithDetail("type", cs.Type.String())
}

// uniform returns a value in [-b, b].
func (g *Generator[S]) uniform(b int64) int64 {
	if b <= 0 {
		return 0
	}
	if b <= math.MaxInt64/2 {
		return g.Rand.Int64N(2*b+1) - b
	}
	// 2*b+1 would overflow; rejection accepts at least half of all draws.
	for {
		if v := int64(g.Rand.Uint64()); v >= -b && v <= b {
			return v
		}
	}
}
