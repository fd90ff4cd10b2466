// Package resultset holds query result tables: ordered collections of named,
// equal-length, typed columns, together with the tooling that builds, encodes
// and inspects them.
//
// A table is the in-memory shape of a SQL query result. Every column has the
// same number of rows, column names are unique identifiers, and column order
// is the order in which the columns were supplied. Columns borrow their
// values from an arena, so a table never outlives the arena it was built in.
//
// # Quick Start
//
// Build a table from two columns:
//
//	import (
//	    "github.com/ajitpratap0/resultset/pkg/columnar"
//	    "github.com/ajitpratap0/resultset/pkg/identifier"
//	    "github.com/ajitpratap0/resultset/pkg/scalar"
//	    "github.com/ajitpratap0/resultset/pkg/table"
//	)
//
//	type S = scalar.FieldElement
//
//	tbl, err := table.FromPairs(
//	    table.Pair[S]{Name: identifier.MustParse("a"), Column: columnar.BigIntColumn[S]{1, 2, 3}},
//	    table.Pair[S]{Name: identifier.MustParse("b"), Column: columnar.VarCharColumn[S]{"x", "y", "z"}},
//	)
//	if err != nil {
//	    return err // mismatched lengths or a duplicate name
//	}
//	fmt.Println(tbl.NumRows()) // 3
//
// # Key Packages
//
//	pkg/table              - The Table type, its constructors and read-only views
//	pkg/columnar           - Column variants, SQL type tags and row builders
//	pkg/identifier         - Validated SQL identifiers used as column names
//	pkg/scalar             - Field elements stored in SCALAR columns
//	pkg/arena              - Region allocator that owns column storage
//	pkg/formats/columnar   - Arrow IPC, Parquet and Avro encoders
//	pkg/json               - JSON rendering of tables
//	pkg/compression        - Stream compression for encoded output
//	pkg/source/postgres    - Loads query results from PostgreSQL
//	pkg/config             - YAML configuration with defaults and validation
//	pkg/rserrors           - Structured, typed errors
//	pkg/logger             - Structured logging
//	pkg/metrics            - Prometheus metrics
//	pkg/observability      - OpenTelemetry tracing
//
// # Command Line
//
// The resultset command generates synthetic tables for a catalog of benchmark
// queries, loads tables from PostgreSQL and inspects encoded files:
//
//	resultset catalog --size 1000
//	resultset generate --query "Group By" --size 1000 --format parquet --compress zstd --out t.parquet.zst
//	resultset inspect --in t.parquet.zst
//	resultset query --dsn postgres://localhost/db --sql "SELECT a, b FROM t"
//
// Settings come from a YAML file, RESULTSET_* environment variables and
// flags, in increasing order of precedence.
package resultset
