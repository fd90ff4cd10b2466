package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// PostgresDSNEnv names the environment variable holding the connection
// string for Postgres integration tests.
const PostgresDSNEnv = "RESULTSET_TEST_POSTGRES_DSN"

// IntegrationTest skips t in short mode.
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// PostgresSuite provides a connection pool and a private schema to
// integration suites. It skips unless PostgresDSNEnv is set.
type PostgresSuite struct {
	suite.Suite
	Pool   *pgxpool.Pool
	Schema string

	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *PostgresSuite) SetupSuite() {
	IntegrationTest(s.T())
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		s.T().Skipf("%s not set", PostgresDSNEnv)
	}

	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()

	pool, err := pgxpool.New(s.ctx, dsn)
	require.NoError(s.T(), err)
	require.NoError(s.T(), pool.Ping(s.ctx))
	s.Pool = pool

	// A fresh schema per run keeps suites independent of each other.
	s.Schema = fmt.Sprintf("resultset_test_%d", time.Now().UnixNano())
	s.Exec("CREATE SCHEMA " + s.Schema)

	s.T().Logf("Postgres integration suite started in schema %s", s.Schema)
}

// TearDownSuite runs after all tests in the suite
func (s *PostgresSuite) TearDownSuite() {
	if s.Pool != nil {
		_, _ = s.Pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+s.Schema+" CASCADE")
		s.Pool.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.T().Logf("Postgres integration suite completed in %v", time.Since(s.startTime))
}

// Context returns the suite context
func (s *PostgresSuite) Context() context.Context {
	return s.ctx
}

// Exec runs sql and fails the test on error.
func (s *PostgresSuite) Exec(sql string, args ...any) {
	_, err := s.Pool.Exec(s.ctx, sql, args...)
	require.NoError(s.T(), err, sql)
}

// Table returns name qualified with the suite schema.
func (s *PostgresSuite) Table(name string) string {
	return s.Schema + "." + name
}
