//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema is the DDL the stores run against. The partial unique index keeps at
// most one open domicile record per user at the database level.
const schema = `
CREATE TABLE IF NOT EXISTS allowance_entries (
	id             UUID PRIMARY KEY,
	user_id        UUID NOT NULL,
	allowance_type TEXT NOT NULL,
	tax_year       TEXT NOT NULL,
	amount         NUMERIC(18,2) NOT NULL,
	entry_date     TIMESTAMPTZ NOT NULL,
	note           TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_allowance_entries_key
	ON allowance_entries (user_id, allowance_type, tax_year);

CREATE TABLE IF NOT EXISTS gifts (
	id                UUID PRIMARY KEY,
	user_id           UUID NOT NULL,
	recipient         TEXT NOT NULL,
	gift_date         TIMESTAMPTZ NOT NULL,
	value             NUMERIC(18,2) NOT NULL,
	gift_type         TEXT NOT NULL,
	exemption_subtype TEXT,
	deleted_at        TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS domicile_status (
	user_id        UUID NOT NULL,
	kind           TEXT NOT NULL,
	deemed_start   TIMESTAMPTZ,
	effective_from TIMESTAMPTZ NOT NULL,
	effective_to   TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_domicile_status_open
	ON domicile_status (user_id) WHERE effective_to IS NULL;
`

// PostgresContainer wraps a testcontainers Postgres instance with a pgx pool
// pointed at a schema-loaded database.
type PostgresContainer struct {
	Container *tcpostgres.PostgresContainer
	Pool      *pgxpool.Pool
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("dualtax_test"),
		tcpostgres.WithUsername("dualtax"),
		tcpostgres.WithPassword("dualtax"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open pgx pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{Container: container, Pool: pool}
}

// TruncateTables empties the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.Pool.Exec(ctx, "TRUNCATE TABLE "+table); err != nil {
			return err
		}
	}
	return nil
}

// Terminate closes the pool and stops the container.
func (p *PostgresContainer) Terminate(ctx context.Context) {
	p.Pool.Close()
	_ = p.Container.Terminate(ctx)
}
