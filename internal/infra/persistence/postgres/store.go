// Package postgres provides the Postgres result sink.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"assaycore/internal/infra/persistence/sqlstore"
	"assaycore/internal/persistence/core"
)

// Compile-time contract assertion ensuring the sink satisfies the core interface.
var _ core.Sink = (*Sink)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/assaycore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Sink writes runs to Postgres.
type Sink struct {
	*sqlstore.Writer
}

// Open connects with dsn (falls back to defaultDSN), pings and applies the schema.
func Open(ctx context.Context, dsn string) (*Sink, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	w := sqlstore.New(db, sqlstore.Postgres)
	if err := w.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Sink{Writer: w}, nil
}

// Driver returns the sink backend.
func (s *Sink) Driver() core.Driver { return core.DriverPostgres }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
