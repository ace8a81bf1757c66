// Package sqlite provides the embedded SQLite result sink.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"assaycore/internal/infra/persistence/sqlstore"
	"assaycore/internal/persistence/core"
)

var _ core.Sink = (*Sink)(nil)

const defaultPath = "assaycore.db"

// Sink writes runs to a single SQLite file.
type Sink struct {
	*sqlstore.Writer
	path string
}

// Open creates the parent directory, opens path and applies the schema.
func Open(ctx context.Context, path string) (*Sink, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers on the file.
	db.SetMaxOpenConns(1)
	w := sqlstore.New(db, sqlstore.SQLite)
	if err := w.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Sink{Writer: w, path: path}, nil
}

// Driver returns the sink backend.
func (s *Sink) Driver() core.Driver { return core.DriverSQLite }

// Path returns the configured database path.
func (s *Sink) Path() string { return s.path }
