// Package core defines the relational result sink shared by the persistence
// backends.
package core

import (
	"context"
	"time"
)

// Driver identifies a sink backend.
type Driver string

const (
	// DriverNone disables persistence.
	DriverNone Driver = ""
	// DriverSQLite writes to a local SQLite file.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres writes to a Postgres database.
	DriverPostgres Driver = "postgres"
)

// Valid reports whether d names a known backend.
func (d Driver) Valid() bool {
	return d == DriverNone || d == DriverSQLite || d == DriverPostgres
}

// Run is one classification run with its summary rows.
type Run struct {
	ID         string
	Version    string
	StartedAt  time.Time
	FinishedAt time.Time
	InputDir   string
	OutputDir  string
	Fallback   string
	// RowCounts maps table names to row counts.
	RowCounts map[string]int
	// Artifacts lists the blob keys written by the run.
	Artifacts []string
	Summaries []Summary
}

// Summary is one aggregated row of a level.
type Summary struct {
	Level              string
	Key                string
	Status             string
	IndependentIC50    float64
	NonIndependentIC50 float64
	IndependentKi      float64
	NonIndependentKi   float64
}

// Sink stores run records. WriteRun replaces an earlier run with the same id.
type Sink interface {
	WriteRun(ctx context.Context, run Run) error
	// Summaries returns the stored rows of a run ordered by level and key.
	Summaries(ctx context.Context, runID string) ([]Summary, error)
	Driver() Driver
	Close() error
}
