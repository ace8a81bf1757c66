// Package sqlstore holds the database/sql writer shared by the SQLite and
// Postgres sinks.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"assaycore/internal/persistence/core"
)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	TimeType    string
	FloatType   string
}

// Postgres uses $n placeholders.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	TimeType:    "TIMESTAMPTZ",
	FloatType:   "DOUBLE PRECISION",
}

// SQLite uses ? placeholders.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	TimeType:    "TIMESTAMP",
	FloatType:   "REAL",
}

// Writer persists runs through database/sql.
type Writer struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps db.
func New(db *sql.DB, dialect Dialect) *Writer {
	return &Writer{db: db, dialect: dialect}
}

// DB exposes the underlying sql.DB.
func (w *Writer) DB() *sql.DB { return w.db }

func (w *Writer) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = w.dialect.Placeholder(i + 1)
	}
	return strings.Join(parts, ",")
}

// DDL returns the schema statements in execution order.
func (w *Writer) DDL() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS classification_runs (
			run_id TEXT PRIMARY KEY,
			version TEXT NOT NULL,
			started_at %[1]s NOT NULL,
			finished_at %[1]s NOT NULL,
			input_dir TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			fallback TEXT NOT NULL,
			row_counts TEXT NOT NULL,
			artifacts TEXT NOT NULL
		)`, w.dialect.TimeType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS status_summaries (
			run_id TEXT NOT NULL,
			level TEXT NOT NULL,
			entity_key TEXT NOT NULL,
			status TEXT NOT NULL,
			independent_ic50 %[1]s NOT NULL,
			non_independent_ic50 %[1]s NOT NULL,
			independent_ki %[1]s NOT NULL,
			non_independent_ki %[1]s NOT NULL,
			PRIMARY KEY (run_id, level, entity_key)
		)`, w.dialect.FloatType),
	}
}

// Migrate applies DDL.
func (w *Writer) Migrate(ctx context.Context) error {
	for _, stmt := range w.DDL() {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// WriteRun upserts the run row and replaces its summaries in one transaction.
func (w *Writer) WriteRun(ctx context.Context, run core.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id required")
	}
	counts, err := json.Marshal(run.RowCounts)
	if err != nil {
		return fmt.Errorf("encode row counts: %w", err)
	}
	artifacts, err := json.Marshal(run.Artifacts)
	if err != nil {
		return fmt.Errorf("encode artifacts: %w", err)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	upsert := fmt.Sprintf(`INSERT INTO classification_runs(run_id, version, started_at, finished_at, input_dir, output_dir, fallback, row_counts, artifacts) VALUES(%s) ON CONFLICT(run_id) DO UPDATE SET version=EXCLUDED.version, started_at=EXCLUDED.started_at, finished_at=EXCLUDED.finished_at, input_dir=EXCLUDED.input_dir, output_dir=EXCLUDED.output_dir, fallback=EXCLUDED.fallback, row_counts=EXCLUDED.row_counts, artifacts=EXCLUDED.artifacts`,
		w.placeholders(9))
	if _, err := tx.ExecContext(ctx, upsert,
		run.ID, run.Version, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.InputDir, run.OutputDir, run.Fallback, string(counts), string(artifacts),
	); err != nil {
		return fmt.Errorf("upsert run %s: %w", run.ID, err)
	}

	del := fmt.Sprintf(`DELETE FROM status_summaries WHERE run_id = %s`, w.dialect.Placeholder(1))
	if _, err := tx.ExecContext(ctx, del, run.ID); err != nil {
		return fmt.Errorf("clear summaries %s: %w", run.ID, err)
	}

	insert := fmt.Sprintf(`INSERT INTO status_summaries(run_id, level, entity_key, status, independent_ic50, non_independent_ic50, independent_ki, non_independent_ki) VALUES(%s)`,
		w.placeholders(8))
	for _, s := range run.Summaries {
		if _, err := tx.ExecContext(ctx, insert,
			run.ID, s.Level, s.Key, s.Status,
			s.IndependentIC50, s.NonIndependentIC50, s.IndependentKi, s.NonIndependentKi,
		); err != nil {
			return fmt.Errorf("insert summary %s/%s: %w", s.Level, s.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Summaries reads back the rows of runID.
func (w *Writer) Summaries(ctx context.Context, runID string) ([]core.Summary, error) {
	query := fmt.Sprintf(`SELECT level, entity_key, status, independent_ic50, non_independent_ic50, independent_ki, non_independent_ki FROM status_summaries WHERE run_id = %s ORDER BY level, entity_key`,
		w.dialect.Placeholder(1))
	rows, err := w.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("select summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Summary
	for rows.Next() {
		var s core.Summary
		if err := rows.Scan(&s.Level, &s.Key, &s.Status, &s.IndependentIC50, &s.NonIndependentIC50, &s.IndependentKi, &s.NonIndependentKi); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (w *Writer) Close() error { return w.db.Close() }
