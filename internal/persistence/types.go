// Package persistence is the facade over the relational result sinks.
package persistence

import "assaycore/internal/persistence/core"

type (
	// Sink stores run records.
	Sink = core.Sink
	// Run is one classification run.
	Run = core.Run
	// Summary is one aggregated row.
	Summary = core.Summary
	// Driver identifies a backend.
	Driver = core.Driver
)

const (
	DriverNone     = core.DriverNone
	DriverSQLite   = core.DriverSQLite
	DriverPostgres = core.DriverPostgres
)
