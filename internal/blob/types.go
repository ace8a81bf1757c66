// Package blob is the artifact storage facade. It re-exports the core
// abstractions and opens the configured backend.
package blob

import (
	"assaycore/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrExists is matched by create-only writes to a taken key.
	ErrExists = core.ErrExists
	// ErrNotFound is matched by reads of a missing key.
	ErrNotFound = core.ErrNotFound
)
