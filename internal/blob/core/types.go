// Package core defines the artifact store abstraction shared by the blob
// backends.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem writes artifacts as plain files under a root directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3"
	// DriverMemory keeps artifacts in process memory (tests, dry runs).
	DriverMemory Driver = "memory"
)

// Valid reports whether d names a known backend.
func (d Driver) Valid() bool {
	return d == DriverFilesystem || d == DriverS3 || d == DriverMemory
}

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // User metadata (small, flat key-value)
	// Overwrite replaces an existing object instead of failing with ErrExists.
	Overwrite bool
}

// Info describes a stored artifact.
type Info struct {
	Key          string            `json:"key" yaml:"key"`
	Size         int64             `json:"size_bytes" yaml:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty" yaml:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified" yaml:"last_modified"`
}

// Store is the minimal S3-like surface the exporter writes through.
type Store interface {
	// Put stores r at key. Without Overwrite it fails with ErrExists when the key is taken.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns the contents and metadata; a missing key matches ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only.
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes a key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns objects under prefix sorted by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

var (
	// ErrExists is matched when a create-only Put hits an existing key.
	ErrExists = errors.New("blob already exists")
	// ErrNotFound is matched when a key does not exist.
	ErrNotFound = errors.New("blob not found")
)

// KeyError carries the key of a failed operation.
type KeyError struct {
	Key string
	Err error
}

func (e KeyError) Error() string { return fmt.Sprintf("blob %s: %v", e.Key, e.Err) }

func (e KeyError) Unwrap() error { return e.Err }

// Exists returns a KeyError matching ErrExists.
func Exists(key string) error { return KeyError{Key: key, Err: ErrExists} }

// NotFound returns a KeyError matching ErrNotFound.
func NotFound(key string) error { return KeyError{Key: key, Err: ErrNotFound} }
