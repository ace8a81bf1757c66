// Package export renders result tables to CSV and stores each one next to a
// YAML metadata sidecar through the blob layer.
package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"assaycore/internal/blob"
	"assaycore/internal/tabular"
)

// Version is stamped into every sidecar.
var Version = "0.1.0"

const (
	csvExt      = ".csv"
	metaExt     = ".meta.yaml"
	contentCSV  = "text/csv"
	contentYAML = "application/yaml"
)

// Meta is the sidecar written as <name>.meta.yaml.
type Meta struct {
	GeneratedAt string   `yaml:"generated_at"`
	Version     string   `yaml:"version"`
	RunID       string   `yaml:"run_id"`
	Inputs      []string `yaml:"inputs"`
	Rows        int      `yaml:"rows"`
	Cols        int      `yaml:"cols"`
	SHA256      string   `yaml:"sha256"`
}

// Artifact records one written table.
type Artifact struct {
	Name    string `yaml:"name"`
	Key     string `yaml:"key"`
	MetaKey string `yaml:"meta_key"`
	Rows    int    `yaml:"rows"`
	Cols    int    `yaml:"cols"`
	SHA256  string `yaml:"sha256"`
	Size    int64  `yaml:"size_bytes"`
}

// Options configures an Exporter.
type Options struct {
	Prefix    string
	Separator rune
	Overwrite bool
	RunID     string
	Version   string
	Logger    *zap.Logger
	Now       func() time.Time
}

// Exporter writes tables for a single run.
type Exporter struct {
	store blob.Store
	opts  Options
}

// New returns an Exporter over store. A missing run id is generated.
func New(store blob.Store, opts Options) *Exporter {
	if opts.Separator == 0 {
		opts.Separator = ','
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Version == "" {
		opts.Version = Version
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Exporter{store: store, opts: opts}
}

// RunID returns the identifier stamped into sidecars.
func (e *Exporter) RunID() string { return e.opts.RunID }

// Key returns the blob key of name with ext.
func (e *Exporter) Key(name, ext string) string {
	if e.opts.Prefix == "" {
		return name + ext
	}
	return path.Join(e.opts.Prefix, name+ext)
}

// Write renders frame as <name>.csv and stores its sidecar.
func (e *Exporter) Write(ctx context.Context, name string, frame *tabular.Frame, inputs []string) (Artifact, error) {
	payload, err := frame.Bytes(e.opts.Separator)
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", name, err)
	}
	sum := sha256.Sum256(payload)
	checksum := hex.EncodeToString(sum[:])

	key := e.Key(name, csvExt)
	info, err := e.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentCSV,
		Metadata:    map[string]string{"run_id": e.opts.RunID, "sha256": checksum},
		Overwrite:   e.opts.Overwrite,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("store %s: %w", key, err)
	}

	meta := Meta{
		GeneratedAt: e.opts.Now().UTC().Format(time.RFC3339),
		Version:     e.opts.Version,
		RunID:       e.opts.RunID,
		Inputs:      append([]string{}, inputs...),
		Rows:        frame.Len(),
		Cols:        len(frame.Header),
		SHA256:      checksum,
	}
	metaPayload, err := yaml.Marshal(meta)
	if err != nil {
		return Artifact{}, fmt.Errorf("marshal %s meta: %w", name, err)
	}
	metaKey := e.Key(name, metaExt)
	if _, err := e.store.Put(ctx, metaKey, bytes.NewReader(metaPayload), blob.PutOptions{
		ContentType: contentYAML,
		Overwrite:   e.opts.Overwrite,
	}); err != nil {
		return Artifact{}, fmt.Errorf("store %s: %w", metaKey, err)
	}

	e.opts.Logger.Debug("artifact written",
		zap.String("name", name),
		zap.String("key", key),
		zap.Int("rows", meta.Rows),
		zap.String("sha256", checksum),
	)
	return Artifact{
		Name:    name,
		Key:     key,
		MetaKey: metaKey,
		Rows:    meta.Rows,
		Cols:    meta.Cols,
		SHA256:  checksum,
		Size:    info.Size,
	}, nil
}

// ReadMeta loads and decodes the sidecar of name.
func (e *Exporter) ReadMeta(ctx context.Context, name string) (Meta, error) {
	_, rc, err := e.store.Get(ctx, e.Key(name, metaExt))
	if err != nil {
		return Meta{}, err
	}
	defer func() { _ = rc.Close() }()
	var meta Meta
	if err := yaml.NewDecoder(rc).Decode(&meta); err != nil {
		return Meta{}, fmt.Errorf("decode %s meta: %w", name, err)
	}
	return meta, nil
}
