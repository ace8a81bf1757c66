// Package config loads run configuration from defaults, a YAML file, the
// environment and command-line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"assaycore/internal/blob"
	"assaycore/internal/classify"
	"assaycore/internal/persistence"
	"assaycore/internal/tabular"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "CLASSIFY_"

// Config is the full run configuration.
type Config struct {
	IO          IOConfig           `yaml:"io"`
	Status      StatusConfig       `yaml:"status"`
	Runtime     RuntimeConfig      `yaml:"runtime"`
	Log         LogConfig          `yaml:"log"`
	Blob        BlobConfig         `yaml:"blob"`
	Persistence persistence.Config `yaml:"persistence"`
	Metrics     MetricsConfig      `yaml:"metrics"`
}

// IOConfig locates inputs and outputs.
type IOConfig struct {
	InputDir          string `yaml:"input_dir"`
	OutputDir         string `yaml:"output_dir"`
	Separator         string `yaml:"separator"`
	WriteIntermediate bool   `yaml:"write_intermediate"`
}

// StatusConfig holds classification policy.
type StatusConfig struct {
	EmptyMinFallback classify.Fallback `yaml:"empty_min_fallback"`
}

// RuntimeConfig holds validation and execution switches.
type RuntimeConfig struct {
	FailOnMissingColumns bool     `yaml:"fail_on_missing_columns"`
	FloatNAFill          *float64 `yaml:"float_na_fill"`
	Parallel             bool     `yaml:"parallel"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// BlobConfig selects the artifact store.
type BlobConfig struct {
	Driver    blob.Driver   `yaml:"driver"`
	Prefix    string        `yaml:"prefix"`
	Overwrite bool          `yaml:"overwrite"`
	S3        blob.S3Config `yaml:"s3"`
}

// MetricsConfig controls the textfile dump.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		IO: IOConfig{
			InputDir:          "input/same_document",
			OutputDir:         "output",
			Separator:         ",",
			WriteIntermediate: true,
		},
		Status: StatusConfig{EmptyMinFallback: classify.FallbackGlobalMin},
		Runtime: RuntimeConfig{
			FailOnMissingColumns: true,
			Parallel:             true,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Blob: BlobConfig{
			Driver:    blob.DriverFilesystem,
			Overwrite: true,
			S3:        blob.S3Config{Region: "us-east-1"},
		},
	}
}

// Load applies the YAML file at path (a missing file is not an error) and
// then the environment on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.Environ()); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envShortcuts = map[string][]string{
	"input_dir":  {"io", "input_dir"},
	"output_dir": {"io", "output_dir"},
}

// applyEnv overlays CLASSIFY__SECTION__KEY=value entries. Values are left
// untagged so they resolve as YAML scalars: "false", "1.5" and "null" keep
// their types.
func (c *Config) applyEnv(environ []string) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	sort.Strings(environ)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(key, EnvPrefix), "_"))
		parts := strings.Split(name, "__")
		if len(parts) == 1 {
			shortcut, ok := envShortcuts[parts[0]]
			if !ok {
				continue
			}
			parts = shortcut
		}
		if err := setPath(root, parts, value); err != nil {
			return fmt.Errorf("apply %s: %w", key, err)
		}
	}
	if len(root.Content) == 0 {
		return nil
	}
	if err := root.Decode(c); err != nil {
		return fmt.Errorf("apply env overrides: %w", err)
	}
	return nil
}

func setPath(node *yaml.Node, parts []string, value string) error {
	for i, part := range parts {
		last := i == len(parts)-1
		child := lookup(node, part)
		switch {
		case child == nil && last:
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: part},
				&yaml.Node{Kind: yaml.ScalarNode, Value: value})
			return nil
		case child == nil:
			child = &yaml.Node{Kind: yaml.MappingNode}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: part}, child)
		case last:
			if child.Kind != yaml.ScalarNode {
				return fmt.Errorf("%s is a section", part)
			}
			child.Value = value
			return nil
		case child.Kind != yaml.MappingNode:
			return fmt.Errorf("%s is not a section", part)
		}
		node = child
	}
	return nil
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// Overrides carries explicit command-line values; nil fields are unset.
type Overrides struct {
	InputDir  *string
	OutputDir *string
	Separator *string
	Strict    *bool
	LogLevel  *string
}

// Apply copies the set fields of o into c.
func (c *Config) Apply(o Overrides) {
	if o.InputDir != nil {
		c.IO.InputDir = *o.InputDir
	}
	if o.OutputDir != nil {
		c.IO.OutputDir = *o.OutputDir
	}
	if o.Separator != nil {
		c.IO.Separator = *o.Separator
	}
	if o.Strict != nil {
		c.Runtime.FailOnMissingColumns = *o.Strict
	}
	if o.LogLevel != nil {
		c.Log.Level = *o.LogLevel
	}
}

var (
	logLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	logFormats = map[string]bool{"json": true, "console": true}
)

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.IO.InputDir == "" {
		return fmt.Errorf("io.input_dir required")
	}
	if c.IO.OutputDir == "" && c.Blob.Driver == blob.DriverFilesystem {
		return fmt.Errorf("io.output_dir required")
	}
	if _, err := tabular.ParseSeparator(c.IO.Separator); err != nil {
		return fmt.Errorf("io.separator: %w", err)
	}
	if !c.Status.EmptyMinFallback.Valid() {
		return fmt.Errorf("status.empty_min_fallback: unknown policy %q", c.Status.EmptyMinFallback)
	}
	if !logLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	if !logFormats[strings.ToLower(c.Log.Format)] {
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if !c.Blob.Driver.Valid() {
		return fmt.Errorf("blob.driver: unknown driver %q", c.Blob.Driver)
	}
	if c.Blob.Driver == blob.DriverS3 && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("blob.s3.bucket required for the s3 driver")
	}
	if !c.Persistence.Driver.Valid() {
		return fmt.Errorf("persistence.driver: unknown driver %q", c.Persistence.Driver)
	}
	return nil
}

// BlobStore returns the blob factory config; the fs root is io.output_dir.
func (c *Config) BlobStore() blob.Config {
	return blob.Config{
		Driver: c.Blob.Driver,
		Root:   c.IO.OutputDir,
		S3:     c.Blob.S3,
	}
}
