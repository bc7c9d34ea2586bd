// Package config loads the runview configuration file.
//
// The file is YAML. Before it is decoded it is checked against the CUE
// definition #Config embedded from schema.cue, so unknown keys, malformed
// durations, bad colours and unknown filter operators are rejected with the
// offending path. Anything the file leaves out keeps its default.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/runview/internal/producer"
	"github.com/roach88/runview/internal/query"
	"github.com/roach88/runview/internal/scheduler"
	"github.com/roach88/runview/internal/slots"
)

//go:embed schema.cue
var schemaCUE string

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// DefaultPayload is the payload file read when none is configured.
const DefaultPayload = "exp-show.json"

// File mirrors the YAML document.
type File struct {
	Payload  string                   `yaml:"payload"`
	Database string                   `yaml:"database"`
	Debounce string                   `yaml:"debounce"`
	Palette  []string                 `yaml:"palette"`
	Retry    RetryFile                `yaml:"retry"`
	Sort     []query.SortDefinition   `yaml:"sort"`
	Filters  []query.FilterDefinition `yaml:"filters"`
}

// RetryFile is the retry section of File.
type RetryFile struct {
	MaxAttempts     int    `yaml:"max_attempts"`
	InitialInterval string `yaml:"initial_interval"`
}

// Config is the resolved configuration.
type Config struct {
	Payload string
	// Database is the journal path. Empty disables journaling.
	Database string
	Debounce time.Duration
	Palette  slots.Palette
	Retry    producer.RetryPolicy
	Sort     []query.SortDefinition
	Filters  []query.FilterDefinition
}

// Default returns the configuration used without a file.
func Default() Config {
	return Config{
		Payload:  DefaultPayload,
		Debounce: scheduler.DefaultDebounce,
		Palette:  slots.DefaultPalette.Clone(),
		Retry:    producer.DefaultRetryPolicy(),
	}
}

// Load reads and validates the file at path. An empty path returns Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates a YAML document and resolves it over the defaults.
func Parse(data []byte) (Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if raw == nil {
		return Default(), nil
	}
	if err := validate(raw); err != nil {
		return Config{}, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return f.resolve()
}

// validate unifies the raw document with #Config.
func validate(raw any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (f File) resolve() (Config, error) {
	cfg := Default()

	if f.Payload != "" {
		cfg.Payload = f.Payload
	}
	if f.Database != "" {
		cfg.Database = f.Database
	}
	if f.Debounce != "" {
		d, err := time.ParseDuration(f.Debounce)
		if err != nil {
			return Config{}, fmt.Errorf("%w: debounce: %v", ErrInvalid, err)
		}
		cfg.Debounce = d
	}
	if len(f.Palette) > 0 {
		cfg.Palette = slots.ParsePalette(f.Palette)
	}
	if f.Retry.MaxAttempts > 0 {
		cfg.Retry.MaxAttempts = f.Retry.MaxAttempts
	}
	if f.Retry.InitialInterval != "" {
		d, err := time.ParseDuration(f.Retry.InitialInterval)
		if err != nil {
			return Config{}, fmt.Errorf("%w: retry.initial_interval: %v", ErrInvalid, err)
		}
		cfg.Retry.InitialInterval = d
	}
	cfg.Sort = f.Sort
	for _, def := range f.Filters {
		if err := def.Validate(); err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		cfg.Filters = append(cfg.Filters, def)
	}
	return cfg, nil
}
