// Package config loads dataprovider configuration.
//
// Configuration is a YAML file decoded strictly (unknown keys are errors)
// over Default, then validated against an embedded CUE schema.
//
//	authority: la.il.sample
//	database:
//	  path: dataprovider.db
//	  busy_timeout_ms: 5000
//	logging:
//	  level: info
//	  format: text
//	notify:
//	  buffer: 64
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dataprovider/internal/contract"
)

//go:embed schema.cue
var schemaCUE string

// Config is the full dataprovider configuration.
type Config struct {
	Authority string   `yaml:"authority" json:"authority"`
	Database  Database `yaml:"database" json:"database"`
	Logging   Logging  `yaml:"logging" json:"logging"`
	Notify    Notify   `yaml:"notify" json:"notify"`
}

// Database configures the SQLite store.
type Database struct {
	Path          string `yaml:"path" json:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms" json:"busy_timeout_ms"`
}

// Logging configures the slog handler.
type Logging struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Notify configures the observer bus.
type Notify struct {
	// Buffer is the channel capacity for CLI watchers.
	Buffer int `yaml:"buffer" json:"buffer"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Authority: contract.DefaultAuthority,
		Database: Database{
			Path:          "dataprovider.db",
			BusyTimeoutMS: 5000,
		},
		Logging: Logging{Level: "info", Format: "text"},
		Notify:  Notify{Buffer: 64},
	}
}

// Load reads and validates the config file at path. An empty path yields
// the validated defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidationError lists every schema violation found.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Validate checks c against the embedded CUE schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.Encode(c)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError flattens CUE errors into one line per violated field.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Problems: []string{err.Error()}}
	}

	ve := &ValidationError{}
	for _, e := range errs {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path := strings.Join(e.Path(), "."); path != "" {
			msg = path + ": " + msg
		}
		ve.Problems = append(ve.Problems, msg)
	}
	return ve
}

// BusyTimeout returns the database busy timeout.
func (c Config) BusyTimeout() time.Duration {
	return time.Duration(c.Database.BusyTimeoutMS) * time.Millisecond
}

// Logger builds a slog logger writing to w. verbose forces debug level.
func (c Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch c.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
