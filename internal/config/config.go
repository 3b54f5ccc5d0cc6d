// Package config implements the layered benchmark configuration model.
//
// A resolved Config is assembled from three precedence layers:
//
//	built-in defaults < project file (gobench.toml) < per-function override
//
// Resolution is pure and field-by-field: a layer only wins for the fields
// it actually sets. Once resolved for a case, a Config is never mutated.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
)

// DefaultFileName is the project configuration file read from the
// working directory.
const DefaultFileName = "gobench.toml"

// Config holds the fully resolved settings for a benchmark case.
type Config struct {
	// BenchPath is the directory scanned for benchmark modules.
	BenchPath string `toml:"benchpath" json:"benchpath"`

	// Repeat is the number of independent timing samples per case.
	Repeat uint `toml:"repeat" json:"repeat"`

	// Number is the number of back-to-back calls per timing sample.
	Number uint `toml:"number" json:"number"`

	// Warmups is the number of untimed invocations before sampling.
	Warmups uint `toml:"warmups" json:"warmups"`

	// GarbageCollection controls whether the collector stays enabled
	// while a sample is being timed.
	GarbageCollection bool `toml:"garbage_collection" json:"garbage_collection"`

	// PartitionBy lists the metadata keys used to partition persisted
	// results (consumed by the result sink, not by the engine).
	PartitionBy []string `toml:"partition_by" json:"partition_by"`
}

// Default returns the built-in configuration layer.
func Default() Config {
	return Config{
		BenchPath:         "benchmarks",
		Repeat:            30,
		Number:            1,
		Warmups:           0,
		GarbageCollection: false,
		PartitionBy:       []string{"commit"},
	}
}

// Override is a partial Config. Nil fields fall through to the layer below.
type Override struct {
	BenchPath         *string
	Repeat            *uint
	Number            *uint
	Warmups           *uint
	GarbageCollection *bool
	PartitionBy       []string
}

// IsZero reports whether the override sets no fields at all.
func (o Override) IsZero() bool {
	return o.BenchPath == nil && o.Repeat == nil && o.Number == nil &&
		o.Warmups == nil && o.GarbageCollection == nil && o.PartitionBy == nil
}

// ConfigError indicates an invalid resolved configuration. It is fatal for
// the whole run: no case may execute without a valid Config.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Resolve merges the three configuration layers, applying file overrides
// first and decorator overrides on top. It is a pure function.
//
// Returns a *ConfigError if a positivity-required field (repeat, number)
// resolves to zero.
func Resolve(defaults Config, file, decorator Override) (Config, error) {
	cfg := defaults

	for _, layer := range []Override{file, decorator} {
		if layer.BenchPath != nil {
			cfg.BenchPath = *layer.BenchPath
		}
		if layer.Repeat != nil {
			cfg.Repeat = *layer.Repeat
		}
		if layer.Number != nil {
			cfg.Number = *layer.Number
		}
		if layer.Warmups != nil {
			cfg.Warmups = *layer.Warmups
		}
		if layer.GarbageCollection != nil {
			cfg.GarbageCollection = *layer.GarbageCollection
		}
		if layer.PartitionBy != nil {
			cfg.PartitionBy = append([]string(nil), layer.PartitionBy...)
		}
	}

	if cfg.Repeat == 0 {
		return Config{}, &ConfigError{Field: "repeat", Reason: "must be >= 1"}
	}
	if cfg.Number == 0 {
		return Config{}, &ConfigError{Field: "number", Reason: "must be >= 1"}
	}

	return cfg, nil
}

// fileConfig mirrors the recognized keys of gobench.toml. Values are decoded
// into plain fields; toml.MetaData distinguishes set from unset keys so that
// unset fields fall through to the defaults.
type fileConfig struct {
	BenchPath         string   `toml:"benchpath"`
	Repeat            uint     `toml:"repeat"`
	Number            uint     `toml:"number"`
	Warmups           uint     `toml:"warmups"`
	GarbageCollection bool     `toml:"garbage_collection"`
	PartitionBy       []string `toml:"partition_by"`
}

// LoadFile reads the project configuration file and returns the file-level
// override layer. A missing file is not an error: it yields an empty
// override. Unknown keys are rejected so typos do not silently produce a
// default-configured run.
func LoadFile(path string) (Override, error) {
	var fc fileConfig

	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		if isNotExist(err) {
			return Override{}, nil
		}
		return Override{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Override{}, &ConfigError{
			Field:  undecoded[0].String(),
			Reason: "is not a recognized setting",
		}
	}

	var ov Override
	if md.IsDefined("benchpath") {
		ov.BenchPath = &fc.BenchPath
	}
	if md.IsDefined("repeat") {
		ov.Repeat = &fc.Repeat
	}
	if md.IsDefined("number") {
		ov.Number = &fc.Number
	}
	if md.IsDefined("warmups") {
		ov.Warmups = &fc.Warmups
	}
	if md.IsDefined("garbage_collection") {
		ov.GarbageCollection = &fc.GarbageCollection
	}
	if md.IsDefined("partition_by") {
		ov.PartitionBy = fc.PartitionBy
	}

	return ov, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

