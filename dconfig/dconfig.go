// Package dconfig loads dhstore's optional TOML configuration file,
// the same format and library (github.com/BurntSushi/toml) the
// teacher uses for its own config layer.
package dconfig

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/dhstore/dhstore/dherr"
)

// Config holds the handful of knobs a store invocation can be tuned
// with; every field has a usable zero-config default applied by
// Default.
type Config struct {
	// StorePath is read from the config file, but the CLI does not use
	// it: every subcommand takes the store root as a required argument.
	StorePath string `toml:"store_path"`

	// LogLevel is one of "warn", "info", "debug", "trace".
	LogLevel string `toml:"log_level"`

	// ChunkerNBits controls the average chunk size used by add_file
	// (≈ 2^ChunkerNBits bytes); spec.md §4.5 fixes this at 13.
	ChunkerNBits uint `toml:"chunker_nbits"`
}

// Default returns the configuration dhstore uses when no config file
// is present or a field is left unset.
func Default() Config {
	return Config{
		StorePath:    "",
		LogLevel:     "warn",
		ChunkerNBits: 13,
	}
}

// Load reads and parses the TOML file at path, overlaying it onto
// Default(). A missing file is not an error: Load returns the default
// configuration unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, dherr.InvalidInput("parsing config file %s: %v", path, err)
	}
	return cfg, nil
}
