// Package config loads server configuration from an optional YAML file
// with environment-variable overrides. A missing file is not an error:
// every field has a usable default, so the server runs out of the box
// with a local cache and no remote store.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up under the data dir when
// no explicit path is given.
const DefaultFileName = "tendril.yaml"

// Remote configures the authoritative thread store. An empty URL
// disables it; the engine then serves from session records and the
// local cache.
type Remote struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Embedding configures the embedding provider used for semantic dedup.
// An empty URL disables it; dedup falls back to text normalization.
type Embedding struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

// Config is the full server configuration.
type Config struct {
	DataDir   string    `yaml:"data_dir"`
	Remote    Remote    `yaml:"remote"`
	Embedding Embedding `yaml:"embedding"`

	// HalfLifeDays maps thread class to its vitality decay half-life.
	// Classes absent here use the built-in defaults.
	HalfLifeDays map[string]float64 `yaml:"half_life_days"`

	// SessionFetchDepth is how many recent closed sessions the
	// reconciler aggregates when falling back to session records.
	SessionFetchDepth int `yaml:"session_fetch_depth"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir: filepath.Join(home, ".tendril"),
	}
}

// Load reads the config file at path, applies env overrides, and
// returns the result. An empty path means <default data dir>/tendril.yaml.
// A missing file yields the defaults (plus env overrides).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = filepath.Join(cfg.DataDir, DefaultFileName)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	case err != nil:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if cfg.DataDir == "" {
		cfg.DataDir = Default().DataDir
	}
	return cfg, nil
}

// applyEnv overlays TENDRIL_* environment variables on top of the file
// values. Env wins over file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TENDRIL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TENDRIL_REMOTE_URL"); v != "" {
		cfg.Remote.URL = v
	}
	if v := os.Getenv("TENDRIL_REMOTE_TOKEN"); v != "" {
		cfg.Remote.Token = v
	}
	if v := os.Getenv("TENDRIL_EMBEDDING_URL"); v != "" {
		cfg.Embedding.URL = v
	}
	if v := os.Getenv("TENDRIL_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("TENDRIL_SESSION_FETCH_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionFetchDepth = n
		}
	}
}
