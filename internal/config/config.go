// Package config loads project-level settings from .fspec/config.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the project configuration. Missing file or fields fall back to
// defaults; the tool works out of the box in a fresh repository.
type Config struct {
	// Prefix is the work-unit id prefix (e.g. "AUTH" -> AUTH-1).
	Prefix string `toml:"prefix"`
	// FeaturesDir holds the Gherkin specification files.
	FeaturesDir string `toml:"features_dir"`
	// SpecFile is the persisted work-unit document.
	SpecFile string `toml:"spec_file"`
	// CoverageSuffix is appended to a feature path to find its sidecar.
	CoverageSuffix string `toml:"coverage_suffix"`
}

// Defaults for a project that has no config file.
const (
	DefaultPrefix         = "WORK"
	DefaultFeaturesDir    = "features"
	DefaultSpecFile       = ".fspec/work-units.json"
	DefaultCoverageSuffix = ".coverage.json"
)

// Path is the config location relative to the project root.
const Path = ".fspec/config.toml"

// Load reads the config from root, applying defaults for anything absent.
func Load(root string) (*Config, error) {
	cfg := &Config{}
	path := filepath.Join(root, Path)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.FeaturesDir == "" {
		c.FeaturesDir = DefaultFeaturesDir
	}
	if c.SpecFile == "" {
		c.SpecFile = DefaultSpecFile
	}
	if c.CoverageSuffix == "" {
		c.CoverageSuffix = DefaultCoverageSuffix
	}
}
