package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tool settings. Values come from an optional YAML file;
// command-line flags override whatever the file set.
type Config struct {
	// Verbose enables detailed progress output.
	Verbose bool `yaml:"verbose"`

	// SkipTests excludes functions defined in _test.go files.
	SkipTests bool `yaml:"skip_tests"`

	// SkipGenerated excludes functions defined in .pb.go files.
	SkipGenerated bool `yaml:"skip_generated"`

	// DotDir, when set, receives one CDG .dot file per function.
	DotDir string `yaml:"dot_dir"`

	// Print dumps the dependence maps to stdout after the run.
	Print bool `yaml:"print"`

	// Validate runs validation queries after the database write.
	Validate bool `yaml:"validate"`
}

// DefaultConfig returns the settings used when no file and no flags are
// given.
func DefaultConfig() *Config {
	return &Config{
		SkipTests:     true,
		SkipGenerated: true,
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing file is
// not an error; a malformed one is.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
