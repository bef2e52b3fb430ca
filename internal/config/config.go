package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for minicov
type Config struct {
	// ExcludeLines holds suppression regexes applied to source lines, in
	// order. Lines matching any pattern are excluded from every metric.
	// The inline "pragma: no cover" marker is always active and needs no
	// entry here.
	ExcludeLines []string `yaml:"exclude_lines" env:"MINICOV_EXCLUDE_LINES"`

	// Omit holds glob patterns; files matching any of them are skipped.
	Omit []string `yaml:"omit" env:"MINICOV_OMIT"`

	// Include holds glob patterns; when non-empty, only matching files
	// are analyzed.
	Include []string `yaml:"include" env:"MINICOV_INCLUDE"`

	// Source holds source roots. Files outside every root are not
	// analyzed, and files under the roots that never executed are still
	// reported.
	Source []string `yaml:"source" env:"MINICOV_SOURCE"`

	// Branch enables the arc-based metrics (branch, condition, bytecode
	// path). When false only statement coverage is computed.
	Branch bool `yaml:"branch" env:"MINICOV_BRANCH"`

	// Paths groups equivalent path prefixes. The map key is the canonical
	// prefix; recorded paths starting with any prefix in the value list
	// are rewritten to it before reporting.
	Paths map[string][]string `yaml:"paths"`

	// Workers bounds analyzer parallelism. Zero means GOMAXPROCS.
	Workers int `yaml:"workers" env:"MINICOV_WORKERS"`

	// Logging
	Verbose bool `yaml:"verbose" env:"MINICOV_VERBOSE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ExcludeLines: nil,
		Omit:         nil,
		Include:      nil,
		Source:       nil,
		Branch:       true,
		Paths:        nil,
		Workers:      0,
		Verbose:      false,
	}
}

// LoadFromFile reads configuration from a specific YAML file path.
// Environment variables override values from the file.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv returns the default configuration with environment variable
// overrides applied. Used by hosts that carry no config file.
func FromEnv() (*Config, error) {
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MINICOV_EXCLUDE_LINES"); v != "" {
		cfg.ExcludeLines = parseList(v)
	}
	if v := os.Getenv("MINICOV_OMIT"); v != "" {
		cfg.Omit = parseList(v)
	}
	if v := os.Getenv("MINICOV_INCLUDE"); v != "" {
		cfg.Include = parseList(v)
	}
	if v := os.Getenv("MINICOV_SOURCE"); v != "" {
		cfg.Source = parseList(v)
	}
	if v := os.Getenv("MINICOV_BRANCH"); v != "" {
		cfg.Branch = parseBool(v)
	}
	if v := os.Getenv("MINICOV_WORKERS"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.Workers = i
		}
	}
	if v := os.Getenv("MINICOV_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
}

// Validate checks that the configuration has valid required fields.
// Suppression regexes are deliberately not validated here: a malformed
// pattern is skipped with a diagnostic where patterns are compiled, so a
// bad entry never takes the whole configuration down.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	return nil
}

// parseList splits a comma or newline separated environment value
func parseList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseBool interprets common truthy spellings
func parseBool(s string) bool {
	return s == "true" || s == "1" || s == "yes"
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
