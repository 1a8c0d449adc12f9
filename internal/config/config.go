package config

import (
	"grimm.is/phoque/internal/brand"
)

// Config is the decoded configuration file.
type Config struct {
	Store     string `hcl:"store,optional" validate:"oneof=json sqlite"`
	RulesFile string `hcl:"rules_file,optional" validate:"required"`
	LogLevel  string `hcl:"log_level,optional" validate:"oneof=debug info warn error"`
	LogJSON   bool   `hcl:"log_json,optional"`

	Apply   *ApplyConfig   `hcl:"apply,block"`
	Metrics *MetricsConfig `hcl:"metrics,block"`
}

// ApplyConfig controls which rules apply installs.
type ApplyConfig struct {
	// ActiveOnly skips inactive rules. Nil means true.
	ActiveOnly *bool `hcl:"active_only,optional"`
}

// MetricsConfig controls the node_exporter textfile.
type MetricsConfig struct {
	Textfile string `hcl:"textfile,optional"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Store:     "json",
		RulesFile: brand.DefaultRulesPath(),
		LogLevel:  "info",
	}
}

// ActiveOnly reports whether apply should skip inactive rules.
func (c *Config) ActiveOnly() bool {
	if c.Apply == nil || c.Apply.ActiveOnly == nil {
		return true
	}
	return *c.Apply.ActiveOnly
}

// MetricsTextfile returns the textfile path, or "" when metrics are not
// written.
func (c *Config) MetricsTextfile() string {
	if c.Metrics == nil {
		return ""
	}
	return c.Metrics.Textfile
}

// applyDefaults fills settings the file left empty.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Store == "" {
		c.Store = d.Store
	}
	if c.RulesFile == "" {
		c.RulesFile = d.RulesFile
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}
