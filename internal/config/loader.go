package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/joho/godotenv"

	"grimm.is/phoque/internal/brand"
)

// Environment variable names. They share brand.ConfigEnvPrefix.
var (
	EnvStore           = brand.ConfigEnvPrefix + "_STORE"
	EnvRulesFile       = brand.ConfigEnvPrefix + "_RULES_FILE"
	EnvLogLevel        = brand.ConfigEnvPrefix + "_LOG_LEVEL"
	EnvLogJSON         = brand.ConfigEnvPrefix + "_LOG_JSON"
	EnvActiveOnly      = brand.ConfigEnvPrefix + "_ACTIVE_ONLY"
	EnvMetricsTextfile = brand.ConfigEnvPrefix + "_METRICS_TEXTFILE"
)

// Load reads the configuration at path, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		cfg, err = LoadHCL(data, path)
		if err != nil {
			return nil, err
		}
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadHCL decodes HCL bytes and fills defaults. It does not consult the
// environment.
func LoadHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse error: %s", diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("HCL decode error: %s", diags.Error())
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Encode renders cfg as HCL.
func Encode(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	gohcl.EncodeIntoBody(cfg, f.Body())
	return hclwrite.Format(f.Bytes())
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvStore); ok && v != "" {
		cfg.Store = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := os.LookupEnv(EnvRulesFile); ok && v != "" {
		cfg.RulesFile = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := os.LookupEnv(EnvLogJSON); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLogJSON, err)
		}
		cfg.LogJSON = b
	}
	if v, ok := os.LookupEnv(EnvActiveOnly); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvActiveOnly, err)
		}
		if cfg.Apply == nil {
			cfg.Apply = &ApplyConfig{}
		}
		cfg.Apply.ActiveOnly = &b
	}
	if v, ok := os.LookupEnv(EnvMetricsTextfile); ok {
		if cfg.Metrics == nil {
			cfg.Metrics = &MetricsConfig{}
		}
		cfg.Metrics.Textfile = v
	}
	return nil
}
