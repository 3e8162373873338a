// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath is the environment variable naming the config file.
const EnvConfigPath = "PCVL_INTEROP_CONFIG"

// Config is the master configuration for perceval-interop.
type Config struct {
	// Cloud configures the Quandela Cloud platform API.
	Cloud CloudConfig `yaml:"cloud"`

	// Notebooks configures the documentation notebook tooling.
	Notebooks NotebooksConfig `yaml:"notebooks"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`
}

// CloudConfig configures the platform API client.
type CloudConfig struct {
	// URL is the platform API base URL.
	// Default: https://api.cloud.quandela.com
	URL string `yaml:"url"`

	// Platform is the default platform for job submission when no
	// --platform flag is given. Default: sim:ascella
	Platform string `yaml:"platform"`

	// TokenFile is an optional path to a plaintext token file. Sealed
	// storage (auth login) is preferred; this exists for CI
	// environments where an age identity is impractical.
	TokenFile string `yaml:"token_file"`

	// PollInterval is the job status polling period for synchronous
	// execution, as a duration string. Default: 3s
	PollInterval string `yaml:"poll_interval"`

	// RequestTimeout bounds individual API requests, as a duration
	// string. Default: 30s
	RequestTimeout string `yaml:"request_timeout"`

	// KnownPlatforms lists platform names used for suggestions when a
	// requested platform does not exist.
	KnownPlatforms []string `yaml:"known_platforms"`
}

// NotebooksConfig configures the documentation notebook tooling.
type NotebooksConfig struct {
	// Dir is the documentation notebook directory.
	// Default: docs/source/notebooks
	Dir string `yaml:"dir"`

	// ExecutionTimeout bounds each notebook execution step during
	// refresh, as a duration string. Default: 10m
	ExecutionTimeout string `yaml:"execution_timeout"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// ConfigDir holds the config file, the sealed token, and the age
	// identity. Default: ~/.config/perceval-interop
	ConfigDir string `yaml:"config_dir"`

	// DataDir holds mutable state: the job ledger.
	// Default: ~/.local/share/perceval-interop
	DataDir string `yaml:"data_dir"`
}

// Default returns the default configuration. These defaults are a
// complete working setup against the production cloud; the config file
// only needs to exist when something differs.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Cloud: CloudConfig{
			URL:            "https://api.cloud.quandela.com",
			Platform:       "sim:ascella",
			PollInterval:   "3s",
			RequestTimeout: "30s",
			KnownPlatforms: []string{
				"sim:ascella",
				"qpu:ascella",
				"sim:belenos",
				"qpu:belenos",
				"sim:altair",
				"sim:clifford",
				"sim:slos",
				"sim:sampling",
			},
		},
		Notebooks: NotebooksConfig{
			Dir:              "docs/source/notebooks",
			ExecutionTimeout: "10m",
		},
		Paths: PathsConfig{
			ConfigDir: filepath.Join(homeDir, ".config", "perceval-interop"),
			DataDir:   filepath.Join(homeDir, ".local", "share", "perceval-interop"),
		},
	}
}

// Load loads configuration from the path in PCVL_INTEROP_CONFIG, or
// from the default location when the variable is unset. A missing file
// at the default location is not an error (the defaults apply); a
// missing file at the path named by PCVL_INTEROP_CONFIG is.
func Load() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return LoadFile(path)
	}

	cfg := Default()
	defaultPath := filepath.Join(cfg.Paths.ConfigDir, "config.yaml")
	if _, err := os.Stat(defaultPath); err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvironment()
			cfg.expandVariables()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: stat %s: %w", defaultPath, err)
	}
	return LoadFile(defaultPath)
}

// LoadFile loads configuration from a specific file path. The file is
// merged over [Default], the environment overlay is applied, variables
// are expanded, and the result is validated.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvironment()
	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnvironment overlays the small set of environment overrides.
// These exist for CI: a pipeline exports PCVL_INTEROP_TOKEN instead of
// running auth login on a throwaway runner.
func (c *Config) applyEnvironment() {
	if url := os.Getenv("PCVL_INTEROP_CLOUD_URL"); url != "" {
		c.Cloud.URL = url
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// string fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":              os.Getenv("HOME"),
		"PCVL_INTEROP_DATA": c.Paths.DataDir,
	}

	c.Paths.ConfigDir = expandVars(c.Paths.ConfigDir, vars)
	c.Paths.DataDir = expandVars(c.Paths.DataDir, vars)
	vars["PCVL_INTEROP_DATA"] = c.Paths.DataDir // Update for dependent paths.

	c.Cloud.URL = expandVars(c.Cloud.URL, vars)
	c.Cloud.TokenFile = expandVars(c.Cloud.TokenFile, vars)
	c.Notebooks.Dir = expandVars(c.Notebooks.Dir, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, aggregating every
// failure so the user can fix them all in one pass.
func (c *Config) Validate() error {
	var errs []error

	if c.Cloud.URL == "" {
		errs = append(errs, fmt.Errorf("cloud.url is required"))
	}
	if c.Cloud.Platform == "" {
		errs = append(errs, fmt.Errorf("cloud.platform is required"))
	}
	if _, err := time.ParseDuration(c.Cloud.PollInterval); err != nil {
		errs = append(errs, fmt.Errorf("cloud.poll_interval: %w", err))
	}
	if _, err := time.ParseDuration(c.Cloud.RequestTimeout); err != nil {
		errs = append(errs, fmt.Errorf("cloud.request_timeout: %w", err))
	}
	if c.Notebooks.Dir == "" {
		errs = append(errs, fmt.Errorf("notebooks.dir is required"))
	}
	if _, err := time.ParseDuration(c.Notebooks.ExecutionTimeout); err != nil {
		errs = append(errs, fmt.Errorf("notebooks.execution_timeout: %w", err))
	}
	if c.Paths.ConfigDir == "" {
		errs = append(errs, fmt.Errorf("paths.config_dir is required"))
	}
	if c.Paths.DataDir == "" {
		errs = append(errs, fmt.Errorf("paths.data_dir is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// PollInterval returns the parsed polling period. Call Validate first;
// an unparseable value falls back to 3s here.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Cloud.PollInterval)
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}

// RequestTimeout returns the parsed API request timeout, defaulting to
// 30s when unparseable.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Cloud.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ExecutionTimeout returns the parsed per-step notebook execution
// timeout, defaulting to 10m when unparseable.
func (c *Config) ExecutionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Notebooks.ExecutionTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// TokenPath returns the sealed token location under the config dir.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Paths.ConfigDir, "token.age")
}

// IdentityPath returns the age identity location under the config dir.
func (c *Config) IdentityPath() string {
	return filepath.Join(c.Paths.ConfigDir, "identity.key")
}

// LedgerPath returns the job ledger location under the data dir.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "jobs.ledger")
}

// EnsurePaths creates the configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.ConfigDir, c.Paths.DataDir} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", path, err)
		}
	}
	return nil
}
