// Package config handles bridle runtime configuration.
//
// Configuration comes from three places, in increasing precedence:
// built-in defaults, an optional config.yaml in the bridle home, and
// BRIDLE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for all bridle environment variables.
const EnvPrefix = "bridle"

// Providers that can back a session.
const (
	ProviderChrome = "chrome"
	ProviderIOS    = "ios"
)

// Config holds runtime configuration for the daemon and CLI.
type Config struct {
	// Home overrides the base directory for sockets, PID files and logs.
	Home string `envconfig:"HOME"`
	// Session selects the session name. The CLI --session flag wins.
	Session string `envconfig:"SESSION" default:"default"`
	// Provider selects the automation backend.
	Provider string `envconfig:"PROVIDER" default:"chrome"`
	// StreamPort, if set, activates the frame-streaming subsystem on
	// that loopback port.
	StreamPort int `envconfig:"STREAM_PORT"`
	// Headless controls whether the browser runs without a window.
	Headless bool `envconfig:"HEADLESS" default:"true"`
	// AllowFileAccess permits navigation to file:// URLs. Applied once
	// at backend creation; no command can toggle it afterwards.
	AllowFileAccess bool `envconfig:"ALLOW_FILE_ACCESS"`
	// BrowserPath overrides the browser executable location.
	BrowserPath string `envconfig:"BROWSER_PATH"`
}

// fileConfig mirrors Config for config.yaml. Pointer fields distinguish
// "absent" from zero values so the environment can win per field.
type fileConfig struct {
	Session         *string `yaml:"session"`
	Provider        *string `yaml:"provider"`
	StreamPort      *int    `yaml:"stream_port"`
	Headless        *bool   `yaml:"headless"`
	AllowFileAccess *bool   `yaml:"allow_file_access"`
	BrowserPath     *string `yaml:"browser_path"`
}

// Load builds the effective configuration: defaults, then config.yaml
// from baseDir (if present), then environment variables.
func Load(baseDir string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if baseDir != "" {
		if err := applyFile(&cfg, filepath.Join(baseDir, "config.yaml")); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyFile overlays config.yaml values for fields the environment did
// not set.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if fc.Session != nil && !envSet("SESSION") {
		cfg.Session = *fc.Session
	}
	if fc.Provider != nil && !envSet("PROVIDER") {
		cfg.Provider = *fc.Provider
	}
	if fc.StreamPort != nil && !envSet("STREAM_PORT") {
		cfg.StreamPort = *fc.StreamPort
	}
	if fc.Headless != nil && !envSet("HEADLESS") {
		cfg.Headless = *fc.Headless
	}
	if fc.AllowFileAccess != nil && !envSet("ALLOW_FILE_ACCESS") {
		cfg.AllowFileAccess = *fc.AllowFileAccess
	}
	if fc.BrowserPath != nil && !envSet("BROWSER_PATH") {
		cfg.BrowserPath = *fc.BrowserPath
	}
	return nil
}

func envSet(name string) bool {
	_, ok := os.LookupEnv("BRIDLE_" + name)
	return ok
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderChrome, ProviderIOS:
	default:
		return fmt.Errorf("unknown provider %q (want %q or %q)", c.Provider, ProviderChrome, ProviderIOS)
	}
	if c.StreamPort < 0 || c.StreamPort > 65535 {
		return fmt.Errorf("invalid stream port %d", c.StreamPort)
	}
	return nil
}
