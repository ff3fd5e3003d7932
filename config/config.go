// Package config loads the on-disk configuration used by the l402 CLI
// and by wallet auto-detection. Files are YAML with environment
// variable expansion, looked up at ~/.l402/config.yaml by default.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	l402 "github.com/refined-element/l402-requests"
)

// Config holds all l402 configuration.
type Config struct {
	Wallet WalletConfig `yaml:"wallet"`
	Budget BudgetConfig `yaml:"budget"`
	Client ClientConfig `yaml:"client"`
}

// WalletConfig selects and credentials a Lightning backend. Environment
// variables take precedence over these values during detection.
type WalletConfig struct {
	// Priority names the backend tried first: "lnd", "strike" or
	// "opennode". Empty means the default order.
	Priority       string    `yaml:"priority"`
	StrikeAPIKey   string    `yaml:"strike_api_key"`
	OpenNodeAPIKey string    `yaml:"opennode_api_key"`
	LND            LNDConfig `yaml:"lnd"`
}

// LNDConfig points at an LND REST endpoint.
type LNDConfig struct {
	Host        string `yaml:"host"`
	MacaroonHex string `yaml:"macaroon_hex"`
	TLSCertPath string `yaml:"tls_cert_path"`
}

// BudgetConfig is the YAML form of l402.Limits.
type BudgetConfig struct {
	MaxPerPayment  int64    `yaml:"max_per_payment"`
	MaxPerHour     int64    `yaml:"max_per_hour"`
	MaxPerDay      int64    `yaml:"max_per_day"`
	AllowedDomains []string `yaml:"allowed_domains"`
}

// Limits converts the budget section into the client's limit set.
func (b BudgetConfig) Limits() l402.Limits {
	return l402.Limits{
		MaxPerPayment:  b.MaxPerPayment,
		MaxPerHour:     b.MaxPerHour,
		MaxPerDay:      b.MaxPerDay,
		AllowedDomains: b.AllowedDomains,
	}
}

// ClientConfig tunes request handling.
type ClientConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	RetryCeiling int           `yaml:"retry_ceiling"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	limits := l402.DefaultLimits()
	return &Config{
		Budget: BudgetConfig{
			MaxPerPayment: limits.MaxPerPayment,
			MaxPerHour:    limits.MaxPerHour,
			MaxPerDay:     limits.MaxPerDay,
		},
		Client: ClientConfig{
			Timeout:      30 * time.Second,
			RetryCeiling: 2,
		},
	}
}

// DefaultPath returns the standard config location, ~/.l402/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".l402", "config.yaml"), nil
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// LoadDefault loads DefaultPath when the file exists and falls back to
// Default() when it does not. This is the lookup the CLI and wallet
// detection use, so a machine without a config file still works off
// environment variables alone.
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
