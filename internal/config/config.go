// Loads the emulator configuration from a YAML file and .env overrides.

package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every setting of the emulator.
//
// A missing file yields defaults; the JWT secret is generated when empty.
type Config struct {
	// Fixtures is a YAML/JSON file or a directory of .jsonl files. Empty means
	// the embedded portal seed.
	Fixtures string `yaml:"fixtures"`

	// JWTSecret signs session tokens handed out by the auth stub.
	JWTSecret string `yaml:"jwt_secret"`

	// PublicURL prefixes the URLs returned by the storage stub.
	PublicURL string `yaml:"public_url"`

	// DemoUser is the identity every auth call resolves to.
	DemoUser DemoUser `yaml:"demo_user"`

	LogLevel string `yaml:"log_level"`

	// MetricsAddr is the listen address of the Prometheus endpoint served by
	// the watch command. Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`
}

// DemoUser is the fixed identity of the auth stub.
type DemoUser struct {
	ID    string `yaml:"id"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

// Validate checks that the user fields are present.
func (u *DemoUser) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		PublicURL: "http://localhost:54321",
		DemoUser: DemoUser{
			ID:    "00000000-0000-4000-8000-000000000001",
			Email: "demo@example.com",
			Role:  "authenticated",
		},
		LogLevel: "info",
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 bytes")
	}
	u, err := url.Parse(c.PublicURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("public_url %q must be an absolute URL", c.PublicURL)
	}
	if err := c.DemoUser.Validate(); err != nil {
		return fmt.Errorf("demo_user: %w", err)
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Load reads path, applies defaults and validates the result.
//
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the --config flag
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	if err := cfg.fill(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &cfg, nil
}

// fill restores defaults zeroed by a partial file and generates the secret.
func (c *Config) fill() error {
	d := Default()
	if c.PublicURL == "" {
		c.PublicURL = d.PublicURL
	}
	if c.DemoUser.ID == "" {
		c.DemoUser.ID = d.DemoUser.ID
	}
	if c.DemoUser.Email == "" {
		c.DemoUser.Email = d.DemoUser.Email
	}
	if c.DemoUser.Role == "" {
		c.DemoUser.Role = d.DemoUser.Role
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		c.JWTSecret = hex.EncodeToString(b)
	}
	return nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
