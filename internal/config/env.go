package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every key recognized by [Config.ApplyEnv].
const EnvPrefix = "PORTALEMU_"

// LoadDotEnv parses a .env file. A missing file yields an empty map.
//
// Values may be wrapped in double quotes; single quotes are rejected.
func LoadDotEnv(path string) (map[string]string, error) {
	env := make(map[string]string)
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the --env flag
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}
	for line := range strings.SplitSeq(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
				return nil, fmt.Errorf("single quotes are not supported for wrapping in .env: %s", line)
			}
			return nil, fmt.Errorf("unbalanced single quotes in .env: %s", line)
		}
		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		env[key] = val
	}
	return env, nil
}

// ApplyEnv overrides fields with the non-empty PORTALEMU_* entries of env and
// validates the result.
func (c *Config) ApplyEnv(env map[string]string) error {
	for key, dst := range map[string]*string{
		"FIXTURES":     &c.Fixtures,
		"JWT_SECRET":   &c.JWTSecret,
		"PUBLIC_URL":   &c.PublicURL,
		"LOG_LEVEL":    &c.LogLevel,
		"METRICS_ADDR": &c.MetricsAddr,
		"DEMO_ID":      &c.DemoUser.ID,
		"DEMO_EMAIL":   &c.DemoUser.Email,
		"DEMO_ROLE":    &c.DemoUser.Role,
	} {
		if v := env[EnvPrefix+key]; v != "" {
			*dst = v
		}
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid .env override: %w", err)
	}
	return nil
}
