// Package config wraps Viper with nil-safe accessors and FleetSift's
// defaults. Configuration is read from an optional YAML file plus
// FLEETSIFT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is a nil-safe wrapper around a Viper instance.
type Config struct {
	v *viper.Viper
}

// New wraps an existing Viper instance. A nil instance yields a Config that
// returns zero values for every key.
func New(v *viper.Viper) *Config {
	return &Config{v: v}
}

// Load builds the server configuration: defaults, then the YAML file at
// path (or the default search locations when path is empty), then
// environment overrides. A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("db.path", "fleetsift.db")
	v.SetDefault("ingest.offload_bytes", 1<<20)
	v.SetDefault("ingest.offload_files", 3)
	v.SetDefault("locations.path", "locations.yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fleetsift")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/fleetsift")
	}

	v.SetEnvPrefix("FLEETSIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// An explicitly named file must exist and parse; the default search
		// locations are optional.
		if path != "" {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return New(v), nil
}

func (c *Config) GetString(key string) string {
	if c == nil || c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	if c == nil || c.v == nil {
		return false
	}
	return c.v.GetBool(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetDuration(key)
}

func (c *Config) IsSet(key string) bool {
	if c == nil || c.v == nil {
		return false
	}
	return c.v.IsSet(key)
}

// Sub returns the subtree rooted at key. Missing subtrees yield an empty
// Config rather than nil so callers can chain accessors safely.
func (c *Config) Sub(key string) *Config {
	if c == nil || c.v == nil {
		return New(nil)
	}
	return New(c.v.Sub(key))
}

// Unmarshal decodes the configuration into a mapstructure-tagged struct.
func (c *Config) Unmarshal(target any) error {
	if c == nil || c.v == nil {
		return nil
	}
	return c.v.Unmarshal(target)
}
