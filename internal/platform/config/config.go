// Package config layers configuration sources with koanf: built-in
// defaults, an optional TOML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Sources describes where a service reads its settings from.
type Sources struct {
	Defaults map[string]any
	// File is an optional TOML path. A missing file is an error only when set.
	File string
	// Env maps environment variable names to koanf keys, e.g.
	// "HTTP_ADDR" -> "http.addr". Unlisted variables are ignored.
	Env map[string]string
}

// Load builds a koanf instance from the given sources.
func Load(src Sources) (*koanf.Koanf, error) {
	k := koanf.New(".")

	if len(src.Defaults) > 0 {
		if err := k.Load(confmap.Provider(src.Defaults, "."), nil); err != nil {
			return nil, fmt.Errorf("config defaults: %w", err)
		}
	}

	if path := strings.TrimSpace(src.File); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if len(src.Env) > 0 {
		err := k.Load(env.Provider("", ".", func(name string) string {
			key, ok := src.Env[name]
			if !ok {
				return ""
			}
			if strings.TrimSpace(os.Getenv(name)) == "" {
				return ""
			}
			return key
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("config env: %w", err)
		}
	}
	return k, nil
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type AppConfig struct {
	ServiceName string     `koanf:"service_name"`
	LogLevel    string     `koanf:"log_level"`
	LogFormat   string     `koanf:"log_format"`
	Env         string     `koanf:"env"`
	HTTP        HTTPConfig `koanf:"http"`
}

// AppEnv lists the variables shared by every service.
var AppEnv = map[string]string{
	"SERVICE_NAME": "service_name",
	"LOG_LEVEL":    "log_level",
	"LOG_FORMAT":   "log_format",
	"APP_ENV":      "env",
	"HTTP_ADDR":    "http.addr",
}

func AppDefaults() map[string]any {
	return map[string]any{
		"log_level":  "info",
		"log_format": "json",
		"env":        "development",
		"http.addr":  ":8080",
	}
}

// Validate checks the fields every service needs.
func (c AppConfig) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return errors.New("SERVICE_NAME is required")
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return errors.New("HTTP_ADDR is required")
	}
	return nil
}

func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}
