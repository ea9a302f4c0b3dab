// Package config loads service configuration from an optional YAML file
// with environment overrides.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration.
type Config struct {
	Port         string `yaml:"port"`
	DatabasePath string `yaml:"database_path"`
	JWTSecret    string `yaml:"jwt_secret"`
	Debug        bool   `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:         "8080",
		DatabasePath: "polkavault.db",
		JWTSecret:    "polkavault-secret-key",
	}
}

// Load reads path (when non-empty and present) over the defaults, then
// applies PORT, DATABASE_PATH, JWT_SECRET and DEBUG from the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, nil
}
