package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds process-level settings read from the environment.
type Env struct {
	Home         string `env:"CRITTER_HOME"`
	CatalogURL   string `env:"CRITTER_CATALOG_URL"`
	CatalogFile  string `env:"CRITTER_CATALOG_FILE"`
	WebPort      int    `env:"CRITTER_WEB_PORT"`
	OTelEndpoint string `env:"CRITTER_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"CRITTER_OTEL_ENABLED" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv parses Env from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	return e, nil
}

// ApplyEnv overlays environment settings on cfg. Environment wins over the file.
func ApplyEnv(cfg *Config, e Env) *Config {
	return Merge(cfg, &Config{
		CatalogURL:  e.CatalogURL,
		CatalogFile: e.CatalogFile,
		WebPort:     e.WebPort,
	})
}
