package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds CLI defaults sourced from the environment. Flags
// override these when set explicitly.
type EnvConfig struct {
	Database string `env:"DEMIURGE_DB"`
	Format   string `env:"DEMIURGE_FORMAT" envDefault:"text"`
}

func loadEnvConfig() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
