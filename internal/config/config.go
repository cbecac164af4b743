package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"

	"pr-insights/internal/analytics"
	"pr-insights/internal/engine"
	"pr-insights/internal/logger"
	"pr-insights/internal/repository/postgres"
	"pr-insights/internal/server"
)

type Config struct {
	HTTP     server.Config
	Postgres postgres.Config
	Logger   logger.Config
	Analyzer analytics.Thresholds
	Engine   engine.Config
}

func New(path string) (*Config, error) {
	var cfg Config

	err := cleanenv.ReadConfig(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	return &cfg, nil
}
