package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"

	"github.com/inboxforge/syncengine/internal/logger"
	"github.com/inboxforge/syncengine/internal/tracing"
)

// Config aggregates every env-driven settings struct the engine needs.
type Config struct {
	AppConfig *AppConfig
	Database  *DatabaseConfig
	Sync      *SyncConfig
	Cron      *CronConfig
}

func InitConfig() (*Config, error) {
	cfg := &Config{
		AppConfig: &AppConfig{Logger: &logger.Config{}, Tracing: &tracing.JaegerConfig{}},
		Database:  &DatabaseConfig{},
		Sync:      &SyncConfig{},
		Cron:      &CronConfig{},
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Cron.SyncSchedule == "" {
		cfg.Cron.SyncSchedule = fmt.Sprintf("@every %s", cfg.Sync.CycleInterval)
	}

	return cfg, nil
}
