package main

import (
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/R3E-Network/extension_server/internal/config"
	"github.com/R3E-Network/extension_server/internal/engine/metrics"
	"github.com/R3E-Network/extension_server/internal/host"
	"github.com/R3E-Network/extension_server/internal/logging"
	"github.com/R3E-Network/extension_server/internal/plugin"
	"github.com/R3E-Network/extension_server/platform/engine"
	"github.com/R3E-Network/extension_server/services/base"
)

type dependencies struct {
	engine engine.Dependencies
	host   *base.Registry
}

// buildDependencies wires the host adapters selected by cfg. The returned
// function releases any connections.
func buildDependencies(cfg *config.Config, log *logging.Logger, m *metrics.Collector) (dependencies, func(), error) {
	registry := base.NewRegistry(log)

	var props engine.PropertyStore = host.MapProperties{}
	if cfg.PropertiesFile != "" {
		props = host.NewFileProperties(cfg.PropertiesFile)
	}

	closer := func() {}
	var allow engine.AllowList
	switch cfg.PowerAllowList.Backend {
	case config.AllowListRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.PowerAllowList.RedisAddr})
		allow = host.NewRedisAllowList(client, cfg.PowerAllowList.RedisKey)
		closer = func() {
			if err := client.Close(); err != nil {
				log.WithError(err).Warn("closing redis client")
			}
		}
	case "", config.AllowListMemory:
		allow = host.NewMemoryAllowList(cfg.AllowInPowerSave...)
	default:
		return dependencies{}, nil, fmt.Errorf("unknown power allow list backend %q", cfg.PowerAllowList.Backend)
	}

	return dependencies{
		engine: engine.Dependencies{
			Resolver:     plugin.Default,
			Registry:     registry,
			Features:     host.NewFeatureSet(cfg.Features...),
			Properties:   props,
			Backup:       host.NewFileBackup(cfg.BackupDir),
			AllowList:    allow,
			SystemConfig: host.NewStaticSystemConfig(cfg.AllowInPowerSave),
			Logger:       log.Named("engine"),
			Metrics:      m,
		},
		host: registry,
	}, closer, nil
}
