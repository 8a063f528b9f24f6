// Package providers contains dependency injection providers for the artfetch server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/artfetch/internal/config"
	"github.com/listenupapp/artfetch/internal/logger"
	"github.com/listenupapp/artfetch/internal/metrics"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting artfetch",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"providers", cfg.EnabledProviders(),
		"cache_path", cfg.Cache.Path,
	)

	return log, nil
}

// ProvideMetrics provides the Prometheus collectors.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}
