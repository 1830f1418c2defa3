// Package main provides the entry point for the GlucoMeal web frontend.
// The service renders the UI and keeps per-browser session state; profiles,
// the recipe assistant, and the glucose forecaster live in the backend it
// talks to over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/glucomeal/web/internal/infrastructure/cache"
	"github.com/glucomeal/web/internal/infrastructure/config"
	"github.com/glucomeal/web/internal/infrastructure/http/webserver"
	"github.com/glucomeal/web/pkg/healthcheck"
	"github.com/glucomeal/web/pkg/logger"
)

func main() {
	app := fx.New(
		fx.NopLogger,

		fx.Provide(func() (*config.Config, error) {
			return config.Load("")
		}),

		fx.Provide(func(cfg *config.Config) (*zap.Logger, error) {
			return logger.New(logger.Config{
				Level:       cfg.App.LogLevel,
				Format:      cfg.App.LogFormat,
				Development: cfg.App.Debug,
			})
		}),

		fx.Provide(webserver.NewAPIClient),
		fx.Provide(webserver.NewSessionStore),
		fx.Provide(cache.New),

		fx.Provide(func(cfg *config.Config, log *zap.Logger) *healthcheck.HealthCheck {
			return healthcheck.New(cfg.App.Version, log)
		}),

		fx.Provide(webserver.NewWebServer),

		fx.Invoke(registerHealthChecks),
		fx.Invoke(registerLifecycleHooks),
	)

	app.Run()
}

func registerLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	server *webserver.WebServer,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting web frontend",
				zap.Int("port", cfg.Server.Port),
				zap.String("environment", cfg.App.Environment),
				zap.String("backend", cfg.Backend.BaseURL),
			)

			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("web server failed", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func registerHealthChecks(
	cfg *config.Config,
	log *zap.Logger,
	hc *healthcheck.HealthCheck,
	apiClient *webserver.APIClient,
) {
	hc.Register("system", healthcheck.NewCustomChecker("system", func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		return healthcheck.StatusHealthy, "system operational", map[string]any{
			"service":     "glucomeal-web",
			"version":     cfg.App.Version,
			"environment": cfg.App.Environment,
		}
	}))

	hc.Register("backend", healthcheck.NewCustomChecker("backend", func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		if apiClient.VerifyConnection(ctx) {
			return healthcheck.StatusHealthy, "backend accessible", map[string]any{
				"backend_url": cfg.Backend.BaseURL,
			}
		}
		return healthcheck.StatusUnhealthy, "backend not accessible", map[string]any{
			"backend_url": cfg.Backend.BaseURL,
		}
	}))

	log.Info("health checks registered")
}
