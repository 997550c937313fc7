package main

import (
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"appforge-controlplane/internal/httpapi"
	"appforge-controlplane/internal/server"
	"appforge-controlplane/pkg/config"
	"appforge-controlplane/pkg/db"
	"appforge-controlplane/pkg/gen"
	"appforge-controlplane/pkg/hashistack/secretmanager"
	"appforge-controlplane/pkg/health"
	"appforge-controlplane/pkg/logger"
	"appforge-controlplane/pkg/otelcol"
	"appforge-controlplane/pkg/redis"
	"appforge-controlplane/pkg/task"
	"appforge-controlplane/services/ability"
	"appforge-controlplane/services/app"
	"appforge-controlplane/services/audit"
	"appforge-controlplane/services/license"
	"appforge-controlplane/services/organization"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		gen.Module,
		db.Module,
		redis.Module,
		task.Client,
		health.Module,
		license.Module,
		ability.Module,
		organization.Module,
		app.Module,
		audit.Module,
		httpapi.Module,
		server.Module,
		fxLogger,
	}

	if os.Getenv("VAULT_ADDR") != "" {
		opts = append([]fx.Option{secretmanager.Module}, opts...)
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		opts = append(opts, otelcol.Module)
	}

	fx.New(opts...).Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
