package main

import (
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"appforge-controlplane/pkg/config"
	"appforge-controlplane/pkg/db"
	"appforge-controlplane/pkg/gen"
	"appforge-controlplane/pkg/hashistack/secretmanager"
	"appforge-controlplane/pkg/logger"
	"appforge-controlplane/pkg/task"
	"appforge-controlplane/services/audit"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		gen.Module,
		db.Module,
		task.Server,
		audit.WorkerModule,
		fxLogger,
	}

	if os.Getenv("VAULT_ADDR") != "" {
		opts = append([]fx.Option{secretmanager.Module}, opts...)
	}

	fx.New(opts...).Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
