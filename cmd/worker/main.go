package main

import (
	"log"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/config"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/logger"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/task"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/billing"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func appOptions() []fx.Option {
	return []fx.Option{
		config.Module,
		logger.Module,
		task.Server,
		billing.Worker,
		fxLogger,
	}
}

func main() {
	opts := appOptions()

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
