package main

import (
	"log"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/config"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/db"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/featureflags"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/health"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/logger"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/middleware"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/redis"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/server"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/task"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/billing"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/plan"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/subscription"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/tenant"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func appOptions() []fx.Option {
	return []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		featureflags.Module,
		health.Module,
		fx.Provide(
			server.NewEngine,
			provideSnowflakeNode,
		),
		fx.Invoke(
			registerDBTelemetry,
			migrate,
			registerBaseRoutes,
		),
		plan.Server,
		subscription.Server,
		tenant.Server,
		billing.Server,
		server.ProvideHTTPServer,
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

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func registerDBTelemetry(conn *gorm.DB, cfg *config.Config) error {
	if err := db.Otel(conn); err != nil {
		return err
	}
	return db.Metric(conn, cfg.Database.DBNAME)
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&tenant.Tenant{},
		&plan.Plan{},
		&subscription.Subscription{},
		&subscription.BillingEvent{},
		&billing.GatewaySettings{},
	)
}

func registerBaseRoutes(engine *gin.Engine, h health.HealthService) {
	engine.Use(middleware.Error())
	engine.GET("/healthz", h.Liveness)
	engine.GET("/readyz", h.Readiness)
}
