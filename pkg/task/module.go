package task

import (
	"context"
	"os"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/config"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Client = fx.Module("asynq:client",
	fx.Provide(newClient, NewEnqueuer),
)

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func newClient(lc fx.Lifecycle, cfg *config.Config) *asynq.Client {
	client := asynq.NewClient(redisOpt(cfg))

	if err := client.Ping(); err != nil {
		zap.L().Error("asynq broker unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		os.Exit(1)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}

var Server = fx.Module("asynq:server",
	fx.Provide(asynq.NewServeMux),
	fx.Invoke(registerServer),
)

func registerServer(lc fx.Lifecycle, cfg *config.Config, mux *asynq.ServeMux) {
	// Webhook side effects land on default; attribution pings on low. The
	// weights keep confirmation emails ahead of marketing traffic.
	server := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 5,
			"low":     2,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			zap.L().Error("task failed",
				zap.String("task_type", task.Type()),
				zap.Error(err),
			)
		}),
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := server.Start(mux); err != nil {
					zap.L().Error("asynq server exited", zap.Error(err))
					os.Exit(1)
				}
			}()
			zap.L().Info("asynq server started", zap.String("addr", cfg.Redis.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			server.Stop()
			server.Shutdown()
			return nil
		},
	})
}
