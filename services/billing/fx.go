package billing

import (
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.module",
	fx.Provide(
		NewService,
	),
)

var Server = fx.Module("billing.server",
	Module,
	fx.Provide(NewHandler),
	fx.Invoke(func(engine *gin.Engine, h *Handler) {
		h.Register(engine)
	}),
)

// Worker registers the async task handlers on the worker mux.
var Worker = fx.Module("billing.worker",
	fx.Invoke(func(mux *asynq.ServeMux) {
		mux.HandleFunc(TaskSendConfirmationEmail, HandleConfirmationEmail)
		mux.HandleFunc(TaskAttributionPing, HandleAttributionPing)
	}),
)
