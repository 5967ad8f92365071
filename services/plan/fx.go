package plan

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.module",
	fx.Provide(
		NewService,
	),
)

var Server = fx.Module("plan.server",
	Module,
	fx.Provide(NewHandler),
	fx.Invoke(func(engine *gin.Engine, h *Handler) {
		h.Register(engine)
	}),
)
