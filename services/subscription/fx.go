package subscription

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.module",
	fx.Provide(
		NewService,
		NewGate,
		// Billing injects the store directly so webhook writes skip the
		// service layer.
		func(s *Service) *Store { return s.Store() },
	),
)

var Server = fx.Module("subscription.server",
	Module,
	fx.Provide(NewHandler),
	fx.Invoke(func(engine *gin.Engine, h *Handler) {
		h.Register(engine)
	}),
)
