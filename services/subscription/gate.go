package subscription

import (
	"context"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/errutil"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/featureflags"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/middleware"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/plan"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Context keys set by the authentication collaborator upstream and by the
// access gate for downstream handlers.
const (
	CtxTenantID   = "tenant_id"
	CtxTenantRole = "tenant_role"
	CtxPlanSlug   = "plan_slug"

	RoleAdmin = "admin"
)

// Gate is the request-time access and feature check mounted in front of
// protected routes.
type Gate struct {
	subs  *Service
	plans *plan.Service
	flags featureflags.FeatureFlag
}

type GateParams struct {
	fx.In
	Subscriptions *Service
	Plans         *plan.Service
	Flags         featureflags.FeatureFlag `optional:"true"`
}

func NewGate(p GateParams) *Gate {
	return &Gate{
		subs:  p.Subscriptions,
		plans: p.Plans,
		flags: p.Flags,
	}
}

// RequireSubscription denies with SUBSCRIPTION_REQUIRED when the tenant has
// no current entitlement. The code is distinct from authentication failures
// so the caller can route to billing instead of login. One record read, no
// cache, nothing else to block on.
func (g *Gate) RequireSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetString(CtxTenantID)
		if tenantID == "" {
			middleware.AbortWithError(c, errutil.Unauthorized("missing tenant identity", nil))
			return
		}

		ent, err := g.subs.CheckAccess(c.Request.Context(), tenantID, time.Now())
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		if !ent.Granted {
			middleware.AbortWithError(c, errutil.SubscriptionRequired("active subscription required", nil,
				errutil.WithDetails(errutil.Detail{Field: "reason", Message: ent.Reason})))
			return
		}

		c.Set(CtxPlanSlug, ent.PlanSlug)
		c.Next()
	}
}

// CheckFeature resolves whether the given plan carries a feature. The
// platform-wide kill switch is consulted first; a feature disabled there is
// off for every plan.
func (g *Gate) CheckFeature(ctx context.Context, planSlug, feature string) (bool, error) {
	if g.flags != nil && !g.flags.Enabled(ctx, feature) {
		zap.L().Warn("feature disabled platform-wide", zap.String("feature", feature))
		return false, nil
	}

	record, err := g.plans.GetPlan(ctx, planSlug)
	if err != nil {
		return false, err
	}

	return record.HasFeature(feature), nil
}

// RequireFeature denies gated operations with FEATURE_NOT_AVAILABLE carrying
// the feature name, so the UI can present an upsell. Admins bypass the check.
func (g *Gate) RequireFeature(feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxTenantRole) == RoleAdmin {
			c.Next()
			return
		}

		planSlug := c.GetString(CtxPlanSlug)
		if planSlug == "" {
			middleware.AbortWithError(c, errutil.SubscriptionRequired("active subscription required", nil))
			return
		}

		ok, err := g.CheckFeature(c.Request.Context(), planSlug, feature)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		if !ok {
			middleware.AbortWithError(c, errutil.FeatureNotAvailable(feature))
			return
		}

		c.Next()
	}
}
