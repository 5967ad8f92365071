package subscription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/config"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/middleware"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/plan"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type stubFlags struct {
	disabled map[string]bool
}

func (s *stubFlags) Enabled(ctx context.Context, feature string) bool {
	return !s.disabled[feature]
}

func newGateFixture(t *testing.T, flags *stubFlags) (*Gate, *Service, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t, &Subscription{}, &BillingEvent{}, &plan.Plan{})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Billing.TrialDays = 14
	cfg.Billing.DefaultPlan = "essencial"

	subs := NewService(ServiceParams{DB: db, Node: node, Config: cfg})
	plans := plan.NewService(plan.ServiceParams{DB: db, Config: cfg})

	_, err = plans.CreatePlan(context.Background(), &plan.Plan{
		Slug:     "pro",
		Name:     "Profissional",
		Features: datatypes.JSON(`["agenda","relatorios"]`),
		Active:   true,
	})
	require.NoError(t, err)

	_, err = plans.CreatePlan(context.Background(), &plan.Plan{
		Slug:   "essencial",
		Name:   "Essencial",
		Active: true,
	})
	require.NoError(t, err)

	params := GateParams{Subscriptions: subs, Plans: plans}
	if flags != nil {
		params.Flags = flags
	}
	gate := NewGate(params)

	engine := gin.New()
	engine.Use(middleware.Error())
	return gate, subs, engine
}

func identify(tenantID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tenantID != "" {
			c.Set(CtxTenantID, tenantID)
		}
		if role != "" {
			c.Set(CtxTenantRole, role)
		}
		c.Next()
	}
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRequireSubscription_GrantsActiveTenant(t *testing.T) {
	gate, subs, engine := newGateFixture(t, nil)

	now := time.Now()
	periodEnd := now.AddDate(0, 1, 0)
	require.NoError(t, subs.db.Create(&Subscription{
		TenantID:    "tenant-1",
		PlanSlug:    "pro",
		Status:      StatusActive,
		PeriodStart: now,
		PeriodEnd:   &periodEnd,
		UpdatedAt:   now,
	}).Error)

	engine.GET("/protected", identify("tenant-1", ""), gate.RequireSubscription(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"plan": c.GetString(CtxPlanSlug)})
	})

	rec := get(engine, "/protected")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"plan":"pro"`)
}

func TestRequireSubscription_DeniesWithPaymentRequired(t *testing.T) {
	gate, subs, engine := newGateFixture(t, nil)

	require.NoError(t, subs.db.Create(&Subscription{
		TenantID: "tenant-1",
		PlanSlug: "pro",
		Status:   StatusCancelled,
	}).Error)

	engine.GET("/protected", identify("tenant-1", ""), gate.RequireSubscription(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := get(engine, "/protected")
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.Contains(t, rec.Body.String(), "SUBSCRIPTION_REQUIRED")
	require.Contains(t, rec.Body.String(), "cancelled")
}

func TestRequireSubscription_MissingIdentity(t *testing.T) {
	gate, _, engine := newGateFixture(t, nil)

	engine.GET("/protected", gate.RequireSubscription(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := get(engine, "/protected")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSubscription_FailsClosedWithoutRecord(t *testing.T) {
	gate, _, engine := newGateFixture(t, nil)

	engine.GET("/protected", identify("ghost", ""), gate.RequireSubscription(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := get(engine, "/protected")
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.Contains(t, rec.Body.String(), "no_subscription")
}

func gateWithActiveTenant(t *testing.T, flags *stubFlags, planSlug string) (*Gate, *gin.Engine) {
	t.Helper()

	gate, subs, engine := newGateFixture(t, flags)

	now := time.Now()
	periodEnd := now.AddDate(0, 1, 0)
	require.NoError(t, subs.db.Create(&Subscription{
		TenantID:    "tenant-1",
		PlanSlug:    planSlug,
		Status:      StatusActive,
		PeriodStart: now,
		PeriodEnd:   &periodEnd,
		UpdatedAt:   now,
	}).Error)

	return gate, engine
}

func TestRequireFeature_PlanCarriesFeature(t *testing.T) {
	gate, engine := gateWithActiveTenant(t, nil, "pro")

	engine.GET("/reports", identify("tenant-1", ""), gate.RequireSubscription(), gate.RequireFeature("relatorios"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, get(engine, "/reports").Code)
}

func TestRequireFeature_DeniedWithFeatureName(t *testing.T) {
	gate, engine := gateWithActiveTenant(t, nil, "essencial")

	engine.GET("/reports", identify("tenant-1", ""), gate.RequireSubscription(), gate.RequireFeature("relatorios"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := get(engine, "/reports")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "FEATURE_NOT_AVAILABLE")
	require.Contains(t, rec.Body.String(), "relatorios")
}

func TestRequireFeature_KillSwitchBeatsPlan(t *testing.T) {
	flags := &stubFlags{disabled: map[string]bool{"relatorios": true}}
	gate, engine := gateWithActiveTenant(t, flags, "pro")

	engine.GET("/reports", identify("tenant-1", ""), gate.RequireSubscription(), gate.RequireFeature("relatorios"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	require.Equal(t, http.StatusForbidden, get(engine, "/reports").Code)
}

func TestEntitlementEndpoint_UsesAuthenticatedTenantOnly(t *testing.T) {
	_, subs, engine := newGateFixture(t, nil)

	now := time.Now()
	periodEnd := now.AddDate(0, 1, 0)
	require.NoError(t, subs.db.Create(&Subscription{
		TenantID:    "tenant-1",
		PlanSlug:    "pro",
		Status:      StatusActive,
		PeriodStart: now,
		PeriodEnd:   &periodEnd,
		UpdatedAt:   now,
	}).Error)

	engine.Use(identify("tenant-1", ""))
	NewHandler(subs).Register(engine)

	rec := get(engine, "/entitlement")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"granted":true`)
	require.Contains(t, rec.Body.String(), `"plan_slug":"pro"`)
}

func TestEntitlementEndpoint_RejectsUnauthenticatedCallers(t *testing.T) {
	_, subs, engine := newGateFixture(t, nil)

	now := time.Now()
	periodEnd := now.AddDate(0, 1, 0)
	require.NoError(t, subs.db.Create(&Subscription{
		TenantID:  "tenant-1",
		PlanSlug:  "pro",
		Status:    StatusActive,
		PeriodEnd: &periodEnd,
		UpdatedAt: now,
	}).Error)

	NewHandler(subs).Register(engine)

	// The query parameter is not an identity; no cross-tenant reads.
	rec := get(engine, "/entitlement?tenant_id=tenant-1")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotContains(t, rec.Body.String(), `"granted":true`)
}

func TestRequireFeature_AdminBypass(t *testing.T) {
	gate, engine := gateWithActiveTenant(t, nil, "essencial")

	engine.GET("/reports", identify("tenant-1", RoleAdmin), gate.RequireSubscription(), gate.RequireFeature("relatorios"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, get(engine, "/reports").Code)
}
