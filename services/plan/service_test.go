package plan_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/config"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/plan"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/subscription"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*plan.Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &plan.Plan{}, &subscription.Subscription{})

	cfg := &config.Config{}
	cfg.Billing.DefaultPlan = "essencial"

	return plan.NewService(plan.ServiceParams{DB: db, Config: cfg}), db
}

func seedPlan(t *testing.T, svc *plan.Service, slug, offerID string, features ...string) *plan.Plan {
	t.Helper()

	featuresJSON, err := json.Marshal(features)
	require.NoError(t, err)

	record, err := svc.CreatePlan(context.Background(), &plan.Plan{
		Slug:            slug,
		Name:            slug,
		PriceCents:      9900,
		ExternalOfferID: offerID,
		Features:        featuresJSON,
		Active:          true,
	})
	require.NoError(t, err)
	return record
}

func TestCreatePlan(t *testing.T) {
	svc, _ := newTestService(t)

	record, err := svc.CreatePlan(context.Background(), &plan.Plan{Name: "Plano Profissional"})
	require.NoError(t, err)
	require.Equal(t, "plano-profissional", record.Slug)

	_, err = svc.CreatePlan(context.Background(), &plan.Plan{Name: "Plano Profissional"})
	require.Error(t, err)

	_, err = svc.CreatePlan(context.Background(), &plan.Plan{})
	require.Error(t, err)
}

func TestGetAndListPlans(t *testing.T) {
	svc, _ := newTestService(t)

	seedPlan(t, svc, "essencial", "")
	seedPlan(t, svc, "pro", "offer-pro")

	plans, err := svc.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)

	record, err := svc.GetPlan(context.Background(), "pro")
	require.NoError(t, err)
	require.Equal(t, "offer-pro", record.ExternalOfferID)

	_, err = svc.GetPlan(context.Background(), "missing")
	require.Error(t, err)
}

func TestUpdatePlan_SlugImmutable(t *testing.T) {
	svc, _ := newTestService(t)

	seedPlan(t, svc, "pro", "")

	record, err := svc.UpdatePlan(context.Background(), "pro", &plan.Plan{Name: "Profissional", PriceCents: 14900, Active: true})
	require.NoError(t, err)
	require.Equal(t, "pro", record.Slug)
	require.Equal(t, "Profissional", record.Name)
	require.EqualValues(t, 14900, record.PriceCents)
}

func TestDeletePlan_RefusesWhenReferenced(t *testing.T) {
	svc, db := newTestService(t)

	seedPlan(t, svc, "pro", "")
	require.NoError(t, db.Create(&subscription.Subscription{
		TenantID: "tenant-1",
		PlanSlug: "pro",
		Status:   subscription.StatusActive,
	}).Error)

	err := svc.DeletePlan(context.Background(), "pro")
	require.Error(t, err)

	// Still listed.
	_, err = svc.GetPlan(context.Background(), "pro")
	require.NoError(t, err)

	require.NoError(t, db.Delete(&subscription.Subscription{}, "tenant_id = ?", "tenant-1").Error)
	require.NoError(t, svc.DeletePlan(context.Background(), "pro"))
}

func TestResolveOffer(t *testing.T) {
	svc, _ := newTestService(t)

	seedPlan(t, svc, "essencial", "")
	seedPlan(t, svc, "pro", "offer-pro")

	record, err := svc.ResolveOffer(context.Background(), "offer-pro")
	require.NoError(t, err)
	require.Equal(t, "pro", record.Slug)

	// Slug passthrough for gateways that carry it directly.
	record, err = svc.ResolveOffer(context.Background(), "pro")
	require.NoError(t, err)
	require.Equal(t, "pro", record.Slug)

	// Unmapped offers fall back to the default plan.
	record, err = svc.ResolveOffer(context.Background(), "offer-unknown")
	require.NoError(t, err)
	require.Equal(t, "essencial", record.Slug)

	record, err = svc.ResolveOffer(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "essencial", record.Slug)
}

func TestResolveOffer_SynthesisesMissingDefault(t *testing.T) {
	svc, _ := newTestService(t)

	record, err := svc.ResolveOffer(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "essencial", record.Slug)
}

func TestPlanFeatureSet(t *testing.T) {
	record := &plan.Plan{Features: datatypes.JSON(`["agenda","relatorios"]`)}
	require.True(t, record.HasFeature("agenda"))
	require.False(t, record.HasFeature("telemedicina"))
	require.Equal(t, []string{"agenda", "relatorios"}, record.FeatureSet())
}
