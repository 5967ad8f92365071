package billing

import (
	"context"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/config"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/errutil"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/task"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/plan"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/subscription"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/tenant"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the gateway-agnostic half of webhook processing: adapters
// authenticate and translate, Process resolves and applies.
type Service struct {
	db       *gorm.DB
	config   *config.Config
	tenants  *tenant.Service
	plans    *plan.Service
	store    *subscription.Store
	enqueuer task.Enqueuer

	stripe  stripeAdapter
	hotmart hotmartAdapter
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Config   *config.Config
	Tenants  *tenant.Service
	Plans    *plan.Service
	Store    *subscription.Store
	Enqueuer task.Enqueuer `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		config:   p.Config,
		tenants:  p.Tenants,
		plans:    p.Plans,
		store:    p.Store,
		enqueuer: p.Enqueuer,
		stripe:   stripeAdapter{},
		hotmart:  hotmartAdapter{productID: p.Config.Billing.HotmartProductID},
	}
}

func traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	return []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	}
}

// Process runs a canonical event through tenant resolution, plan resolution
// and reconciliation, then queues side effects. An event that cannot be tied
// to a tenant is logged and dropped without error so the gateway stops
// retrying; a delivery for an unknown buyer will never become applicable.
func (s *Service) Process(ctx context.Context, ev subscription.Event, payload []byte, now time.Time) error {
	zapLog := zap.L().With(traceFields(ctx)...).With(
		zap.String("gateway", string(ev.Gateway)),
		zap.String("event_kind", string(ev.Kind)),
		zap.String("external_transaction_id", ev.ExternalTransactionID),
	)

	tenantID, email, err := s.resolveTenant(ctx, ev)
	if err != nil {
		return err
	}

	if tenantID == "" {
		zapLog.Warn("webhook event did not resolve to a tenant, dropping",
			zap.String("resolution_key", ev.ResolutionKey),
			zap.String("external_subscription_id", ev.ExternalSubscriptionID),
		)
		return nil
	}

	zapLog = zapLog.With(zap.String("tenant_id", tenantID))

	switch ev.Kind {
	case subscription.EventCheckoutCompleted, subscription.EventInvoicePaid:
		record, err := s.plans.ResolveOffer(ctx, ev.PlanSlug)
		if err != nil {
			return err
		}
		ev.PlanSlug = record.Slug
	default:
		// Non-grant events keep whatever plan is on record.
		ev.PlanSlug = ""
	}

	outcome, err := s.store.Apply(ctx, tenantID, ev, payload, now)
	if err != nil {
		return err
	}

	zapLog.Info("webhook event processed", zap.String("outcome", string(outcome)))

	if outcome == subscription.OutcomeApplied && s.enqueuer != nil &&
		(ev.Kind == subscription.EventCheckoutCompleted || ev.Kind == subscription.EventInvoicePaid) {
		s.enqueueSideEffects(ctx, tenantID, email, ev)
	}

	return nil
}

// resolveTenant identifies the account an event belongs to. The stored
// external subscription id wins; buyer email is the fallback for first
// contact with a gateway subscription.
func (s *Service) resolveTenant(ctx context.Context, ev subscription.Event) (tenantID, email string, err error) {
	if ev.ExternalSubscriptionID != "" {
		record, err := s.store.FindByExternalSubscription(ctx, ev.Gateway, ev.ExternalSubscriptionID)
		if err != nil {
			return "", "", errutil.Internal("failed to resolve tenant by subscription id", err)
		}
		if record != nil {
			if owner, err := s.tenants.GetTenant(ctx, record.TenantID); err == nil {
				return record.TenantID, owner.Email, nil
			}
			return record.TenantID, ev.ResolutionKey, nil
		}
	}

	if ev.ResolutionKey == "" {
		return "", "", nil
	}

	record, err := s.tenants.FindByEmail(ctx, ev.ResolutionKey)
	if err != nil {
		return "", "", err
	}
	if record == nil {
		return "", "", nil
	}

	return record.ID, record.Email, nil
}

// CheckoutURL exposes the configured checkout entry point for the frontend.
func (s *Service) CheckoutURL(ctx context.Context) (string, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return "", err
	}
	return settings.CheckoutURL, nil
}
