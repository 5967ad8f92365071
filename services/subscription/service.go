package subscription

import (
	"context"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/config"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	config *config.Config
	store  *Store
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		config: p.Config,
		store:  NewStore(p.DB, p.Node),
	}
}

func (s *Service) Store() *Store {
	return s.store
}

func traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	return []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	}
}

// NewTrial builds the record created at tenant registration. Callers persist
// it inside the registration transaction.
func (s *Service) NewTrial(tenantID string, now time.Time) *Subscription {
	trialEnd := now.AddDate(0, 0, s.config.Billing.TrialDays)
	return &Subscription{
		TenantID:    tenantID,
		PlanSlug:    s.config.Billing.DefaultPlan,
		Status:      StatusTrial,
		TrialEnd:    &trialEnd,
		PeriodStart: now,
		Gateway:     GatewayNone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CheckAccess answers "does this tenant have paid access right now". It is a
// pure function of the stored record and the clock: every call reads fresh,
// nothing is cached, and a missing record fails closed.
func (s *Service) CheckAccess(ctx context.Context, tenantID string, now time.Time) (Entitlement, error) {
	record, err := s.store.Get(ctx, tenantID)
	if err != nil {
		zap.L().With(traceFields(ctx)...).Error("failed to read subscription", zap.Error(err))
		return Entitlement{}, errutil.Internal("failed to read subscription", err)
	}

	if record == nil {
		return Entitlement{Granted: false, Reason: "no_subscription"}, nil
	}

	ent := Entitlement{PlanSlug: record.PlanSlug}

	switch record.Status {
	case StatusTrial:
		if record.TrialEnd != nil && now.Before(*record.TrialEnd) {
			ent.Granted = true
			return ent, nil
		}
		ent.Reason = "trial_expired"

	case StatusActive:
		if record.PeriodEnd != nil && now.Before(*record.PeriodEnd) {
			ent.Granted = true
			return ent, nil
		}
		ent.Reason = "period_ended"

	default:
		ent.Reason = record.Status.String()
		if ent.Reason == "" {
			ent.Reason = "no_subscription"
		}
	}

	return ent, nil
}

// ExtendTrial grants a courtesy trial extension. This is the only code path
// that moves trial_end; webhooks never do.
func (s *Service) ExtendTrial(ctx context.Context, tenantID string, days int, now time.Time) (*Subscription, error) {
	zapLog := zap.L().With(traceFields(ctx)...)

	if days <= 0 {
		return nil, errutil.ValidationFailed("extension days must be positive", nil)
	}

	record, err := s.store.Get(ctx, tenantID)
	if err != nil {
		zapLog.Error("failed to read subscription", zap.Error(err))
		return nil, errutil.Internal("failed to read subscription", err)
	}

	if record == nil {
		return nil, errutil.NotFound("subscription not found", nil)
	}

	// Extend from whichever is later: the clock or the old boundary. An
	// expired tenant gets the full grant from now.
	base := now
	if record.TrialEnd != nil && record.TrialEnd.After(now) {
		base = *record.TrialEnd
	}
	trialEnd := base.AddDate(0, 0, days)

	values := map[string]any{
		"status":     StatusTrial,
		"trial_end":  trialEnd,
		"updated_at": advanceUpdatedAt(record.UpdatedAt, now),
	}

	if err := s.db.WithContext(ctx).Model(&Subscription{}).Where("tenant_id = ?", tenantID).Updates(values).Error; err != nil {
		zapLog.Error("failed to extend trial", zap.Error(err))
		return nil, errutil.Internal("failed to extend trial", err)
	}

	zapLog.Info("trial extended",
		zap.String("tenant_id", tenantID),
		zap.Int("days", days),
		zap.Time("trial_end", trialEnd))

	return s.store.Get(ctx, tenantID)
}

// AdminUpdate applies a manual plan/status edit. Bypasses the event guards
// on purpose: an operator fixing a record must always win.
func (s *Service) AdminUpdate(ctx context.Context, tenantID string, planSlug string, status Status, now time.Time) (*Subscription, error) {
	zapLog := zap.L().With(traceFields(ctx)...)

	record, err := s.store.Get(ctx, tenantID)
	if err != nil {
		zapLog.Error("failed to read subscription", zap.Error(err))
		return nil, errutil.Internal("failed to read subscription", err)
	}

	if record == nil {
		return nil, errutil.NotFound("subscription not found", nil)
	}

	values := map[string]any{
		"updated_at": advanceUpdatedAt(record.UpdatedAt, now),
	}
	if planSlug != "" {
		values["plan_slug"] = planSlug
	}
	if status != "" {
		if status.String() == "" {
			return nil, errutil.ValidationFailed("unknown subscription status", nil)
		}
		values["status"] = status
	}

	if err := s.db.WithContext(ctx).Model(&Subscription{}).Where("tenant_id = ?", tenantID).Updates(values).Error; err != nil {
		zapLog.Error("failed to update subscription", zap.Error(err))
		return nil, errutil.Internal("failed to update subscription", err)
	}

	zapLog.Info("subscription manually updated",
		zap.String("tenant_id", tenantID),
		zap.String("plan_slug", planSlug),
		zap.String("status", status.String()))

	return s.store.Get(ctx, tenantID)
}
