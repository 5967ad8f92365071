package plan

import (
	"context"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/config"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/errutil"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/repository"

	"github.com/gosimple/slug"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	config *config.Config
	repo   repository.Repository[Plan]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		config: p.Config,
		repo:   repository.ProvideStore[Plan](p.DB),
	}
}

func traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	return []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	}
}

func (s *Service) ListPlans(ctx context.Context) ([]*Plan, error) {
	plans, err := s.repo.Find(ctx, &Plan{})
	if err != nil {
		zap.L().With(traceFields(ctx)...).Error("failed to list plans", zap.Error(err))
		return nil, errutil.Internal("failed to list plans", err)
	}

	return plans, nil
}

func (s *Service) GetPlan(ctx context.Context, slugName string) (*Plan, error) {
	record, err := s.repo.FindOne(ctx, &Plan{Slug: slugName})
	if err != nil {
		zap.L().With(traceFields(ctx)...).Error("failed query get plan by slug", zap.Error(err))
		return nil, errutil.Internal("failed to get plan", err)
	}

	if record == nil {
		return nil, errutil.NotFound("plan not found", nil)
	}

	return record, nil
}

func (s *Service) CreatePlan(ctx context.Context, in *Plan) (*Plan, error) {
	zapLog := zap.L().With(traceFields(ctx)...)

	if in.Name == "" {
		return nil, errutil.ValidationFailed("plan name is required", nil)
	}

	if in.Slug == "" {
		in.Slug = slug.Make(in.Name)
	}

	exist, err := s.repo.FindOne(ctx, &Plan{Slug: in.Slug})
	if err != nil {
		zapLog.Error("failed query get plan by slug", zap.Error(err))
		return nil, errutil.Internal("failed to check existing plan", err)
	}

	if exist != nil {
		zapLog.Warn("plan already exists", zap.String("slug", in.Slug))
		return nil, errutil.Conflict("plan already exists", nil)
	}

	now := time.Now()
	in.CreatedAt = now
	in.UpdatedAt = now

	if err := s.repo.Create(ctx, in); err != nil {
		zapLog.Error("failed to create plan", zap.Error(err))
		return nil, errutil.Internal("failed to create plan", err)
	}

	return in, nil
}

// UpdatePlan mutates everything except the slug, which is the plan's
// immutable identity.
func (s *Service) UpdatePlan(ctx context.Context, slugName string, in *Plan) (*Plan, error) {
	zapLog := zap.L().With(traceFields(ctx)...)

	record, err := s.GetPlan(ctx, slugName)
	if err != nil {
		return nil, err
	}

	values := map[string]any{
		"updated_at": time.Now(),
	}
	if in.Name != "" {
		values["name"] = in.Name
	}
	if in.PriceCents > 0 {
		values["price_cents"] = in.PriceCents
	}
	if in.Currency != "" {
		values["currency"] = in.Currency
	}
	if len(in.Limits) > 0 {
		values["limits"] = in.Limits
	}
	if len(in.Features) > 0 {
		values["features"] = in.Features
	}
	if in.ExternalOfferID != "" {
		values["external_offer_id"] = in.ExternalOfferID
	}
	values["active"] = in.Active

	if err := s.db.WithContext(ctx).Model(&Plan{}).Where("slug = ?", record.Slug).Updates(values).Error; err != nil {
		zapLog.Error("failed to update plan", zap.Error(err))
		return nil, errutil.Internal("failed to update plan", err)
	}

	return s.GetPlan(ctx, slugName)
}

// DeletePlan refuses to remove a plan that any subscription still references.
func (s *Service) DeletePlan(ctx context.Context, slugName string) error {
	zapLog := zap.L().With(traceFields(ctx)...)

	record, err := s.GetPlan(ctx, slugName)
	if err != nil {
		return err
	}

	var referenced int64
	if err := s.db.WithContext(ctx).Table("subscriptions").Where("plan_slug = ?", record.Slug).Count(&referenced).Error; err != nil {
		zapLog.Error("failed to count plan references", zap.Error(err))
		return errutil.Internal("failed to delete plan", err)
	}

	if referenced > 0 {
		zapLog.Warn("refusing to delete referenced plan", zap.String("slug", record.Slug), zap.Int64("references", referenced))
		return errutil.PlanInUse("plan is referenced by active subscriptions", nil)
	}

	if err := s.db.WithContext(ctx).Delete(&Plan{}, "slug = ?", record.Slug).Error; err != nil {
		zapLog.Error("failed to delete plan", zap.Error(err))
		return errutil.Internal("failed to delete plan", err)
	}

	return nil
}

// ResolveOffer maps a gateway product/offer code onto a plan. Unmapped offers
// fall back to the configured default plan; an event must never be dropped
// because the catalog lags behind the gateway.
func (s *Service) ResolveOffer(ctx context.Context, offerID string) (*Plan, error) {
	zapLog := zap.L().With(traceFields(ctx)...)

	if offerID != "" {
		record, err := s.repo.FindOne(ctx, &Plan{ExternalOfferID: offerID})
		if err != nil {
			zapLog.Error("failed query plan by offer id", zap.Error(err))
			return nil, errutil.Internal("failed to resolve offer", err)
		}
		if record != nil {
			return record, nil
		}

		// Stripe checkout metadata carries the slug directly.
		record, err = s.repo.FindOne(ctx, &Plan{Slug: offerID})
		if err != nil {
			zapLog.Error("failed query plan by slug", zap.Error(err))
			return nil, errutil.Internal("failed to resolve offer", err)
		}
		if record != nil {
			return record, nil
		}

		zapLog.Warn("offer id not mapped to any plan, falling back to default",
			zap.String("offer_id", offerID),
			zap.String("default_plan", s.config.Billing.DefaultPlan))
	}

	record, err := s.repo.FindOne(ctx, &Plan{Slug: s.config.Billing.DefaultPlan})
	if err != nil {
		zapLog.Error("failed query default plan", zap.Error(err))
		return nil, errutil.Internal("failed to resolve offer", err)
	}

	if record == nil {
		// Catalog misconfiguration; synthesise the slug so reconciliation
		// still proceeds and the gap is visible in the data.
		zapLog.Warn("default plan missing from catalog", zap.String("slug", s.config.Billing.DefaultPlan))
		return &Plan{Slug: s.config.Billing.DefaultPlan}, nil
	}

	return record, nil
}
