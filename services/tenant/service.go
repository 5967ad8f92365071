package tenant

import (
	"context"
	"strings"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/config"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/errutil"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/repository"
	"github.com/willianpedrom/saude-essencial-backend-sub000/services/subscription"

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
	subs   *subscription.Service
	repo   repository.Repository[Tenant]
}

type ServiceParams struct {
	fx.In
	DB            *gorm.DB
	Node          *snowflake.Node
	Config        *config.Config
	Subscriptions *subscription.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		config: p.Config,
		subs:   p.Subscriptions,
		repo:   repository.ProvideStore[Tenant](p.DB),
	}
}

func traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	return []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	}
}

// Register creates the account and its trial subscription in one
// transaction. Every tenant owns exactly one subscription record from the
// moment it exists.
func (s *Service) Register(ctx context.Context, email, name string) (*Tenant, error) {
	zapLog := zap.L().With(traceFields(ctx)...)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errutil.ValidationFailed("email is required", nil)
	}

	exist, err := s.repo.FindOne(ctx, &Tenant{Email: email})
	if err != nil {
		zapLog.Error("failed query get tenant by email", zap.Error(err))
		return nil, errutil.Internal("failed to check existing tenant", err)
	}

	if exist != nil {
		zapLog.Warn("tenant already exists", zap.String("email", email))
		return nil, errutil.Conflict("tenant already exists", nil)
	}

	tenantID := s.node.Generate().String()
	now := time.Now()

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := &Tenant{
			ID:        tenantID,
			Email:     email,
			Name:      name,
			Role:      RoleProfessional,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := tx.Create(record).Error; err != nil {
			return err
		}

		return tx.Create(s.subs.NewTrial(tenantID, now)).Error
	}); err != nil {
		zapLog.Error("failed to register tenant", zap.Error(err))
		return nil, errutil.Internal("failed to register tenant", err)
	}

	return s.GetTenant(ctx, tenantID)
}

func (s *Service) GetTenant(ctx context.Context, tenantID string) (*Tenant, error) {
	record, err := s.repo.FindOne(ctx, &Tenant{ID: tenantID})
	if err != nil {
		zap.L().With(traceFields(ctx)...).Error("failed query get tenant by id", zap.Error(err))
		return nil, errutil.Internal("failed to get tenant", err)
	}

	if record == nil {
		return nil, errutil.NotFound("tenant not found", nil)
	}

	return record, nil
}

// FindByEmail resolves a tenant from a buyer email, case-insensitively.
// Returns (nil, nil) when no account matches.
func (s *Service) FindByEmail(ctx context.Context, email string) (*Tenant, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	record, err := s.repo.FindOne(ctx, &Tenant{Email: email})
	if err != nil {
		zap.L().With(traceFields(ctx)...).Error("failed query get tenant by email", zap.Error(err))
		return nil, errutil.Internal("failed to get tenant", err)
	}

	return record, nil
}

// Delete removes the account and cascades to its subscription record.
func (s *Service) Delete(ctx context.Context, tenantID string) error {
	zapLog := zap.L().With(traceFields(ctx)...)

	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&subscription.Subscription{}, "tenant_id = ?", tenantID).Error; err != nil {
			return err
		}
		return tx.Delete(&Tenant{}, "id = ?", tenantID).Error
	}); err != nil {
		zapLog.Error("failed to delete tenant", zap.Error(err))
		return errutil.Internal("failed to delete tenant", err)
	}

	return nil
}
