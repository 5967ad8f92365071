package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/db/option"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/db/pagination"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/errutil"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errUpdateConflict = errors.New("subscription row changed underneath the update")

// Store owns all writes to the subscriptions table. Writes are serialized per
// tenant via an optimistic compare-and-swap on updated_at; readers stay
// lock-free.
type Store struct {
	db     *gorm.DB
	node   *snowflake.Node
	repo   repository.Repository[Subscription]
	events repository.Repository[BillingEvent]
}

func NewStore(db *gorm.DB, node *snowflake.Node) *Store {
	return &Store{
		db:     db,
		node:   node,
		repo:   repository.ProvideStore[Subscription](db),
		events: repository.ProvideStore[BillingEvent](db),
	}
}

// Get returns the current record for a tenant, or nil when none exists.
func (s *Store) Get(ctx context.Context, tenantID string) (*Subscription, error) {
	return s.repo.FindOne(ctx, &Subscription{TenantID: tenantID})
}

// FindByExternalSubscription resolves a tenant from a previously stored
// gateway subscription id.
func (s *Store) FindByExternalSubscription(ctx context.Context, gateway Gateway, externalID string) (*Subscription, error) {
	if externalID == "" {
		return nil, nil
	}
	return s.repo.FindOne(ctx, &Subscription{Gateway: gateway, ExternalSubscriptionID: externalID})
}

// Apply reconciles the event against the tenant's record and persists the
// result with a conditional update. A lost race reloads and retries once;
// a second loss is logged and surfaced as a conflict.
func (s *Store) Apply(ctx context.Context, tenantID string, ev Event, payload []byte, now time.Time) (Outcome, error) {
	zapLog := zap.L().With(
		zap.String("tenant_id", tenantID),
		zap.String("event_kind", string(ev.Kind)),
		zap.String("external_transaction_id", ev.ExternalTransactionID),
	)

	for attempt := 0; attempt < 2; attempt++ {
		current, err := s.Get(ctx, tenantID)
		if err != nil {
			zapLog.Error("failed to load subscription", zap.Error(err))
			return "", errutil.Internal("failed to load subscription", err)
		}

		isNew := current == nil
		if isNew {
			current = &Subscription{
				TenantID:  tenantID,
				Status:    StatusNone,
				Gateway:   GatewayNone,
				CreatedAt: now,
			}
		}

		next, outcome := Reconcile(*current, ev, now)
		if outcome != OutcomeApplied {
			zapLog.Info("event not applied", zap.String("outcome", string(outcome)))
			return outcome, nil
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if isNew {
				if err := tx.Create(&next).Error; err != nil {
					return err
				}
			} else {
				res := tx.Model(&Subscription{}).
					Where("tenant_id = ? AND updated_at = ?", tenantID, current.UpdatedAt).
					Updates(map[string]any{
						"plan_slug":                next.PlanSlug,
						"status":                   next.Status,
						"period_start":             next.PeriodStart,
						"period_end":               next.PeriodEnd,
						"gateway":                  next.Gateway,
						"external_transaction_id":  next.ExternalTransactionID,
						"external_subscription_id": next.ExternalSubscriptionID,
						"updated_at":               next.UpdatedAt,
					})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return errUpdateConflict
				}
			}

			event := &BillingEvent{
				ID:                    s.node.Generate().String(),
				TenantID:              tenantID,
				Kind:                  ev.Kind,
				Gateway:               ev.Gateway,
				ExternalTransactionID: ev.ExternalTransactionID,
				PlanSlug:              next.PlanSlug,
				OccurredAt:            ev.OccurredAt,
				AppliedAt:             now,
				Payload:               payload,
			}

			return tx.Create(event).Error
		})

		if err == nil {
			return OutcomeApplied, nil
		}

		if errors.Is(err, errUpdateConflict) {
			zapLog.Warn("optimistic update lost the race, reloading", zap.Int("attempt", attempt+1))
			continue
		}

		zapLog.Error("failed to persist reconciled subscription", zap.Error(err))
		return "", errutil.Internal("failed to persist subscription", err)
	}

	zapLog.Error("optimistic update failed after retry")
	return "", errutil.Conflict("concurrent subscription update", errUpdateConflict)
}

// ListEvents pages through a tenant's billing event log, newest first. The
// cursor encodes the applied_at boundary of the previous page.
func (s *Store) ListEvents(ctx context.Context, tenantID string, p pagination.Pagination) ([]*BillingEvent, *pagination.PageInfo, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}

	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Field: "applied_at", OrderBy: "DESC"}),
		option.WithLimit(limit + 1),
	}

	if p.Cursor != "" {
		cursor, err := pagination.DecodeCursor(p.Cursor)
		if err != nil {
			return nil, nil, errutil.ValidationFailed("invalid cursor", err)
		}
		if boundary, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt); err == nil {
			opts = append(opts, func(tx *gorm.DB) *gorm.DB {
				return tx.Where("applied_at < ?", boundary)
			})
		}
	}

	records, err := s.events.Find(ctx, &BillingEvent{TenantID: tenantID}, opts...)
	if err != nil {
		zap.L().Error("failed to list billing events", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, nil, errutil.Internal("failed to list billing events", err)
	}

	pageInfo := pagination.BuildCursorPageInfo(records, limit, func(ev *BillingEvent) string {
		encoded, _ := pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: ev.AppliedAt.Format(time.RFC3339Nano),
			ID:        ev.ID,
		})
		return encoded
	})

	if len(records) > limit {
		records = records[:limit]
	}

	return records, pageInfo, nil
}
