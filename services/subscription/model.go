package subscription

import (
	"time"

	"gorm.io/datatypes"
)

type Status string

var (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusRefunded  Status = "refunded"
	StatusNone      Status = "none"
)

func (s Status) String() string {
	switch s {
	case StatusTrial, StatusActive, StatusOverdue, StatusCancelled, StatusExpired, StatusRefunded, StatusNone:
		return string(s)
	default:
		return ""
	}
}

type Gateway string

var (
	GatewayStripe  Gateway = "stripe"
	GatewayHotmart Gateway = "hotmart"
	GatewayNone    Gateway = "none"
)

// Subscription is the single authoritative entitlement record per tenant.
// UpdatedAt doubles as the out-of-order guard and the optimistic lock token:
// it advances with every applied event and writes are conditional on it.
type Subscription struct {
	TenantID               string     `gorm:"column:tenant_id;primaryKey" json:"tenant_id"`
	PlanSlug               string     `gorm:"column:plan_slug;index" json:"plan_slug"`
	Status                 Status     `gorm:"column:status" json:"status"`
	TrialEnd               *time.Time `gorm:"column:trial_end" json:"trial_end"`
	PeriodStart            time.Time  `gorm:"column:period_start" json:"period_start"`
	PeriodEnd              *time.Time `gorm:"column:period_end" json:"period_end"`
	Gateway                Gateway    `gorm:"column:gateway;default:'none'" json:"gateway"`
	ExternalTransactionID  string     `gorm:"column:external_transaction_id" json:"external_transaction_id"`
	ExternalSubscriptionID string     `gorm:"column:external_subscription_id;index" json:"external_subscription_id"`
	CreatedAt              time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// BillingEvent is the append-only log row written alongside every applied
// canonical event. The subscription row stays the current-state projection;
// this log exists for dispute resolution and is never read on the hot path.
type BillingEvent struct {
	ID                    string         `gorm:"column:id;primaryKey" json:"id"`
	TenantID              string         `gorm:"column:tenant_id;index" json:"tenant_id"`
	Kind                  EventKind      `gorm:"column:kind" json:"kind"`
	Gateway               Gateway        `gorm:"column:gateway" json:"gateway"`
	ExternalTransactionID string         `gorm:"column:external_transaction_id" json:"external_transaction_id"`
	PlanSlug              string         `gorm:"column:plan_slug" json:"plan_slug"`
	OccurredAt            time.Time      `gorm:"column:occurred_at" json:"occurred_at"`
	AppliedAt             time.Time      `gorm:"column:applied_at" json:"applied_at"`
	Payload               datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
}

func (BillingEvent) TableName() string {
	return "billing_events"
}

// Entitlement is the resolved access decision for a tenant at a point in time.
type Entitlement struct {
	Granted  bool   `json:"granted"`
	PlanSlug string `json:"plan_slug"`
	Reason   string `json:"reason"`
}
