package subscription

import "time"

// EventKind is the canonical, vendor-agnostic transition taxonomy. Adapters
// map their gateway's event names onto these; the reconciler knows nothing
// about either gateway.
type EventKind string

var (
	EventCheckoutCompleted     EventKind = "checkout_completed"
	EventInvoicePaid           EventKind = "invoice_paid"
	EventSubscriptionCancelled EventKind = "subscription_cancelled"
	EventPaymentRefunded       EventKind = "payment_refunded"
	EventPaymentDelayed        EventKind = "payment_delayed"
	EventSubscriptionExpired   EventKind = "subscription_expired"
)

// Revokes reports whether the kind is a revocation-class event. Revocations
// bypass the out-of-order guard: losing access late beats keeping it wrongly.
func (k EventKind) Revokes() bool {
	return k == EventSubscriptionCancelled || k == EventPaymentRefunded
}

// Event is the normalized form every webhook is reduced to before it reaches
// the reconciler. It is transient; only its application is persisted.
type Event struct {
	// ResolutionKey is the buyer email (lowercase) or an external
	// subscription id previously stored on the record.
	ResolutionKey          string
	Kind                   EventKind
	PlanSlug               string
	ExternalTransactionID  string
	ExternalSubscriptionID string
	OccurredAt             time.Time
	Gateway                Gateway
	// RenewalAt carries the provider-reported next-charge date for grant
	// events when present; the reconciler falls back to a fixed cycle length
	// without it.
	RenewalAt *time.Time
}
