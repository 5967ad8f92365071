package subscription

import "time"

// Outcome reports what Reconcile did with an event.
type Outcome string

var (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeStale     Outcome = "stale"
)

// defaultPeriod approximates one billing cycle when the provider does not
// report a renewal date.
const defaultPeriod = 30 * 24 * time.Hour

// Reconcile applies a canonical event to the current record and returns the
// next one. It is a pure function: persistence, retries and logging belong to
// the Store.
//
// Guards, in order:
//   - an event whose external transaction id matches the last applied one is
//     a redelivery and a no-op;
//   - an event older than the record's updated_at is stale and ignored,
//     unless it revokes access (cancellation/refund always win — deliberate
//     bias toward revocation over continued access).
//
// TrialEnd is never touched here; only an explicit admin grant moves it.
func Reconcile(current Subscription, ev Event, now time.Time) (Subscription, Outcome) {
	if ev.ExternalTransactionID != "" && ev.ExternalTransactionID == current.ExternalTransactionID {
		return current, OutcomeDuplicate
	}

	if !ev.OccurredAt.IsZero() && ev.OccurredAt.Before(current.UpdatedAt) && !ev.Kind.Revokes() {
		return current, OutcomeStale
	}

	next := current

	switch ev.Kind {
	case EventCheckoutCompleted:
		next.Status = StatusActive
		if ev.PlanSlug != "" {
			next.PlanSlug = ev.PlanSlug
		}
		next.PeriodStart = now
		end := now.Add(defaultPeriod)
		if ev.RenewalAt != nil {
			end = *ev.RenewalAt
		}
		next.PeriodEnd = &end

	case EventInvoicePaid:
		next.Status = StatusActive
		if ev.PlanSlug != "" && next.PlanSlug == "" {
			next.PlanSlug = ev.PlanSlug
		}
		end := now.Add(defaultPeriod)
		if ev.RenewalAt != nil {
			end = *ev.RenewalAt
		}
		next.PeriodEnd = &end

	case EventSubscriptionCancelled:
		// Revokes immediately rather than at period end. Kept from the
		// original product behaviour; pending product confirmation.
		next.Status = StatusCancelled

	case EventPaymentRefunded:
		next.Status = StatusRefunded

	case EventPaymentDelayed:
		next.Status = StatusOverdue

	case EventSubscriptionExpired:
		next.Status = StatusExpired

	default:
		return current, OutcomeStale
	}

	if ev.Gateway != "" {
		next.Gateway = ev.Gateway
	}
	if ev.ExternalTransactionID != "" {
		next.ExternalTransactionID = ev.ExternalTransactionID
	}
	if ev.ExternalSubscriptionID != "" {
		next.ExternalSubscriptionID = ev.ExternalSubscriptionID
	}

	next.UpdatedAt = advanceUpdatedAt(current.UpdatedAt, now)

	return next, OutcomeApplied
}

// advanceUpdatedAt keeps updated_at strictly increasing even when the clock
// reads at or before the last write. Every writer goes through this; a
// backward move would blind the ordering guard for the next event.
func advanceUpdatedAt(current, now time.Time) time.Time {
	if now.After(current) {
		return now
	}
	return current.Add(time.Millisecond)
}
