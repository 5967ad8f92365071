package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func activeRecord() Subscription {
	periodEnd := baseTime.Add(20 * 24 * time.Hour)
	return Subscription{
		TenantID:              "tenant-1",
		PlanSlug:              "pro",
		Status:                StatusActive,
		PeriodStart:           baseTime.Add(-10 * 24 * time.Hour),
		PeriodEnd:             &periodEnd,
		Gateway:               GatewayHotmart,
		ExternalTransactionID: "HP-100",
		UpdatedAt:             baseTime,
	}
}

func TestReconcile_CheckoutActivates(t *testing.T) {
	now := baseTime.Add(time.Hour)
	current := Subscription{
		TenantID:  "tenant-1",
		Status:    StatusTrial,
		PlanSlug:  "essencial",
		UpdatedAt: baseTime,
	}

	ev := Event{
		Kind:                  EventCheckoutCompleted,
		PlanSlug:              "pro",
		ExternalTransactionID: "HP-200",
		OccurredAt:            now,
		Gateway:               GatewayHotmart,
	}

	next, outcome := Reconcile(current, ev, now)
	require.Equal(t, OutcomeApplied, outcome)
	require.Equal(t, StatusActive, next.Status)
	require.Equal(t, "pro", next.PlanSlug)
	require.Equal(t, "HP-200", next.ExternalTransactionID)
	require.Equal(t, now, next.PeriodStart)
	require.NotNil(t, next.PeriodEnd)
	require.Equal(t, now.Add(30*24*time.Hour), *next.PeriodEnd)
}

func TestReconcile_CheckoutHonoursProviderRenewalDate(t *testing.T) {
	now := baseTime.Add(time.Hour)
	renewal := now.Add(365 * 24 * time.Hour)

	ev := Event{
		Kind:                  EventCheckoutCompleted,
		PlanSlug:              "pro",
		ExternalTransactionID: "HP-201",
		OccurredAt:            now,
		Gateway:               GatewayHotmart,
		RenewalAt:             &renewal,
	}

	next, outcome := Reconcile(Subscription{TenantID: "tenant-1", UpdatedAt: baseTime}, ev, now)
	require.Equal(t, OutcomeApplied, outcome)
	require.Equal(t, renewal, *next.PeriodEnd)
}

func TestReconcile_DuplicateTransactionIsNoop(t *testing.T) {
	current := activeRecord()

	ev := Event{
		Kind:                  EventCheckoutCompleted,
		ExternalTransactionID: "HP-100",
		OccurredAt:            baseTime.Add(time.Hour),
	}

	next, outcome := Reconcile(current, ev, baseTime.Add(time.Hour))
	require.Equal(t, OutcomeDuplicate, outcome)
	require.Equal(t, current, next)
}

func TestReconcile_StaleGrantIsIgnored(t *testing.T) {
	current := activeRecord()

	ev := Event{
		Kind:                  EventInvoicePaid,
		ExternalTransactionID: "HP-050",
		OccurredAt:            baseTime.Add(-time.Hour),
	}

	next, outcome := Reconcile(current, ev, baseTime.Add(time.Minute))
	require.Equal(t, OutcomeStale, outcome)
	require.Equal(t, current, next)
}

func TestReconcile_StaleRevocationStillWins(t *testing.T) {
	current := activeRecord()

	ev := Event{
		Kind:                  EventPaymentRefunded,
		ExternalTransactionID: "HP-099",
		OccurredAt:            baseTime.Add(-time.Hour),
		Gateway:               GatewayHotmart,
	}

	next, outcome := Reconcile(current, ev, baseTime.Add(time.Minute))
	require.Equal(t, OutcomeApplied, outcome)
	require.Equal(t, StatusRefunded, next.Status)
}

func TestReconcile_CancellationRevokesImmediately(t *testing.T) {
	current := activeRecord()

	ev := Event{
		Kind:                  EventSubscriptionCancelled,
		ExternalTransactionID: "HP-101",
		OccurredAt:            baseTime.Add(time.Hour),
		Gateway:               GatewayHotmart,
	}

	next, outcome := Reconcile(current, ev, baseTime.Add(time.Hour))
	require.Equal(t, OutcomeApplied, outcome)
	require.Equal(t, StatusCancelled, next.Status)
	// Plan stays on record for reporting.
	require.Equal(t, "pro", next.PlanSlug)
}

func TestReconcile_InvoicePaidExtendsPeriod(t *testing.T) {
	current := activeRecord()
	now := baseTime.Add(time.Hour)
	renewal := now.Add(30 * 24 * time.Hour)

	ev := Event{
		Kind:                  EventInvoicePaid,
		ExternalTransactionID: "HP-102",
		OccurredAt:            now,
		RenewalAt:             &renewal,
	}

	next, outcome := Reconcile(current, ev, now)
	require.Equal(t, OutcomeApplied, outcome)
	require.Equal(t, StatusActive, next.Status)
	require.Equal(t, renewal, *next.PeriodEnd)
}

func TestReconcile_DelayedAndExpired(t *testing.T) {
	cases := []struct {
		kind EventKind
		want Status
	}{
		{EventPaymentDelayed, StatusOverdue},
		{EventSubscriptionExpired, StatusExpired},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			current := activeRecord()
			now := baseTime.Add(time.Hour)

			ev := Event{
				Kind:                  tc.kind,
				ExternalTransactionID: "HP-" + string(tc.kind),
				OccurredAt:            now,
			}

			next, outcome := Reconcile(current, ev, now)
			require.Equal(t, OutcomeApplied, outcome)
			require.Equal(t, tc.want, next.Status)
		})
	}
}

func TestReconcile_TrialEndNeverTouched(t *testing.T) {
	trialEnd := baseTime.Add(7 * 24 * time.Hour)
	current := Subscription{
		TenantID:  "tenant-1",
		Status:    StatusTrial,
		PlanSlug:  "essencial",
		TrialEnd:  &trialEnd,
		UpdatedAt: baseTime,
	}

	now := baseTime.Add(time.Hour)
	ev := Event{
		Kind:                  EventCheckoutCompleted,
		PlanSlug:              "pro",
		ExternalTransactionID: "HP-300",
		OccurredAt:            now,
	}

	next, outcome := Reconcile(current, ev, now)
	require.Equal(t, OutcomeApplied, outcome)
	require.Equal(t, &trialEnd, next.TrialEnd)
}

func TestReconcile_UpdatedAtAlwaysAdvances(t *testing.T) {
	current := activeRecord()

	// Same wall clock as the record; the guard token must still move.
	ev := Event{
		Kind:                  EventPaymentRefunded,
		ExternalTransactionID: "HP-400",
		OccurredAt:            baseTime,
	}

	next, outcome := Reconcile(current, ev, baseTime)
	require.Equal(t, OutcomeApplied, outcome)
	require.True(t, next.UpdatedAt.After(current.UpdatedAt))
}
