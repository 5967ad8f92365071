package billing

import (
	"testing"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/services/subscription"

	"github.com/stretchr/testify/require"
)

func hotmartBody(event, email, transaction string) []byte {
	return []byte(`{
		"id": "delivery-1",
		"event": "` + event + `",
		"creation_date": 1750000000000,
		"data": {
			"buyer": {"email": "` + email + `"},
			"product": {"id": 12345},
			"purchase": {
				"transaction": "` + transaction + `",
				"status": "APPROVED",
				"offer": {"code": "offer-pro"}
			},
			"subscription": {"subscriber": {"code": "SUB-7"}}
		}
	}`)
}

func TestHotmartAuthenticate(t *testing.T) {
	a := hotmartAdapter{}

	require.True(t, a.Authenticate("tok-123", "tok-123"))
	require.False(t, a.Authenticate("tok-bad", "tok-123"))
	require.False(t, a.Authenticate("", "tok-123"))
	require.False(t, a.Authenticate("tok-123", ""))
}

func TestHotmartTranslate_EventMapping(t *testing.T) {
	cases := []struct {
		event string
		kind  subscription.EventKind
	}{
		{"PURCHASE_APPROVED", subscription.EventCheckoutCompleted},
		{"PURCHASE_COMPLETE", subscription.EventCheckoutCompleted},
		{"PURCHASE_CANCELED", subscription.EventSubscriptionCancelled},
		{"SUBSCRIPTION_CANCELLATION", subscription.EventSubscriptionCancelled},
		{"PURCHASE_REFUNDED", subscription.EventPaymentRefunded},
		{"PURCHASE_CHARGEBACK", subscription.EventPaymentRefunded},
		{"PURCHASE_DELAYED", subscription.EventPaymentDelayed},
		{"PURCHASE_EXPIRED", subscription.EventSubscriptionExpired},
	}

	a := hotmartAdapter{}
	for _, tc := range cases {
		t.Run(tc.event, func(t *testing.T) {
			ev, err := a.Translate(hotmartBody(tc.event, "Ana@Exemplo.com.br", "HP-1"))
			require.NoError(t, err)
			require.NotNil(t, ev)
			require.Equal(t, tc.kind, ev.Kind)
			require.Equal(t, "ana@exemplo.com.br", ev.ResolutionKey)
			require.Equal(t, "HP-1", ev.ExternalTransactionID)
			require.Equal(t, "SUB-7", ev.ExternalSubscriptionID)
			require.Equal(t, subscription.GatewayHotmart, ev.Gateway)
			require.Equal(t, time.UnixMilli(1750000000000).UTC(), ev.OccurredAt)
		})
	}
}

func TestHotmartTranslate_UnknownEventDropped(t *testing.T) {
	a := hotmartAdapter{}

	ev, err := a.Translate(hotmartBody("SWITCH_PLAN", "ana@exemplo.com.br", "HP-1"))
	require.NoError(t, err)
	require.Nil(t, ev)
}

func TestHotmartTranslate_ProductFilter(t *testing.T) {
	a := hotmartAdapter{productID: "99999"}

	ev, err := a.Translate(hotmartBody("PURCHASE_APPROVED", "ana@exemplo.com.br", "HP-1"))
	require.NoError(t, err)
	require.Nil(t, ev)

	a = hotmartAdapter{productID: "12345"}
	ev, err = a.Translate(hotmartBody("PURCHASE_APPROVED", "ana@exemplo.com.br", "HP-1"))
	require.NoError(t, err)
	require.NotNil(t, ev)
}

func TestHotmartTranslate_OfferCodeCarried(t *testing.T) {
	a := hotmartAdapter{}

	ev, err := a.Translate(hotmartBody("PURCHASE_APPROVED", "ana@exemplo.com.br", "HP-1"))
	require.NoError(t, err)
	require.Equal(t, "offer-pro", ev.PlanSlug)
}

func TestHotmartTranslate_Malformed(t *testing.T) {
	a := hotmartAdapter{}

	_, err := a.Translate([]byte(`{"event": PURCHASE`))
	require.Error(t, err)
}
