package billing

import (
	"testing"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/services/subscription"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const stripeTestSecret = "whsec_test_secret"

func signStripePayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Header
}

func stripeEnvelope(eventType, object string) []byte {
	return []byte(`{
		"id": "evt_1",
		"type": "` + eventType + `",
		"created": 1750000000,
		"data": {"object": ` + object + `}
	}`)
}

func TestStripeVerify(t *testing.T) {
	a := stripeAdapter{}
	payload := stripeEnvelope("checkout.session.completed", `{"id": "cs_1"}`)

	event, err := a.Verify(payload, signStripePayload(t, payload, stripeTestSecret), stripeTestSecret)
	require.NoError(t, err)
	require.Equal(t, "evt_1", event.ID)

	_, err = a.Verify(payload, signStripePayload(t, payload, "whsec_other_secret"), stripeTestSecret)
	require.Error(t, err)

	_, err = a.Verify(payload, "t=123,v1=deadbeef", stripeTestSecret)
	require.Error(t, err)
}

func TestStripeVerify_StaleTimestamp(t *testing.T) {
	a := stripeAdapter{}
	payload := stripeEnvelope("checkout.session.completed", `{"id": "cs_1"}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    stripeTestSecret,
		Timestamp: time.Now().Add(-time.Hour),
		Scheme:    "v1",
	})

	_, err := a.Verify(payload, signed.Header, stripeTestSecret)
	require.Error(t, err)
}

func TestStripeTranslate_CheckoutCompleted(t *testing.T) {
	a := stripeAdapter{}
	payload := stripeEnvelope("checkout.session.completed", `{
		"id": "cs_1",
		"subscription": "sub_1",
		"customer_details": {"email": "Ana@Exemplo.com.br"},
		"metadata": {"plan": "pro"}
	}`)

	event, err := a.Verify(payload, signStripePayload(t, payload, stripeTestSecret), stripeTestSecret)
	require.NoError(t, err)

	ev, err := a.Translate(event)
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Equal(t, subscription.EventCheckoutCompleted, ev.Kind)
	require.Equal(t, "ana@exemplo.com.br", ev.ResolutionKey)
	require.Equal(t, "pro", ev.PlanSlug)
	require.Equal(t, "evt_1", ev.ExternalTransactionID)
	require.Equal(t, "sub_1", ev.ExternalSubscriptionID)
	require.Equal(t, subscription.GatewayStripe, ev.Gateway)
	require.Equal(t, time.Unix(1750000000, 0).UTC(), ev.OccurredAt)
}

func TestStripeTranslate_InvoicePaid(t *testing.T) {
	a := stripeAdapter{}
	payload := stripeEnvelope("invoice.paid", `{
		"id": "in_1",
		"subscription": "sub_1",
		"customer_email": "ana@exemplo.com.br",
		"period_end": 1752600000
	}`)

	event, err := a.Verify(payload, signStripePayload(t, payload, stripeTestSecret), stripeTestSecret)
	require.NoError(t, err)

	ev, err := a.Translate(event)
	require.NoError(t, err)
	require.Equal(t, subscription.EventInvoicePaid, ev.Kind)
	require.NotNil(t, ev.RenewalAt)
	require.Equal(t, time.Unix(1752600000, 0).UTC(), *ev.RenewalAt)
}

func TestStripeTranslate_SubscriptionDeleted(t *testing.T) {
	a := stripeAdapter{}
	payload := stripeEnvelope("customer.subscription.deleted", `{"id": "sub_1"}`)

	event, err := a.Verify(payload, signStripePayload(t, payload, stripeTestSecret), stripeTestSecret)
	require.NoError(t, err)

	ev, err := a.Translate(event)
	require.NoError(t, err)
	require.Equal(t, subscription.EventSubscriptionCancelled, ev.Kind)
	require.Equal(t, "sub_1", ev.ExternalSubscriptionID)
	require.Empty(t, ev.ResolutionKey)
}

func TestStripeTranslate_UnknownTypeDropped(t *testing.T) {
	a := stripeAdapter{}
	payload := stripeEnvelope("customer.created", `{"id": "cus_1"}`)

	event, err := a.Verify(payload, signStripePayload(t, payload, stripeTestSecret), stripeTestSecret)
	require.NoError(t, err)

	ev, err := a.Translate(event)
	require.NoError(t, err)
	require.Nil(t, ev)
}
