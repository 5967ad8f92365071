package billing

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/services/subscription"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeAdapter turns signed Stripe webhook deliveries into canonical events.
// Signature verification covers the raw body; the payload is never trusted
// before the check passes.
type stripeAdapter struct{}

type stripeCheckoutSession struct {
	ID              string `json:"id"`
	Subscription    string `json:"subscription"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

type stripeInvoice struct {
	ID            string `json:"id"`
	Subscription  string `json:"subscription"`
	CustomerEmail string `json:"customer_email"`
	PeriodEnd     int64  `json:"period_end"`
}

type stripeSubscription struct {
	ID string `json:"id"`
}

// Verify checks the Stripe-Signature header against the shared secret and
// returns the decoded envelope. The signature timestamp must fall within the
// verifier's five-minute replay window.
func (a stripeAdapter) Verify(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// Translate maps a verified Stripe event onto the canonical taxonomy. A nil
// event with nil error means the type is not one we act on and the delivery
// should be acknowledged and dropped.
func (a stripeAdapter) Translate(event stripe.Event) (*subscription.Event, error) {
	occurredAt := time.Unix(event.Created, 0).UTC()

	switch event.Type {
	case "checkout.session.completed":
		var session stripeCheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, err
		}

		email := session.CustomerDetails.Email
		if email == "" {
			email = session.CustomerEmail
		}

		return &subscription.Event{
			ResolutionKey:          strings.ToLower(email),
			Kind:                   subscription.EventCheckoutCompleted,
			PlanSlug:               session.Metadata["plan"],
			ExternalTransactionID:  event.ID,
			ExternalSubscriptionID: session.Subscription,
			OccurredAt:             occurredAt,
			Gateway:                subscription.GatewayStripe,
		}, nil

	case "invoice.paid", "invoice.payment_succeeded":
		var invoice stripeInvoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, err
		}

		ev := &subscription.Event{
			ResolutionKey:          strings.ToLower(invoice.CustomerEmail),
			Kind:                   subscription.EventInvoicePaid,
			ExternalTransactionID:  event.ID,
			ExternalSubscriptionID: invoice.Subscription,
			OccurredAt:             occurredAt,
			Gateway:                subscription.GatewayStripe,
		}

		if invoice.PeriodEnd > 0 {
			renewal := time.Unix(invoice.PeriodEnd, 0).UTC()
			ev.RenewalAt = &renewal
		}

		return ev, nil

	case "customer.subscription.deleted":
		var sub stripeSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, err
		}

		return &subscription.Event{
			Kind:                   subscription.EventSubscriptionCancelled,
			ExternalTransactionID:  event.ID,
			ExternalSubscriptionID: sub.ID,
			OccurredAt:             occurredAt,
			Gateway:                subscription.GatewayStripe,
		}, nil
	}

	return nil, nil
}
