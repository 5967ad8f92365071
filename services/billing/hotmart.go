package billing

import (
	"crypto/subtle"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/services/subscription"
)

// hotmartAdapter turns Hotmart postback deliveries into canonical events.
// Hotmart authenticates with a static token header rather than a payload
// signature, and retries aggressively on anything but 200, so once the token
// checks out every delivery is acknowledged.
type hotmartAdapter struct {
	// productID, when set, drops events for other products sold under the
	// same account.
	productID string
}

type hotmartPayload struct {
	ID           string `json:"id"`
	Event        string `json:"event"`
	CreationDate int64  `json:"creation_date"`
	Data         struct {
		Buyer struct {
			Email string `json:"email"`
		} `json:"buyer"`
		Product struct {
			ID int64 `json:"id"`
		} `json:"product"`
		Purchase struct {
			Transaction string `json:"transaction"`
			Status      string `json:"status"`
			Offer       struct {
				Code string `json:"code"`
			} `json:"offer"`
			DateNextCharge int64 `json:"date_next_charge"`
		} `json:"purchase"`
		Subscription struct {
			Subscriber struct {
				Code string `json:"code"`
			} `json:"subscriber"`
		} `json:"subscription"`
	} `json:"data"`
}

// Authenticate compares the hottok header against the stored token in
// constant time.
func (a hotmartAdapter) Authenticate(header, token string) bool {
	if token == "" || header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(token)) == 1
}

// Translate maps an authenticated Hotmart postback onto the canonical
// taxonomy. Nil event with nil error means the delivery is acknowledged and
// dropped: an unmapped event name or a filtered product.
func (a hotmartAdapter) Translate(payload []byte) (*subscription.Event, error) {
	var in hotmartPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, err
	}

	if a.productID != "" && strconv.FormatInt(in.Data.Product.ID, 10) != a.productID {
		return nil, nil
	}

	var kind subscription.EventKind
	switch in.Event {
	case "PURCHASE_APPROVED", "PURCHASE_COMPLETE":
		kind = subscription.EventCheckoutCompleted
	case "PURCHASE_CANCELED", "SUBSCRIPTION_CANCELLATION":
		kind = subscription.EventSubscriptionCancelled
	case "PURCHASE_REFUNDED", "PURCHASE_CHARGEBACK":
		kind = subscription.EventPaymentRefunded
	case "PURCHASE_DELAYED":
		kind = subscription.EventPaymentDelayed
	case "PURCHASE_EXPIRED":
		kind = subscription.EventSubscriptionExpired
	default:
		return nil, nil
	}

	occurredAt := time.Now().UTC()
	if in.CreationDate > 0 {
		occurredAt = time.UnixMilli(in.CreationDate).UTC()
	}

	ev := &subscription.Event{
		ResolutionKey:          strings.ToLower(strings.TrimSpace(in.Data.Buyer.Email)),
		Kind:                   kind,
		ExternalTransactionID:  in.Data.Purchase.Transaction,
		ExternalSubscriptionID: in.Data.Subscription.Subscriber.Code,
		OccurredAt:             occurredAt,
		Gateway:                subscription.GatewayHotmart,
	}

	if in.Data.Purchase.Offer.Code != "" {
		ev.PlanSlug = in.Data.Purchase.Offer.Code
	}

	if kind == subscription.EventCheckoutCompleted && in.Data.Purchase.DateNextCharge > 0 {
		renewal := time.UnixMilli(in.Data.Purchase.DateNextCharge).UTC()
		ev.RenewalAt = &renewal
	}

	return ev, nil
}
