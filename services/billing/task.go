package billing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/services/subscription"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TaskSendConfirmationEmail = "billing:email:confirmation"
	TaskAttributionPing       = "billing:attribution:ping"
)

// ConfirmationEmailPayload is queued after a grant event lands so the tenant
// gets a purchase confirmation out of band.
type ConfirmationEmailPayload struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	PlanSlug string `json:"plan_slug"`
	Gateway  string `json:"gateway"`
}

// AttributionPingPayload notifies the marketing attribution endpoint of a
// conversion.
type AttributionPingPayload struct {
	TenantID              string    `json:"tenant_id"`
	Gateway               string    `json:"gateway"`
	ExternalTransactionID string    `json:"external_transaction_id"`
	OccurredAt            time.Time `json:"occurred_at"`
}

func (s *Service) enqueueSideEffects(ctx context.Context, tenantID, email string, ev subscription.Event) {
	emailPayload, _ := json.Marshal(ConfirmationEmailPayload{
		TenantID: tenantID,
		Email:    email,
		PlanSlug: ev.PlanSlug,
		Gateway:  string(ev.Gateway),
	})

	if _, err := s.enqueuer.Enqueue(ctx,
		asynq.NewTask(TaskSendConfirmationEmail, emailPayload),
		asynq.Queue("default"),
		asynq.MaxRetry(5),
	); err != nil {
		zap.L().Warn("failed to enqueue confirmation email",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	}

	pingPayload, _ := json.Marshal(AttributionPingPayload{
		TenantID:              tenantID,
		Gateway:               string(ev.Gateway),
		ExternalTransactionID: ev.ExternalTransactionID,
		OccurredAt:            ev.OccurredAt,
	})

	if _, err := s.enqueuer.Enqueue(ctx,
		asynq.NewTask(TaskAttributionPing, pingPayload),
		asynq.Queue("low"),
		asynq.MaxRetry(3),
	); err != nil {
		zap.L().Warn("failed to enqueue attribution ping",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	}
}

// HandleConfirmationEmail is the worker-side handler for confirmation email
// tasks.
func HandleConfirmationEmail(ctx context.Context, t *asynq.Task) error {
	var payload ConfirmationEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}

	// Mail delivery goes through the transactional mail provider; wiring the
	// SMTP relay is tracked separately. Logging keeps the task observable
	// until then.
	zap.L().Info("sending purchase confirmation email",
		zap.String("tenant_id", payload.TenantID),
		zap.String("email", payload.Email),
		zap.String("plan_slug", payload.PlanSlug),
	)
	return nil
}

// HandleAttributionPing is the worker-side handler for attribution pings.
func HandleAttributionPing(ctx context.Context, t *asynq.Task) error {
	var payload AttributionPingPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}

	zap.L().Info("recording conversion attribution",
		zap.String("tenant_id", payload.TenantID),
		zap.String("gateway", payload.Gateway),
		zap.String("external_transaction_id", payload.ExternalTransactionID),
	)
	return nil
}
