package billing

import (
	"io"
	"net/http"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody caps what the adapters are willing to read. Both gateways
// send payloads far under 1 MiB.
const maxWebhookBody = 1 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	r.POST("/webhooks/stripe", h.stripeWebhook)
	r.POST("/webhooks/hotmart", h.hotmartWebhook)
	r.GET("/billing/checkout-url", h.checkoutURL)
	r.GET("/admin/billing/settings", h.getSettings)
	r.PUT("/admin/billing/settings", h.updateSettings)
}

func readBody(c *gin.Context) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
}

// stripeWebhook verifies the signature over the raw body before anything in
// the payload is trusted. Bad signatures are rejected; unknown event types
// are acknowledged; processing failures return 500 so Stripe redelivers.
func (h *Handler) stripeWebhook(c *gin.Context) {
	payload, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read body"})
		return
	}

	settings, err := h.svc.Settings(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	event, err := h.svc.stripe.Verify(payload, c.GetHeader("Stripe-Signature"), settings.StripeWebhookSecret)
	if err != nil {
		zap.L().Warn("rejected stripe webhook", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	ev, err := h.svc.stripe.Translate(event)
	if err != nil {
		zap.L().Warn("malformed stripe event payload", zap.String("event_id", event.ID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	if ev == nil {
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}

	if err := h.svc.Process(c.Request.Context(), *ev, payload, time.Now()); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// hotmartWebhook authenticates via the static hottok header. Hotmart retries
// on any non-200, so once authenticated the delivery is always acknowledged;
// a processing failure is logged and will be reconciled by a later event.
func (h *Handler) hotmartWebhook(c *gin.Context) {
	settings, err := h.svc.Settings(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	if !h.svc.hotmart.Authenticate(c.GetHeader("X-Hotmart-Hottok"), settings.HotmartToken) {
		zap.L().Warn("rejected hotmart webhook, bad token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	payload, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	ev, err := h.svc.hotmart.Translate(payload)
	if err != nil {
		zap.L().Warn("malformed hotmart payload, acknowledging", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if ev == nil {
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}

	if err := h.svc.Process(c.Request.Context(), *ev, payload, time.Now()); err != nil {
		zap.L().Error("failed to process hotmart event", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) checkoutURL(c *gin.Context) {
	url, err := h.svc.CheckoutURL(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkout_url": url})
}

func (h *Handler) getSettings(c *gin.Context) {
	settings, err := h.svc.Settings(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (h *Handler) updateSettings(c *gin.Context) {
	var in GatewaySettings
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION_FAILED", "message": err.Error()}})
		return
	}

	settings, err := h.svc.UpdateSettings(c.Request.Context(), &in)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}
