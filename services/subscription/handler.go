package subscription

import (
	"net/http"
	"time"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/db/pagination"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/errutil"
	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	admin := r.Group("/admin/tenants/:tenant_id/subscription")
	admin.GET("", h.get)
	admin.PATCH("", h.update)
	admin.POST("/extend-trial", h.extendTrial)
	admin.GET("/events", h.listEvents)

	r.GET("/entitlement", h.entitlement)
}

func (h *Handler) listEvents(c *gin.Context) {
	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION_FAILED", "message": err.Error()}})
		return
	}

	records, pageInfo, err := h.svc.Store().ListEvents(c.Request.Context(), c.Param("tenant_id"), p)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records, "page_info": pageInfo})
}

func (h *Handler) get(c *gin.Context) {
	record, err := h.svc.Store().Get(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "subscription not found"}})
		return
	}

	c.JSON(http.StatusOK, record)
}

type adminUpdateRequest struct {
	PlanSlug string `json:"plan_slug"`
	Status   string `json:"status"`
}

func (h *Handler) update(c *gin.Context) {
	var in adminUpdateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION_FAILED", "message": err.Error()}})
		return
	}

	record, err := h.svc.AdminUpdate(c.Request.Context(), c.Param("tenant_id"), in.PlanSlug, Status(in.Status), time.Now())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

type extendTrialRequest struct {
	Days int `json:"days"`
}

func (h *Handler) extendTrial(c *gin.Context) {
	var in extendTrialRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION_FAILED", "message": err.Error()}})
		return
	}

	record, err := h.svc.ExtendTrial(c.Request.Context(), c.Param("tenant_id"), in.Days, time.Now())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// entitlement lets the frontend ask for the current access decision without
// tripping the gate itself. The tenant comes from the authenticated identity
// only; reading other tenants goes through the admin surface.
func (h *Handler) entitlement(c *gin.Context) {
	tenantID := c.GetString(CtxTenantID)
	if tenantID == "" {
		middleware.AbortWithError(c, errutil.Unauthorized("missing tenant identity", nil))
		return
	}

	ent, err := h.svc.CheckAccess(c.Request.Context(), tenantID, time.Now())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ent)
}
