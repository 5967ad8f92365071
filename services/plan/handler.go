package plan

import (
	"net/http"

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
	admin := r.Group("/admin/plans")
	admin.GET("", h.list)
	admin.POST("", h.create)
	admin.GET("/:slug", h.get)
	admin.PATCH("/:slug", h.update)
	admin.DELETE("/:slug", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	plans, err := h.svc.ListPlans(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (h *Handler) get(c *gin.Context) {
	record, err := h.svc.GetPlan(c.Request.Context(), c.Param("slug"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) create(c *gin.Context) {
	var in Plan
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION_FAILED", "message": err.Error()}})
		return
	}

	record, err := h.svc.CreatePlan(c.Request.Context(), &in)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *Handler) update(c *gin.Context) {
	var in Plan
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION_FAILED", "message": err.Error()}})
		return
	}

	record, err := h.svc.UpdatePlan(c.Request.Context(), c.Param("slug"), &in)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.DeletePlan(c.Request.Context(), c.Param("slug")); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
