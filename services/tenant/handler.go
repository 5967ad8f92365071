package tenant

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
	r.POST("/tenants", h.register)
	r.GET("/tenants/:id", h.get)
	r.DELETE("/tenants/:id", h.delete)
}

type registerRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

func (h *Handler) register(c *gin.Context) {
	var in registerRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION_FAILED", "message": err.Error()}})
		return
	}

	record, err := h.svc.Register(c.Request.Context(), in.Email, in.Name)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *Handler) get(c *gin.Context) {
	record, err := h.svc.GetTenant(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
