package middleware

import (
	"net/http"

	"github.com/willianpedrom/saude-essencial-backend-sub000/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error renders the last BaseError pushed onto the gin context as JSON.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil {
			return
		}

		if v, ok := err.Err.(errutil.BaseError); ok {
			c.JSON(v.Code.HTTPStatus(), v.JSON())
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    errutil.StatusInternal,
				"message": "internal error",
			},
		})
	}
}

// AbortWithError records err on the context and aborts with its HTTP status.
func AbortWithError(c *gin.Context, err error) {
	if v, ok := err.(errutil.BaseError); ok {
		c.AbortWithStatusJSON(v.Code.HTTPStatus(), v.JSON())
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    errutil.StatusInternal,
			"message": "internal error",
		},
	})
}
