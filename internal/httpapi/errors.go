package httpapi

import (
	"github.com/gin-gonic/gin"

	"ruleoracle/internal/apperr"
)

// respondError writes the {success:false, error_code, detail} envelope,
// mapping the error's Kind to its HTTP status when it's an *apperr.Error,
// or 500/internal_error otherwise.
func respondError(c *gin.Context, err error) {
	if e, ok := apperr.As(err); ok {
		c.JSON(e.Kind.HTTPStatus(), gin.H{"success": false, "error_code": e.Code, "detail": e.Detail})
		return
	}
	c.JSON(500, gin.H{"success": false, "error_code": "internal_error", "detail": err.Error()})
}
