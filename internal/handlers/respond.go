package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/apperrors"
)

// respondError maps a taxonomy error to its HTTP status and a
// machine-readable code. Unclassified errors surface as INTERNAL without
// leaking their text.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		log.Printf("unclassified error on %s: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": apperrors.CodeInternal, "message": "internal error"})
		return
	}
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": appErr.Code, "message": appErr.Message})
}
