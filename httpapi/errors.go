package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"library-lending/library"
)

// writeError maps a core error to a status code and a JSON body. Unexpected
// errors are logged and hidden from the client.
func (h *Handler) writeError(c *gin.Context, err error) {
	var ve *library.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, library.ErrUnauthorized):
		status := http.StatusUnauthorized
		if requestContext(c).Authenticated() {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
	case errors.Is(err, library.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, library.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, library.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, library.ErrOutOfStock),
		errors.Is(err, library.ErrAlreadyBorrowed),
		errors.Is(err, library.ErrQuotaExceeded),
		errors.Is(err, library.ErrBookOnLoan),
		errors.Is(err, library.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "request_id", c.GetString(requestIDKey), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
