package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkpost/internal/service"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// respondServiceError maps service errors onto status codes. Unknown errors
// were already logged by the service, so the client only gets an opaque
// message here.
func (a *API) respondServiceError(c *gin.Context, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, service.ErrSlugConflict):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrPostNotFound):
		respondError(c, http.StatusNotFound, "Post not found")
	default:
		_ = c.Error(err)
		a.log.ErrorContext(c.Request.Context(), fallback, slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
