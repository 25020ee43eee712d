package httpserver

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"printarcade/internal/domain"
)

type errorResponse struct {
	Error  domain.ErrorKind `json:"error"`
	Detail string           `json:"detail,omitempty"`
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuthentication:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindDuplicate:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": kind, "detail": ...}. Details of
// server-side failures stay in the log.
func (h *handlers) writeError(c *gin.Context, err error) {
	renderError(c, h.logger, err)
}

func renderError(c *gin.Context, logger *log.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			de = domain.NotFoundError("not found")
		default:
			de = domain.PersistenceError("internal error", err)
		}
	}
	status := statusFor(de.Kind)
	detail := de.Detail
	if status >= http.StatusInternalServerError {
		logger.Printf("http: %s %s kind=%s error=%v", c.Request.Method, c.FullPath(), de.Kind, err)
		detail = ""
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: de.Kind, Detail: detail})
}

func (h *handlers) writeBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: domain.KindValidation, Detail: err.Error()})
}
