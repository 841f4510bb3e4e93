package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/idempotency"
)

type errorPayload struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// requestError — ошибка разбора запроса до обращения к сервисам.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func invalidRequest(msg string) error {
	return &requestError{msg: msg}
}

// ErrorHandlingMiddleware превращает последнюю ошибку из gin.Context в JSON-ответ.
func ErrorHandlingMiddleware(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		entry := logger.WithError(lastErr.Err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": status,
		})
		if status >= http.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Warn("request rejected")
		}
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func abortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var (
		reqErr   *requestError
		stockErr *domain.InsufficientStockError
	)
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: reqErr.msg}
	case errors.As(err, &stockErr):
		return http.StatusBadRequest, errorPayload{
			Type:    "insufficient_stock",
			Message: stockErr.Error(),
			Details: map[string]any{
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			},
		}
	case errors.Is(err, idempotency.ErrPayloadMismatch):
		return http.StatusUnprocessableEntity, errorPayload{Type: "idempotency_mismatch", Message: err.Error()}
	case errors.Is(err, idempotency.ErrInProgress):
		return http.StatusConflict, errorPayload{Type: "idempotency_in_progress", Message: err.Error()}
	case domain.IsNotFound(err):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case domain.IsValidation(err):
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: err.Error()}
	case domain.IsConflict(err):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}
