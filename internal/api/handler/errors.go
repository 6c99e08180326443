package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mygoreply/internal/corpus"
	"github.com/timmy/mygoreply/internal/imageutil"
	"github.com/timmy/mygoreply/internal/layout"
	"github.com/timmy/mygoreply/internal/llm"
	"github.com/timmy/mygoreply/internal/logger"
	"github.com/timmy/mygoreply/internal/ocr"
	"github.com/timmy/mygoreply/internal/retrieval"
	"github.com/timmy/mygoreply/internal/service"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownMode),
		errors.Is(err, imageutil.ErrInvalidImage),
		errors.Is(err, layout.ErrInvalidPageWidth):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, retrieval.ErrNoMatch),
		errors.Is(err, corpus.ErrNotFound),
		errors.Is(err, corpus.ErrIncompleteLocator):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ocr.ErrOCR),
		errors.Is(err, llm.ErrParse),
		errors.Is(err, llm.ErrEmptyResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes {"error": ...} plus any extra fields and logs server-side
// failures.
func writeError(c *gin.Context, err error, extra gin.H) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.With(logger.Fields{logger.FieldStatus: status}).
			WithError(err).Error(c.Request.Context(), "Request failed")
	}

	body := gin.H{"error": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}
