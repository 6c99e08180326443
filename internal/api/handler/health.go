package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	corpusSize int
	indexSize  int
}

// NewHealthHandler creates a health handler reporting the loaded corpus and
// index sizes.
func NewHealthHandler(corpusSize, indexSize int) *HealthHandler {
	return &HealthHandler{corpusSize: corpusSize, indexSize: indexSize}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"corpus_size": h.corpusSize,
		"index_size":  h.indexSize,
	})
}
