package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mygoreply/internal/corpus"
	"github.com/timmy/mygoreply/internal/tags"
)

// Lookuper resolves an exact corpus text to its locator.
type Lookuper interface {
	Lookup(ctx context.Context, text string) (corpus.Locator, error)
}

// CorpusHandler serves corpus lookup and the tag vocabulary.
type CorpusHandler struct {
	corpus  Lookuper
	baseURL string
	ext     string
}

// NewCorpusHandler creates a corpus handler.
// Parameters:
//   - c: the loaded corpus; nil disables lookup.
//   - baseURL: asset host prefix for URLs.
//   - ext: asset file extension.
//
// Returns:
//   - *CorpusHandler: initialized handler.
func NewCorpusHandler(c Lookuper, baseURL, ext string) *CorpusHandler {
	return &CorpusHandler{corpus: c, baseURL: baseURL, ext: ext}
}

// Lookup handles GET /api/v1/lookup?text=.
func (h *CorpusHandler) Lookup(c *gin.Context) {
	if h.corpus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "corpus is not loaded"})
		return
	}

	text, ok := c.GetQuery("text")
	if !ok || text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'text' is required"})
		return
	}

	loc, err := h.corpus.Lookup(c.Request.Context(), text)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"locator": loc,
		"url":     loc.URL(h.baseURL, h.ext),
	})
}

// Tags handles GET /api/v1/tags.
func (h *CorpusHandler) Tags(c *gin.Context) {
	all := tags.All()
	c.JSON(http.StatusOK, gin.H{
		"tags":  all,
		"total": len(all),
	})
}
