package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mygoreply/internal/dialogue"
	"github.com/timmy/mygoreply/internal/domain"
	"github.com/timmy/mygoreply/internal/imageutil"
	"github.com/timmy/mygoreply/internal/layout"
	"github.com/timmy/mygoreply/internal/logger"
	"github.com/timmy/mygoreply/internal/service"
)

// maxImages bounds the screenshots accepted in one request.
const maxImages = 10

// Assistant runs a mode on screenshots or a transcript.
type Assistant interface {
	HandleImages(ctx context.Context, mode service.Mode, images ...[]byte) (*service.Reply, error)
	HandleText(ctx context.Context, mode service.Mode, transcript string) (*service.Reply, error)
}

// ConversationHandler serves the segmentation, analysis and recommendation
// endpoints.
type ConversationHandler struct {
	assistant Assistant
	layout    layout.Options
}

// NewConversationHandler creates a conversation handler.
// Parameters:
//   - assistant: mode dispatcher; nil disables analyze and recommend.
//   - opts: layout options used by the segment endpoint.
//
// Returns:
//   - *ConversationHandler: initialized handler.
func NewConversationHandler(assistant Assistant, opts layout.Options) *ConversationHandler {
	return &ConversationHandler{assistant: assistant, layout: opts}
}

// SegmentRequest carries OCR output, either as one page or several.
type SegmentRequest struct {
	Blocks []domain.Block   `json:"blocks"`
	Pages  [][]domain.Block `json:"pages"`
}

// Segment handles POST /api/v1/segment.
func (h *ConversationHandler) Segment(c *gin.Context) {
	var req SegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	pages := req.Pages
	if len(req.Blocks) > 0 {
		pages = append([][]domain.Block{req.Blocks}, pages...)
	}

	turns, err := layout.SegmentPages(pages, h.layout)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	if turns == nil {
		turns = []domain.Turn{}
	}

	c.JSON(http.StatusOK, service.Transcript{Turns: turns, Text: dialogue.Format(turns)})
}

// AnalyzeRequest is the JSON form of POST /api/v1/analyze.
type AnalyzeRequest struct {
	Mode string `json:"mode" binding:"required"`
	Text string `json:"text" binding:"required"`
}

// Analyze handles POST /api/v1/analyze. Multipart requests carry a "mode"
// field and one or more "images" files; JSON requests carry mode and an
// already formatted transcript.
func (h *ConversationHandler) Analyze(c *gin.Context) {
	if h.assistant == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis is not configured"})
		return
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.analyzeImages(c)
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	mode, err := service.ParseMode(req.Mode)
	if err != nil {
		writeError(c, err, gin.H{"message": service.MenuMessage})
		return
	}

	reply, err := h.assistant.HandleText(c.Request.Context(), mode, req.Text)
	writeReply(c, reply, err)
}

func (h *ConversationHandler) analyzeImages(c *gin.Context) {
	mode, err := service.ParseMode(c.PostForm("mode"))
	if err != nil {
		writeError(c, err, gin.H{"message": service.MenuMessage})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form: " + err.Error()})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		files = form.File["image"]
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one image is required"})
		return
	}
	if len(files) > maxImages {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d images are accepted", maxImages)})
		return
	}

	images := make([][]byte, 0, len(files))
	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			writeError(c, err, nil)
			return
		}
		images = append(images, data)
	}
	logger.CtxInfo(c.Request.Context(), "Received %d screenshot(s) for mode %s", len(images), mode)

	reply, err := h.assistant.HandleImages(c.Request.Context(), mode, images...)
	writeReply(c, reply, err)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > imageutil.MaxBytes {
		return nil, fmt.Errorf("%s: %w: %d bytes exceeds limit", fh.Filename, imageutil.ErrInvalidImage, fh.Size)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, imageutil.MaxBytes+1))
}

// RecommendRequest is the body of POST /api/v1/recommend.
type RecommendRequest struct {
	Text string `json:"text" binding:"required"`
}

// Recommend handles POST /api/v1/recommend.
func (h *ConversationHandler) Recommend(c *gin.Context) {
	if h.assistant == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recommendation is not configured"})
		return
	}

	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	reply, err := h.assistant.HandleText(c.Request.Context(), service.ModeSticker, req.Text)
	writeReply(c, reply, err)
}

func writeReply(c *gin.Context, reply *service.Reply, err error) {
	if err == nil {
		c.JSON(http.StatusOK, reply)
		return
	}
	extra := gin.H{}
	if reply != nil {
		extra["message"] = reply.Message
		extra["reply"] = reply
	}
	writeError(c, err, extra)
}
