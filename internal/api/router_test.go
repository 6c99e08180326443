package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mygoreply/internal/config"
	"github.com/timmy/mygoreply/internal/corpus"
	"github.com/timmy/mygoreply/internal/layout"
	"github.com/timmy/mygoreply/internal/retrieval"
	"github.com/timmy/mygoreply/internal/service"
	"github.com/timmy/mygoreply/internal/tags"
)

const corpusJSON = `[
  {"text": "好啊", "season": "mygo", "episode": 3, "frame_prefer": 1204, "tones": ["開心"]},
  {"text": "為什麼", "season": "mygo", "episode": null, "frame_prefer": 10, "tones": []}
]`

// fakeAssistant records calls and replies with canned values.
type fakeAssistant struct {
	reply  *service.Reply
	err    error
	images int
	mode   service.Mode
	text   string
}

func (a *fakeAssistant) HandleImages(ctx context.Context, mode service.Mode, images ...[]byte) (*service.Reply, error) {
	a.mode = mode
	a.images = len(images)
	return a.reply, a.err
}

func (a *fakeAssistant) HandleText(ctx context.Context, mode service.Mode, transcript string) (*service.Reply, error) {
	a.mode = mode
	a.text = transcript
	return a.reply, a.err
}

func newTestRouter(t *testing.T, assistant *fakeAssistant) *gin.Engine {
	t.Helper()
	c, err := corpus.Decode(strings.NewReader(corpusJSON))
	if err != nil {
		t.Fatalf("decode corpus: %v", err)
	}
	return SetupRouter(Dependencies{
		Assistant:    assistant,
		Corpus:       c,
		Layout:       layout.DefaultOptions(),
		CorpusSize:   c.Len(),
		AssetBaseURL: "https://img.example.com/images",
		AssetExt:     "webp",
	}, &config.ServerConfig{Mode: "test", CORS: config.CORSConfig{AllowAllOrigins: true}})
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthAndTags(t *testing.T) {
	r := newTestRouter(t, &fakeAssistant{})

	w := doJSON(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || decode(t, w)["corpus_size"].(float64) != 2 {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodGet, "/api/v1/tags", "")
	if w.Code != http.StatusOK || int(decode(t, w)["total"].(float64)) != tags.Len() {
		t.Fatalf("tags = %d %s", w.Code, w.Body.String())
	}
}

func TestSegment(t *testing.T) {
	r := newTestRouter(t, &fakeAssistant{})

	body := `{"blocks": [
	  {"text": "你好", "bounding_polygon": [{"x":700,"y":50},{"x":900,"y":50},{"x":900,"y":80},{"x":700,"y":80}], "page_width": 1000},
	  {"text": "嗨", "bounding_polygon": [{"x":100,"y":10},{"x":300,"y":10},{"x":300,"y":40},{"x":100,"y":40}], "page_width": 1000}
	]}`
	w := doJSON(r, http.MethodPost, "/api/v1/segment", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["transcript"]; got != "(對方)嗨\n(我)你好" {
		t.Fatalf("transcript = %q", got)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/segment", `{"blocks": [{"text": "hi", "bounding_polygon": [{"x":1,"y":1}]}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing page width: status = %d", w.Code)
	}
}

func TestAnalyzeJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		assistant  *fakeAssistant
		wantStatus int
		wantMode   service.Mode
	}{
		{
			name:       "analysis",
			body:       `{"mode": "感情分析", "text": "(對方)在嗎"}`,
			assistant:  &fakeAssistant{reply: &service.Reply{Mode: service.ModeAnalysis, Message: "ok"}},
			wantStatus: http.StatusOK,
			wantMode:   service.ModeAnalysis,
		},
		{
			name:       "unknown mode",
			body:       `{"mode": "3", "text": "(對方)在嗎"}`,
			assistant:  &fakeAssistant{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing text",
			body:       `{"mode": "1"}`,
			assistant:  &fakeAssistant{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no text recognized",
			body:       `{"mode": "2", "text": " "}`,
			assistant:  &fakeAssistant{reply: &service.Reply{Message: service.NoTextMessage}, err: service.ErrNoText},
			wantStatus: http.StatusUnprocessableEntity,
			wantMode:   service.ModeSticker,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, tt.assistant)
			w := doJSON(r, http.MethodPost, "/api/v1/analyze", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.assistant.mode != tt.wantMode {
				t.Fatalf("mode = %q, want %q", tt.assistant.mode, tt.wantMode)
			}
		})
	}
}

func TestAnalyzeMultipart(t *testing.T) {
	assistant := &fakeAssistant{reply: &service.Reply{Mode: service.ModeSticker, Message: "https://img.example.com/x.webp"}}
	r := newTestRouter(t, assistant)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("mode", "表情包")
	for _, name := range []string{"a.png", "b.png"} {
		fw, _ := mw.CreateFormFile("images", name)
		fw.Write([]byte("fake image bytes"))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if assistant.images != 2 || assistant.mode != service.ModeSticker {
		t.Fatalf("assistant saw %d images in mode %q", assistant.images, assistant.mode)
	}
}

func TestRecommendNoMatch(t *testing.T) {
	assistant := &fakeAssistant{
		reply: &service.Reply{Mode: service.ModeSticker, Message: service.NoStickerMessage},
		err:   retrieval.ErrNoMatch,
	}
	r := newTestRouter(t, assistant)

	w := doJSON(r, http.MethodPost, "/api/v1/recommend", `{"text": "(對方)晚安"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["message"]; got != service.NoStickerMessage {
		t.Fatalf("message = %v", got)
	}
	if assistant.text != "(對方)晚安" {
		t.Fatalf("assistant text = %q", assistant.text)
	}
}

func TestLookup(t *testing.T) {
	r := newTestRouter(t, &fakeAssistant{})

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantURL    string
	}{
		{name: "found", query: "?text=%E5%A5%BD%E5%95%8A", wantStatus: http.StatusOK, wantURL: "https://img.example.com/images/mygo/3/1204.webp"},
		{name: "incomplete locator", query: "?text=%E7%82%BA%E4%BB%80%E9%BA%BC", wantStatus: http.StatusNotFound},
		{name: "unknown text", query: "?text=nope", wantStatus: http.StatusNotFound},
		{name: "missing parameter", query: "", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodGet, "/api/v1/lookup"+tt.query, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantURL != "" && decode(t, w)["url"] != tt.wantURL {
				t.Fatalf("url = %v, want %s", decode(t, w)["url"], tt.wantURL)
			}
		})
	}
}
