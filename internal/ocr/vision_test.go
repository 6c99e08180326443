package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/timmy/mygoreply/internal/config"
	"github.com/timmy/mygoreply/internal/domain"
)

const visionReply = `{"responses":[{"fullTextAnnotation":{"pages":[{"width":1080,"height":1920,"blocks":[
 {"boundingBox":{"vertices":[{"x":100,"y":300},{"x":300,"y":300},{"x":300,"y":340},{"x":100,"y":340}]},
  "paragraphs":[{"words":[{"symbols":[{"text":"晚"},{"text":"安"}]}]},{"words":[{"symbols":[{"text":"!"}]}]}]},
 {"boundingBox":{"vertices":[{"y":10},{"x":40,"y":10},{"x":40,"y":20},{"y":20}]},
  "paragraphs":[{"words":[{"symbols":[{"text":"1"},{"text":"0"}]},{"symbols":[{"text":":"},{"text":"3"},{"text":"2"}]}]}]}
]}]}}]}`

func TestVisionClient_Recognize(t *testing.T) {
	image := []byte("fake-png-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "vision-key" {
			t.Errorf("missing api key, query=%s", r.URL.RawQuery)
		}
		var req annotateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if len(req.Requests) != 1 || req.Requests[0].Features[0].Type != "DOCUMENT_TEXT_DETECTION" {
			t.Errorf("unexpected request %+v", req)
		}
		if req.Requests[0].Image.Content != base64.StdEncoding.EncodeToString(image) {
			t.Error("image not base64 encoded")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(visionReply))
	}))
	defer srv.Close()

	c := NewVisionClient(&config.OCRConfig{Endpoint: srv.URL, APIKey: "vision-key"})
	pages, err := c.Recognize(context.Background(), image)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(pages) != 1 || len(pages[0]) != 2 {
		t.Fatalf("unexpected pages %+v", pages)
	}

	first := pages[0][0]
	if first.Text != "晚安 !" || first.PageWidth != 1080 {
		t.Errorf("unexpected first block %+v", first)
	}
	wantPoly := []domain.Point{{X: 0, Y: 10}, {X: 40, Y: 10}, {X: 40, Y: 20}, {X: 0, Y: 20}}
	if second := pages[0][1]; second.Text != "10:32" || !reflect.DeepEqual(second.Polygon, wantPoly) {
		t.Errorf("unexpected second block %+v", second)
	}
}

func TestVisionClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusForbidden, body: `{"error":{"code":403,"message":"API key not valid"}}`},
		{name: "per-image error", status: http.StatusOK, body: `{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`},
		{name: "no responses", status: http.StatusOK, body: `{"responses":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewVisionClient(&config.OCRConfig{Endpoint: srv.URL}).Recognize(context.Background(), []byte("x"))
			if !errors.Is(err, ErrOCR) {
				t.Errorf("expected ErrOCR, got %v", err)
			}
		})
	}
}

func TestVisionClient_NoText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"responses":[{}]}`))
	}))
	defer srv.Close()

	pages, err := NewVisionClient(&config.OCRConfig{Endpoint: srv.URL}).Recognize(context.Background(), []byte("x"))
	if err != nil || len(pages) != 0 {
		t.Errorf("expected no pages and no error, got %v, %v", pages, err)
	}

	if _, err := NewVisionClient(&config.OCRConfig{Endpoint: srv.URL}).Recognize(context.Background(), nil); !errors.Is(err, ErrOCR) {
		t.Errorf("empty image: expected ErrOCR, got %v", err)
	}
}
