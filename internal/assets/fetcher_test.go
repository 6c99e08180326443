package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/timmy/mygoreply/internal/corpus"
	"github.com/timmy/mygoreply/internal/storage"
)

func pngFixture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 6))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

var testLocator = corpus.Locator{Text: "為什麼要演奏春日影", Season: "1", Episode: "7", FramePrefer: "1234"}

func TestFetchCachesInStorage(t *testing.T) {
	img := pngFixture(t)
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/images/1/7/1234.png" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	defer server.Close()

	store := storage.NewMemoryStorage("https://cdn.example.com")
	fetcher := NewFetcher(store, Config{BaseURL: server.URL + "/images", Ext: "png", Prefix: "assets"})
	ctx := context.Background()

	first, err := fetcher.Fetch(ctx, testLocator)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if first.Cached {
		t.Fatalf("first fetch should come from the asset host")
	}
	if first.Key != "assets/1/7/1234.png" || first.ContentType != "image/png" {
		t.Fatalf("unexpected asset %+v", first)
	}
	if first.URL != "https://cdn.example.com/assets/1/7/1234.png" {
		t.Fatalf("URL = %q", first.URL)
	}

	second, err := fetcher.Fetch(ctx, testLocator)
	if err != nil {
		t.Fatalf("second Fetch returned error: %v", err)
	}
	if !second.Cached || !bytes.Equal(second.Data, img) {
		t.Fatalf("second fetch should be served from cache")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("asset host hit %d times, want 1", got)
	}
}

func TestFetchWithoutStorage(t *testing.T) {
	img := pngFixture(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(img)
	}))
	defer server.Close()

	fetcher := NewFetcher(nil, Config{BaseURL: server.URL, Ext: "png"})
	asset, err := fetcher.Fetch(context.Background(), testLocator)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if asset.URL != server.URL+"/1/7/1234.png" {
		t.Fatalf("URL = %q", asset.URL)
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "corrupt body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>oops</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			store := storage.NewMemoryStorage("")
			fetcher := NewFetcher(store, Config{BaseURL: server.URL})
			_, err := fetcher.Fetch(context.Background(), testLocator)
			if !errors.Is(err, ErrFetch) {
				t.Fatalf("expected ErrFetch, got %v", err)
			}
			if ok, _ := store.Exists(context.Background(), "1/7/1234.webp"); ok {
				t.Fatalf("failed fetch must not be cached")
			}
		})
	}
}
