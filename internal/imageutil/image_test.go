package imageutil

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	info, err := Inspect(pngBytes(t, 1080, 2340))
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if info.Format != "png" || info.ContentType != "image/png" {
		t.Fatalf("unexpected format %+v", info)
	}
	if info.Width != 1080 || info.Height != 2340 {
		t.Fatalf("unexpected size %dx%d", info.Width, info.Height)
	}
}

func TestInspectRejects(t *testing.T) {
	valid := pngBytes(t, 4, 4)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "text", data: []byte("not an image")},
		{name: "truncated", data: valid[:12]},
		{name: "oversized", data: make([]byte, MaxBytes+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Inspect(tt.data); !errors.Is(err, ErrInvalidImage) {
				t.Fatalf("expected ErrInvalidImage, got %v", err)
			}
		})
	}
}
