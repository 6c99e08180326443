package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/timmy/mygoreply/internal/assets"
	"github.com/timmy/mygoreply/internal/corpus"
	"github.com/timmy/mygoreply/internal/domain"
	"github.com/timmy/mygoreply/internal/imageutil"
	"github.com/timmy/mygoreply/internal/layout"
	"github.com/timmy/mygoreply/internal/ocr"
	"github.com/timmy/mygoreply/internal/retrieval"
)

func screenshot(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 10, 20))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func box(text string, x0, x1, y int) domain.Block {
	return domain.Block{
		Text:      text,
		Polygon:   []domain.Point{{X: x0, Y: y}, {X: x1, Y: y}, {X: x1, Y: y + 30}, {X: x0, Y: y + 30}},
		PageWidth: 1000,
	}
}

// fakeRecognizer returns one canned page per call.
type fakeRecognizer struct {
	pages [][]domain.Block
	err   error
	calls int
}

func (r *fakeRecognizer) Recognize(ctx context.Context, image []byte) ([][]domain.Block, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if len(r.pages) == 0 {
		return nil, nil
	}
	page := r.pages[0]
	r.pages = r.pages[1:]
	return [][]domain.Block{page}, nil
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		command string
		want    Mode
		wantErr bool
	}{
		{command: "感情分析", want: ModeAnalysis},
		{command: " 1 ", want: ModeAnalysis},
		{command: "智慧表情包", want: ModeSticker},
		{command: "表情包", want: ModeSticker},
		{command: "2", want: ModeSticker},
		{command: "3", wantErr: true},
		{command: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			got, err := ParseMode(tt.command)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownMode) {
					t.Fatalf("expected ErrUnknownMode, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseMode(%q) = %q, %v", tt.command, got, err)
			}
		})
	}
}

func TestScreenshotService_Transcribe(t *testing.T) {
	rec := &fakeRecognizer{pages: [][]domain.Block{
		{box("你好", 700, 900, 50), box("嗨", 100, 300, 10)},
		{box("10:42", 450, 550, 5), box("在嗎", 100, 200, 40)},
	}}
	svc := NewScreenshotService(rec, layout.DefaultOptions())

	got, err := svc.Transcribe(context.Background(), screenshot(t), screenshot(t))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}

	want := "(對方)嗨\n(我)你好\n\n(時間戳or系統訊息)10:42\n(對方)在嗎"
	if got.Text != want {
		t.Fatalf("transcript = %q, want %q", got.Text, want)
	}
	if len(got.Turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(got.Turns))
	}
}

func TestScreenshotService_Errors(t *testing.T) {
	ocrFailure := errors.New("quota")

	tests := []struct {
		name      string
		rec       *fakeRecognizer
		images    [][]byte
		wantErr   error
		wantCalls int
	}{
		{name: "no images", rec: &fakeRecognizer{}, wantErr: ErrNoText},
		{name: "corrupt image", rec: &fakeRecognizer{}, images: [][]byte{[]byte("nope")}, wantErr: imageutil.ErrInvalidImage},
		{name: "nothing recognized", rec: &fakeRecognizer{}, images: [][]byte{screenshot(t)}, wantErr: ErrNoText, wantCalls: 1},
		{name: "blank blocks only", rec: &fakeRecognizer{pages: [][]domain.Block{{box("  ", 0, 10, 0)}}}, images: [][]byte{screenshot(t)}, wantErr: ErrNoText, wantCalls: 1},
		{name: "ocr failure", rec: &fakeRecognizer{err: ocrFailure}, images: [][]byte{screenshot(t)}, wantErr: ocrFailure, wantCalls: 1},
		{name: "missing width", rec: &fakeRecognizer{pages: [][]domain.Block{{{Text: "hi"}}}}, images: [][]byte{screenshot(t)}, wantErr: layout.ErrInvalidPageWidth, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewScreenshotService(tt.rec, layout.DefaultOptions())
			_, err := svc.Transcribe(context.Background(), tt.images...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.rec.calls != tt.wantCalls {
				t.Fatalf("recognizer called %d times, want %d", tt.rec.calls, tt.wantCalls)
			}
		})
	}
}

func TestScreenshotService_OCRErrorKeepsType(t *testing.T) {
	rec := &fakeRecognizer{err: ocr.ErrOCR}
	_, err := NewScreenshotService(rec, layout.DefaultOptions()).Transcribe(context.Background(), screenshot(t))
	if !errors.Is(err, ocr.ErrOCR) {
		t.Fatalf("expected ErrOCR, got %v", err)
	}
}

func TestAnalysisService_Analyze(t *testing.T) {
	gen := &stubGenerator{replies: []string{"  對方語氣輕鬆，想約你出去。\n"}}
	svc := NewAnalysisService(gen)

	got, err := svc.Analyze(context.Background(), "(對方)要不要去吃飯")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if got != "對方語氣輕鬆，想約你出去。" {
		t.Fatalf("Analyze() = %q", got)
	}
	if !strings.Contains(gen.prompts[0], "(對方)要不要去吃飯") {
		t.Fatalf("prompt does not carry the transcript")
	}

	if _, err := svc.Analyze(context.Background(), " "); !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("empty transcript must not call the model")
	}
}

type stubRecommender struct {
	res *retrieval.Result
	err error
}

func (r *stubRecommender) Recommend(ctx context.Context, utterance string) (*retrieval.Result, error) {
	return r.res, r.err
}

type stubFetcher struct {
	url string
	err error
}

func (f *stubFetcher) Fetch(ctx context.Context, loc corpus.Locator) (*assets.Asset, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &assets.Asset{URL: f.url}, nil
}

func matched() *retrieval.Result {
	loc := corpus.Locator{Text: "好啊", Season: "1", Episode: "2", FramePrefer: "300"}
	return &retrieval.Result{Selected: "好啊", Locator: &loc, URL: "https://img.example.com/1/2/300.webp"}
}

func TestStickerService_Recommend(t *testing.T) {
	tests := []struct {
		name    string
		fetcher AssetFetcher
		wantURL string
	}{
		{name: "no fetcher", wantURL: "https://img.example.com/1/2/300.webp"},
		{name: "cached asset", fetcher: &stubFetcher{url: "https://cdn.example.com/assets/1/2/300.webp"}, wantURL: "https://cdn.example.com/assets/1/2/300.webp"},
		{name: "fetch failure keeps template url", fetcher: &stubFetcher{err: assets.ErrFetch}, wantURL: "https://img.example.com/1/2/300.webp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewStickerService(&stubRecommender{res: matched()}, tt.fetcher)
			got, err := svc.Recommend(context.Background(), "(對方)出去玩嗎")
			if err != nil {
				t.Fatalf("Recommend returned error: %v", err)
			}
			if got.URL != tt.wantURL {
				t.Fatalf("URL = %q, want %q", got.URL, tt.wantURL)
			}
		})
	}
}

func TestAssistant_HandleText(t *testing.T) {
	noMatch := &retrieval.Result{Candidates: []retrieval.Candidate{}}

	tests := []struct {
		name        string
		mode        Mode
		recommender *stubRecommender
		wantErr     error
		wantMessage string
	}{
		{name: "sticker", mode: ModeSticker, recommender: &stubRecommender{res: matched()}, wantMessage: "https://img.example.com/1/2/300.webp"},
		{name: "no sticker", mode: ModeSticker, recommender: &stubRecommender{res: noMatch, err: retrieval.ErrNoMatch}, wantErr: retrieval.ErrNoMatch, wantMessage: NoStickerMessage},
		{name: "analysis", mode: ModeAnalysis, recommender: &stubRecommender{}, wantMessage: "分析結果"},
		{name: "unknown mode", mode: Mode("chat"), recommender: &stubRecommender{}, wantErr: ErrUnknownMode, wantMessage: MenuMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssistant(nil, NewAnalysisService(&stubGenerator{replies: []string{"分析結果"}}), NewStickerService(tt.recommender, nil))
			reply, err := a.HandleText(context.Background(), tt.mode, "(對方)在嗎")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if reply == nil || reply.Message != tt.wantMessage {
				t.Fatalf("reply = %+v, want message %q", reply, tt.wantMessage)
			}
		})
	}
}

func TestAssistant_HandleImagesNoText(t *testing.T) {
	a := NewAssistant(
		NewScreenshotService(&fakeRecognizer{}, layout.DefaultOptions()),
		NewAnalysisService(&stubGenerator{}),
		nil,
	)

	reply, err := a.HandleImages(context.Background(), ModeAnalysis, screenshot(t))
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
	if reply.Message != NoTextMessage {
		t.Fatalf("message = %q", reply.Message)
	}
}

func TestAssistant_HandleImages(t *testing.T) {
	rec := &fakeRecognizer{pages: [][]domain.Block{{box("要不要去吃飯", 100, 300, 10)}}}
	gen := &stubGenerator{replies: []string{"對方在邀約"}}
	a := NewAssistant(NewScreenshotService(rec, layout.DefaultOptions()), NewAnalysisService(gen), nil)

	reply, err := a.HandleImages(context.Background(), ModeAnalysis, screenshot(t))
	if err != nil {
		t.Fatalf("HandleImages returned error: %v", err)
	}
	if reply.Transcript == nil || reply.Transcript.Text != "(對方)要不要去吃飯" {
		t.Fatalf("unexpected transcript %+v", reply.Transcript)
	}
	if reply.Analysis != "對方在邀約" {
		t.Fatalf("analysis = %q", reply.Analysis)
	}
}
