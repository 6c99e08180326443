package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sample = `[
  {"text": "哈哈笑死", "season": "mygo", "episode": 3, "frame_prefer": 1204, "tones": ["開心", "幽默"], "character": "燈"},
  {"text": "為什麼", "season": "mygo", "episode": null, "frame_prefer": 88},
  {"text": "為什麼", "season": "mygo", "episode": "5", "frame_prefer": 99, "tones": []},
  {"text": "為什麼", "season": "mygo", "episode": "6", "frame_prefer": 100},
  {"text": "缺欄位", "season": "mygo"},
  {"text": " 哈哈笑死 "}
]`

func load(t *testing.T) *Corpus {
	t.Helper()
	c, err := Decode(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return c
}

func TestDecode(t *testing.T) {
	c := load(t)
	if c.Len() != 6 {
		t.Fatalf("expected 6 entries, got %d", c.Len())
	}

	e, _ := c.At(0)
	if e.Season.String() != "mygo" || e.Episode.String() != "3" || e.FramePrefer.String() != "1204" {
		t.Errorf("unexpected locator fields: %q %q %q", e.Season.String(), e.Episode.String(), e.FramePrefer.String())
	}
	if !reflect.DeepEqual(e.Tones, []string{"開心", "幽默"}) {
		t.Errorf("unexpected tones %v", e.Tones)
	}
	if _, ok := e.Extra["character"]; !ok {
		t.Error("unknown fields must be preserved")
	}

	missing, _ := c.At(1)
	if missing.Episode.Present() {
		t.Error("null episode must not be present")
	}
	if missing.HasLocator() {
		t.Error("entry with null episode has no locator")
	}
}

func TestLookup(t *testing.T) {
	c := load(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		text    string
		want    Locator
		wantErr error
	}{
		{
			name: "complete entry",
			text: "哈哈笑死",
			want: Locator{Text: "哈哈笑死", Season: "mygo", Episode: "3", FramePrefer: "1204", Tones: []string{"開心", "幽默"}},
		},
		{
			name: "skips incomplete and returns first complete",
			text: "為什麼",
			want: Locator{Text: "為什麼", Season: "mygo", Episode: "5", FramePrefer: "99", Tones: []string{}},
		},
		{name: "only incomplete", text: "缺欄位", wantErr: ErrIncompleteLocator},
		{name: "not found", text: "不存在", wantErr: ErrNotFound},
		{name: "exact match only", text: "哈哈", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Lookup(ctx, tt.text)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lookup(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestLocatorURL(t *testing.T) {
	l := Locator{Season: "mygo", Episode: "3", FramePrefer: "1204"}
	want := "https://mypic.0m0.uk/images/mygo/3/1204.webp"
	if got := l.URL("https://mypic.0m0.uk/images", "webp"); got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
	if got := l.URL("https://mypic.0m0.uk/images/", "webp"); got != want {
		t.Errorf("trailing slash: URL() = %q", got)
	}
	if got := l.Key("webp"); got != "mygo/3/1204.webp" {
		t.Errorf("Key() = %q", got)
	}
}

func TestUniqueTexts(t *testing.T) {
	got := load(t).UniqueTexts()
	want := []string{"哈哈笑死", "為什麼", "缺欄位"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UniqueTexts() = %v, want %v", got, want)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	c := load(t)
	path := filepath.Join(t.TempDir(), "out", "labeled.json")

	if err := WriteFile(path, c.Entries()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "哈哈笑死") {
		t.Error("output must not escape non-ASCII text")
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if again.Len() != c.Len() {
		t.Fatalf("length changed: %d -> %d", c.Len(), again.Len())
	}
	e, _ := again.At(0)
	if e.Episode.String() != "3" || string(e.Extra["character"]) != `"燈"` {
		t.Errorf("round trip lost data: %+v", e)
	}
	missing, _ := again.At(4)
	if missing.Episode.Present() {
		t.Error("absent field must stay absent")
	}
	if missing.Tones == nil || len(missing.Tones) != 0 {
		t.Errorf("untagged entries are written with an empty tone list, got %v", missing.Tones)
	}
}
