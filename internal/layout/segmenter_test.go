package layout

import (
	"errors"
	"reflect"
	"testing"

	"github.com/timmy/mygoreply/internal/domain"
)

// box builds a rectangle whose centroid is exactly (cx, cy).
func box(cx, cy int) []domain.Point {
	return []domain.Point{
		{X: cx - 20, Y: cy - 8},
		{X: cx + 20, Y: cy - 8},
		{X: cx + 20, Y: cy + 8},
		{X: cx - 20, Y: cy + 8},
	}
}

func block(text string, cx, cy, width int) domain.Block {
	return domain.Block{Text: text, Polygon: box(cx, cy), PageWidth: width}
}

func TestSegment_ChatExample(t *testing.T) {
	blocks := []domain.Block{
		block("晚安", 200, 300, 1000),
		block("10:32", 500, 200, 1000),
		block("好喔", 800, 250, 1000),
	}

	got, err := Segment(blocks, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.Turn{
		{Speaker: domain.SpeakerMiddle, Text: "10:32"},
		{Speaker: domain.SpeakerRight, Text: "好喔"},
		{Speaker: domain.SpeakerLeft, Text: "晚安"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Segment() = %+v, want %+v", got, want)
	}
}

func TestClassify_MiddleBandWinsForAnyThreshold(t *testing.T) {
	ratios := []float64{0.1, 0.3, 0.45, 0.5, 0.55, 0.7, 0.9}
	centroids := []float64{401, 450, 500, 550, 599}

	for _, ratio := range ratios {
		for _, x := range centroids {
			got := Classify(x, 1000, Options{ThresholdRatio: ratio, MiddleLow: 0.4, MiddleHigh: 0.6})
			if got != domain.SpeakerMiddle {
				t.Errorf("ratio=%v x=%v: got %s, want middle", ratio, x, got)
			}
		}
	}
}

func TestClassify_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		x     float64
		want  domain.Speaker
	}{
		{name: "just left of threshold", ratio: 0.3, x: 299.9, want: domain.SpeakerLeft},
		{name: "exactly on threshold is right", ratio: 0.3, x: 300, want: domain.SpeakerRight},
		{name: "band edge low is not middle", ratio: 0.5, x: 400, want: domain.SpeakerLeft},
		{name: "band edge high is not middle", ratio: 0.5, x: 600, want: domain.SpeakerRight},
		{name: "threshold above band", ratio: 0.7, x: 650, want: domain.SpeakerLeft},
		{name: "threshold above band boundary", ratio: 0.7, x: 700, want: domain.SpeakerRight},
		{name: "far left", ratio: 0.5, x: 10, want: domain.SpeakerLeft},
		{name: "far right", ratio: 0.5, x: 990, want: domain.SpeakerRight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.x, 1000, Options{ThresholdRatio: tt.ratio, MiddleLow: 0.4, MiddleHigh: 0.6})
			if got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.x, got, tt.want)
			}
		})
	}
}

func TestSegment_SortedByVerticalCentroid(t *testing.T) {
	blocks := []domain.Block{
		block("d", 100, 900, 800),
		block("a", 700, 10, 800),
		block("c", 100, 500, 800),
		block("b", 700, 120, 800),
	}

	got, err := Segment(blocks, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var texts []string
	for _, turn := range got {
		texts = append(texts, turn.Text)
	}
	if !reflect.DeepEqual(texts, []string{"a", "b", "c", "d"}) {
		t.Errorf("order = %v", texts)
	}
}

func TestSegment_StableTies(t *testing.T) {
	blocks := []domain.Block{
		block("first", 100, 50, 1000),
		block("second", 900, 50, 1000),
	}
	got, err := Segment(blocks, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Text != "first" || got[1].Text != "second" {
		t.Errorf("ties must keep input order, got %+v", got)
	}
}

func TestSegment_DropsEmptyText(t *testing.T) {
	blocks := []domain.Block{
		block("  ", 100, 10, 1000),
		block("", 900, 20, 1000),
		block(" 嗨 ", 900, 30, 1000),
	}
	got, err := Segment(blocks, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Text != "嗨" {
		t.Errorf("got %+v, want single trimmed turn", got)
	}
}

func TestSegment_InvalidWidth(t *testing.T) {
	for _, width := range []int{0, -5} {
		_, err := Segment([]domain.Block{block("x", 1, 1, width)}, DefaultOptions())
		if !errors.Is(err, ErrInvalidPageWidth) {
			t.Errorf("width=%d: expected ErrInvalidPageWidth, got %v", width, err)
		}
	}
}

func TestSegment_DegeneratePolygon(t *testing.T) {
	blocks := []domain.Block{
		{Text: "no polygon", PageWidth: 1000},
		{Text: "one point", Polygon: []domain.Point{{X: 900, Y: 40}}, PageWidth: 1000},
		block("normal", 900, 20, 1000),
	}

	got, err := Segment(blocks, DefaultOptions())
	if err != nil {
		t.Fatalf("degenerate polygons must not fail: %v", err)
	}

	want := []domain.Turn{
		{Speaker: domain.SpeakerUnknown, Text: "no polygon"},
		{Speaker: domain.SpeakerRight, Text: "normal"},
		{Speaker: domain.SpeakerUnknown, Text: "one point"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSegmentPages(t *testing.T) {
	pages := [][]domain.Block{
		{block("p1-b", 100, 200, 1000), block("p1-a", 900, 100, 1000)},
		{block("p2-a", 500, 50, 1000)},
	}
	got, err := SegmentPages(pages, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Text != "p1-a" || got[2].Text != "p2-a" {
		t.Errorf("unexpected turns %+v", got)
	}

	pages[1][0].PageWidth = 0
	if _, err := SegmentPages(pages, DefaultOptions()); !errors.Is(err, ErrInvalidPageWidth) {
		t.Errorf("expected width error, got %v", err)
	}
}
