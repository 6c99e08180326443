package repository

import (
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/timmy/mygoreply/internal/config"
	"github.com/timmy/mygoreply/internal/index"
)

func TestPointIDIsStable(t *testing.T) {
	a, err := NewQdrantRepository(&config.QdrantConfig{Host: "localhost", Port: 6334, Collection: "lines"}, 4)
	if err != nil {
		t.Fatalf("NewQdrantRepository returned error: %v", err)
	}
	defer a.Close()
	b, _ := NewQdrantRepository(&config.QdrantConfig{Host: "localhost", Port: 6334, Collection: "other"}, 4)
	defer b.Close()

	if a.PointID(7) != a.PointID(7) {
		t.Fatalf("PointID is not deterministic")
	}
	if a.PointID(7) == a.PointID(8) {
		t.Fatalf("different positions share an ID")
	}
	if a.PointID(7) == b.PointID(7) {
		t.Fatalf("different collections share an ID")
	}
}

func TestNewQdrantRepositoryRejectsZeroDim(t *testing.T) {
	if _, err := NewQdrantRepository(&config.QdrantConfig{Host: "localhost", Port: 6334}, 0); err == nil {
		t.Fatalf("expected error for zero dimension")
	}
}

func TestLinePayload(t *testing.T) {
	payload := linePayload(LinePoint{Position: 12, Text: "好啊", Tones: []string{"開心", "輕鬆"}})

	if got := payload["position"].GetIntegerValue(); got != 12 {
		t.Fatalf("position = %d", got)
	}
	if got := payload["text"].GetStringValue(); got != "好啊" {
		t.Fatalf("text = %q", got)
	}
	tones := payload["tones"].GetListValue().GetValues()
	if len(tones) != 2 || tones[1].GetStringValue() != "輕鬆" {
		t.Fatalf("tones = %v", tones)
	}
}

func TestHitsFromScored(t *testing.T) {
	pos := func(n int64) map[string]*pb.Value {
		return map[string]*pb.Value{"position": {Kind: &pb.Value_IntegerValue{IntegerValue: n}}}
	}
	scored := []*pb.ScoredPoint{
		{Score: 0.5, Payload: pos(3)},
		{Score: 2, Payload: map[string]*pb.Value{}},
		{Score: 3, Payload: pos(0)},
	}

	got := hitsFromScored(scored)
	want := []index.Hit{{Position: 3, Distance: 0.25}, {Position: 0, Distance: 9}}
	if len(got) != len(want) {
		t.Fatalf("hits = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hit %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
