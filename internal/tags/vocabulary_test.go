package tags

import (
	"reflect"
	"testing"
)

func TestVocabularySize(t *testing.T) {
	if Len() != 35 {
		t.Fatalf("expected 35 tags, got %d", Len())
	}
	seen := map[string]bool{}
	for _, tag := range All() {
		if seen[tag] {
			t.Errorf("duplicate tag %q", tag)
		}
		seen[tag] = true
	}
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0] = "changed"
	if All()[0] != "開心" {
		t.Error("All must not expose the backing slice")
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "keeps vocabulary", in: []string{"開心", "幽默"}, want: []string{"開心", "幽默"}},
		{name: "drops invented", in: []string{"開心", "超爽"}, want: []string{"開心"}},
		{name: "dedupes", in: []string{"輕鬆", "輕鬆"}, want: []string{"輕鬆"}},
		{name: "trims quotes and spaces", in: []string{" 「諷刺」 "}, want: []string{"諷刺"}},
		{name: "empty", in: nil, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	if !Contains("回避") {
		t.Error("expected 回避 to be a tag")
	}
	if Contains("happy") {
		t.Error("english labels are not in the vocabulary")
	}
	if Contains("") {
		t.Error("empty string is not a tag")
	}
}

func TestHasTag(t *testing.T) {
	set := []string{"開心", "幽默"}
	if !HasTag(set, "開心") {
		t.Error("expected 開心 in set")
	}
	if HasTag(set, "傷心") {
		t.Error("did not expect 傷心 in set")
	}
}
