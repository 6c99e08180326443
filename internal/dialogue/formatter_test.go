package dialogue

import (
	"testing"

	"github.com/timmy/mygoreply/internal/domain"
)

func TestFormat(t *testing.T) {
	turns := []domain.Turn{
		{Speaker: domain.SpeakerMiddle, Text: "10:32"},
		{Speaker: domain.SpeakerRight, Text: "要不要出去逛逛?"},
		{Speaker: domain.SpeakerLeft, Text: "好喔"},
		{Speaker: domain.SpeakerUnknown, Text: "???"},
	}

	want := "(時間戳or系統訊息)10:32\n(我)要不要出去逛逛?\n(對方)好喔\n(未知)???"
	if got := Format(turns); got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestFormatEmpty(t *testing.T) {
	if got := Format(nil); got != "" {
		t.Errorf("expected empty transcript, got %q", got)
	}
}

func TestCombine(t *testing.T) {
	got := Combine("(我)a", "  ", "(對方)b")
	if got != "(我)a\n\n(對方)b" {
		t.Errorf("Combine() = %q", got)
	}
	if Combine() != "" {
		t.Error("Combine() of nothing should be empty")
	}
}
