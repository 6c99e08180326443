package blocklist

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatch(t *testing.T) {
	f := Default()

	tests := []struct {
		text        string
		wantBlocked bool
		wantReason  string
	}{
		{text: "", wantBlocked: true, wantReason: "空白"},
		{text: "   ", wantBlocked: true, wantReason: "空白"},
		{text: "看 www.example.com", wantBlocked: true, wantReason: "網址"},
		{text: "https://x.y", wantBlocked: true, wantReason: "網址"},
		{text: "\u3000", wantBlocked: true, wantReason: "空白"},
		{text: "\u3000\u3000", wantBlocked: true, wantReason: "空白"},
		{text: "\u00a0", wantBlocked: true, wantReason: "空白"},
		{text: " \t\n", wantBlocked: true, wantReason: "空白"},
		{text: "12345", wantBlocked: true, wantReason: "純數字"},
		{text: "１２３", wantBlocked: true, wantReason: "純數字"},
		{text: "123\n", wantBlocked: true, wantReason: "純數字"},
		{text: "123\n\n", wantBlocked: false},
		{text: "FuCk", wantBlocked: true, wantReason: "髒話"},
		{text: "小祥，為什麼", wantBlocked: true, wantReason: "小祥"},
		{text: "愛音", wantBlocked: true, wantReason: "愛音"},
		{text: "為什麼要演奏春日影", wantBlocked: false},
		{text: "123 abc", wantBlocked: false},
		{text: "\u3000晚安", wantBlocked: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			reason, blocked := f.Match(tt.text)
			if blocked != tt.wantBlocked {
				t.Fatalf("Match(%q) blocked = %v, want %v", tt.text, blocked, tt.wantBlocked)
			}
			if reason != tt.wantReason {
				t.Errorf("Match(%q) reason = %q, want %q", tt.text, reason, tt.wantReason)
			}
		})
	}
}

func TestFirstRuleWins(t *testing.T) {
	// matches both the URL rule and the name rule; URL comes first
	reason, blocked := Default().Match("http://祥子")
	if !blocked || reason != "網址" {
		t.Errorf("got (%q, %v), want (網址, true)", reason, blocked)
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	if _, err := New([]Rule{{Pattern: "(", Reason: "x"}}); err == nil {
		t.Error("expected compile error")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocklist.yaml")
	content := "rules:\n  - pattern: '^哈+$'\n    reason: 笑聲\n  - pattern: '燈'\n    reason: 燈\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if f.Len() != 2 {
		t.Fatalf("expected 2 rules, got %d", f.Len())
	}
	if reason, blocked := f.Match("哈哈哈"); !blocked || reason != "笑聲" {
		t.Errorf("got (%q, %v)", reason, blocked)
	}
	if _, blocked := f.Match("http://x"); blocked {
		t.Error("file rules replace the defaults")
	}
}

func TestLoadFileEmptyPath(t *testing.T) {
	f, err := LoadFile("")
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != len(DefaultRules) {
		t.Errorf("expected default rules, got %d", f.Len())
	}
}
