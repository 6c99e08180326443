// Package tags holds the closed tone/emotion/intent vocabulary shared by the
// offline corpus tagger and the online retrieval filter.
package tags

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// vocabulary is ordered the way prompts present it to the model.
var vocabulary = []string{
	"開心", "興奮", "好奇", "困惑", "傷心", "難過", "生氣", "不耐煩", "緊張", "害羞", "臉紅",
	"失望", "無奈", "中性", "傲嬌", "可憐", "冷淡", "撒嬌", "敷衍", "正式", "輕鬆", "幽默", "諷刺",
	"自嘲", "崩潰", "曖昧", "強勢", "弱勢", "詢問", "拒絕", "關心", "試探", "抱怨", "暗示", "回避",
}

var index = func() map[string]int {
	m := make(map[string]int, len(vocabulary))
	for i, t := range vocabulary {
		m[t] = i
	}
	return m
}()

// All returns a copy of the vocabulary in canonical order.
func All() []string {
	out := make([]string, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Len is the vocabulary size.
func Len() int { return len(vocabulary) }

// Joined renders the vocabulary for prompts.
func Joined(sep string) string {
	return strings.Join(vocabulary, sep)
}

// Normalize folds width/compatibility variants (NFKC) and trims whitespace and
// the quote characters models like to wrap labels in.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	return strings.Trim(s, " \t\r\n\"'「」『』“”")
}

// Contains reports whether s, after normalization, is a vocabulary tag.
func Contains(s string) bool {
	_, ok := index[Normalize(s)]
	return ok
}

// Filter keeps the vocabulary members of raw, normalized and deduplicated,
// in first-seen order. Anything the model invented is dropped.
func Filter(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		t := Normalize(r)
		if _, ok := index[t]; !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// HasTag reports whether set contains tag exactly.
func HasTag(set []string, tag string) bool {
	for _, t := range set {
		if t == tag {
			return true
		}
	}
	return false
}
