// Package blocklist exempts corpus lines from classification by ordered
// pattern rules. The first matching rule wins.
package blocklist

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Rule pairs a pattern with the reason recorded when it matches.
type Rule struct {
	Pattern string `yaml:"pattern"`
	Reason  string `yaml:"reason"`
}

// DefaultRules mirrors the rule set the corpus was originally tagged with.
// RE2's \s and \d are ASCII-only, so blank and numeric lines are matched with
// Unicode classes: U+3000 and full-width digits are common in the subtitles.
// A single trailing newline is tolerated after the digits.
var DefaultRules = []Rule{
	{Pattern: `^[\s\v\x1c-\x1f\p{Z}\x{85}\x{FEFF}]*$`, Reason: "空白"},
	{Pattern: `www\.|http`, Reason: "網址"},
	{Pattern: `^\p{Nd}+\n?$`, Reason: "純數字"},
	{Pattern: `[Ff][Uu][Cc][Kk]`, Reason: "髒話"},
	{Pattern: `小祥`, Reason: "小祥"},
	{Pattern: `立希`, Reason: "立希"},
	{Pattern: `祥子`, Reason: "祥子"},
	{Pattern: `愛音`, Reason: "愛音"},
}

type compiledRule struct {
	re     *regexp.Regexp
	reason string
}

// Filter is an immutable, compiled rule list. Safe for concurrent use.
type Filter struct {
	rules []compiledRule
}

// New compiles rules in order.
func New(rules []Rule) (*Filter, error) {
	f := &Filter{rules: make([]compiledRule, 0, len(rules))}
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("blocklist rule %d (%q): %w", i, r.Pattern, err)
		}
		f.rules = append(f.rules, compiledRule{re: re, reason: r.Reason})
	}
	return f, nil
}

// Default returns a Filter over DefaultRules.
func Default() *Filter {
	f, err := New(DefaultRules)
	if err != nil {
		panic(err)
	}
	return f
}

// rulesFile is the on-disk layout:
//
//	rules:
//	  - pattern: '^\s*$'
//	    reason: 空白
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile reads an ordered YAML rule list.
// An empty path returns the default filter.
func LoadFile(path string) (*Filter, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blocklist: %w", err)
	}
	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse blocklist %s: %w", path, err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("blocklist %s has no rules", path)
	}
	return New(rf.Rules)
}

// Match returns the reason of the first rule matching text.
func (f *Filter) Match(text string) (reason string, blocked bool) {
	for _, r := range f.rules {
		if r.re.MatchString(text) {
			return r.reason, true
		}
	}
	return "", false
}

// Len is the number of rules.
func (f *Filter) Len() int { return len(f.rules) }
