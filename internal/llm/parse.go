package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParse marks model output that could not be decoded as the expected JSON.
var ErrParse = errors.New("llm: malformed JSON response")

var (
	leadingFence  = regexp.MustCompile("^```[A-Za-z0-9_-]*")
	trailingFence = regexp.MustCompile("```$")
)

// StripFences removes one leading ``` (with optional language tag) and one
// trailing ``` around a model reply.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// DecodeJSON strips code fences and unmarshals the remaining text into v.
// Parameters:
//   - text: raw model output.
//   - v: destination, as for json.Unmarshal.
//
// Returns:
//   - error: ErrEmptyResponse for blank output, an ErrParse-wrapped error
//     naming the offending text otherwise.
func DecodeJSON(text string, v interface{}) error {
	body := StripFences(text)
	if body == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%w: %v (text: %q)", ErrParse, err, truncate(body, 200))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
