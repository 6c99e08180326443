package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// LocatorField holds one of season / episode / frame_prefer exactly as it
// appeared in the dataset. The dataset mixes strings and numbers, and a
// missing field must stay distinguishable from a zero value.
type LocatorField struct {
	raw json.RawMessage
}

// NewLocatorField builds a present string-valued field.
func NewLocatorField(v string) LocatorField {
	b, _ := json.Marshal(v)
	return LocatorField{raw: b}
}

// NewNumericLocatorField builds a present number-valued field.
func NewNumericLocatorField(v int) LocatorField {
	return LocatorField{raw: json.RawMessage(strconv.Itoa(v))}
}

// Present reports whether the field exists and is not null.
func (f LocatorField) Present() bool {
	return len(f.raw) > 0 && !bytes.Equal(f.raw, []byte("null"))
}

// String renders the value for URL substitution: strings unquoted, numbers verbatim.
func (f LocatorField) String() string {
	if !f.Present() {
		return ""
	}
	var s string
	if err := json.Unmarshal(f.raw, &s); err == nil {
		return s
	}
	return string(f.raw)
}

func (f LocatorField) MarshalJSON() ([]byte, error) {
	if !f.Present() {
		return []byte("null"), nil
	}
	return f.raw, nil
}

func (f *LocatorField) UnmarshalJSON(data []byte) error {
	f.raw = append(f.raw[:0], data...)
	return nil
}

// Entry is one line of the reaction-image corpus.
// Fields the pipeline does not use (frame ranges, character, ...) are kept in
// Extra so a labeled dataset round-trips without loss.
type Entry struct {
	Text        string
	Season      LocatorField
	Episode     LocatorField
	FramePrefer LocatorField
	Tones       []string
	Extra       map[string]json.RawMessage
}

// HasLocator reports whether all three asset locator fields are present.
func (e *Entry) HasLocator() bool {
	return e.Season.Present() && e.Episode.Present() && e.FramePrefer.Present()
}

var entryKeys = []string{"text", "season", "episode", "frame_prefer", "tones"}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if raw, ok := fields["text"]; ok {
		var text interface{}
		if err := json.Unmarshal(raw, &text); err != nil {
			return fmt.Errorf("entry text: %w", err)
		}
		switch t := text.(type) {
		case string:
			e.Text = t
		case nil:
			e.Text = ""
		default:
			e.Text = fmt.Sprint(t)
		}
	}
	if raw, ok := fields["season"]; ok {
		e.Season.UnmarshalJSON(raw)
	}
	if raw, ok := fields["episode"]; ok {
		e.Episode.UnmarshalJSON(raw)
	}
	if raw, ok := fields["frame_prefer"]; ok {
		e.FramePrefer.UnmarshalJSON(raw)
	}
	if raw, ok := fields["tones"]; ok && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &e.Tones); err != nil {
			return fmt.Errorf("entry tones: %w", err)
		}
	}

	for _, k := range entryKeys {
		delete(fields, k)
	}
	if len(fields) > 0 {
		e.Extra = fields
	}
	return nil
}

func (e Entry) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Extra)+len(entryKeys))
	for k, v := range e.Extra {
		out[k] = v
	}
	out["text"] = e.Text
	if e.Season.Present() {
		out["season"] = e.Season
	}
	if e.Episode.Present() {
		out["episode"] = e.Episode
	}
	if e.FramePrefer.Present() {
		out["frame_prefer"] = e.FramePrefer
	}
	tones := e.Tones
	if tones == nil {
		tones = []string{}
	}
	out["tones"] = tones
	return json.Marshal(out)
}
