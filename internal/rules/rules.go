// Package rules holds the per-record constraints of the Content Cloud
// listing schema. Every rule inspects the whole record sequence and returns
// all violations instead of stopping at the first one.
package rules

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/gauthierbraillon/ccconform/internal/contentcloud"
)

var validate = validator.New()

// Violation describes one record field that broke a rule.
type Violation struct {
	Index    int    `json:"index"`
	RecordID string `json:"record_id,omitempty"`
	Field    string `json:"field"`
	Rule     string `json:"rule"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

func (v Violation) String() string {
	id := v.RecordID
	if id == "" {
		id = fmt.Sprintf("#%d", v.Index)
	}
	return fmt.Sprintf("record %s: %s: expected %s, got %s", id, v.Field, v.Expected, v.Actual)
}

// field binds a JSON property name to its accessor on Record.
type field struct {
	name string
	get  func(contentcloud.Record) *string
	// max is the upper length bound in code points.
	max int
	// required fields must be present and non-empty.
	required bool
}

var fields = []field{
	{name: "id", get: func(r contentcloud.Record) *string { return r.ID }, max: 128, required: true},
	{name: "title", get: func(r contentcloud.Record) *string { return r.Title }, max: 200, required: true},
	{name: "description", get: func(r contentcloud.Record) *string { return r.Description }, max: 5000, required: true},
	{name: "contentType", get: func(r contentcloud.Record) *string { return r.ContentType }, max: 6, required: true},
	{name: "playbackType", get: func(r contentcloud.Record) *string { return r.PlaybackType }, max: 8, required: true},
	{name: "webPlaybackUrl", get: func(r contentcloud.Record) *string { return r.WebPlaybackURL }, max: 2048, required: true},
	{name: "mobilePlaybackUrl", get: func(r contentcloud.Record) *string { return r.MobilePlaybackURL }, max: 2048},
	{name: "channelTitle", get: func(r contentcloud.Record) *string { return r.ChannelTitle }, max: 200},
}

func violation(i int, r contentcloud.Record, field, rule, expected, actual string) Violation {
	return Violation{
		Index:    i,
		RecordID: contentcloud.Value(r.ID),
		Field:    field,
		Rule:     rule,
		Expected: expected,
		Actual:   actual,
	}
}

// Presence requires every mandatory field to exist and be non-empty.
func Presence(records []contentcloud.Record) []Violation {
	var out []Violation
	for i, r := range records {
		for _, f := range fields {
			if !f.required {
				continue
			}
			v := f.get(r)
			if v == nil {
				out = append(out, violation(i, r, f.name, "required", "property present", "absent"))
				continue
			}
			if err := validate.Var(*v, "min=1"); err != nil {
				out = append(out, violation(i, r, f.name, "min", "length >= 1", "empty string"))
			}
		}
	}
	return out
}

// Lengths enforces the upper bound of every present field and the lower
// bound of id. Absent fields are left to Presence.
func Lengths(records []contentcloud.Record) []Violation {
	var out []Violation
	for i, r := range records {
		for _, f := range fields {
			v := f.get(r)
			if v == nil {
				continue
			}
			n := utf8.RuneCountInString(*v)
			if err := validate.Var(*v, fmt.Sprintf("max=%d", f.max)); err != nil {
				out = append(out, violation(i, r, f.name, "max", fmt.Sprintf("length <= %d", f.max), fmt.Sprintf("length %d", n)))
			}
			if f.name == "id" && n < 1 {
				out = append(out, violation(i, r, f.name, "min", "length >= 1", "length 0"))
			}
		}
	}
	return out
}

// Enumerations checks contentType and playbackType against their allowed
// values on every record.
func Enumerations(records []contentcloud.Record) []Violation {
	contentTag := "oneof=" + strings.Join(contentcloud.ContentTypes, " ")
	playbackTag := "oneof=" + strings.Join(contentcloud.PlaybackTypes, " ")

	var out []Violation
	for i, r := range records {
		out = appendEnum(out, i, r, "contentType", r.ContentType, contentTag, contentcloud.ContentTypes)
		out = appendEnum(out, i, r, "playbackType", r.PlaybackType, playbackTag, contentcloud.PlaybackTypes)
	}
	return out
}

func appendEnum(out []Violation, i int, r contentcloud.Record, name string, v *string, tag string, allowed []string) []Violation {
	expected := "one of [" + strings.Join(allowed, ", ") + "]"
	if v == nil {
		return append(out, violation(i, r, name, "oneof", expected, "absent"))
	}
	if err := validate.Var(*v, tag); err != nil {
		return append(out, violation(i, r, name, "oneof", expected, fmt.Sprintf("%q", *v)))
	}
	return out
}

// URLs checks that webPlaybackUrl and every non-empty thumbnail url are
// absolute https URLs, and that a non-empty mobilePlaybackUrl parses.
func URLs(records []contentcloud.Record) []Violation {
	var out []Violation
	for i, r := range records {
		if err := requireHTTPS(contentcloud.Value(r.WebPlaybackURL)); err != nil {
			out = append(out, violation(i, r, "webPlaybackUrl", "https", "absolute https URL", err.Error()))
		}

		if mobile := contentcloud.Value(r.MobilePlaybackURL); mobile != "" {
			if _, err := ParseURL(mobile); err != nil {
				out = append(out, violation(i, r, "mobilePlaybackUrl", "url", "absolute URL", err.Error()))
			}
		}

		for j, thumb := range r.Thumbnails {
			raw := contentcloud.Value(thumb.URL)
			if raw == "" {
				continue
			}
			if err := requireHTTPS(raw); err != nil {
				name := fmt.Sprintf("thumbnails[%d].url", j)
				out = append(out, violation(i, r, name, "https", "absolute https URL", err.Error()))
			}
		}
	}
	return out
}

// ParseURL accepts only absolute URLs, the way a browser URL constructor does.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("unparseable URL %q", raw)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("relative URL %q", raw)
	}
	return u, nil
}

func requireHTTPS(raw string) error {
	u, err := ParseURL(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "https" {
		return fmt.Errorf("scheme %q", u.Scheme)
	}
	return nil
}
