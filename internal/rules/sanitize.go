package rules

import (
	"html"

	"github.com/microcosm-cc/bluemonday"

	"github.com/gauthierbraillon/ccconform/internal/contentcloud"
)

// AllowedTags are the only elements a description may contain.
var AllowedTags = []string{"h1", "h2", "h3", "p", "strong", "i", "u", "span", "ul", "li"}

// Sanitizer strips disallowed markup from descriptions. Allowed elements
// keep no attributes; script and style contents are dropped entirely.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	policy := bluemonday.NewPolicy()
	policy.AllowElements(AllowedTags...)
	return &Sanitizer{policy: policy}
}

// Sanitize returns description with disallowed tags and attributes removed.
func (s *Sanitizer) Sanitize(description string) string {
	return s.policy.Sanitize(description)
}

// Divergence is a description that changed under sanitization.
type Divergence struct {
	Index     int    `json:"index"`
	RecordID  string `json:"record_id"`
	Original  string `json:"original"`
	Sanitized string `json:"sanitized"`
}

// Check returns every record whose description differs once sanitized.
// Both sides are compared entity-decoded: bluemonday re-escapes quotes and
// ampersands in text, which is not a markup change.
func (s *Sanitizer) Check(records []contentcloud.Record) []Divergence {
	var out []Divergence
	for i, r := range records {
		original := contentcloud.Value(r.Description)
		clean := s.Sanitize(original)
		if html.UnescapeString(clean) != html.UnescapeString(original) {
			out = append(out, Divergence{
				Index:     i,
				RecordID:  contentcloud.Value(r.ID),
				Original:  original,
				Sanitized: clean,
			})
		}
	}
	return out
}
