package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauthierbraillon/ccconform/internal/contentcloud"
)

func TestAC600_Sanitize_DropsScriptElements(t *testing.T) {
	assert.Equal(t, "Hello", NewSanitizer().Sanitize("<script>alert(1)</script>Hello"))
}

func TestAC600_Sanitize_KeepsAllowedTags(t *testing.T) {
	html := "<h1>Title</h1><p>Some <strong>bold</strong>, <i>italic</i> and <u>under</u></p><ul><li><span>one</span></li></ul>"

	assert.Equal(t, html, NewSanitizer().Sanitize(html))
}

func TestAC600_Sanitize_StripsAttributesAndOtherTags(t *testing.T) {
	s := NewSanitizer()

	assert.Equal(t, "<p>text</p>", s.Sanitize(`<p class="x" onclick="evil()">text</p>`))
	assert.Equal(t, "link", s.Sanitize(`<a href="https://example.com">link</a>`))
}

func TestAC601_Sanitize_IsAFixedPoint(t *testing.T) {
	s := NewSanitizer()
	inputs := []string{
		"<script>alert(1)</script>Hello",
		`<div><p style="color:red">Tom & Jerry's</p><img src="x.png"></div>`,
		"<h2>ok</h2><iframe src='https://evil.test'></iframe>",
		"plain <b>text</b>",
	}

	for _, in := range inputs {
		once := s.Sanitize(in)
		assert.Equal(t, once, s.Sanitize(once), "sanitizing %q twice should not change it further", in)
	}
}

func TestAC602_Check_ReportsDivergingDescriptions(t *testing.T) {
	clean := validRecord()
	dirty := validRecord()
	dirty.ID = str("42")
	dirty.Description = str("<script>alert(1)</script>Hello")

	divergences := NewSanitizer().Check([]contentcloud.Record{clean, dirty})

	require.Len(t, divergences, 1)
	assert.Equal(t, Divergence{Index: 1, RecordID: "42", Original: "<script>alert(1)</script>Hello", Sanitized: "Hello"}, divergences[0])
}

func TestAC602_Check_IgnoresReescapedText(t *testing.T) {
	descriptions := []string{
		`It's a "great" course`,
		"<p>Go's</p>",
		"<p>Learn Go's basics</p>",
		"<p>Tom &amp; Jerry</p>",
		"Tom & Jerry",
	}

	s := NewSanitizer()
	for _, d := range descriptions {
		r := validRecord()
		r.Description = str(d)
		assert.Empty(t, s.Check([]contentcloud.Record{r}), "%q has no disallowed markup", d)
	}
}

func TestAC602_Check_ReportsRawSanitizedString(t *testing.T) {
	r := validRecord()
	r.Description = str(`<p onclick="x()">Go's</p>`)

	divergences := NewSanitizer().Check([]contentcloud.Record{r})

	require.Len(t, divergences, 1)
	assert.Equal(t, "<p>Go&#39;s</p>", divergences[0].Sanitized)
}
