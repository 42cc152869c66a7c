package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauthierbraillon/ccconform/internal/contentcloud"
)

var str = contentcloud.String

func validRecord() contentcloud.Record {
	return contentcloud.Record{
		ID:             str("1"),
		Title:          str("T"),
		Description:    str("D"),
		ContentType:    str("video"),
		PlaybackType:   str("workday"),
		WebPlaybackURL: str("https://example.com/v"),
	}
}

func fieldsOf(vs []Violation) []string {
	var out []string
	for _, v := range vs {
		out = append(out, v.Field)
	}
	return out
}

func TestAC500_ValidRecord_PassesEveryRule(t *testing.T) {
	records := []contentcloud.Record{validRecord()}

	assert.Empty(t, Presence(records))
	assert.Empty(t, Lengths(records))
	assert.Empty(t, Enumerations(records))
	assert.Empty(t, URLs(records))
}

func TestAC501_Presence_ReportsAbsentAndEmptyFields(t *testing.T) {
	absent := validRecord()
	absent.Title = nil
	empty := validRecord()
	empty.WebPlaybackURL = str("")
	emptyID := validRecord()
	emptyID.ID = str("")

	vs := Presence([]contentcloud.Record{absent, empty, emptyID})

	require.Len(t, vs, 3)
	assert.Equal(t, Violation{Index: 0, RecordID: "1", Field: "title", Rule: "required", Expected: "property present", Actual: "absent"}, vs[0])
	assert.Equal(t, "webPlaybackUrl", vs[1].Field)
	assert.Equal(t, "min", vs[1].Rule)
	assert.Equal(t, 2, vs[2].Index)
	assert.Equal(t, "id", vs[2].Field)
}

func TestAC501_Presence_OptionalFieldsMayBeAbsent(t *testing.T) {
	r := validRecord()
	r.MobilePlaybackURL = nil
	r.ChannelTitle = nil

	assert.Empty(t, Presence([]contentcloud.Record{r}))
}

func TestAC502_Lengths_EnforcesUpperBounds(t *testing.T) {
	tests := []struct {
		field string
		set   func(*contentcloud.Record, string)
		max   int
	}{
		{"id", func(r *contentcloud.Record, s string) { r.ID = &s }, 128},
		{"title", func(r *contentcloud.Record, s string) { r.Title = &s }, 200},
		{"description", func(r *contentcloud.Record, s string) { r.Description = &s }, 5000},
		{"contentType", func(r *contentcloud.Record, s string) { r.ContentType = &s }, 6},
		{"playbackType", func(r *contentcloud.Record, s string) { r.PlaybackType = &s }, 8},
		{"webPlaybackUrl", func(r *contentcloud.Record, s string) { r.WebPlaybackURL = &s }, 2048},
		{"mobilePlaybackUrl", func(r *contentcloud.Record, s string) { r.MobilePlaybackURL = &s }, 2048},
		{"channelTitle", func(r *contentcloud.Record, s string) { r.ChannelTitle = &s }, 200},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			atMax := validRecord()
			tt.set(&atMax, strings.Repeat("x", tt.max))
			assert.Empty(t, Lengths([]contentcloud.Record{atMax}), "length %d should be accepted", tt.max)

			over := validRecord()
			tt.set(&over, strings.Repeat("x", tt.max+1))
			vs := Lengths([]contentcloud.Record{over})
			require.Len(t, vs, 1)
			assert.Equal(t, tt.field, vs[0].Field)
			assert.Equal(t, "max", vs[0].Rule)
		})
	}
}

func TestAC502_Lengths_CountsCodePoints(t *testing.T) {
	r := validRecord()
	r.ContentType = str("éééééé")

	vs := Lengths([]contentcloud.Record{r})
	assert.Empty(t, vs, "six code points should fit a six character bound")
}

func TestAC502_Lengths_ToleratesAbsentMobilePlaybackURL(t *testing.T) {
	r := validRecord()
	r.MobilePlaybackURL = nil

	assert.Empty(t, Lengths([]contentcloud.Record{r}))
}

func TestAC502_Lengths_RejectsEmptyID(t *testing.T) {
	r := validRecord()
	r.ID = str("")

	vs := Lengths([]contentcloud.Record{r})
	require.Len(t, vs, 1)
	assert.Equal(t, "min", vs[0].Rule)
}

func TestAC503_Enumerations_ChecksEveryRecord(t *testing.T) {
	good := validRecord()
	badContent := validRecord()
	badContent.ContentType = str("podcast")
	badPlayback := validRecord()
	badPlayback.PlaybackType = nil

	vs := Enumerations([]contentcloud.Record{good, good, badContent, badPlayback})

	require.Len(t, vs, 2)
	assert.Equal(t, 2, vs[0].Index)
	assert.Equal(t, `"podcast"`, vs[0].Actual)
	assert.Equal(t, 3, vs[1].Index)
	assert.Equal(t, "absent", vs[1].Actual)
}

func TestAC503_Enumerations_AcceptsAllValues(t *testing.T) {
	var records []contentcloud.Record
	for _, ct := range contentcloud.ContentTypes {
		for _, pt := range contentcloud.PlaybackTypes {
			r := validRecord()
			r.ContentType = str(ct)
			r.PlaybackType = str(pt)
			records = append(records, r)
		}
	}

	assert.Empty(t, Enumerations(records))
}

func TestAC504_URLs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*contentcloud.Record)
		want   []string
	}{
		{"http web url", func(r *contentcloud.Record) { r.WebPlaybackURL = str("http://example.com/v") }, []string{"webPlaybackUrl"}},
		{"relative web url", func(r *contentcloud.Record) { r.WebPlaybackURL = str("/v") }, []string{"webPlaybackUrl"}},
		{"unparseable web url", func(r *contentcloud.Record) { r.WebPlaybackURL = str("https://exa mple.com") }, []string{"webPlaybackUrl"}},
		{"absent web url", func(r *contentcloud.Record) { r.WebPlaybackURL = nil }, []string{"webPlaybackUrl"}},
		{"uppercase scheme", func(r *contentcloud.Record) { r.WebPlaybackURL = str("HTTPS://example.com/v") }, nil},
		{"mobile any scheme", func(r *contentcloud.Record) { r.MobilePlaybackURL = str("workday://open/123") }, nil},
		{"mobile empty", func(r *contentcloud.Record) { r.MobilePlaybackURL = str("") }, nil},
		{"mobile relative", func(r *contentcloud.Record) { r.MobilePlaybackURL = str("not a url") }, []string{"mobilePlaybackUrl"}},
		{"thumbnail https", func(r *contentcloud.Record) {
			r.Thumbnails = []contentcloud.Thumbnail{{URL: str("https://cdn.test/a.png")}, {}}
		}, nil},
		{"thumbnail http", func(r *contentcloud.Record) {
			r.Thumbnails = []contentcloud.Thumbnail{{URL: str("https://cdn.test/a.png")}, {URL: str("http://cdn.test/b.png")}}
		}, []string{"thumbnails[1].url"}},
		{"thumbnail empty", func(r *contentcloud.Record) {
			r.Thumbnails = []contentcloud.Thumbnail{{URL: str("")}}
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			assert.Equal(t, tt.want, fieldsOf(URLs([]contentcloud.Record{r})))
		})
	}
}

func TestViolation_String(t *testing.T) {
	v := Violation{Index: 3, Field: "title", Expected: "property present", Actual: "absent"}
	assert.Equal(t, "record #3: title: expected property present, got absent", v.String())

	v.RecordID = "abc"
	assert.Contains(t, v.String(), "record abc")
}
