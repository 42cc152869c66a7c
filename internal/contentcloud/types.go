// Package contentcloud talks to a Content Cloud content-listing endpoint.
//
// This package enables ccconform to:
// - Issue GET requests with or without bearer credentials
// - Decode pages of Content Records
// - Follow the link response header to the next page
package contentcloud

// Enumerations accepted for Record.ContentType and Record.PlaybackType.
var (
	ContentTypes  = []string{"video", "audio", "course"}
	PlaybackTypes = []string{"workday", "iframe", "external"}
)

// Record is one entry of the listing body. Pointer fields distinguish an
// absent property from an empty string.
type Record struct {
	ID                *string     `json:"id"`
	Title             *string     `json:"title"`
	Description       *string     `json:"description"`
	ContentType       *string     `json:"contentType"`
	PlaybackType      *string     `json:"playbackType"`
	WebPlaybackURL    *string     `json:"webPlaybackUrl"`
	MobilePlaybackURL *string     `json:"mobilePlaybackUrl,omitempty"`
	ChannelTitle      *string     `json:"channelTitle,omitempty"`
	Thumbnails        []Thumbnail `json:"thumbnails,omitempty"`
}

// Thumbnail is an image attached to a Record.
type Thumbnail struct {
	URL *string `json:"url,omitempty"`
}

// Page is one decoded response of the listing endpoint.
type Page struct {
	URL     string
	Records []Record
	// Next is the absolute URL of the following page, empty on the last one.
	Next string
}

// Value dereferences an optional string field.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// String returns a pointer to s, for building records.
func String(s string) *string {
	return &s
}
