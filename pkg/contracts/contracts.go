// Package contracts holds the published shape of the Content Cloud listing
// response. Tests check the client, the record rules and the test double
// against it so none of them drift from what endpoints actually serve.
package contracts

import _ "embed"

// ListingSchema is the JSON Schema of a listing page.
//
//go:embed listing.schema.json
var ListingSchema []byte

// ListingResponseContract is a page exercising every property of the schema.
const ListingResponseContract = `[
  {
    "id": "c-001",
    "title": "Onboarding essentials",
    "description": "<h2>Welcome</h2><p>Start <strong>here</strong>.</p><ul><li>One</li><li>Two</li></ul>",
    "contentType": "course",
    "playbackType": "iframe",
    "webPlaybackUrl": "https://content.example.com/play/c-001",
    "mobilePlaybackUrl": "example-app://play/c-001",
    "channelTitle": "People Team",
    "thumbnails": [
      {"url": "https://content.example.com/thumbs/c-001.png"},
      {}
    ]
  },
  {
    "id": "c-002",
    "title": "Quarterly update",
    "description": "<p>Recorded all-hands.</p>",
    "contentType": "video",
    "playbackType": "external",
    "webPlaybackUrl": "https://content.example.com/play/c-002"
  }
]`
