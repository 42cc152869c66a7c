// Package aggregator accumulates paginated listing results into one ordered
// Aggregated Result Set.
//
// This package enables ccconform to:
// - Follow the link header page by page, strictly sequentially
// - Concatenate every page in traversal order, without dedup
// - Stop runaway pagination with a page limit
package aggregator

import (
	"context"
	"errors"
	"fmt"

	"github.com/gauthierbraillon/ccconform/internal/contentcloud"
)

// DefaultMaxPages bounds the number of pages Collect follows.
const DefaultMaxPages = 10000

var ErrPageLimit = errors.New("pagination exceeded page limit")

// PageFetcher retrieves one page of the listing.
type PageFetcher interface {
	FetchPage(ctx context.Context, url, token string) (*contentcloud.Page, error)
}

// ResultSet is the ordered concatenation of every fetched page.
type ResultSet struct {
	records []contentcloud.Record
	pages   []string
}

// New creates an empty ResultSet.
func New() *ResultSet {
	return &ResultSet{
		records: make([]contentcloud.Record, 0),
		pages:   make([]string, 0),
	}
}

// AddPage appends the records of one page, keeping their order.
func (s *ResultSet) AddPage(url string, records []contentcloud.Record) {
	s.pages = append(s.pages, url)
	s.records = append(s.records, records...)
}

// Records returns a copy of the aggregated records.
func (s *ResultSet) Records() []contentcloud.Record {
	out := make([]contentcloud.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of aggregated records.
func (s *ResultSet) Len() int {
	return len(s.records)
}

// Pages returns the URLs visited, in order.
func (s *ResultSet) Pages() []string {
	out := make([]string, len(s.pages))
	copy(out, s.pages)
	return out
}

// Options configures Collect.
type Options struct {
	MaxPages int
}

// Collect starts at baseURL and follows link headers until a page has none.
// On error the partially collected set is returned alongside it.
func Collect(ctx context.Context, fetcher PageFetcher, baseURL, token string, opts Options) (*ResultSet, error) {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	set := New()
	next := baseURL
	for next != "" {
		if len(set.pages) >= maxPages {
			return set, fmt.Errorf("%w: %d pages, next %s", ErrPageLimit, maxPages, next)
		}

		page, err := fetcher.FetchPage(ctx, next, token)
		if err != nil {
			return set, fmt.Errorf("page %d: %w", len(set.pages)+1, err)
		}

		set.AddPage(page.URL, page.Records)
		next = page.Next
	}

	return set, nil
}
