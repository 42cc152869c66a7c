// Package contentstub is an in-process stand-in for a Content Cloud listing
// endpoint. Tests point the conformance suite at it to exercise both
// compliant and non-compliant behaviour.
package contentstub

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gauthierbraillon/ccconform/internal/contentcloud"
	"github.com/gauthierbraillon/ccconform/pkg/token"
)

// Path is where the listing is served.
const Path = "/api/contents"

// LinkStyle selects how the next page is advertised.
type LinkStyle int

const (
	LinkAbsolute LinkStyle = iota
	LinkRelative
	LinkRFC8288
)

// Options configures the stub.
type Options struct {
	// PublicKey verifies bearer tokens. Required unless DisableAuth is set.
	PublicKey *rsa.PublicKey
	// DisableAuth serves every request, as a non-compliant endpoint would.
	DisableAuth bool
	// Pages are raw response bodies, served in order.
	Pages []string
	// ContentType overrides the response Content-Type.
	ContentType string
	// Delay holds every response back.
	Delay     time.Duration
	LinkStyle LinkStyle
	Now       func() time.Time
}

// Server serves the configured pages behind bearer authentication.
type Server struct {
	opts   Options
	router chi.Router

	mu       sync.Mutex
	requests []string
}

// New builds the stub router.
func New(opts Options) *Server {
	if opts.ContentType == "" {
		opts.ContentType = contentcloud.ResponseContentType
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Pages) == 0 {
		opts.Pages = []string{"[]"}
	}

	s := &Server{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.delay)
	r.With(s.authenticate).Get(Path, s.list)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Requests returns the request URIs received so far, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.RequestURI())
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Delay > 0 {
			select {
			case <-time.After(s.opts.Delay):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.DisableAuth {
			next.ServeHTTP(w, r)
			return
		}

		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, prefix) || s.opts.PublicKey == nil {
			unauthorized(w)
			return
		}

		if _, err := token.Verify(strings.TrimPrefix(header, prefix), s.opts.PublicKey, s.opts.Now()); err != nil {
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	index := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n >= len(s.opts.Pages) {
			http.NotFound(w, r)
			return
		}
		index = n
	}

	if index+1 < len(s.opts.Pages) {
		w.Header().Set(contentcloud.LinkHeader, s.link(r, index+1))
	}
	w.Header().Set("Content-Type", s.opts.ContentType)
	_, _ = w.Write([]byte(s.opts.Pages[index]))
}

func (s *Server) link(r *http.Request, page int) string {
	rel := fmt.Sprintf("%s?page=%d", Path, page)
	switch s.opts.LinkStyle {
	case LinkRelative:
		return rel
	case LinkRFC8288:
		return fmt.Sprintf(`<http://%s%s>; rel="next"`, r.Host, rel)
	default:
		return "http://" + r.Host + rel
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}

// ValidRecord returns a record that satisfies every listing rule.
func ValidRecord(id string) map[string]any {
	return map[string]any{
		"id":             id,
		"title":          "Title " + id,
		"description":    "<p>Description of " + id + "</p>",
		"contentType":    "video",
		"playbackType":   "workday",
		"webPlaybackUrl": "https://example.com/play/" + id,
	}
}

// PageOf encodes records as a listing body.
func PageOf(records ...map[string]any) string {
	if records == nil {
		records = []map[string]any{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		panic(fmt.Sprintf("contentstub: encoding page: %v", err))
	}
	return string(data)
}
