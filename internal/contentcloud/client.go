package contentcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// MediaType is sent as the request Content-Type.
	MediaType = "application/vnd.workday.contentcloud.v1+json"
	// ResponseContentType is the exact Content-Type a compliant response carries.
	ResponseContentType = MediaType + "; charset=utf-8"

	LinkHeader      = "Link"
	RequestIDHeader = "X-Request-Id"

	defaultUserAgent = "ccconform"
	maxErrorBody     = 512
)

// HTTPClient interface for making HTTP requests (allows injection for testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger attaches a logger for per-request debug lines.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client issues requests against a listing endpoint. It never retries.
type Client struct {
	httpClient HTTPClient
	userAgent  string
	logger     zerolog.Logger
}

// NewClient creates a new listing client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  defaultUserAgent,
		logger:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Auth selects the Authorization header sent with a request.
type Auth struct {
	set   bool
	value string
}

// NoAuth sends no Authorization header.
func NoAuth() Auth {
	return Auth{}
}

// Bearer sends "Authorization: Bearer <token>", even when token is empty.
func Bearer(token string) Auth {
	return Auth{set: true, value: "Bearer " + token}
}

// Response is a fully read HTTP response.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	RequestID  string
}

// ContentType returns the raw Content-Type response header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Get performs a single GET request. Timeouts, whether from ctx or the
// transport, are reported as ErrTimeout.
func (c *Client) Get(ctx context.Context, rawURL string, auth Auth) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", MediaType)
	req.Header.Set("Accept", MediaType)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if auth.set {
		req.Header.Set("Authorization", auth.value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.Debug().Str("url", rawURL).Str("request_id", requestID).Dur("duration", duration).Err(err).Msg("request failed")
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: GET %s after %s", ErrTimeout, rawURL, duration.Round(time.Millisecond))
		}
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: reading %s", ErrTimeout, rawURL)
		}
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Str("method", http.MethodGet).
		Str("url", rawURL).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("request completed")

	return &Response{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Duration:   duration,
		RequestID:  requestID,
	}, nil
}

// FetchPage retrieves one authenticated page and resolves its link header.
func (c *Client) FetchPage(ctx context.Context, rawURL, token string) (*Page, error) {
	resp, err := c.Get(ctx, rawURL, Bearer(token))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			URL:      rawURL,
			Expected: http.StatusOK,
			Actual:   resp.StatusCode,
			Body:     truncate(string(resp.Body), maxErrorBody),
		}
	}

	records, err := DecodeRecords(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}

	next, err := NextURL(rawURL, resp.Header.Get(LinkHeader))
	if err != nil {
		return nil, err
	}

	return &Page{URL: rawURL, Records: records, Next: next}, nil
}

// DecodeRecords decodes a listing body, which must be a JSON array.
func DecodeRecords(body []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		if json.Valid(trimmed) {
			return nil, ErrNotArray
		}
		return nil, fmt.Errorf("%w: invalid JSON", ErrDecode)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	records := make([]Record, 0, len(elements))
	for i, element := range elements {
		var record Record
		if err := json.Unmarshal(element, &record); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrDecode, i, err)
		}
		records = append(records, record)
	}

	return records, nil
}

// NextURL resolves a link header value against the page it came from.
// Both a bare URL and the RFC 8288 form `<url>; rel="next"` are accepted.
func NextURL(current, link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", nil
	}

	if strings.HasPrefix(link, "<") {
		if end := strings.Index(link, ">"); end > 0 {
			link = link[1:end]
		}
	}

	base, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %q: %w", current, err)
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: invalid link header %q: %v", ErrDecode, link, err)
	}

	return base.ResolveReference(ref).String(), nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
