package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request represents a single page download.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Headers are extra HTTP headers sent with this request only.
	Headers http.Header

	// Timeout overrides the fetcher's request timeout when non-zero.
	Timeout time.Duration

	// MaxBytes caps the decoded body. Longer bodies are truncated, not
	// rejected. Zero means unlimited.
	MaxBytes int64

	// Encoding forces a character encoding instead of detecting it.
	Encoding string
}

// NewRequest creates a GET request for rawURL.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	return &Request{
		URL:     u,
		Headers: make(http.Header),
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}
