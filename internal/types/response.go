package types

import (
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// Response is what the transport hands back for one request: decoded body
// text, the URL after redirects, the status code and the headers.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response HTTP headers.
	Headers http.Header

	// Body is the decoded response text, possibly truncated.
	Body string

	// Truncated is true when Body was cut at the request's MaxBytes.
	Truncated bool

	// FinalURL is the URL after any redirects.
	FinalURL string

	root *html.Node
}

// Document returns the parsed DOM of the body, parsing it on first use.
// The same tree is shared by XPath and CSS evaluation.
func (r *Response) Document() (*html.Node, error) {
	if r.root != nil {
		return r.root, nil
	}
	root, err := html.Parse(strings.NewReader(r.Body))
	if err != nil {
		return nil, err
	}
	r.root = root
	return root, nil
}

// LastModified returns the raw Last-Modified header, if any.
func (r *Response) LastModified() string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Last-Modified")
}

// IsSuccess returns true if the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
