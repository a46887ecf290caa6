package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for policy rejections. These never abort a run; they are
// only used to label why a link produced no feed item.
var (
	ErrDuplicate       = errors.New("duplicate URL")
	ErrLimitReached    = errors.New("link limit reached")
	ErrPatternMismatch = errors.New("URL rejected by pattern filter")
	ErrInvalidURL      = errors.New("invalid URL")
)

// FetchError wraps errors that occur while retrieving a page.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Timeout    bool
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTimeout reports whether the fetch was cut short by the request timeout.
func (e *FetchError) IsTimeout() bool { return e.Timeout }

// ParseError wraps errors that occur while evaluating a selector or
// parsing a value out of a page.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FatalError wraps failures that abort the whole run, such as being unable
// to download a start page.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error at %s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur while writing the feed.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the item post-processing chain.
type PipelineError struct {
	Stage string
	Item  *FeedItem
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
