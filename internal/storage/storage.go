// Package storage serializes a built feed and writes it out.
package storage

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/IshaanNene/linkfeed/internal/types"
)

// FeedWriter is the interface for all feed output formats.
type FeedWriter interface {
	// Write serializes feed to w.
	Write(w io.Writer, feed *types.Feed) error

	// Name returns the format identifier.
	Name() string
}

// NewFeedWriter returns the writer for format ("rss" or "json").
func NewFeedWriter(format string, logger *slog.Logger) (FeedWriter, error) {
	switch format {
	case "rss", "":
		return NewRSSWriter(logger), nil
	case "json":
		return NewJSONFeedWriter(logger), nil
	default:
		return nil, &types.StorageError{Backend: format, Err: fmt.Errorf("unsupported feed format: %s", format)}
	}
}
