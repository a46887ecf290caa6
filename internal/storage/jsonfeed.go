package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/IshaanNene/linkfeed/internal/types"
)

const jsonFeedVersion = "https://jsonfeed.org/version/1.1"

type jsonFeed struct {
	Version     string         `json:"version"`
	Title       string         `json:"title"`
	HomePageURL string         `json:"home_page_url,omitempty"`
	Description string         `json:"description,omitempty"`
	Language    string         `json:"language,omitempty"`
	Items       []jsonFeedItem `json:"items"`
}

type jsonFeedItem struct {
	ID            string           `json:"id"`
	URL           string           `json:"url,omitempty"`
	Title         string           `json:"title,omitempty"`
	ContentHTML   string           `json:"content_html,omitempty"`
	ContentText   string           `json:"content_text,omitempty"`
	DatePublished string           `json:"date_published,omitempty"`
	Authors       []jsonFeedAuthor `json:"authors,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
}

type jsonFeedAuthor struct {
	Name string `json:"name"`
}

// JSONFeedWriter writes JSON Feed 1.1.
type JSONFeedWriter struct {
	logger *slog.Logger
}

// NewJSONFeedWriter creates a JSONFeedWriter.
func NewJSONFeedWriter(logger *slog.Logger) *JSONFeedWriter {
	return &JSONFeedWriter{logger: logger.With("component", "jsonfeed_writer")}
}

func (w *JSONFeedWriter) Name() string { return "json" }

func (w *JSONFeedWriter) Write(out io.Writer, feed *types.Feed) error {
	doc := jsonFeed{
		Version:     jsonFeedVersion,
		Title:       feed.Title,
		HomePageURL: feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
		Items:       make([]jsonFeedItem, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		ji := jsonFeedItem{
			ID:    item.GUID,
			URL:   item.Link,
			Title: item.Title,
			Tags:  item.Categories,
		}
		// Extracted bodies are HTML fragments; everything else is text.
		if strings.HasPrefix(strings.TrimSpace(item.Description), "<") {
			ji.ContentHTML = item.Description
		} else {
			ji.ContentText = item.Description
		}
		if item.Author != "" {
			ji.Authors = []jsonFeedAuthor{{Name: item.Author}}
		}
		if item.HasDate() {
			ji.DatePublished = item.PublishedAt.UTC().Format(time.RFC3339)
		}
		doc.Items = append(doc.Items, ji)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode JSON feed: %w", err)
	}
	w.logger.Debug("JSON feed encoded", "items", len(feed.Items))
	return nil
}
