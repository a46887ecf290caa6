package types

import "time"

// Link is one outbound link collected from a start page.
type Link struct {
	// URL is absolute, fragment-stripped and query-cleaned.
	URL string

	// Text is every text node inside the anchor, trimmed and joined with
	// single spaces.
	Text string
}

// FeedItem is a single entry of the generated feed.
type FeedItem struct {
	Title       string
	Link        string
	Description string
	Author      string
	Categories  []string

	// PublishedAt is always in UTC when set.
	PublishedAt *time.Time

	// GUID is the URL the item was fetched from, before canonicalization.
	GUID string
}

// NewFeedItem creates an item for the given source URL.
func NewFeedItem(sourceURL string) *FeedItem {
	return &FeedItem{
		Link: sourceURL,
		GUID: sourceURL,
	}
}

// HasDate reports whether the item carries a publication date.
func (i *FeedItem) HasDate() bool {
	return i.PublishedAt != nil && !i.PublishedAt.IsZero()
}

// SetPublished stores t converted to UTC.
func (i *FeedItem) SetPublished(t time.Time) {
	utc := t.UTC()
	i.PublishedAt = &utc
}

// Feed is the channel-level record handed to a feed writer.
type Feed struct {
	Title         string
	Link          string
	Description   string
	Language      string
	LastBuildDate time.Time
	Items         []*FeedItem
}
