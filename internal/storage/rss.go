package storage

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/IshaanNene/linkfeed/internal/config"
	"github.com/IshaanNene/linkfeed/internal/types"
)

const dublinCoreNS = "http://purl.org/dc/elements/1.1/"

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	DC      string     `xml:"xmlns:dc,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Generator     string    `xml:"generator"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description,omitempty"`
	Author      string   `xml:"author,omitempty"`
	Creator     string   `xml:"dc:creator,omitempty"`
	Categories  []string `xml:"category"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        rssGUID  `xml:"guid"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// RSSWriter writes RSS 2.0.
type RSSWriter struct {
	logger *slog.Logger
}

// NewRSSWriter creates an RSSWriter.
func NewRSSWriter(logger *slog.Logger) *RSSWriter {
	return &RSSWriter{logger: logger.With("component", "rss_writer")}
}

func (w *RSSWriter) Name() string { return "rss" }

func (w *RSSWriter) Write(out io.Writer, feed *types.Feed) error {
	doc := rssDocument{
		Version: "2.0",
		DC:      dublinCoreNS,
		Channel: rssChannel{
			Title:         feed.Title,
			Link:          feed.Link,
			Description:   feed.Description,
			Language:      feed.Language,
			LastBuildDate: feed.LastBuildDate.UTC().Format(time.RFC1123Z),
			Generator:     "linkfeed " + config.Version,
			Items:         make([]rssItem, 0, len(feed.Items)),
		},
	}

	for _, item := range feed.Items {
		ri := rssItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			Categories:  item.Categories,
			GUID:        rssGUID{IsPermaLink: true, Value: item.GUID},
		}
		// <author> must be an email address; anything else goes to
		// dc:creator.
		if strings.Contains(item.Author, "@") {
			ri.Author = item.Author
		} else {
			ri.Creator = item.Author
		}
		if item.HasDate() {
			ri.PubDate = item.PublishedAt.UTC().Format(time.RFC1123Z)
		}
		doc.Channel.Items = append(doc.Channel.Items, ri)
	}

	if _, err := io.WriteString(out, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode RSS: %w", err)
	}
	if _, err := io.WriteString(out, "\n"); err != nil {
		return err
	}
	w.logger.Debug("RSS encoded", "items", len(feed.Items))
	return nil
}
