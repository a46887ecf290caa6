package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/IshaanNene/linkfeed/internal/config"
	"github.com/IshaanNene/linkfeed/internal/fetcher"
	"github.com/IshaanNene/linkfeed/internal/observability"
	"github.com/IshaanNene/linkfeed/internal/parser"
	"github.com/IshaanNene/linkfeed/internal/types"
)

// Builder turns one collected link into a feed item.
type Builder struct {
	cfg     *config.Config
	fetcher fetcher.Fetcher
	dates   *parser.DateParser
	locator *parser.Locator
	body    *parser.BodyExtractor
	used    *UsedURLSet
	metrics *observability.Metrics
	logger  *slog.Logger

	// startTitle is the title of the start pages, used to spot followed
	// pages that only repeat the site-wide title.
	startTitle string
}

// NewBuilder creates a Builder. body may be nil when body extraction is off.
func NewBuilder(cfg *config.Config, f fetcher.Fetcher, dates *parser.DateParser, locator *parser.Locator,
	body *parser.BodyExtractor, used *UsedURLSet, metrics *observability.Metrics, logger *slog.Logger) *Builder {
	return &Builder{
		cfg:     cfg,
		fetcher: f,
		dates:   dates,
		locator: locator,
		body:    body,
		used:    used,
		metrics: metrics,
		logger:  logger.With("component", "builder"),
	}
}

// SetStartTitle sets the start page title used for boilerplate detection.
func (b *Builder) SetStartTitle(title string) {
	b.startTitle = title
}

// Build produces the item for link. A nil item with a nil error means the
// link was rejected by policy, such as an already used URL. A non-nil error
// is a transport failure for this link only.
func (b *Builder) Build(ctx context.Context, link types.Link) (*types.FeedItem, error) {
	if b.used.Seen(link.URL) {
		b.duplicate(link.URL)
		return nil, nil
	}

	if !b.cfg.Feed.Follow {
		b.used.Mark(link.URL)
		return b.fromLink(link, link.URL), nil
	}

	resp, err := b.fetch(ctx, link.URL)
	if err != nil {
		return nil, err
	}

	final := resp.FinalURL
	if final == "" {
		final = link.URL
	}
	if final != link.URL && b.used.Seen(final) {
		b.duplicate(final)
		return nil, nil
	}
	b.used.Mark(link.URL)
	b.used.Mark(final)

	if !resp.IsSuccess() {
		b.logger.Info("page returned an error status, using link only",
			"url", link.URL, "status", resp.StatusCode)
		return b.fromLink(link, final), nil
	}

	return b.fromPage(link, resp, final), nil
}

func (b *Builder) fetch(ctx context.Context, rawURL string) (*types.Response, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		b.metrics.Fetched(observability.OutcomeFailed)
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	req.MaxBytes = b.cfg.Fetcher.MaxPageLength * 1024
	req.Encoding = b.cfg.Fetcher.Encoding

	resp, err := b.fetcher.Fetch(ctx, req)
	if err != nil {
		var fe *types.FetchError
		if errors.As(err, &fe) && fe.IsTimeout() {
			b.metrics.Fetched(observability.OutcomeTimeout)
		} else {
			b.metrics.Fetched(observability.OutcomeFailed)
		}
		return nil, err
	}
	if resp.IsSuccess() {
		b.metrics.Fetched(observability.OutcomeOK)
	} else {
		b.metrics.Fetched(observability.OutcomeHTTPError)
	}
	if resp.Truncated {
		b.logger.Info("page truncated", "url", rawURL, "max_kb", b.cfg.Fetcher.MaxPageLength)
	}
	return resp, nil
}

// fromLink builds an item from the anchor alone. It serves no-follow mode
// and followed pages whose status code is not 2xx.
func (b *Builder) fromLink(link types.Link, url string) *types.FeedItem {
	page := &parser.Page{FinalURL: url, AnchorText: link.Text}
	item := types.NewFeedItem(url)
	item.Title = b.locator.Title(page)
	item.Description = link.Text
	if t, ok := b.locator.Date(page); ok {
		item.SetPublished(t)
	}
	return item
}

func (b *Builder) fromPage(link types.Link, resp *types.Response, final string) *types.FeedItem {
	extractor := parser.NewAttributeExtractor(b.dates, b.logger)
	extractor.Feed(resp.Body)
	md := extractor.Metadata()

	doc, err := resp.Document()
	if err != nil {
		b.logger.Warn("could not parse page", "url", final, "error", err)
		doc = nil
	}

	page := &parser.Page{
		FinalURL:     final,
		AnchorText:   link.Text,
		Meta:         &md,
		Doc:          doc,
		LastModified: resp.LastModified(),
	}

	item := types.NewFeedItem(final)
	item.Link = page.ItemURL()

	var boilerplate string
	raw := b.locator.RawTitle(page)
	if b.startTitle != "" && raw == b.startTitle {
		boilerplate = raw
		raw = link.Text
		if raw == "" {
			raw = page.ItemURL()
		}
		b.logger.Debug("page title repeats the start page title", "url", final)
	}
	item.Title = b.locator.CleanTitle(raw)

	item.Description = b.description(page, resp.Body)
	if boilerplate != "" {
		if item.Description != "" {
			item.Description += "\n"
		}
		item.Description += boilerplate
	}

	if t, ok := b.locator.Date(page); ok {
		item.SetPublished(t)
	}
	item.Author = b.locator.Author(page)
	item.Categories = b.locator.Categories(page)
	return item
}

// description prefers the extracted body, then the page description, then
// the anchor text.
func (b *Builder) description(page *parser.Page, rawHTML string) string {
	if b.body != nil && page.Doc != nil {
		body, err := b.body.Extract(page.Doc, rawHTML, page.FinalURL)
		if err != nil {
			b.logger.Warn("body extraction failed", "url", page.FinalURL, "error", err)
		} else if body != "" {
			return body
		}
	}
	if d := strings.TrimSpace(page.Meta.Description); d != "" {
		return d
	}
	return page.AnchorText
}

// duplicate records a link whose URL, or the URL it redirected to, was
// already used.
func (b *Builder) duplicate(url string) {
	b.logger.Debug("link skipped", "url", url, "reason", types.ErrDuplicate)
	b.metrics.Dropped("duplicate")
}
