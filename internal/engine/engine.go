// Package engine collects links from the start pages and builds one feed
// item per link, strictly in sequence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/IshaanNene/linkfeed/internal/config"
	"github.com/IshaanNene/linkfeed/internal/fetcher"
	"github.com/IshaanNene/linkfeed/internal/observability"
	"github.com/IshaanNene/linkfeed/internal/parser"
	"github.com/IshaanNene/linkfeed/internal/pipeline"
	"github.com/IshaanNene/linkfeed/internal/types"
	"github.com/IshaanNene/linkfeed/internal/urlnorm"
)

// Referrer receives the URL of the first start page once it is known.
// *fetcher.Session implements it.
type Referrer interface {
	SetReferer(ref string)
	MarkSameOrigin()
}

// StartPages is what was learned from the start pages.
type StartPages struct {
	// URLs are the start URLs as given.
	URLs []string

	// FinalURLs are the start URLs after redirects, in fetch order. Pages
	// after an early stop are missing.
	FinalURLs []string

	Meta  parser.PageMetadata
	Links []types.Link
}

// Engine is the feed build orchestrator.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	fetcher  fetcher.Fetcher
	referrer Referrer
	metrics  *observability.Metrics

	dates     *parser.DateParser
	extractor *parser.AttributeExtractor
	collector *parser.LinkCollector
	locator   *parser.Locator
	builder   *Builder
	pipeline  *pipeline.Pipeline
	used      *UsedURLSet
}

// New creates an Engine. The configuration must already be validated;
// regexes that fail to compile are returned as *types.ConfigError.
// referrer may be nil.
func New(cfg *config.Config, f fetcher.Fetcher, referrer Referrer, metrics *observability.Metrics, logger *slog.Logger) (*Engine, error) {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}

	accept, err := config.CompilePatterns("links.patterns", cfg.Links.Patterns)
	if err != nil {
		return nil, err
	}
	ignore, err := config.CompilePatterns("links.ignore_patterns", cfg.Links.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	strip, err := config.CompilePatterns("links.qs_remove_params", cfg.Links.QSRemoveParams)
	if err != nil {
		return nil, err
	}

	dates := parser.NewDateParser(time.Local)
	locator, err := parser.NewLocator(cfg, dates, logger)
	if err != nil {
		return nil, err
	}

	var body *parser.BodyExtractor
	if cfg.Body.Enabled {
		body, err = parser.NewBodyExtractor(cfg.Body, logger)
		if err != nil {
			return nil, err
		}
	}

	e := &Engine{
		cfg:       cfg,
		logger:    logger.With("component", "engine"),
		fetcher:   f,
		referrer:  referrer,
		metrics:   metrics,
		dates:     dates,
		extractor: parser.NewAttributeExtractor(dates, logger),
		collector: parser.NewLinkCollector(parser.LinkFilter{
			Accept:      accept,
			Ignore:      ignore,
			StripParams: strip,
		}, cfg.Links.MaxLinks, logger),
		locator:  locator,
		pipeline: pipeline.Standard(cfg.Feed.RequireDates, logger),
		used:     NewUsedURLSet(cfg.Links.MaxLinks),
	}
	e.builder = NewBuilder(cfg, f, dates, locator, body, e.used, metrics, logger)
	e.pipeline.OnDrop(func(stage string, _ *types.FeedItem) {
		e.metrics.Dropped(stage)
	})

	return e, nil
}

// Metrics returns the run metrics.
func (e *Engine) Metrics() *observability.Metrics {
	return e.metrics
}

// Collect downloads every start page in order and collects their links and
// metadata. It stops early once the link limit is reached. Failing to
// retrieve a start page is a *types.FatalError.
func (e *Engine) Collect(ctx context.Context, urls []string) (*StartPages, error) {
	if len(urls) == 0 {
		return nil, &types.FatalError{Stage: "start", Err: errors.New("no start URL given")}
	}

	sp := &StartPages{URLs: urls}
	for i, raw := range urls {
		resp, err := e.fetchStart(ctx, raw)
		if err != nil {
			return nil, &types.FatalError{Stage: "start page", Err: err}
		}

		final := resp.FinalURL
		if final == "" {
			final = raw
		}
		sp.FinalURLs = append(sp.FinalURLs, final)
		e.used.Mark(final)

		if i == 0 && e.referrer != nil {
			e.referrer.SetReferer(final)
		}

		// Only a <base> inside <head> counts, as recorded by the extractor.
		e.extractor.Feed(resp.Body)
		base := final
		if href := e.extractor.Metadata().BaseURL; href != "" {
			base = urlnorm.Resolve(final, href)
		}

		e.collector.SetBaseURL(base)
		e.collector.Feed(resp.Body)
		e.collector.Reset()
		e.extractor.Reset()

		e.logger.Info("start page scanned", "url", final, "links", len(e.collector.Links()))
		if e.collector.LimitReached() {
			break
		}
	}
	if e.referrer != nil {
		e.referrer.MarkSameOrigin()
	}

	sp.Meta = e.extractor.Metadata()
	sp.Links = e.collector.Links()
	e.metrics.LinksCollected.Add(float64(len(sp.Links)))
	return sp, nil
}

func (e *Engine) fetchStart(ctx context.Context, raw string) (*types.Response, error) {
	req, err := types.NewRequest(raw)
	if err != nil {
		return nil, err
	}
	req.MaxBytes = e.cfg.Fetcher.MaxFirstPageLength * 1024
	req.Encoding = e.cfg.Fetcher.Encoding

	resp, err := e.fetcher.Fetch(ctx, req)
	if err != nil {
		e.metrics.Fetched(observability.OutcomeFailed)
		return nil, err
	}
	if !resp.IsSuccess() {
		e.metrics.Fetched(observability.OutcomeHTTPError)
		return nil, &types.FetchError{URL: raw, StatusCode: resp.StatusCode, Err: errors.New("unexpected status")}
	}
	e.metrics.Fetched(observability.OutcomeOK)
	if resp.Truncated {
		e.logger.Warn("start page truncated", "url", raw, "max_kb", e.cfg.Fetcher.MaxFirstPageLength)
	}
	return resp, nil
}

// Run builds the feed for the given start URLs. Per-link failures are
// logged and skipped; only start page failures abort the run.
func (e *Engine) Run(ctx context.Context, urls []string) (*types.Feed, error) {
	sp, err := e.Collect(ctx, urls)
	if err != nil {
		return nil, err
	}

	e.builder.SetStartTitle(sp.Meta.Title)
	feed := e.feedHeader(sp)

	for _, link := range sp.Links {
		if err := ctx.Err(); err != nil {
			return nil, &types.FatalError{Stage: "build", Err: err}
		}

		item, err := e.builder.Build(ctx, link)
		if err != nil {
			e.logger.Warn("skipping link", "url", link.URL, "error", err)
			e.metrics.Dropped("fetch_failed")
			continue
		}
		if item == nil {
			continue
		}

		item, err = e.pipeline.Process(item)
		if err != nil {
			e.logger.Warn("skipping item", "url", link.URL, "error", err)
			e.metrics.Dropped("pipeline_error")
			continue
		}
		if item == nil {
			continue
		}

		feed.Items = append(feed.Items, item)
		e.metrics.ItemsEmitted.Inc()
	}

	e.metrics.Finish()
	e.logger.Info("feed built",
		"links", len(sp.Links),
		"items", len(feed.Items),
		"used_urls", e.used.Count(),
	)
	return feed, nil
}

// feedHeader derives the channel-level fields from the start pages.
func (e *Engine) feedHeader(sp *StartPages) *types.Feed {
	joined := strings.Join(sp.URLs, " ")

	title := e.cfg.Feed.Title
	if title == "" {
		title = sp.Meta.Title
	}
	if title == "" {
		title = joined
	}
	title = truncate(strings.Join(strings.Fields(title), " "), e.cfg.Feed.MaxTitleLength)

	desc := firstNonEmpty(sp.Meta.Description, title, sp.Meta.CanonicalURL, joined)

	return &types.Feed{
		Title:         title,
		Link:          sp.URLs[0],
		Description:   desc,
		Language:      sp.Meta.Language,
		LastBuildDate: time.Now().UTC(),
	}
}

// TestReport collects the links and writes them with any dates found in
// their URL or text, without downloading the linked pages.
func (e *Engine) TestReport(ctx context.Context, urls []string, w io.Writer) error {
	sp, err := e.Collect(ctx, urls)
	if err != nil {
		return err
	}

	for _, link := range sp.Links {
		fmt.Fprintln(w, link.URL)
		fmt.Fprintf(w, "  text: %s\n", link.Text)
		if t, ok := e.locator.DateFromURL(link.URL); ok {
			fmt.Fprintf(w, "  date from url: %s\n", t.UTC().Format(time.RFC3339))
		}
		if t, ok := e.locator.DateFromText(link.Text); ok {
			fmt.Fprintf(w, "  date from text: %s\n", t.UTC().Format(time.RFC3339))
		}
	}
	if e.collector.LimitReached() {
		fmt.Fprintf(w, "# Limit of %d links was reached.\n", e.collector.MaxItems())
	}
	fmt.Fprintf(w, "%d links\n", len(sp.Links))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
