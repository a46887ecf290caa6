package parser

import (
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/IshaanNene/linkfeed/internal/config"
)

// Page is what is known about one link when its item fields are resolved.
// Meta and Doc are nil when the page was not downloaded.
type Page struct {
	// FinalURL is the URL after redirects, or the link URL when the page
	// was not downloaded.
	FinalURL     string
	AnchorText   string
	Meta         *PageMetadata
	Doc          *html.Node
	LastModified string
}

// ItemURL is the canonical URL when the page declares one, else FinalURL.
func (p *Page) ItemURL() string {
	if p.Meta != nil && p.Meta.CanonicalURL != "" {
		return p.Meta.CanonicalURL
	}
	return p.FinalURL
}

// resolver is one stage of a locator chain.
type resolver[T any] struct {
	name string
	fn   func(*Page) (T, bool)
}

// chain evaluates resolvers in priority order; the first to produce a value
// wins.
type chain[T any] []resolver[T]

func (c chain[T]) resolve(p *Page) (T, string, bool) {
	for _, r := range c {
		if v, ok := r.fn(p); ok {
			return v, r.name, true
		}
	}
	var zero T
	return zero, "", false
}

// Locator resolves the title, date, author and categories of a feed item
// through ordered chains of XPath, CSS, regex and metadata resolvers.
type Locator struct {
	logger *slog.Logger
	xpath  *XPathEvaluator
	css    *CSSEvaluator
	dates  *DateParser

	title      config.TitleConfig
	date       config.DateConfig
	author     config.AuthorConfig
	categories config.CategoriesConfig
	maxTitle   int

	titleRe       *regexp.Regexp
	xpathDateRe   *regexp.Regexp
	cssDateRe     *regexp.Regexp
	textDateRe    *regexp.Regexp
	urlDateRe     *regexp.Regexp
	xpathAuthorRe *regexp.Regexp
	cssAuthorRe   *regexp.Regexp

	titleChain    chain[string]
	dateChain     chain[time.Time]
	authorChain   chain[string]
	categoryChain chain[[]string]
}

// NewLocator builds the resolver chains for cfg. Invalid regexes are
// reported as *types.ConfigError.
func NewLocator(cfg *config.Config, dates *DateParser, logger *slog.Logger) (*Locator, error) {
	if dates == nil {
		dates = NewDateParser(nil)
	}
	l := &Locator{
		logger:     logger.With("component", "locator"),
		xpath:      NewXPathEvaluator(logger),
		css:        NewCSSEvaluator(logger),
		dates:      dates,
		title:      cfg.Title,
		date:       cfg.Date,
		author:     cfg.Author,
		categories: cfg.Categories,
		maxTitle:   cfg.Feed.MaxTitleLength,
	}

	regexes := NewRegexCache()
	for _, r := range []struct {
		dst     **regexp.Regexp
		key     string
		pattern string
	}{
		{&l.titleRe, "title.regex", cfg.Title.Regex},
		{&l.xpathDateRe, "date.xpath_regex", cfg.Date.XPathRegex},
		{&l.cssDateRe, "date.csss_regex", cfg.Date.CSSRegex},
		{&l.textDateRe, "date.from_text", cfg.Date.FromText},
		{&l.urlDateRe, "date.from_url", cfg.Date.FromURL},
		{&l.xpathAuthorRe, "author.xpath_regex", cfg.Author.XPathRegex},
		{&l.cssAuthorRe, "author.csss_regex", cfg.Author.CSSRegex},
	} {
		re, err := regexes.Compile(r.key, r.pattern)
		if err != nil {
			return nil, err
		}
		*r.dst = re
	}
	l.checkSelectors(cfg)

	l.titleChain = chain[string]{
		{"xpath", l.titleFromXPath},
		{"css", l.titleFromCSS},
		{"metadata", func(p *Page) (string, bool) {
			return nonEmpty(metaField(p, func(m *PageMetadata) string { return m.Title }))
		}},
		{"anchor", func(p *Page) (string, bool) { return nonEmpty(p.AnchorText) }},
		{"canonical", func(p *Page) (string, bool) {
			return nonEmpty(metaField(p, func(m *PageMetadata) string { return m.CanonicalURL }))
		}},
		{"url", func(p *Page) (string, bool) { return nonEmpty(p.FinalURL) }},
	}
	l.dateChain = chain[time.Time]{
		{"xpath", l.dateFromXPath},
		{"css", l.dateFromCSS},
		{"metadata", dateFromMeta},
		{"last-modified", l.dateFromLastModified},
		{"anchor", l.dateFromText},
		{"url", l.dateFromURL},
	}
	l.authorChain = chain[string]{
		{"xpath", l.authorFromXPath},
		{"css", l.authorFromCSS},
		{"metadata", func(p *Page) (string, bool) {
			return nonEmpty(metaField(p, func(m *PageMetadata) string { return m.Author }))
		}},
	}
	l.categoryChain = chain[[]string]{
		{"xpath", l.categoriesFromXPath},
		{"css", l.categoriesFromCSS},
		{"tags", func(p *Page) ([]string, bool) {
			if p.Meta == nil || len(p.Meta.Tags) == 0 {
				return nil, false
			}
			return append([]string(nil), p.Meta.Tags...), true
		}},
		{"section", func(p *Page) ([]string, bool) {
			if p.Meta == nil || p.Meta.Section == "" {
				return nil, false
			}
			return []string{p.Meta.Section}, true
		}},
	}

	return l, nil
}

// checkSelectors warns once about selectors that do not compile. They
// stay configured and yield no result for every page.
func (l *Locator) checkSelectors(cfg *config.Config) {
	for _, s := range []struct {
		key   string
		expr  string
		check func(string) error
	}{
		{"title.from_xpath", cfg.Title.FromXPath, l.xpath.Validate},
		{"title.from_csss", cfg.Title.FromCSS, l.css.Validate},
		{"date.from_xpath", cfg.Date.FromXPath, l.xpath.Validate},
		{"date.from_csss", cfg.Date.FromCSS, l.css.Validate},
		{"author.from_xpath", cfg.Author.FromXPath, l.xpath.Validate},
		{"author.from_csss", cfg.Author.FromCSS, l.css.Validate},
		{"categories.from_xpath", cfg.Categories.FromXPath, l.xpath.Validate},
		{"categories.from_csss", cfg.Categories.FromCSS, l.css.Validate},
	} {
		if s.expr == "" {
			continue
		}
		if err := s.check(s.expr); err != nil {
			l.logger.Warn("invalid selector", "key", s.key, "selector", s.expr, "error", err)
		}
	}
}

// RawTitle returns the located title before cleaning.
func (l *Locator) RawTitle(p *Page) string {
	t, stage, _ := l.titleChain.resolve(p)
	l.logger.Debug("title located", "url", p.FinalURL, "stage", stage)
	return t
}

// CleanTitle collapses whitespace, applies the title regex and truncates to
// the maximum title length.
func (l *Locator) CleanTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	title = Narrow(l.titleRe, title)
	return truncateRunes(title, l.maxTitle)
}

// Title returns the cleaned title for p.
func (l *Locator) Title(p *Page) string {
	return l.CleanTitle(l.RawTitle(p))
}

// Date returns the item date for p, if any resolver finds a complete one.
func (l *Locator) Date(p *Page) (time.Time, bool) {
	t, stage, ok := l.dateChain.resolve(p)
	if ok {
		l.logger.Debug("date located", "url", p.FinalURL, "stage", stage, "date", t)
	}
	return t, ok
}

// DateFromText tries only the anchor text resolver.
func (l *Locator) DateFromText(text string) (time.Time, bool) {
	return l.dateFromText(&Page{AnchorText: text})
}

// DateFromURL tries only the URL resolver.
func (l *Locator) DateFromURL(url string) (time.Time, bool) {
	return l.dateFromURL(&Page{FinalURL: url})
}

// Author returns the item author for p, or "".
func (l *Locator) Author(p *Page) string {
	a, stage, ok := l.authorChain.resolve(p)
	if ok {
		l.logger.Debug("author located", "url", p.FinalURL, "stage", stage)
	}
	return a
}

// Categories returns the raw item categories for p, split on the configured
// delimiter.
func (l *Locator) Categories(p *Page) []string {
	cats, stage, ok := l.categoryChain.resolve(p)
	if !ok {
		return nil
	}
	l.logger.Debug("categories located", "url", p.FinalURL, "stage", stage, "count", len(cats))
	if l.categories.Split == "" {
		return cats
	}
	var split []string
	for _, c := range cats {
		split = append(split, strings.Split(c, l.categories.Split)...)
	}
	return split
}

func (l *Locator) titleFromXPath(p *Page) (string, bool) {
	if l.title.FromXPath == "" || p.Doc == nil {
		return "", false
	}
	v, err := l.xpath.First(p.Doc, l.title.FromXPath)
	if err != nil {
		l.logger.Warn("title xpath failed", "url", p.FinalURL, "error", err)
		return "", false
	}
	return nonEmpty(v)
}

func (l *Locator) titleFromCSS(p *Page) (string, bool) {
	if l.title.FromCSS == "" || p.Doc == nil {
		return "", false
	}
	v, err := l.css.First(p.Doc, l.title.FromCSS)
	if err != nil {
		l.logger.Warn("title css selector failed", "url", p.FinalURL, "error", err)
		return "", false
	}
	return nonEmpty(v)
}

func (l *Locator) dateFromXPath(p *Page) (time.Time, bool) {
	if l.date.FromXPath == "" || p.Doc == nil {
		return time.Time{}, false
	}
	values, err := l.xpath.Strings(p.Doc, l.date.FromXPath)
	if err != nil {
		l.logger.Warn("date xpath failed", "url", p.FinalURL, "error", err)
		return time.Time{}, false
	}
	return l.firstDate(values, l.xpathDateRe, l.date.XPathFormat, "xpath")
}

func (l *Locator) dateFromCSS(p *Page) (time.Time, bool) {
	if l.date.FromCSS == "" || p.Doc == nil {
		return time.Time{}, false
	}
	values, err := l.css.Strings(p.Doc, l.date.FromCSS)
	if err != nil {
		l.logger.Warn("date css selector failed", "url", p.FinalURL, "error", err)
		return time.Time{}, false
	}
	return l.firstDate(values, l.cssDateRe, l.date.CSSFormat, "css")
}

func dateFromMeta(p *Page) (time.Time, bool) {
	if p.Meta == nil || p.Meta.ChangedAt == nil {
		return time.Time{}, false
	}
	return *p.Meta.ChangedAt, true
}

func (l *Locator) dateFromLastModified(p *Page) (time.Time, bool) {
	if p.LastModified == "" {
		return time.Time{}, false
	}
	t, err := l.dates.Guess(p.LastModified)
	if err != nil {
		l.logger.Warn("invalid Last-Modified header", "url", p.FinalURL, "value", p.LastModified, "error", err)
		return time.Time{}, false
	}
	return t, true
}

func (l *Locator) dateFromText(p *Page) (time.Time, bool) {
	if l.textDateRe == nil || p.AnchorText == "" {
		return time.Time{}, false
	}
	return l.firstDate([]string{p.AnchorText}, l.textDateRe, l.date.TextFormat, "anchor")
}

func (l *Locator) dateFromURL(p *Page) (time.Time, bool) {
	u := p.ItemURL()
	if l.urlDateRe == nil || u == "" {
		return time.Time{}, false
	}
	return l.firstDate([]string{u}, l.urlDateRe, l.date.URLFormat, "url")
}

// firstDate returns the first candidate that parses after narrowing.
func (l *Locator) firstDate(candidates []string, re *regexp.Regexp, format, stage string) (time.Time, bool) {
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		text := Narrow(re, c)
		t, err := l.dates.Parse(text, format)
		if err != nil {
			l.logger.Debug("date candidate rejected", "stage", stage, "text", text, "format", format, "error", err)
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

func (l *Locator) authorFromXPath(p *Page) (string, bool) {
	if l.author.FromXPath == "" || p.Doc == nil {
		return "", false
	}
	v, err := l.xpath.First(p.Doc, l.author.FromXPath)
	if err != nil {
		l.logger.Warn("author xpath failed", "url", p.FinalURL, "error", err)
		return "", false
	}
	return nonEmpty(strings.TrimSpace(Narrow(l.xpathAuthorRe, v)))
}

func (l *Locator) authorFromCSS(p *Page) (string, bool) {
	if l.author.FromCSS == "" || p.Doc == nil {
		return "", false
	}
	v, err := l.css.First(p.Doc, l.author.FromCSS)
	if err != nil {
		l.logger.Warn("author css selector failed", "url", p.FinalURL, "error", err)
		return "", false
	}
	return nonEmpty(strings.TrimSpace(Narrow(l.cssAuthorRe, v)))
}

func (l *Locator) categoriesFromXPath(p *Page) ([]string, bool) {
	if l.categories.FromXPath == "" || p.Doc == nil {
		return nil, false
	}
	values, err := l.xpath.Strings(p.Doc, l.categories.FromXPath)
	if err != nil {
		l.logger.Warn("categories xpath failed", "url", p.FinalURL, "error", err)
		return nil, false
	}
	return nonBlank(values)
}

func (l *Locator) categoriesFromCSS(p *Page) ([]string, bool) {
	if l.categories.FromCSS == "" || p.Doc == nil {
		return nil, false
	}
	values, err := l.css.Strings(p.Doc, l.categories.FromCSS)
	if err != nil {
		l.logger.Warn("categories css selector failed", "url", p.FinalURL, "error", err)
		return nil, false
	}
	return nonBlank(values)
}

func metaField(p *Page, get func(*PageMetadata) string) string {
	if p.Meta == nil {
		return ""
	}
	return get(p.Meta)
}

func nonEmpty(s string) (string, bool) {
	return s, strings.TrimSpace(s) != ""
}

func nonBlank(values []string) ([]string, bool) {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out, len(out) > 0
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
