package parser

import (
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// PageMetadata is the best-effort bag of attributes found in a page's head.
// Empty strings mean "not found".
type PageMetadata struct {
	Title        string
	CanonicalURL string
	BaseURL      string
	Description  string
	ChangedAt    *time.Time
	Author       string
	Section      string
	Tags         []string
	Language     string
}

type scanState int

const (
	stateOutside scanState = iota
	stateHead
	stateTitle
)

// minDescriptionLen is the length a description candidate must exceed.
const minDescriptionLen = 8

// AttributeExtractor scans HTML once, forward only, collecting PageMetadata.
// Fields found by a higher-priority source are never overwritten by a
// lower-priority one. It can be fed several documents in sequence; Reset
// between them clears scan state but keeps what was found.
type AttributeExtractor struct {
	logger *slog.Logger
	dates  *DateParser

	state    scanState
	titleBuf []string

	// provisionalLang is set while Language came from <html lang>, which
	// og:locale may still override once.
	provisionalLang bool

	md PageMetadata
}

// NewAttributeExtractor creates an empty extractor.
func NewAttributeExtractor(dates *DateParser, logger *slog.Logger) *AttributeExtractor {
	if dates == nil {
		dates = NewDateParser(nil)
	}
	return &AttributeExtractor{
		logger: logger.With("component", "attribute_extractor"),
		dates:  dates,
	}
}

// Reset clears scan state, keeping the metadata collected so far.
func (e *AttributeExtractor) Reset() {
	e.state = stateOutside
	e.titleBuf = nil
	e.provisionalLang = false
}

// Metadata returns a copy of the metadata collected so far.
func (e *AttributeExtractor) Metadata() PageMetadata {
	md := e.md
	md.Tags = slices.Clone(e.md.Tags)
	if e.md.ChangedAt != nil {
		t := *e.md.ChangedAt
		md.ChangedAt = &t
	}
	return md
}

// Feed scans text. Malformed markup never fails the scan; the tokenizer
// recovers and scanning continues with the next token.
func (e *AttributeExtractor) Feed(text string) {
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken:
			e.startTag(z.Token())
		case html.SelfClosingTagToken:
			tok := z.Token()
			e.startTag(tok)
			e.endTag(tok.Data)
		case html.EndTagToken:
			name, _ := z.TagName()
			e.endTag(string(name))
		case html.TextToken:
			if e.state == stateTitle {
				e.titleBuf = append(e.titleBuf, strings.TrimSpace(string(z.Text())))
			}
		}
	}
}

func (e *AttributeExtractor) startTag(tok html.Token) {
	switch tok.Data {
	case "html":
		if lang, ok := attr(tok.Attr, "lang"); ok && lang != "" && e.md.Language == "" {
			if norm, ok := NormalizeLanguage(lang); ok {
				e.md.Language = norm
				e.provisionalLang = true
			}
		}
		return
	case "head":
		e.state = stateHead
		return
	}

	if e.state == stateOutside {
		return
	}

	switch tok.Data {
	case "base":
		if href, ok := attr(tok.Attr, "href"); ok && href != "" {
			e.md.BaseURL = href
		}
	case "title":
		if e.md.Title == "" && e.state == stateHead {
			e.state = stateTitle
			e.titleBuf = e.titleBuf[:0]
		}
	case "link":
		rel, _ := attr(tok.Attr, "rel")
		href, _ := attr(tok.Attr, "href")
		if strings.EqualFold(strings.TrimSpace(rel), "canonical") && href != "" && e.md.CanonicalURL == "" {
			e.md.CanonicalURL = href
		}
	case "meta":
		e.meta(tok.Attr)
	}
}

func (e *AttributeExtractor) endTag(name string) {
	switch name {
	case "head":
		e.state = stateOutside
	case "title":
		if e.state == stateTitle {
			e.md.Title = strings.Join(e.titleBuf, "")
			e.titleBuf = nil
			e.state = stateHead
		}
	}
}

func (e *AttributeExtractor) meta(attrs []html.Attribute) {
	name, _ := attr(attrs, "name")
	prop, _ := attr(attrs, "property")
	content, _ := attr(attrs, "content")
	name = strings.ToLower(name)
	prop = strings.ToLower(prop)

	key := name
	if key == "" {
		key = prop
	}

	switch key {
	case "article:published_time", "article:modified_time", "og:updated_time":
		t, err := e.dates.Guess(content)
		if err != nil {
			e.logger.Debug("unparseable date in meta", "key", key, "content", content, "error", err)
			break
		}
		if e.md.ChangedAt == nil || e.md.ChangedAt.Before(t) {
			e.md.ChangedAt = &t
			e.logger.Debug("found new changed date", "date", t)
		}
	case "og:description", "twitter:description", "description":
		n := utf8.RuneCountInString(content)
		if n > minDescriptionLen && n > utf8.RuneCountInString(e.md.Description) {
			e.md.Description = content
		}
	case "author", "article:author":
		if e.md.Author == "" {
			e.md.Author = content
		}
	case "article:tag":
		if content != "" && !slices.Contains(e.md.Tags, content) {
			e.md.Tags = append(e.md.Tags, content)
		}
	case "article:section":
		if content != "" {
			e.md.Section = content
		}
	case "og:locale":
		e.locale(content)
	}

	// og:url only counts as a property.
	if prop == "og:url" && e.md.CanonicalURL == "" {
		e.md.CanonicalURL = content
	}
}

func (e *AttributeExtractor) locale(content string) {
	lang, ok := NormalizeLanguage(content)
	if !ok {
		return
	}
	switch {
	case e.provisionalLang && e.md.Language != "":
		e.md.Language = lang
		e.provisionalLang = false
	case e.md.Language == "":
		e.md.Language = lang
	}
}

// attr returns the value of the first attribute named key.
func attr(attrs []html.Attribute, key string) (string, bool) {
	for _, a := range attrs {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
