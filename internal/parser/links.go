package parser

import (
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/IshaanNene/linkfeed/internal/types"
	"github.com/IshaanNene/linkfeed/internal/urlnorm"
)

// LinkFilter holds the pattern sets applied to every collected URL. All
// patterns must already be anchored at the start of the subject.
type LinkFilter struct {
	Accept      []*regexp.Regexp
	Ignore      []*regexp.Regexp
	StripParams []*regexp.Regexp
}

// Allows reports whether url passes the filter: it must not match any
// ignore pattern and, when accept patterns exist, must match one of them.
func (f LinkFilter) Allows(url string) bool {
	for _, re := range f.Ignore {
		if re.MatchString(url) {
			return false
		}
	}
	if len(f.Accept) == 0 {
		return true
	}
	for _, re := range f.Accept {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// LinkCollector scans HTML for <a href> links, keeping the first occurrence
// of each normalized URL together with its anchor text, in document order.
type LinkCollector struct {
	logger   *slog.Logger
	filter   LinkFilter
	maxItems int
	baseURL  string

	links        []types.Link
	found        map[string]struct{}
	limitReached bool

	// scan state
	pending   string
	capturing bool
	text      []string
}

// NewLinkCollector creates a collector. maxItems <= 0 means unlimited.
func NewLinkCollector(filter LinkFilter, maxItems int, logger *slog.Logger) *LinkCollector {
	return &LinkCollector{
		logger:   logger.With("component", "link_collector"),
		filter:   filter,
		maxItems: maxItems,
		found:    make(map[string]struct{}),
	}
}

// SetBaseURL sets the URL relative links are resolved against.
func (c *LinkCollector) SetBaseURL(base string) { c.baseURL = base }

// Links returns the collected links in discovery order.
func (c *LinkCollector) Links() []types.Link {
	out := make([]types.Link, len(c.links))
	copy(out, c.links)
	return out
}

// LimitReached reports whether the link ceiling was hit.
func (c *LinkCollector) LimitReached() bool { return c.limitReached }

// MaxItems returns the link ceiling.
func (c *LinkCollector) MaxItems() int { return c.maxItems }

// Reset clears scan state. Collected links are kept.
func (c *LinkCollector) Reset() {
	c.pending = ""
	c.capturing = false
	c.text = nil
}

// Feed scans text for links.
func (c *LinkCollector) Feed(text string) {
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken:
			if tok := z.Token(); tok.Data == "a" {
				c.startAnchor(tok.Attr)
			}
		case html.SelfClosingTagToken:
			if tok := z.Token(); tok.Data == "a" {
				c.startAnchor(tok.Attr)
				c.endAnchor()
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "a" {
				c.endAnchor()
			}
		case html.TextToken:
			if c.capturing {
				if t := strings.TrimSpace(string(z.Text())); t != "" {
					c.text = append(c.text, t)
				}
			}
		}
	}
}

func (c *LinkCollector) startAnchor(attrs []html.Attribute) {
	if c.maxItems > 0 && len(c.links) >= c.maxItems {
		if !c.limitReached {
			c.logger.Warn("link limit reached", "max_links", c.maxItems, "reason", types.ErrLimitReached)
		}
		c.limitReached = true
		return
	}

	href, _ := attr(attrs, "href")
	if href == "" {
		return
	}

	url := urlnorm.Normalize(c.baseURL, href, c.filter.StripParams)
	if _, dup := c.found[url]; dup {
		c.logger.Debug("link skipped", "url", url, "reason", types.ErrDuplicate)
		return
	}
	if !c.filter.Allows(url) {
		c.logger.Debug("link skipped", "url", url, "reason", types.ErrPatternMismatch)
		return
	}

	c.pending = url
	c.capturing = true
	c.text = c.text[:0]
}

func (c *LinkCollector) endAnchor() {
	text := ""
	if c.capturing {
		text = strings.Join(strings.Fields(strings.Join(c.text, " ")), " ")
		c.capturing = false
	}
	if c.pending != "" {
		if _, dup := c.found[c.pending]; !dup {
			c.found[c.pending] = struct{}{}
			c.links = append(c.links, types.Link{URL: c.pending, Text: text})
			c.logger.Info("new link added", "url", c.pending, "text", text)
		}
	}
	c.pending = ""
}
