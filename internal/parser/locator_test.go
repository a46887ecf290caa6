package parser

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/IshaanNene/linkfeed/internal/config"
	"github.com/IshaanNene/linkfeed/internal/types"
)

const storyHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Site Name</title>
    <link rel="canonical" href="http://a.test/2022/07/15/story">
    <meta property="article:published_time" content="2022-07-15T08:00:00Z">
    <meta name="author" content="Meta Author">
    <meta property="article:tag" content="tag-one">
    <meta property="article:section" content="Sports">
</head>
<body>
    <h1 class="headline">  The Real Headline  </h1>
    <div class="byline">By Ana Lima</div>
    <span class="date">Published: 2022-07-20 14:00</span>
    <ul class="cats"><li>alpha</li><li>beta, gamma</li><li> </li></ul>
</body>
</html>`

func newTestLocator(t *testing.T, mutate func(*config.Config)) *Locator {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	l, err := NewLocator(cfg, NewDateParser(time.UTC), testLogger)
	require.NoError(t, err)
	return l
}

func storyPage(t *testing.T) *Page {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(storyHTML))
	require.NoError(t, err)
	e := NewAttributeExtractor(NewDateParser(time.UTC), testLogger)
	e.Feed(storyHTML)
	md := e.Metadata()
	return &Page{
		FinalURL:   "http://a.test/story?from=home",
		AnchorText: "Anchor text 2022-07-01",
		Meta:       &md,
		Doc:        doc,
	}
}

func TestLocatorTitleOrder(t *testing.T) {
	page := storyPage(t)

	l := newTestLocator(t, func(c *config.Config) { c.Title.FromXPath = `//h1/text()` })
	assert.Equal(t, "The Real Headline", l.Title(page))

	l = newTestLocator(t, func(c *config.Config) { c.Title.FromCSS = `h1.headline` })
	assert.Equal(t, "The Real Headline", l.Title(page))

	l = newTestLocator(t, nil)
	assert.Equal(t, "Site Name", l.Title(page))

	noMeta := &Page{FinalURL: "http://a.test/x", AnchorText: "Anchor"}
	assert.Equal(t, "Anchor", l.Title(noMeta))

	bare := &Page{FinalURL: "http://a.test/x", Meta: &PageMetadata{CanonicalURL: "http://a.test/c"}}
	assert.Equal(t, "http://a.test/c", l.Title(bare))

	assert.Equal(t, "http://a.test/x", l.Title(&Page{FinalURL: "http://a.test/x"}))
}

func TestLocatorTitleInvalidSelectorFallsThrough(t *testing.T) {
	page := storyPage(t)
	l := newTestLocator(t, func(c *config.Config) {
		c.Title.FromXPath = `//h1[`
		c.Title.FromCSS = `h1..bad`
	})
	assert.Equal(t, "Site Name", l.Title(page))
}

func TestNewLocatorWarnsAboutInvalidSelectors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := config.DefaultConfig()
	cfg.Date.FromXPath = `//time[`
	cfg.Author.FromCSS = `div..byline`
	cfg.Title.FromCSS = `h1.headline`
	_, err := NewLocator(cfg, NewDateParser(time.UTC), logger)
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "invalid selector"))
	assert.Contains(t, out, "key=date.from_xpath")
	assert.Contains(t, out, "key=author.from_csss")
	assert.NotContains(t, out, "title.from_csss")
}

func TestLocatorTitleRegexAndTruncation(t *testing.T) {
	l := newTestLocator(t, func(c *config.Config) {
		c.Title.Regex = `(.+?) \| Site`
		c.Feed.MaxTitleLength = 8
	})
	assert.Equal(t, "Ação 123", l.CleanTitle("Ação 12345 | Site"))
	// A regex that does not match leaves the title alone.
	assert.Equal(t, "No site ", l.CleanTitle("No   site here"))
}

func TestLocatorDateXPathWinsOverMetadata(t *testing.T) {
	page := storyPage(t)
	l := newTestLocator(t, func(c *config.Config) {
		c.Date.FromXPath = `//span[@class="date"]/text()`
		c.Date.XPathRegex = `Published: (.+)`
		c.Date.XPathFormat = "%Y-%m-%d %H:%M"
	})
	got, ok := l.Date(page)
	require.True(t, ok)
	assert.Equal(t, time.Date(2022, 7, 20, 14, 0, 0, 0, time.UTC), got)
}

func TestLocatorDateCSSWithGuess(t *testing.T) {
	page := storyPage(t)
	l := newTestLocator(t, func(c *config.Config) {
		c.Date.FromCSS = `span.date`
		c.Date.CSSRegex = `Published: (.+)`
	})
	got, ok := l.Date(page)
	require.True(t, ok)
	assert.Equal(t, time.Date(2022, 7, 20, 14, 0, 0, 0, time.UTC), got)
}

func TestLocatorDateFallbacks(t *testing.T) {
	l := newTestLocator(t, func(c *config.Config) {
		c.Date.FromText = `.*?(\d{4}-\d{2}-\d{2})`
		c.Date.TextFormat = "%Y-%m-%d"
		c.Date.FromURL = `.*/(\d{4}/\d{2}/\d{2})/`
	})

	// Metadata beats the header, the anchor text and the URL.
	page := storyPage(t)
	got, ok := l.Date(page)
	require.True(t, ok)
	assert.Equal(t, time.Date(2022, 7, 15, 8, 0, 0, 0, time.UTC), got.UTC())

	// Then the Last-Modified header.
	page = &Page{
		FinalURL:     "http://a.test/2021/01/02/x",
		AnchorText:   "Story 2020-05-06",
		LastModified: "Wed, 21 Oct 2015 07:28:00 GMT",
	}
	got, ok = l.Date(page)
	require.True(t, ok)
	assert.Equal(t, 2015, got.Year())

	// Then the anchor text.
	page.LastModified = ""
	got, ok = l.Date(page)
	require.True(t, ok)
	assert.Equal(t, time.Date(2020, 5, 6, 0, 0, 0, 0, time.UTC), got)

	// Then the URL.
	page.AnchorText = "Story"
	got, ok = l.Date(page)
	require.True(t, ok)
	assert.Equal(t, time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC), got)

	// Nothing left.
	page.FinalURL = "http://a.test/x"
	_, ok = l.Date(page)
	assert.False(t, ok)
}

func TestLocatorDateRegexMismatchUsesWholeText(t *testing.T) {
	l := newTestLocator(t, func(c *config.Config) {
		c.Date.FromText = `Posted on (.+)`
	})
	got, ok := l.DateFromText("2019-12-31")
	require.True(t, ok)
	assert.Equal(t, time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC), got)
}

func TestLocatorDateFromURLDefaultFormat(t *testing.T) {
	l := newTestLocator(t, func(c *config.Config) {
		c.Date.FromURL = `.*/(\d{4}/\d{2}/\d{2})/`
	})
	got, ok := l.DateFromURL("http://a.test/news/2023/11/05/title")
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC), got)

	_, ok = l.DateFromURL("http://a.test/news/title")
	assert.False(t, ok)
}

func TestLocatorAuthor(t *testing.T) {
	page := storyPage(t)

	l := newTestLocator(t, func(c *config.Config) {
		c.Author.FromCSS = `.byline`
		c.Author.CSSRegex = `By (.+)`
	})
	assert.Equal(t, "Ana Lima", l.Author(page))

	l = newTestLocator(t, func(c *config.Config) {
		c.Author.FromXPath = `//div[@class="byline"]`
		c.Author.XPathRegex = `Written by (.+)`
	})
	assert.Equal(t, "By Ana Lima", l.Author(page))

	l = newTestLocator(t, nil)
	assert.Equal(t, "Meta Author", l.Author(page))
	assert.Equal(t, "", l.Author(&Page{FinalURL: "http://a.test/"}))
}

func TestLocatorCategories(t *testing.T) {
	page := storyPage(t)

	l := newTestLocator(t, func(c *config.Config) {
		c.Categories.FromCSS = `ul.cats li`
		c.Categories.Split = ","
	})
	assert.Equal(t, []string{"alpha", "beta", " gamma"}, l.Categories(page))

	l = newTestLocator(t, func(c *config.Config) { c.Categories.FromXPath = `//ul/li/text()` })
	assert.Equal(t, []string{"alpha", "beta, gamma"}, l.Categories(page))

	l = newTestLocator(t, nil)
	assert.Equal(t, []string{"tag-one"}, l.Categories(page))

	page.Meta.Tags = nil
	assert.Equal(t, []string{"Sports"}, l.Categories(page))
}

func TestNewLocatorRejectsBadRegex(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Date.FromURL = `(unclosed`
	_, err := NewLocator(cfg, nil, testLogger)
	var cerr *types.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "date.from_url", cerr.Key)

	cfg = config.DefaultConfig()
	cfg.Title.Regex = `no group`
	_, err = NewLocator(cfg, nil, testLogger)
	assert.ErrorAs(t, err, &cerr)
}
