package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/IshaanNene/linkfeed/internal/config"
)

const bodyHTML = `<html><head><title>t</title></head>
<body>
<div id="main">
  <p>Hello <font>big</font> world</p>
  <amp-img data-src="/pic.jpg" alt="pic"></amp-img>
  <div class="ad">Buy now</div>
  <aside>Related</aside>
  <script>alert(1)</script>
  <a href="/more" onclick="steal()">More</a>
</div>
<footer>Footer</footer>
</body></html>`

func extractBody(t *testing.T, cfg config.BodyConfig) string {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(bodyHTML))
	require.NoError(t, err)
	b, err := NewBodyExtractor(cfg, testLogger)
	require.NoError(t, err)
	out, err := b.Extract(doc, bodyHTML, "http://a.test/story")
	require.NoError(t, err)
	return out
}

func TestBodyExtractorDefaultRoot(t *testing.T) {
	out := extractBody(t, config.BodyConfig{Enabled: true})
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "Footer")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "alert(1)")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "<title")
}

func TestBodyExtractorXPathRootAndRewrites(t *testing.T) {
	out := extractBody(t, config.BodyConfig{
		Enabled:      true,
		XPath:        `//div[@id="main"]`,
		RemoveTags:   []string{"font"},
		RemoveXPaths: []string{`//div[@class="ad"]`},
		RemoveCSS:    []string{"aside"},
		RenameTags:   []string{"amp-img:img"},
		RenameAttrs:  []string{"img:data-src:src"},
	})
	assert.Contains(t, out, "Hello big world")
	assert.Contains(t, out, "<img")
	assert.Contains(t, out, `src="/pic.jpg"`)
	assert.NotContains(t, out, "data-src")
	assert.NotContains(t, out, "Buy now")
	assert.NotContains(t, out, "Related")
	assert.NotContains(t, out, "Footer")
	assert.NotContains(t, out, "<font")
}

func TestBodyExtractorCSSFallback(t *testing.T) {
	out := extractBody(t, config.BodyConfig{
		Enabled: true,
		XPath:   `//article`,
		CSS:     "footer",
	})
	assert.Contains(t, out, "Footer")
	assert.NotContains(t, out, "Hello")
}

func TestBodyExtractorNothingSelected(t *testing.T) {
	out := extractBody(t, config.BodyConfig{Enabled: true, CSS: "article"})
	assert.Empty(t, out)
}

func TestBodyExtractorDoesNotModifyDocument(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(bodyHTML))
	require.NoError(t, err)
	b, err := NewBodyExtractor(config.BodyConfig{
		Enabled:    true,
		RemoveCSS:  []string{".ad"},
		RenameTags: []string{"p:section"},
	}, testLogger)
	require.NoError(t, err)
	_, err = b.Extract(doc, bodyHTML, "http://a.test/story")
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, html.Render(&buf, doc))
	assert.Contains(t, buf.String(), "Buy now")
	assert.Contains(t, buf.String(), "<p>Hello")
}

func TestBodyExtractorBadRenameSpec(t *testing.T) {
	_, err := NewBodyExtractor(config.BodyConfig{RenameAttrs: []string{"img:src"}}, testLogger)
	assert.Error(t, err)
}

const readableHTML = `<html><head><title>Harbour reopens after storm</title></head>
<body>
<nav><a href="/">Home</a> <a href="/world">World</a> <a href="/sport">Sport</a></nav>
<script>trackVisit()</script>
<article>
  <h1>Harbour reopens after storm</h1>
  <p>The harbour reopened on Monday morning after three days of closure, with the first ferries leaving
  shortly after dawn. Port officials said the breakwater had held, although several moorings on the north
  quay were torn loose and will need to be replaced before the summer season begins.</p>
  <p>Fishing crews returned to the water as soon as the harbour master lifted the warning. Many of them had
  lost a week of work, and the local cooperative has asked the council for help covering fuel costs while
  the market recovers from the disruption caused by the storm and the closed roads.</p>
  <p>Engineers will inspect the lighthouse foundations later this week. A full report on the damage to the
  waterfront, including the promenade and the old customs house, is expected before the end of the month.</p>
</article>
<footer>Copyright Coastal Herald. All rights reserved.</footer>
</body></html>`

func TestBodyExtractorReadability(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(readableHTML))
	require.NoError(t, err)
	b, err := NewBodyExtractor(config.BodyConfig{
		Enabled:     true,
		Readability: true,
		RemoveTags:  []string{"h1"},
	}, testLogger)
	require.NoError(t, err)

	out, err := b.Extract(doc, readableHTML, "http://a.test/harbour")
	require.NoError(t, err)

	assert.Contains(t, out, "The harbour reopened on Monday morning")
	assert.Contains(t, out, "<p")
	assert.NotContains(t, out, "Sport")
	assert.NotContains(t, out, "Copyright Coastal Herald")
	assert.NotContains(t, out, "trackVisit")
	assert.NotContains(t, out, "<h1")
}
