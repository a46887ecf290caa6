package parser

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const articleHTML = `<!DOCTYPE html>
<html lang="en_us">
<head>
    <base href="https://news.example.com/">
    <title>  Breaking: Something Happened </title>
    <link rel="canonical" href="https://news.example.com/2024/05/01/something">
    <meta property="og:url" content="https://news.example.com/og-url">
    <meta name="description" content="Short">
    <meta property="og:description" content="A much longer description of the article">
    <meta name="twitter:description" content="Twelve chars">
    <meta name="author" content="Jane Doe">
    <meta property="article:author" content="Someone Else">
    <meta property="article:tag" content="politics">
    <meta property="article:tag" content="economy">
    <meta property="article:tag" content="politics">
    <meta property="article:section" content="World">
    <meta property="article:section" content="Europe">
    <meta property="article:published_time" content="2024-05-01T10:00:00+00:00">
    <meta property="article:modified_time" content="2024-05-01T12:30:00+00:00">
    <meta property="og:updated_time" content="not a date">
</head>
<body>
    <title>Body title is ignored</title>
    <meta name="author" content="Body Author">
</body>
</html>`

func TestAttributeExtractorArticle(t *testing.T) {
	e := NewAttributeExtractor(nil, testLogger)
	e.Feed(articleHTML)
	md := e.Metadata()

	assert.Equal(t, "Breaking: Something Happened", md.Title)
	assert.Equal(t, "https://news.example.com/", md.BaseURL)
	assert.Equal(t, "https://news.example.com/2024/05/01/something", md.CanonicalURL)
	assert.Equal(t, "A much longer description of the article", md.Description)
	assert.Equal(t, "Jane Doe", md.Author)
	assert.Equal(t, []string{"politics", "economy"}, md.Tags)
	assert.Equal(t, "Europe", md.Section)
	assert.Equal(t, "en-US", md.Language)
	require.NotNil(t, md.ChangedAt)
	assert.True(t, md.ChangedAt.Equal(time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)))
}

func TestAttributeExtractorLatestDateWins(t *testing.T) {
	later := `<html><head>
<meta property="article:published_time" content="2023-03-02T08:00:00Z">
<meta property="article:published_time" content="2023-03-01T08:00:00Z">
</head></html>`
	earlierFirst := `<html><head>
<meta property="article:published_time" content="2023-03-01T08:00:00Z">
<meta property="article:published_time" content="2023-03-02T08:00:00Z">
</head></html>`

	want := time.Date(2023, 3, 2, 8, 0, 0, 0, time.UTC)
	for _, doc := range []string{later, earlierFirst} {
		e := NewAttributeExtractor(nil, testLogger)
		e.Feed(doc)
		md := e.Metadata()
		require.NotNil(t, md.ChangedAt)
		assert.True(t, md.ChangedAt.Equal(want), "got %v", md.ChangedAt)
	}
}

func TestAttributeExtractorMalformed(t *testing.T) {
	inputs := []string{
		"",
		"<",
		"<html><head><title>Unclosed",
		`<head><meta property="og:description" content=`,
		"<<<>>><head></head></head><title></title>",
		"\x00\xff<head><link rel=canonical></head>",
		`<html lang=""><head><meta></meta><base></head>`,
	}
	for _, in := range inputs {
		e := NewAttributeExtractor(nil, testLogger)
		assert.NotPanics(t, func() { e.Feed(in) }, "input %q", in)
		md := e.Metadata()
		assert.Empty(t, md.CanonicalURL)
		assert.Empty(t, md.Description)
		assert.Nil(t, md.ChangedAt)
	}
}

func TestAttributeExtractorIgnoresTagsOutsideHead(t *testing.T) {
	e := NewAttributeExtractor(nil, testLogger)
	e.Feed(`<html><body><title>Nope</title><link rel="canonical" href="/x">
<meta name="description" content="not in the head at all"></body></html>`)
	md := e.Metadata()
	assert.Empty(t, md.Title)
	assert.Empty(t, md.CanonicalURL)
	assert.Empty(t, md.Description)
}

func TestAttributeExtractorOGURLFallback(t *testing.T) {
	e := NewAttributeExtractor(nil, testLogger)
	e.Feed(`<head><meta property="og:url" content="https://a.test/og"><meta name="og:url" content="https://a.test/name"></head>`)
	assert.Equal(t, "https://a.test/og", e.Metadata().CanonicalURL)
}

func TestAttributeExtractorNameWinsOverProperty(t *testing.T) {
	e := NewAttributeExtractor(nil, testLogger)
	e.Feed(`<head><meta name="author" property="article:tag" content="Ann"></head>`)
	md := e.Metadata()
	assert.Equal(t, "Ann", md.Author)
	assert.Empty(t, md.Tags)
}

func TestAttributeExtractorResetKeepsFields(t *testing.T) {
	e := NewAttributeExtractor(nil, testLogger)
	e.Feed(`<html><head><title>First</title>`)
	e.Reset()
	e.Feed(`<title>Second</title><meta name="author" content="Bob">`)
	md := e.Metadata()
	assert.Equal(t, "First", md.Title)
	// After Reset the scanner is outside the head again.
	assert.Empty(t, md.Author)
}

func TestAttributeExtractorLanguage(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "html lang only",
			doc:  `<html lang="pt_br"><head></head></html>`,
			want: "pt-BR",
		},
		{
			name: "og:locale overrides html lang",
			doc:  `<html lang="en"><head><meta property="og:locale" content="de_DE"></head></html>`,
			want: "de-DE",
		},
		{
			name: "og:locale overrides html lang only once",
			doc: `<html lang="en"><head><meta property="og:locale" content="de_DE">
<meta property="og:locale" content="fr_FR"></head></html>`,
			want: "de-DE",
		},
		{
			name: "og:locale alone",
			doc:  `<html><head><meta property="og:locale" content="es_ES"></head></html>`,
			want: "es-ES",
		},
		{
			name: "first og:locale sticks",
			doc: `<html><head><meta property="og:locale" content="es_ES">
<meta property="og:locale" content="it_IT"></head></html>`,
			want: "es-ES",
		},
		{
			name: "absurd value ignored",
			doc:  `<html lang="en"><head><meta property="og:locale" content="this-is-not-a-language-tag-at-all-really"></head></html>`,
			want: "en",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewAttributeExtractor(nil, testLogger)
			e.Feed(tt.doc)
			assert.Equal(t, tt.want, e.Metadata().Language)
		})
	}
}

func TestAttributeExtractorLanguageAcrossDocuments(t *testing.T) {
	// A language that was provisional on the first page stops being
	// provisional after Reset.
	e := NewAttributeExtractor(nil, testLogger)
	e.Feed(`<html lang="en"><head></head></html>`)
	e.Reset()
	e.Feed(`<html lang="fr"><head><meta property="og:locale" content="de_DE"></head></html>`)
	assert.Equal(t, "en", e.Metadata().Language)
}

func TestAttributeExtractorDescriptionMinimumLength(t *testing.T) {
	e := NewAttributeExtractor(nil, testLogger)
	e.Feed(`<head><meta name="description" content="12345678"></head>`)
	assert.Empty(t, e.Metadata().Description)

	e.Reset()
	e.Feed(`<head><meta name="description" content="123456789"></head>`)
	assert.Equal(t, "123456789", e.Metadata().Description)
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"en":         "en",
		" EN_us ":    "en-US",
		"pt-br":      "pt-BR",
		"zh-hant":    "zh-hant",
		"sr_latn_rs": "sr-latn-rs",
	}
	for in, want := range tests {
		got, ok := NormalizeLanguage(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := NormalizeLanguage("")
	assert.False(t, ok)
}

func TestAcceptLanguage(t *testing.T) {
	assert.Equal(t, "pt-BR;q=0.8,en-US;q=0.6,en;q=0.4,fr;q=0.2,de;q=0.2",
		AcceptLanguage([]string{"pt_BR", "en_US", "en", "fr", "de"}))
	assert.Equal(t, "", AcceptLanguage(nil))
}
