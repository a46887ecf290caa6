package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultUserAgent impersonates a common desktop browser; plenty of sites
// refuse or degrade unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"

// Config is the root configuration for linkfeed.
type Config struct {
	Feed       FeedConfig       `mapstructure:"feed"       yaml:"feed"`
	Links      LinksConfig      `mapstructure:"links"      yaml:"links"`
	Title      TitleConfig      `mapstructure:"title"      yaml:"title"`
	Date       DateConfig       `mapstructure:"date"       yaml:"date"`
	Author     AuthorConfig     `mapstructure:"author"     yaml:"author"`
	Categories CategoriesConfig `mapstructure:"categories" yaml:"categories"`
	Body       BodyConfig       `mapstructure:"body"       yaml:"body"`
	Fetcher    FetcherConfig    `mapstructure:"fetcher"    yaml:"fetcher"`
	Output     OutputConfig     `mapstructure:"output"     yaml:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    yaml:"metrics"`
}

// FeedConfig controls how feed items are produced.
type FeedConfig struct {
	Title          string `mapstructure:"title"            yaml:"title"`
	MaxTitleLength int    `mapstructure:"max_title_length" yaml:"max_title_length"`
	Follow         bool   `mapstructure:"follow"           yaml:"follow"`
	RequireDates   bool   `mapstructure:"require_dates"    yaml:"require_dates"`
	Test           bool   `mapstructure:"test"             yaml:"test"`
}

// LinksConfig controls link collection on the start pages.
type LinksConfig struct {
	MaxLinks       int      `mapstructure:"max_links"        yaml:"max_links"`
	Patterns       []string `mapstructure:"patterns"         yaml:"patterns"`
	IgnorePatterns []string `mapstructure:"ignore_patterns"  yaml:"ignore_patterns"`
	QSRemoveParams []string `mapstructure:"qs_remove_params" yaml:"qs_remove_params"`
}

// TitleConfig locates the item title on a followed page.
type TitleConfig struct {
	FromXPath string `mapstructure:"from_xpath" yaml:"from_xpath"`
	FromCSS   string `mapstructure:"from_csss"  yaml:"from_csss"`
	Regex     string `mapstructure:"regex"      yaml:"regex"`
}

// DateConfig locates the item date. XPath and CSS candidates are narrowed by
// their regex and parsed with their strftime format; an empty format means
// best-guess parsing.
type DateConfig struct {
	FromXPath   string `mapstructure:"from_xpath"   yaml:"from_xpath"`
	XPathRegex  string `mapstructure:"xpath_regex"  yaml:"xpath_regex"`
	XPathFormat string `mapstructure:"xpath_fmt"    yaml:"xpath_fmt"`
	FromCSS     string `mapstructure:"from_csss"    yaml:"from_csss"`
	CSSRegex    string `mapstructure:"csss_regex"   yaml:"csss_regex"`
	CSSFormat   string `mapstructure:"csss_fmt"     yaml:"csss_fmt"`
	FromText    string `mapstructure:"from_text"    yaml:"from_text"`
	TextFormat  string `mapstructure:"text_fmt"     yaml:"text_fmt"`
	FromURL     string `mapstructure:"from_url"     yaml:"from_url"`
	URLFormat   string `mapstructure:"url_fmt"      yaml:"url_fmt"`
}

// AuthorConfig locates the item author on a followed page.
type AuthorConfig struct {
	FromXPath  string `mapstructure:"from_xpath"  yaml:"from_xpath"`
	XPathRegex string `mapstructure:"xpath_regex" yaml:"xpath_regex"`
	FromCSS    string `mapstructure:"from_csss"   yaml:"from_csss"`
	CSSRegex   string `mapstructure:"csss_regex"  yaml:"csss_regex"`
}

// CategoriesConfig locates the item categories on a followed page.
type CategoriesConfig struct {
	FromXPath string `mapstructure:"from_xpath" yaml:"from_xpath"`
	FromCSS   string `mapstructure:"from_csss"  yaml:"from_csss"`
	Split     string `mapstructure:"split"      yaml:"split"`
}

// BodyConfig controls inclusion and rewriting of the followed page body.
type BodyConfig struct {
	Enabled      bool     `mapstructure:"enabled"       yaml:"enabled"`
	XPath        string   `mapstructure:"xpath"         yaml:"xpath"`
	CSS          string   `mapstructure:"csss"          yaml:"csss"`
	Readability  bool     `mapstructure:"readability"   yaml:"readability"`
	RemoveTags   []string `mapstructure:"remove_tags"   yaml:"remove_tags"`
	RemoveXPaths []string `mapstructure:"remove_xpaths" yaml:"remove_xpaths"`
	RemoveCSS    []string `mapstructure:"remove_csss"   yaml:"remove_csss"`
	// RenameTags entries are "old:new".
	RenameTags []string `mapstructure:"rename_tags" yaml:"rename_tags"`
	// RenameAttrs entries are "tag:old:new".
	RenameAttrs []string `mapstructure:"rename_attrs" yaml:"rename_attrs"`
}

// FetcherConfig controls the HTTP transport.
type FetcherConfig struct {
	UserAgent          string        `mapstructure:"user_agent"            yaml:"user_agent"`
	Timeout            time.Duration `mapstructure:"timeout"               yaml:"timeout"`
	MaxPageLength      int64         `mapstructure:"max_page_length"       yaml:"max_page_length"`
	MaxFirstPageLength int64         `mapstructure:"max_first_page_length" yaml:"max_first_page_length"`
	Encoding           string        `mapstructure:"encoding"              yaml:"encoding"`
	Languages          []string      `mapstructure:"languages"             yaml:"languages"`
	Cookies            []string      `mapstructure:"cookies"               yaml:"cookies"`
	Headers            []string      `mapstructure:"headers"               yaml:"headers"`
	NoCookies          bool          `mapstructure:"no_cookies"            yaml:"no_cookies"`
	FollowRedirects    bool          `mapstructure:"follow_redirects"      yaml:"follow_redirects"`
	MaxRedirects       int           `mapstructure:"max_redirects"         yaml:"max_redirects"`
	TLSInsecure        bool          `mapstructure:"tls_insecure"          yaml:"tls_insecure"`
	IdleConnTimeout    time.Duration `mapstructure:"idle_conn_timeout"     yaml:"idle_conn_timeout"`
}

// OutputConfig controls where and how the feed is written.
type OutputConfig struct {
	Path            string `mapstructure:"path"              yaml:"path"`
	Format          string `mapstructure:"format"            yaml:"format"`
	NoExceptionFeed bool   `mapstructure:"no_exception_feed" yaml:"no_exception_feed"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus textfile written at the end of a run.
type MetricsConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			MaxTitleLength: 150,
		},
		Links: LinksConfig{
			MaxLinks: 50,
		},
		Date: DateConfig{
			XPathRegex: "(.+)",
			CSSRegex:   "(.+)",
			URLFormat:  "%Y/%m/%d",
		},
		Author: AuthorConfig{
			XPathRegex: "(.+)",
			CSSRegex:   "(.+)",
		},
		Fetcher: FetcherConfig{
			UserAgent:          DefaultUserAgent,
			Timeout:            2 * time.Second,
			MaxPageLength:      2048,
			MaxFirstPageLength: 2048,
			FollowRedirects:    true,
			MaxRedirects:       10,
			IdleConnTimeout:    90 * time.Second,
		},
		Output: OutputConfig{
			Format: "rss",
		},
		Logging: LoggingConfig{
			Level:  "warning",
			Format: "text",
		},
	}
}
