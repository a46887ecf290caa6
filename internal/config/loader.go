package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flag names to viper keys.
var flagKeys = map[string]string{
	"title":                 "feed.title",
	"max-title-length":      "feed.max_title_length",
	"follow":                "feed.follow",
	"require-dates":         "feed.require_dates",
	"test":                  "feed.test",
	"max-links":             "links.max_links",
	"link-pattern":          "links.patterns",
	"ignore-pattern":        "links.ignore_patterns",
	"qs-remove-param":       "links.qs_remove_params",
	"title-from-xpath":      "title.from_xpath",
	"title-from-csss":       "title.from_csss",
	"title-regex":           "title.regex",
	"date-from-xpath":       "date.from_xpath",
	"xpath-date-regex":      "date.xpath_regex",
	"xpath-date-fmt":        "date.xpath_fmt",
	"date-from-csss":        "date.from_csss",
	"csss-date-regex":       "date.csss_regex",
	"csss-date-fmt":         "date.csss_fmt",
	"date-from-text":        "date.from_text",
	"text-date-fmt":         "date.text_fmt",
	"date-from-url":         "date.from_url",
	"url-date-fmt":          "date.url_fmt",
	"author-from-xpath":     "author.from_xpath",
	"xpath-author-regex":    "author.xpath_regex",
	"author-from-csss":      "author.from_csss",
	"csss-author-regex":     "author.csss_regex",
	"categories-from-xpath": "categories.from_xpath",
	"categories-from-csss":  "categories.from_csss",
	"split-categories":      "categories.split",
	"with-body":             "body.enabled",
	"body-xpath":            "body.xpath",
	"body-csss":             "body.csss",
	"body-readability":      "body.readability",
	"body-remove-tag":       "body.remove_tags",
	"body-remove-xpath":     "body.remove_xpaths",
	"body-remove-csss":      "body.remove_csss",
	"body-rename-tag":       "body.rename_tags",
	"body-rename-attr":      "body.rename_attrs",
	"user-agent":            "fetcher.user_agent",
	"http-timeout":          "fetcher.timeout",
	"max-page-length":       "fetcher.max_page_length",
	"max-first-page-length": "fetcher.max_first_page_length",
	"encoding":              "fetcher.encoding",
	"lang":                  "fetcher.languages",
	"cookie":                "fetcher.cookies",
	"header":                "fetcher.headers",
	"no-cookies":            "fetcher.no_cookies",
	"output":                "output.path",
	"format":                "output.format",
	"no-exception-feed":     "output.no_exception_feed",
	"log":                   "logging.level",
	"log-format":            "logging.format",
	"metrics-file":          "metrics.file",
}

// RegisterFlags defines every configuration flag on fs. Defaults mirror
// DefaultConfig so that --help shows real values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.StringP("title", "T", "", "feed title (default: start page title)")
	fs.IntP("max-title-length", "l", d.Feed.MaxTitleLength, "maximum length of item titles")
	fs.BoolP("follow", "f", false, "download every collected link to extract item data")
	fs.Bool("require-dates", false, "drop items without a date")
	fs.Bool("test", false, "print collected links and dates instead of a feed")

	fs.IntP("max-links", "n", d.Links.MaxLinks, "maximum number of links to collect")
	fs.StringArrayP("link-pattern", "p", nil, "regex a link must match to be collected (repeatable)")
	fs.StringArrayP("ignore-pattern", "i", nil, "regex of links to ignore (repeatable)")
	fs.StringArrayP("qs-remove-param", "Q", nil, "regex of query string parameter names to remove (repeatable)")

	fs.String("title-from-xpath", "", "XPath expression locating the item title")
	fs.String("title-from-csss", "", "CSS selector locating the item title")
	fs.String("title-regex", "", "regex with one group selecting part of the title")

	fs.String("date-from-xpath", "", "XPath expression locating the item date")
	fs.String("xpath-date-regex", d.Date.XPathRegex, "regex with one group selecting the date from --date-from-xpath")
	fs.String("xpath-date-fmt", "", "strftime format of the date from --date-from-xpath")
	fs.String("date-from-csss", "", "CSS selector locating the item date")
	fs.String("csss-date-regex", d.Date.CSSRegex, "regex with one group selecting the date from --date-from-csss")
	fs.String("csss-date-fmt", "", "strftime format of the date from --date-from-csss")
	fs.StringP("date-from-text", "a", "", "regex with one group selecting the date from the link text")
	fs.String("text-date-fmt", "", "strftime format of the date from --date-from-text")
	fs.StringP("date-from-url", "A", "", "regex with one group selecting the date from the link URL")
	fs.String("url-date-fmt", d.Date.URLFormat, "strftime format of the date from --date-from-url")

	fs.String("author-from-xpath", "", "XPath expression locating the item author")
	fs.String("xpath-author-regex", d.Author.XPathRegex, "regex with one group selecting the author from --author-from-xpath")
	fs.String("author-from-csss", "", "CSS selector locating the item author")
	fs.String("csss-author-regex", d.Author.CSSRegex, "regex with one group selecting the author from --author-from-csss")

	fs.String("categories-from-xpath", "", "XPath expression locating item categories")
	fs.String("categories-from-csss", "", "CSS selector locating item categories")
	fs.String("split-categories", "", "delimiter splitting category strings")

	fs.BoolP("with-body", "B", false, "include the page body in the item description (requires --follow)")
	fs.String("body-xpath", "", "XPath expression locating the item body")
	fs.String("body-csss", "", "CSS selector locating the item body")
	fs.Bool("body-readability", false, "locate the item body with readability heuristics")
	fs.StringArrayP("body-remove-tag", "R", nil, "tag to unwrap from the body, keeping its children (repeatable)")
	fs.StringArrayP("body-remove-xpath", "X", nil, "XPath of elements to delete from the body (repeatable)")
	fs.StringArrayP("body-remove-csss", "C", nil, "CSS selector of elements to delete from the body (repeatable)")
	fs.StringArrayP("body-rename-tag", "N", nil, `rename body tags, as "old:new" (repeatable)`)
	fs.StringArray("body-rename-attr", nil, `rename an attribute of a body tag, as "tag:old:new" (repeatable)`)

	fs.StringP("user-agent", "U", d.Fetcher.UserAgent, "User-Agent header")
	fs.DurationP("http-timeout", "t", d.Fetcher.Timeout, "timeout of each HTTP request")
	fs.Int64("max-page-length", d.Fetcher.MaxPageLength, "maximum size of followed pages, in KB")
	fs.Int64("max-first-page-length", d.Fetcher.MaxFirstPageLength, "maximum size of start pages, in KB")
	fs.String("encoding", "", "force the character encoding of downloaded pages")
	fs.StringArray("lang", nil, "language for the Accept-Language header (repeatable, default from $LANG)")
	fs.StringArray("cookie", nil, `cookies to send, as "name=value; name2=value2" (repeatable)`)
	fs.StringArrayP("header", "H", nil, `extra HTTP header, as "Name: value" (repeatable)`)
	fs.Bool("no-cookies", false, "do not accept cookies set by servers")

	fs.StringP("output", "o", "", "output file (default: stdout)")
	fs.String("format", d.Output.Format, "feed format: rss or json")
	fs.BoolP("no-exception-feed", "E", false, "do not write an error feed when generation fails")
	fs.String("log", d.Logging.Level, "log level: debug, info, warning, error, critical")
	fs.String("log-format", d.Logging.Format, "log format: text or json")
	fs.String("metrics-file", "", "write run metrics in Prometheus text format to this file")
}

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
// flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("LINKFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("linkfeed")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".linkfeed"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("feed.title", cfg.Feed.Title)
	v.SetDefault("feed.max_title_length", cfg.Feed.MaxTitleLength)
	v.SetDefault("feed.follow", cfg.Feed.Follow)
	v.SetDefault("feed.require_dates", cfg.Feed.RequireDates)
	v.SetDefault("feed.test", cfg.Feed.Test)

	v.SetDefault("links.max_links", cfg.Links.MaxLinks)
	v.SetDefault("links.patterns", cfg.Links.Patterns)
	v.SetDefault("links.ignore_patterns", cfg.Links.IgnorePatterns)
	v.SetDefault("links.qs_remove_params", cfg.Links.QSRemoveParams)

	v.SetDefault("title.from_xpath", cfg.Title.FromXPath)
	v.SetDefault("title.from_csss", cfg.Title.FromCSS)
	v.SetDefault("title.regex", cfg.Title.Regex)

	v.SetDefault("date.from_xpath", cfg.Date.FromXPath)
	v.SetDefault("date.xpath_regex", cfg.Date.XPathRegex)
	v.SetDefault("date.xpath_fmt", cfg.Date.XPathFormat)
	v.SetDefault("date.from_csss", cfg.Date.FromCSS)
	v.SetDefault("date.csss_regex", cfg.Date.CSSRegex)
	v.SetDefault("date.csss_fmt", cfg.Date.CSSFormat)
	v.SetDefault("date.from_text", cfg.Date.FromText)
	v.SetDefault("date.text_fmt", cfg.Date.TextFormat)
	v.SetDefault("date.from_url", cfg.Date.FromURL)
	v.SetDefault("date.url_fmt", cfg.Date.URLFormat)

	v.SetDefault("author.from_xpath", cfg.Author.FromXPath)
	v.SetDefault("author.xpath_regex", cfg.Author.XPathRegex)
	v.SetDefault("author.from_csss", cfg.Author.FromCSS)
	v.SetDefault("author.csss_regex", cfg.Author.CSSRegex)

	v.SetDefault("categories.from_xpath", cfg.Categories.FromXPath)
	v.SetDefault("categories.from_csss", cfg.Categories.FromCSS)
	v.SetDefault("categories.split", cfg.Categories.Split)

	v.SetDefault("body.enabled", cfg.Body.Enabled)
	v.SetDefault("body.xpath", cfg.Body.XPath)
	v.SetDefault("body.csss", cfg.Body.CSS)
	v.SetDefault("body.readability", cfg.Body.Readability)
	v.SetDefault("body.remove_tags", cfg.Body.RemoveTags)
	v.SetDefault("body.remove_xpaths", cfg.Body.RemoveXPaths)
	v.SetDefault("body.remove_csss", cfg.Body.RemoveCSS)
	v.SetDefault("body.rename_tags", cfg.Body.RenameTags)
	v.SetDefault("body.rename_attrs", cfg.Body.RenameAttrs)

	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)
	v.SetDefault("fetcher.timeout", cfg.Fetcher.Timeout)
	v.SetDefault("fetcher.max_page_length", cfg.Fetcher.MaxPageLength)
	v.SetDefault("fetcher.max_first_page_length", cfg.Fetcher.MaxFirstPageLength)
	v.SetDefault("fetcher.encoding", cfg.Fetcher.Encoding)
	v.SetDefault("fetcher.languages", cfg.Fetcher.Languages)
	v.SetDefault("fetcher.cookies", cfg.Fetcher.Cookies)
	v.SetDefault("fetcher.headers", cfg.Fetcher.Headers)
	v.SetDefault("fetcher.no_cookies", cfg.Fetcher.NoCookies)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)

	v.SetDefault("output.path", cfg.Output.Path)
	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("output.no_exception_feed", cfg.Output.NoExceptionFeed)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.file", cfg.Metrics.File)
}
