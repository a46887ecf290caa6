package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/IshaanNene/linkfeed/internal/types"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Links.MaxLinks < 1 {
		return invalid("links.max_links", "must be >= 1, got %d", cfg.Links.MaxLinks)
	}
	if cfg.Feed.MaxTitleLength < 1 {
		return invalid("feed.max_title_length", "must be >= 1, got %d", cfg.Feed.MaxTitleLength)
	}
	if cfg.Body.Enabled && !cfg.Feed.Follow {
		return invalid("body.enabled", "requires feed.follow")
	}

	if cfg.Fetcher.Timeout <= 0 {
		return invalid("fetcher.timeout", "must be > 0")
	}
	if cfg.Fetcher.MaxPageLength <= 0 {
		return invalid("fetcher.max_page_length", "must be > 0")
	}
	if cfg.Fetcher.MaxFirstPageLength <= 0 {
		return invalid("fetcher.max_first_page_length", "must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return invalid("fetcher.max_redirects", "must be >= 0")
	}
	if strings.TrimSpace(cfg.Fetcher.UserAgent) == "" {
		return invalid("fetcher.user_agent", "must not be empty")
	}
	for _, h := range cfg.Fetcher.Headers {
		if name, _, _ := strings.Cut(h, ":"); strings.TrimSpace(name) == "" {
			return invalid("fetcher.headers", "header %q has no name", h)
		}
	}

	for _, spec := range cfg.Body.RenameTags {
		if _, err := ParseTagRename(spec); err != nil {
			return &types.ConfigError{Key: "body.rename_tags", Err: err}
		}
	}
	for _, spec := range cfg.Body.RenameAttrs {
		if _, err := ParseAttrRename(spec); err != nil {
			return &types.ConfigError{Key: "body.rename_attrs", Err: err}
		}
	}

	if cfg.Output.Format != "rss" && cfg.Output.Format != "json" {
		return invalid("output.format", "must be 'rss' or 'json', got %q", cfg.Output.Format)
	}

	if _, ok := LogLevels[cfg.Logging.Level]; !ok {
		return invalid("logging.level", "must be debug/info/warning/error/critical, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return invalid("logging.format", "must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a start page.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return &types.ConfigError{Key: key, Err: fmt.Errorf(format, args...)}
}
