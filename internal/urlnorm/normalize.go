// Package urlnorm resolves and cleans the URLs collected from start pages.
package urlnorm

import (
	"net/url"
	"regexp"
	"strings"

	whatwg "github.com/nlnwa/whatwg-url/url"
)

var parser = whatwg.NewParser(whatwg.WithPercentEncodeSinglePercentSign())

// StripFragment removes everything from the first '#'.
func StripFragment(rawURL string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// Resolve resolves href against base the way a browser would. An empty base
// returns href unchanged. When resolution fails the fragment-stripped href is
// returned as-is.
func Resolve(base, href string) string {
	href = StripFragment(href)
	if base == "" {
		return href
	}
	u, err := parser.ParseRef(base, href)
	if err != nil {
		return href
	}
	return u.Href(true)
}

// CleanQuery removes every query parameter whose name matches one of
// patterns. Surviving parameters keep their order and are re-encoded in
// form encoding. With no patterns the URL is returned untouched.
func CleanQuery(rawURL string, patterns []*regexp.Regexp) string {
	if len(patterns) == 0 {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	var kept []string
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawVal, _ := strings.Cut(pair, "=")
		key := unescape(rawKey)
		if matchesAny(patterns, key) {
			continue
		}
		kept = append(kept, url.QueryEscape(key)+"="+url.QueryEscape(unescape(rawVal)))
	}

	u.RawQuery = strings.Join(kept, "&")
	u.ForceQuery = false
	return u.String()
}

// Normalize strips the fragment, resolves against base and cleans the query.
func Normalize(base, href string, strip []*regexp.Regexp) string {
	return CleanQuery(Resolve(base, href), strip)
}

func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
