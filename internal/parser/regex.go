package parser

import (
	"fmt"
	"regexp"

	"github.com/IshaanNene/linkfeed/internal/types"
)

// RegexCache compiles selection regexes once. Selection regexes match at the
// beginning of the text, with "." matching newlines and "^"/"$" matching at
// line boundaries.
type RegexCache struct {
	cache map[string]*regexp.Regexp
}

// NewRegexCache creates an empty cache.
func NewRegexCache() *RegexCache {
	return &RegexCache{cache: make(map[string]*regexp.Regexp)}
}

// Compile returns the compiled selection regex for pattern. The pattern must
// have at least one capture group. An empty pattern yields nil.
func (c *RegexCache) Compile(key, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	if re, ok := c.cache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(`(?ms)\A(?:` + pattern + `)`)
	if err != nil {
		return nil, &types.ConfigError{Key: key, Err: fmt.Errorf("invalid regex %q: %w", pattern, err)}
	}
	if re.NumSubexp() < 1 {
		return nil, &types.ConfigError{Key: key, Err: fmt.Errorf("regex %q needs a capture group", pattern)}
	}
	c.cache[pattern] = re
	return re, nil
}

// Select returns the first capture group of re matched at the start of text.
// ok is false when re is nil, does not match or captures nothing.
func Select(re *regexp.Regexp, text string) (string, bool) {
	if re == nil || text == "" {
		return "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// Narrow is Select falling back to the unmodified text.
func Narrow(re *regexp.Regexp, text string) string {
	if s, ok := Select(re, text); ok {
		return s
	}
	return text
}
