package parser

import (
	"strconv"
	"strings"
)

// NormalizeLanguage turns "pt_br", "PT-br " or "pt-BR" into "pt-BR". Values
// longer than 32 characters are rejected (ok is false).
func NormalizeLanguage(tag string) (string, bool) {
	tag = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(tag)), "_", "-")
	if tag == "" || len(tag) > 32 {
		return "", false
	}
	lang, region, found := strings.Cut(tag, "-")
	if found && len(region) == 2 {
		return lang + "-" + strings.ToUpper(region), true
	}
	return tag, true
}

// AcceptLanguage builds an Accept-Language header value from a list of
// language tags, giving each a decreasing quality starting at 0.8.
func AcceptLanguage(langs []string) string {
	q := 0.8
	parts := make([]string, 0, len(langs))
	for _, l := range langs {
		norm, ok := NormalizeLanguage(l)
		if !ok {
			norm = l
		}
		parts = append(parts, norm+";q="+strconv.FormatFloat(q, 'f', 1, 64))
		if q > 0.3 {
			q -= 0.2
		}
	}
	return strings.Join(parts, ",")
}
