package config

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/IshaanNene/linkfeed/internal/types"
)

// LogLevels maps the accepted --log values to slog levels. "critical" sits
// above error so that only fatal diagnostics are printed.
var LogLevels = map[string]slog.Level{
	"debug":    slog.LevelDebug,
	"info":     slog.LevelInfo,
	"warning":  slog.LevelWarn,
	"warn":     slog.LevelWarn,
	"error":    slog.LevelError,
	"critical": slog.LevelError + 4,
	"fatal":    slog.LevelError + 4,
}

// TagRename renames every element named From to To.
type TagRename struct {
	From string
	To   string
}

// AttrRename renames attribute From to To on every element named Tag.
type AttrRename struct {
	Tag  string
	From string
	To   string
}

// CompilePatterns compiles URL or parameter-name patterns. A pattern matches
// when it matches at the beginning of the subject; it does not need to
// consume all of it.
func CompilePatterns(key string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`^(?:` + p + `)`)
		if err != nil {
			return nil, &types.ConfigError{Key: key, Err: fmt.Errorf("pattern %q: %w", p, err)}
		}
		out = append(out, re)
	}
	return out, nil
}

// ParseTagRename parses "old:new" (or "old new").
func ParseTagRename(spec string) (TagRename, error) {
	parts := splitSpec(spec)
	if len(parts) != 2 {
		return TagRename{}, fmt.Errorf("tag rename %q: want old:new", spec)
	}
	return TagRename{From: strings.ToLower(parts[0]), To: strings.ToLower(parts[1])}, nil
}

// ParseAttrRename parses "tag:old:new" (or "tag old new").
func ParseAttrRename(spec string) (AttrRename, error) {
	parts := splitSpec(spec)
	if len(parts) != 3 {
		return AttrRename{}, fmt.Errorf("attribute rename %q: want tag:old:new", spec)
	}
	return AttrRename{
		Tag:  strings.ToLower(parts[0]),
		From: strings.ToLower(parts[1]),
		To:   strings.ToLower(parts[2]),
	}, nil
}

// TagRenames parses every configured tag rename.
func (b BodyConfig) TagRenames() ([]TagRename, error) {
	out := make([]TagRename, 0, len(b.RenameTags))
	for _, spec := range b.RenameTags {
		r, err := ParseTagRename(spec)
		if err != nil {
			return nil, &types.ConfigError{Key: "body.rename_tags", Err: err}
		}
		out = append(out, r)
	}
	return out, nil
}

// AttrRenames parses every configured attribute rename.
func (b BodyConfig) AttrRenames() ([]AttrRename, error) {
	out := make([]AttrRename, 0, len(b.RenameAttrs))
	for _, spec := range b.RenameAttrs {
		r, err := ParseAttrRename(spec)
		if err != nil {
			return nil, &types.ConfigError{Key: "body.rename_attrs", Err: err}
		}
		out = append(out, r)
	}
	return out, nil
}

func splitSpec(spec string) []string {
	var parts []string
	if strings.Contains(spec, ":") {
		parts = strings.Split(spec, ":")
	} else {
		parts = strings.Fields(spec)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return nil
		}
	}
	return parts
}
