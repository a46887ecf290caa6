package pipeline

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/IshaanNene/linkfeed/internal/types"
)

const (
	// MaxCategoryLength is the rune limit for a single category.
	MaxCategoryLength = 128

	// MaxCategories caps the number of categories on one item.
	MaxCategories = 50
)

// TrimMiddleware collapses whitespace in the plain-text fields. The
// description may hold an HTML fragment and is only trimmed.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(item *types.FeedItem) (*types.FeedItem, error) {
	item.Title = strings.Join(strings.Fields(item.Title), " ")
	item.Author = strings.Join(strings.Fields(item.Author), " ")
	item.Description = strings.TrimSpace(item.Description)
	return item, nil
}

// CategoryCleanupMiddleware trims categories, truncates long ones, drops
// empty ones and caps the list length.
type CategoryCleanupMiddleware struct {
	MaxLength int
	MaxCount  int
	logger    *slog.Logger
}

func NewCategoryCleanupMiddleware(logger *slog.Logger) *CategoryCleanupMiddleware {
	return &CategoryCleanupMiddleware{
		MaxLength: MaxCategoryLength,
		MaxCount:  MaxCategories,
		logger:    logger.With("component", "category_cleanup"),
	}
}

func (m *CategoryCleanupMiddleware) Name() string { return "category_cleanup" }

func (m *CategoryCleanupMiddleware) Process(item *types.FeedItem) (*types.FeedItem, error) {
	if len(item.Categories) == 0 {
		return item, nil
	}

	cleaned := make([]string, 0, len(item.Categories))
	for _, c := range item.Categories {
		c = strings.TrimSpace(c)
		if m.MaxLength > 0 && utf8.RuneCountInString(c) > m.MaxLength {
			c = strings.TrimSpace(string([]rune(c)[:m.MaxLength]))
		}
		if c == "" {
			continue
		}
		cleaned = append(cleaned, c)
	}

	if m.MaxCount > 0 && len(cleaned) > m.MaxCount {
		m.logger.Warn("too many categories, truncating",
			"url", item.GUID, "count", len(cleaned), "max", m.MaxCount)
		cleaned = cleaned[:m.MaxCount]
	}

	item.Categories = cleaned
	return item, nil
}

// RequireDateMiddleware drops items without a publication date.
type RequireDateMiddleware struct{}

func (m *RequireDateMiddleware) Name() string { return "require_date" }

func (m *RequireDateMiddleware) Process(item *types.FeedItem) (*types.FeedItem, error) {
	if !item.HasDate() {
		return nil, nil
	}
	return item, nil
}

// UTCDateMiddleware converts the publication date to UTC.
type UTCDateMiddleware struct{}

func (m *UTCDateMiddleware) Name() string { return "utc_date" }

func (m *UTCDateMiddleware) Process(item *types.FeedItem) (*types.FeedItem, error) {
	if item.HasDate() {
		item.SetPublished(*item.PublishedAt)
	} else {
		item.PublishedAt = nil
	}
	return item, nil
}

// Standard returns the chain every built item goes through.
func Standard(requireDates bool, logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(NewCategoryCleanupMiddleware(logger))
	p.Use(&UTCDateMiddleware{})
	if requireDates {
		p.Use(&RequireDateMiddleware{})
	}
	return p
}
