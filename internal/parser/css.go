package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/IshaanNene/linkfeed/internal/types"
)

// CSSEvaluator evaluates CSS selectors against parsed documents via
// goquery, caching compiled selectors.
type CSSEvaluator struct {
	logger *slog.Logger
	cache  map[string]cascadia.Selector
}

// NewCSSEvaluator creates a new CSS selector evaluator.
func NewCSSEvaluator(logger *slog.Logger) *CSSEvaluator {
	return &CSSEvaluator{
		logger: logger.With("component", "css_evaluator"),
		cache:  make(map[string]cascadia.Selector),
	}
}

// Strings returns the text content of every element matched by selector,
// in document order.
func (p *CSSEvaluator) Strings(doc *html.Node, selector string) ([]string, error) {
	sel, err := p.compile(selector)
	if err != nil {
		return nil, err
	}
	var values []string
	goquery.NewDocumentFromNode(doc).FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
		values = append(values, s.Text())
	})
	return values, nil
}

// Nodes returns the elements matched by selector.
func (p *CSSEvaluator) Nodes(doc *html.Node, selector string) ([]*html.Node, error) {
	sel, err := p.compile(selector)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(doc).FindMatcher(sel).Nodes, nil
}

// First returns the first non-empty text matched by selector, trimmed.
func (p *CSSEvaluator) First(doc *html.Node, selector string) (string, error) {
	values, err := p.Strings(doc, selector)
	if err != nil {
		return "", err
	}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	}
	return "", nil
}

// Validate reports whether selector compiles.
func (p *CSSEvaluator) Validate(selector string) error {
	_, err := p.compile(selector)
	return err
}

func (p *CSSEvaluator) compile(selector string) (cascadia.Selector, error) {
	if s, ok := p.cache[selector]; ok {
		return s, nil
	}
	s, err := cascadia.Compile(selector)
	if err != nil {
		return nil, &types.ParseError{Selector: selector, Err: fmt.Errorf("invalid css selector: %w", err)}
	}
	p.cache[selector] = s
	return s, nil
}
