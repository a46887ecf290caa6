package parser

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/IshaanNene/linkfeed/internal/types"
)

// XPathEvaluator evaluates XPath expressions against parsed documents,
// caching compiled expressions.
type XPathEvaluator struct {
	logger *slog.Logger
	cache  map[string]*xpath.Expr
}

// NewXPathEvaluator creates a new XPath evaluator.
func NewXPathEvaluator(logger *slog.Logger) *XPathEvaluator {
	return &XPathEvaluator{
		logger: logger.With("component", "xpath_evaluator"),
		cache:  make(map[string]*xpath.Expr),
	}
}

// Strings evaluates expr and returns the string value of every result in
// document order. Element results yield their text content, attribute and
// text nodes their value, and scalar results a single string.
func (p *XPathEvaluator) Strings(doc *html.Node, expr string) ([]string, error) {
	compiled, err := p.compile(expr)
	if err != nil {
		return nil, err
	}

	switch v := compiled.Evaluate(htmlquery.CreateXPathNavigator(doc)).(type) {
	case *xpath.NodeIterator:
		var values []string
		for v.MoveNext() {
			values = append(values, v.Current().Value())
		}
		return values, nil
	case string:
		return []string{v}, nil
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case bool:
		if v {
			return []string{"true"}, nil
		}
		return nil, nil
	default:
		return nil, nil
	}
}

// Nodes evaluates expr and returns the element nodes it selects.
func (p *XPathEvaluator) Nodes(doc *html.Node, expr string) ([]*html.Node, error) {
	compiled, err := p.compile(expr)
	if err != nil {
		return nil, err
	}
	nodes := htmlquery.QuerySelectorAll(doc, compiled)
	out := nodes[:0]
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
	}
	return out, nil
}

// First returns the first non-empty result of expr, trimmed.
func (p *XPathEvaluator) First(doc *html.Node, expr string) (string, error) {
	values, err := p.Strings(doc, expr)
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

// Validate reports whether expr compiles.
func (p *XPathEvaluator) Validate(expr string) error {
	_, err := p.compile(expr)
	return err
}

func (p *XPathEvaluator) compile(expr string) (*xpath.Expr, error) {
	if c, ok := p.cache[expr]; ok {
		return c, nil
	}
	c, err := xpath.Compile(expr)
	if err != nil {
		return nil, &types.ParseError{Selector: expr, Err: fmt.Errorf("invalid xpath: %w", err)}
	}
	p.cache[expr] = c
	return c, nil
}
