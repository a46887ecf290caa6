package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/IshaanNene/linkfeed/internal/config"
)

const defaultBodyXPath = "/html/body/*"

// BodyExtractor turns a followed page into a sanitized HTML fragment used as
// the item description.
type BodyExtractor struct {
	logger *slog.Logger
	cfg    config.BodyConfig
	xpath  *XPathEvaluator
	css    *CSSEvaluator
	policy *bluemonday.Policy

	removeTags  map[string]bool
	tagRenames  []config.TagRename
	attrRenames []config.AttrRename
}

// NewBodyExtractor creates an extractor for cfg.
func NewBodyExtractor(cfg config.BodyConfig, logger *slog.Logger) (*BodyExtractor, error) {
	tagRenames, err := cfg.TagRenames()
	if err != nil {
		return nil, err
	}
	attrRenames, err := cfg.AttrRenames()
	if err != nil {
		return nil, err
	}
	remove := make(map[string]bool, len(cfg.RemoveTags))
	for _, t := range cfg.RemoveTags {
		remove[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return &BodyExtractor{
		logger:      logger.With("component", "body_extractor"),
		cfg:         cfg,
		xpath:       NewXPathEvaluator(logger),
		css:         NewCSSEvaluator(logger),
		policy:      bluemonday.UGCPolicy(),
		removeTags:  remove,
		tagRenames:  tagRenames,
		attrRenames: attrRenames,
	}, nil
}

// Extract returns the sanitized body fragment, or "" when nothing was
// selected. doc is never modified.
func (b *BodyExtractor) Extract(doc *html.Node, rawHTML, pageURL string) (string, error) {
	roots, err := b.roots(doc, rawHTML, pageURL)
	if err != nil {
		return "", err
	}
	if len(roots) == 0 {
		return "", nil
	}

	var body *html.Node
	if len(roots) == 1 {
		body = cloneNode(roots[0])
	} else {
		body = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
		for _, r := range roots {
			body.AppendChild(cloneNode(r))
		}
	}
	// A detached wrapper lets rewrites replace the root itself.
	holder := &html.Node{Type: html.DocumentNode}
	holder.AppendChild(body)

	b.rewrite(holder)

	var buf bytes.Buffer
	for c := holder.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render body: %w", err)
		}
	}
	return strings.TrimSpace(b.policy.Sanitize(buf.String())), nil
}

func (b *BodyExtractor) roots(doc *html.Node, rawHTML, pageURL string) ([]*html.Node, error) {
	if b.cfg.Readability {
		return b.readabilityRoots(rawHTML, pageURL)
	}

	var nodes []*html.Node
	if b.cfg.XPath != "" {
		found, err := b.xpath.Nodes(doc, b.cfg.XPath)
		if err != nil {
			return nil, err
		}
		nodes = found
	}
	if len(nodes) == 0 && b.cfg.CSS != "" {
		found, err := b.css.Nodes(doc, b.cfg.CSS)
		if err != nil {
			return nil, err
		}
		nodes = found
	}
	if b.cfg.XPath == "" && b.cfg.CSS == "" {
		return b.xpath.Nodes(doc, defaultBodyXPath)
	}
	return nodes, nil
}

func (b *BodyExtractor) readabilityRoots(rawHTML, pageURL string) ([]*html.Node, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), u)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}
	if strings.TrimSpace(article.Content) == "" {
		return nil, nil
	}
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(article.Content), context)
	if err != nil {
		return nil, fmt.Errorf("parse readability content: %w", err)
	}
	var roots []*html.Node
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			roots = append(roots, n)
		}
	}
	return roots, nil
}

// rewrite applies the configured tag removals, subtree deletions and
// renames to every node under root.
func (b *BodyExtractor) rewrite(root *html.Node) {
	if len(b.removeTags) > 0 {
		unwrapTags(root, b.removeTags)
	}
	for _, expr := range b.cfg.RemoveXPaths {
		nodes, err := b.xpath.Nodes(root, expr)
		if err != nil {
			b.logger.Warn("body remove xpath failed", "xpath", expr, "error", err)
			continue
		}
		for _, n := range nodes {
			b.logger.Debug("removing body element", "xpath", expr, "tag", n.Data)
			detach(n)
		}
	}
	for _, sel := range b.cfg.RemoveCSS {
		nodes, err := b.css.Nodes(root, sel)
		if err != nil {
			b.logger.Warn("body remove css selector failed", "selector", sel, "error", err)
			continue
		}
		for _, n := range nodes {
			b.logger.Debug("removing body element", "selector", sel, "tag", n.Data)
			detach(n)
		}
	}
	for _, r := range b.tagRenames {
		walk(root, func(n *html.Node) {
			if n.Type == html.ElementNode && n.Data == r.From {
				n.Data = r.To
				n.DataAtom = atom.Lookup([]byte(r.To))
			}
		})
	}
	for _, r := range b.attrRenames {
		walk(root, func(n *html.Node) {
			if n.Type != html.ElementNode || n.Data != r.Tag {
				return
			}
			renameAttr(n, r.From, r.To)
		})
	}
}

// unwrapTags replaces every element named in tags by its children.
func unwrapTags(root *html.Node, tags map[string]bool) {
	var next *html.Node
	for c := root.FirstChild; c != nil; c = next {
		next = c.NextSibling
		unwrapTags(c, tags)
		if c.Type != html.ElementNode || !tags[c.Data] || c.Parent == nil {
			continue
		}
		for gc := c.FirstChild; gc != nil; {
			following := gc.NextSibling
			c.RemoveChild(gc)
			c.Parent.InsertBefore(gc, c)
			gc = following
		}
		c.Parent.RemoveChild(c)
	}
}

func renameAttr(n *html.Node, from, to string) {
	idx := -1
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == from {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	val := n.Attr[idx].Val
	attrs := n.Attr[:0]
	for i, a := range n.Attr {
		if i == idx || (a.Namespace == "" && a.Key == to) {
			continue
		}
		attrs = append(attrs, a)
	}
	n.Attr = append(attrs, html.Attribute{Key: to, Val: val})
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// cloneNode deep-copies n into a detached tree.
func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}
