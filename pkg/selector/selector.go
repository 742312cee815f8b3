// Package selector derives structural CSS selector paths for elements of a
// parsed HTML document and resolves them back to nodes.
//
// A path is position based: every segment is the lower-cased tag name,
// qualified with :nth-child(k) when the element has element siblings. The
// walk stops below a fixed root boundary, normally the document body, so the
// same element always yields the same string while the tree is unchanged.
package selector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Separator joins adjacent segments.
const Separator = " > "

var (
	// ErrInvalidSelector is returned when a selector is not a derived path.
	ErrInvalidSelector = errors.New("invalid selector")
	// ErrNotFound is returned when a path does not address any element.
	ErrNotFound = errors.New("no element matches selector")
)

// Segment is one step of a selector path. NthChild is zero when the element
// is the only element child of its parent.
type Segment struct {
	Tag      string
	NthChild int
}

// String renders the segment as tag or tag:nth-child(k).
func (s Segment) String() string {
	if s.NthChild > 0 {
		return s.Tag + ":nth-child(" + strconv.Itoa(s.NthChild) + ")"
	}
	return s.Tag
}

// Path is ordered from the outermost ancestor below the root to the target.
type Path []Segment

// String joins the segments with Separator.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.String()
	}
	return strings.Join(parts, Separator)
}

// DerivePath walks from node up to, but excluding, root. It returns an empty
// path when node is root.
func DerivePath(node, root *html.Node) Path {
	var path Path
	for n := node; n != nil && n != root && n.Parent != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		seg := Segment{Tag: strings.ToLower(n.Data)}
		siblings := elementChildren(n.Parent)
		if len(siblings) > 1 {
			for i, sib := range siblings {
				if sib == n {
					seg.NthChild = i + 1
					break
				}
			}
		}
		path = append(Path{seg}, path...)
	}
	return path
}

// Derive returns the selector string for node relative to root.
func Derive(node, root *html.Node) string {
	return DerivePath(node, root).String()
}

// Parse reads a selector produced by Derive.
func Parse(selector string) (Path, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, nil
	}

	parts := strings.Split(selector, ">")
	path := make(Path, 0, len(parts))
	for _, raw := range parts {
		seg, err := parseSegment(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, selector, err)
		}
		path = append(path, seg)
	}
	return path, nil
}

func parseSegment(raw string) (Segment, error) {
	if raw == "" {
		return Segment{}, errors.New("empty segment")
	}
	tag, pseudo, found := strings.Cut(raw, ":")
	if tag == "" || strings.ContainsAny(tag, " \t.#[") {
		return Segment{}, fmt.Errorf("unsupported segment %q", raw)
	}
	seg := Segment{Tag: strings.ToLower(tag)}
	if !found {
		return seg, nil
	}

	arg, ok := strings.CutPrefix(pseudo, "nth-child(")
	if !ok || !strings.HasSuffix(arg, ")") {
		return Segment{}, fmt.Errorf("unsupported pseudo-class in %q", raw)
	}
	k, err := strconv.Atoi(strings.TrimSuffix(arg, ")"))
	if err != nil || k < 1 {
		return Segment{}, fmt.Errorf("bad nth-child index in %q", raw)
	}
	seg.NthChild = k
	return seg, nil
}

// Resolve walks path from root and returns the addressed element.
func Resolve(root *html.Node, selector string) (*html.Node, error) {
	path, err := Parse(selector)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty selector", ErrNotFound)
	}

	current := root
	for depth, seg := range path {
		children := elementChildren(current)
		var next *html.Node
		switch {
		case seg.NthChild > 0:
			if seg.NthChild <= len(children) && strings.EqualFold(children[seg.NthChild-1].Data, seg.Tag) {
				next = children[seg.NthChild-1]
			}
		case len(children) == 1 && strings.EqualFold(children[0].Data, seg.Tag):
			next = children[0]
		}
		if next == nil {
			return nil, fmt.Errorf("%w: %q at segment %d", ErrNotFound, selector, depth+1)
		}
		current = next
	}
	return current, nil
}

// Body returns the body element of a parsed document.
func Body(doc *html.Node) *html.Node {
	return find(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "body"
	})
}

// ParseBody parses markup as the body of a full document, the way a browser
// would when the markup is placed inside <body>, and returns the body.
func ParseBody(markup string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader("<!DOCTYPE html><html><head></head><body>" + markup + "</body></html>"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	body := Body(doc)
	if body == nil {
		return nil, errors.New("parsed document has no body")
	}
	return body, nil
}

// OuterHTML renders n and its subtree.
func OuterHTML(n *html.Node) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Walk calls fn for every element below root in document order.
func Walk(root *html.Node, fn func(*html.Node)) {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			fn(c)
		}
		Walk(c, fn)
	}
}

func elementChildren(parent *html.Node) []*html.Node {
	var children []*html.Node
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			children = append(children, c)
		}
	}
	return children
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}
