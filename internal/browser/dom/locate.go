// internal/browser/dom/locate.go
package dom

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/webnav/internal/webnav"
)

// Locate resolves a query against a parsed document. A selector is matched
// against the whole document and yields the first match in document order;
// it never falls back to text search. Otherwise the text nodes under <body>
// are walked depth-first and the parent element of the first one whose raw
// content contains the text is returned.
func Locate(doc *html.Node, q webnav.Query) (*html.Node, error) {
	switch q.Mode() {
	case webnav.QueryBySelector:
		n, err := QuerySelector(doc, q.Selector)
		if err != nil {
			return nil, err
		}
		if n == nil {
			return nil, webnav.NewSelectorNotFoundError(q.Selector)
		}
		return n, nil

	case webnav.QueryByText:
		if n := FindByText(doc, q.Text); n != nil {
			return n, nil
		}
		return nil, webnav.NewTextNotFoundError(q.Text)

	default:
		return nil, webnav.NewInvalidQueryError()
	}
}

// Compile parses a CSS selector group.
func Compile(selector string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, webnav.NewInvalidSelectorError(selector, err)
	}
	return sel, nil
}

// QuerySelector returns the first descendant of root matching selector, or nil.
func QuerySelector(root *html.Node, selector string) (*html.Node, error) {
	sel, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	return cascadia.Query(root, sel), nil
}

// QuerySelectorAll returns every descendant of root matching selector, in document order.
func QuerySelectorAll(root *html.Node, selector string) ([]*html.Node, error) {
	sel, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	return cascadia.QueryAll(root, sel), nil
}

// Matches reports whether n itself matches selector.
func Matches(n *html.Node, selector string) (bool, error) {
	sel, err := Compile(selector)
	if err != nil {
		return false, err
	}
	return sel.Match(n), nil
}

// FindByText returns the parent element of the first text node under <body>
// containing text. Matching is case-sensitive on a single node's raw data:
// no trimming, no whitespace normalization, no joining of sibling nodes.
func FindByText(doc *html.Node, text string) *html.Node {
	body := Body(doc)
	if body == nil || text == "" {
		return nil
	}

	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				if strings.Contains(c.Data, text) && c.Parent != nil && c.Parent.Type == html.ElementNode {
					found = c.Parent
					return true
				}
				continue
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(body)
	return found
}
