// internal/browser/dom/node.go
package dom

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// TagName returns the lower-case tag name of an element, or "" for other nodes.
func TagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// Attr returns the value of an attribute and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets an attribute, replacing an existing value in place.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: strings.ToLower(key), Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// TextContent concatenates every descendant text node, like Node.textContent.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	return htmlquery.InnerText(n)
}

// Summary renders an element as "<tag>" or "<tag#id>".
func Summary(n *html.Node) string {
	tag := TagName(n)
	if id, ok := Attr(n, "id"); ok && id != "" {
		return "<" + tag + "#" + id + ">"
	}
	return "<" + tag + ">"
}

// Root walks up to the top of the tree n belongs to.
func Root(n *html.Node) *html.Node {
	for n != nil && n.Parent != nil {
		n = n.Parent
	}
	return n
}

// IsConnected reports whether n is still attached under doc.
func IsConnected(n, doc *html.Node) bool {
	return n != nil && doc != nil && Root(n) == doc
}

// Body returns the document's <body>, or nil.
func Body(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	return htmlquery.FindOne(doc, "//body")
}

// IsDisabled reports whether n is a control that carries a disabled
// attribute. Only buttons, inputs, selects, textareas, fieldsets, optgroups
// and options honor it.
func IsDisabled(n *html.Node) bool {
	switch TagName(n) {
	case "button", "input", "select", "textarea", "fieldset", "optgroup", "option":
		_, ok := Attr(n, "disabled")
		return ok
	default:
		return false
	}
}

// ParentForm returns the nearest enclosing <form>, or nil.
func ParentForm(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if TagName(p) == "form" {
			return p
		}
	}
	return nil
}
