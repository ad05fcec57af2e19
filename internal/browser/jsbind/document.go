// internal/browser/jsbind/document.go
package jsbind

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/webnav/internal/browser/dom"
)

// Document wraps the document node.
type Document struct {
	bridge *DOMBridge
	Object *goja.Object
	events *eventTarget
	root   *html.Node
}

func newDocument(bridge *DOMBridge) *Document {
	d := &Document{
		bridge: bridge,
		events: newEventTarget(),
	}
	d.Object = bridge.vm.NewObject()
	b := bridge
	obj := d.Object

	b.defineValue(obj, "nodeType", b.vm.ToValue(9))
	b.defineValue(obj, "nodeName", b.vm.ToValue("#document"))
	b.defineValue(obj, "readyState", b.vm.ToValue("complete"))

	b.defineAccessor(obj, "documentElement", func() goja.Value { return b.WrapNode(d.find("//html")) }, nil)
	b.defineAccessor(obj, "head", func() goja.Value { return b.WrapNode(d.find("//head")) }, nil)
	b.defineAccessor(obj, "body", func() goja.Value { return b.WrapNode(dom.Body(d.root)) }, nil)
	b.defineAccessor(obj, "activeElement", func() goja.Value { return b.WrapNode(b.ActiveElement()) }, nil)
	b.defineAccessor(obj, "title", func() goja.Value {
		return b.vm.ToValue(strings.TrimSpace(dom.TextContent(d.find("//title"))))
	}, nil)
	b.defineAccessor(obj, "location", func() goja.Value { return b.window.location }, nil)
	b.defineAccessor(obj, "defaultView", func() goja.Value { return b.window.Object }, nil)
	b.defineAccessor(obj, "childNodes", func() goja.Value { return b.WrapNodeList(children(d.root)) }, nil)

	b.defineMethod(obj, "querySelector", d.QuerySelector)
	b.defineMethod(obj, "querySelectorAll", d.QuerySelectorAll)
	b.defineMethod(obj, "getElementById", d.GetElementById)
	b.defineMethod(obj, "getElementsByTagName", d.GetElementsByTagName)
	b.defineMethod(obj, "getElementsByClassName", d.GetElementsByClassName)
	b.defineMethod(obj, "createElement", d.CreateElement)
	b.defineMethod(obj, "createTextNode", d.CreateTextNode)
	b.defineMethod(obj, "contains", func(call goja.FunctionCall) goja.Value {
		n, ok := b.UnwrapNode(call.Argument(0))
		return b.vm.ToValue(ok && dom.IsConnected(n, d.root))
	})

	b.installEventTarget(obj, d.events, func() []pathEntry {
		return []pathEntry{d.entry(), b.window.entry()}
	})
	return d
}

func (d *Document) entry() pathEntry {
	return pathEntry{target: d.events, this: d.Object}
}

// reset points the document at a new tree and drops its listeners.
func (d *Document) reset(root *html.Node) {
	d.root = root
	d.events.clear()
}

func (d *Document) find(xpath string) *html.Node {
	if d.root == nil {
		return nil
	}
	return htmlquery.FindOne(d.root, xpath)
}

// throwSelectorError raises a SyntaxError for a selector cascadia rejects.
func (b *DOMBridge) throwSelectorError(err error) {
	panic(b.vm.NewGoError(err))
}

// QuerySelector returns the first element matching the CSS selector.
func (d *Document) QuerySelector(call goja.FunctionCall) goja.Value {
	if d.root == nil {
		return goja.Null()
	}
	n, err := dom.QuerySelector(d.root, call.Argument(0).String())
	if err != nil {
		d.bridge.throwSelectorError(err)
	}
	return d.bridge.WrapNode(n)
}

// QuerySelectorAll returns every element matching the CSS selector.
func (d *Document) QuerySelectorAll(call goja.FunctionCall) goja.Value {
	if d.root == nil {
		return d.bridge.vm.NewArray()
	}
	nodes, err := dom.QuerySelectorAll(d.root, call.Argument(0).String())
	if err != nil {
		d.bridge.throwSelectorError(err)
	}
	return d.bridge.WrapNodeList(nodes)
}

// GetElementById finds an element by its ID.
func (d *Document) GetElementById(call goja.FunctionCall) goja.Value {
	if d.root == nil {
		return goja.Null()
	}
	id := call.Argument(0).String()
	n := cascadia.Query(d.root, cascadia.Selector(func(n *html.Node) bool {
		v, ok := dom.Attr(n, "id")
		return n.Type == html.ElementNode && ok && v == id
	}))
	return d.bridge.WrapNode(n)
}

// GetElementsByTagName lists descendants with the given tag name ("*" for all).
func (d *Document) GetElementsByTagName(call goja.FunctionCall) goja.Value {
	return d.bridge.WrapNodeList(elementsByTagName(d.root, call.Argument(0).String()))
}

// GetElementsByClassName lists descendants carrying every given class.
func (d *Document) GetElementsByClassName(call goja.FunctionCall) goja.Value {
	return d.bridge.WrapNodeList(elementsByClassName(d.root, call.Argument(0).String()))
}

// CreateElement creates a new detached element.
func (d *Document) CreateElement(call goja.FunctionCall) goja.Value {
	n := &html.Node{
		Type: html.ElementNode,
		Data: strings.ToLower(call.Argument(0).String()),
	}
	return d.bridge.WrapNode(n)
}

// CreateTextNode creates a new detached text node.
func (d *Document) CreateTextNode(call goja.FunctionCall) goja.Value {
	n := &html.Node{
		Type: html.TextNode,
		Data: call.Argument(0).String(),
	}
	return d.bridge.WrapNode(n)
}

func children(n *html.Node) []*html.Node {
	if n == nil {
		return nil
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func elementsByTagName(root *html.Node, tag string) []*html.Node {
	if root == nil {
		return nil
	}
	tag = strings.ToLower(tag)
	if tag == "*" {
		return htmlquery.Find(root, ".//*")
	}
	return cascadia.QueryAll(root, cascadia.Selector(func(n *html.Node) bool {
		return n.Type == html.ElementNode && strings.EqualFold(n.Data, tag)
	}))
}

func elementsByClassName(root *html.Node, names string) []*html.Node {
	wanted := strings.Fields(names)
	if root == nil || len(wanted) == 0 {
		return nil
	}
	return cascadia.QueryAll(root, cascadia.Selector(func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		class, _ := dom.Attr(n, "class")
		have := strings.Fields(class)
		for _, w := range wanted {
			found := false
			for _, h := range have {
				if h == w {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}))
}
