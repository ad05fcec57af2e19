// internal/browser/jsbind/element.go
package jsbind

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/webnav/internal/browser/dom"
)

// Element wraps one node of the tree (element, text or comment).
type Element struct {
	bridge *DOMBridge
	Node   *html.Node
	Object *goja.Object
	events *eventTarget

	// Dirty form state. Until a script or an action writes them, value and
	// checkedness come from the markup.
	value   *string
	checked *bool
}

func newElement(b *DOMBridge, n *html.Node) *Element {
	e := &Element{
		bridge: b,
		Node:   n,
		Object: b.vm.NewObject(),
		events: newEventTarget(),
	}
	obj := e.Object

	b.defineValue(obj, "nodeType", b.vm.ToValue(e.NodeType()))
	b.defineValue(obj, "nodeName", b.vm.ToValue(e.NodeName()))

	b.defineAccessor(obj, "parentNode", func() goja.Value { return b.WrapNode(e.Node.Parent) }, nil)
	b.defineAccessor(obj, "parentElement", func() goja.Value {
		if p := e.Node.Parent; p != nil && p.Type == html.ElementNode {
			return b.WrapNode(p)
		}
		return goja.Null()
	}, nil)
	b.defineAccessor(obj, "childNodes", func() goja.Value { return b.WrapNodeList(children(e.Node)) }, nil)
	b.defineAccessor(obj, "firstChild", func() goja.Value { return b.WrapNode(e.Node.FirstChild) }, nil)
	b.defineAccessor(obj, "lastChild", func() goja.Value { return b.WrapNode(e.Node.LastChild) }, nil)
	b.defineAccessor(obj, "nextSibling", func() goja.Value { return b.WrapNode(e.Node.NextSibling) }, nil)
	b.defineAccessor(obj, "previousSibling", func() goja.Value { return b.WrapNode(e.Node.PrevSibling) }, nil)
	b.defineAccessor(obj, "isConnected", func() goja.Value { return b.vm.ToValue(dom.IsConnected(e.Node, b.root)) }, nil)
	b.defineAccessor(obj, "ownerDocument", func() goja.Value { return b.document.Object }, nil)

	b.defineMethod(obj, "appendChild", e.AppendChild)
	b.defineMethod(obj, "removeChild", e.RemoveChild)
	b.defineMethod(obj, "insertBefore", e.InsertBefore)
	b.defineMethod(obj, "cloneNode", e.CloneNode)
	b.defineMethod(obj, "remove", func(goja.FunctionCall) goja.Value {
		if e.Node.Parent != nil {
			e.Node.Parent.RemoveChild(e.Node)
		}
		return goja.Undefined()
	})
	b.defineMethod(obj, "contains", func(call goja.FunctionCall) goja.Value {
		other, ok := b.UnwrapNode(call.Argument(0))
		if !ok {
			return b.vm.ToValue(false)
		}
		for p := other; p != nil; p = p.Parent {
			if p == e.Node {
				return b.vm.ToValue(true)
			}
		}
		return b.vm.ToValue(false)
	})

	b.installEventTarget(obj, e.events, func() []pathEntry { return b.pathFor(e.Node) })

	switch n.Type {
	case html.ElementNode:
		e.bindElement()
	case html.TextNode, html.CommentNode:
		b.defineAccessor(obj, "textContent", e.NodeValue, e.SetNodeValue)
		b.defineAccessor(obj, "nodeValue", e.NodeValue, e.SetNodeValue)
		b.defineAccessor(obj, "data", e.NodeValue, e.SetNodeValue)
	}
	return e
}

// bindElement installs the Element, HTMLElement and form control surface.
func (e *Element) bindElement() {
	b := e.bridge
	obj := e.Object

	b.defineValue(obj, "tagName", b.vm.ToValue(strings.ToUpper(e.Node.Data)))
	b.defineValue(obj, "localName", b.vm.ToValue(strings.ToLower(e.Node.Data)))

	attrAccessor := func(name string) {
		b.defineAccessor(obj, name, func() goja.Value {
			v, _ := dom.Attr(e.Node, name)
			return b.vm.ToValue(v)
		}, func(v goja.Value) {
			dom.SetAttr(e.Node, name, v.String())
		})
	}
	attrAccessor("id")
	attrAccessor("name")
	attrAccessor("href")
	attrAccessor("placeholder")
	b.defineAccessor(obj, "className", func() goja.Value {
		v, _ := dom.Attr(e.Node, "class")
		return b.vm.ToValue(v)
	}, func(v goja.Value) {
		dom.SetAttr(e.Node, "class", v.String())
	})

	b.defineAccessor(obj, "innerHTML", e.InnerHTML, e.SetInnerHTML)
	b.defineAccessor(obj, "outerHTML", e.OuterHTML, nil)
	b.defineAccessor(obj, "textContent", e.TextContent, e.SetTextContent)
	b.defineAccessor(obj, "innerText", e.TextContent, e.SetTextContent)
	b.defineAccessor(obj, "children", func() goja.Value {
		var out []*html.Node
		for c := e.Node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				out = append(out, c)
			}
		}
		return b.WrapNodeList(out)
	}, nil)

	b.defineMethod(obj, "getAttribute", e.GetAttribute)
	b.defineMethod(obj, "setAttribute", e.SetAttribute)
	b.defineMethod(obj, "removeAttribute", e.RemoveAttribute)
	b.defineMethod(obj, "hasAttribute", func(call goja.FunctionCall) goja.Value {
		_, ok := dom.Attr(e.Node, call.Argument(0).String())
		return b.vm.ToValue(ok)
	})

	b.defineMethod(obj, "querySelector", e.QuerySelector)
	b.defineMethod(obj, "querySelectorAll", e.QuerySelectorAll)
	b.defineMethod(obj, "matches", e.Matches)
	b.defineMethod(obj, "closest", e.Closest)
	b.defineMethod(obj, "getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return b.WrapNodeList(elementsByTagName(e.Node, call.Argument(0).String()))
	})
	b.defineMethod(obj, "getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		return b.WrapNodeList(elementsByClassName(e.Node, call.Argument(0).String()))
	})

	// Form control state.
	b.defineAccessor(obj, "value", func() goja.Value { return b.vm.ToValue(e.Value()) }, func(v goja.Value) {
		e.SetValue(v.String())
	})
	b.defineAccessor(obj, "checked", func() goja.Value { return b.vm.ToValue(e.Checked()) }, func(v goja.Value) {
		e.SetChecked(v.ToBoolean())
	})
	b.defineAccessor(obj, "defaultValue", func() goja.Value {
		v, _ := dom.Attr(e.Node, "value")
		return b.vm.ToValue(v)
	}, nil)
	b.defineAccessor(obj, "type", func() goja.Value {
		if t, ok := e.Type(); ok {
			return b.vm.ToValue(t)
		}
		return goja.Undefined()
	}, nil)
	b.defineAccessor(obj, "disabled", func() goja.Value {
		_, ok := dom.Attr(e.Node, "disabled")
		return b.vm.ToValue(ok)
	}, func(v goja.Value) {
		if v.ToBoolean() {
			dom.SetAttr(e.Node, "disabled", "")
		} else {
			dom.RemoveAttr(e.Node, "disabled")
		}
	})
	b.defineAccessor(obj, "form", func() goja.Value { return b.WrapNode(dom.ParentForm(e.Node)) }, nil)

	// Interaction.
	b.defineMethod(obj, "focus", func(goja.FunctionCall) goja.Value {
		b.Focus(e.Node)
		return goja.Undefined()
	})
	b.defineMethod(obj, "blur", func(goja.FunctionCall) goja.Value {
		b.Blur(e.Node)
		return goja.Undefined()
	})
	b.defineMethod(obj, "click", func(goja.FunctionCall) goja.Value {
		b.Click(e.Node)
		return goja.Undefined()
	})
}

// --- Node Properties Implementation ---

// NodeType returns the standard DOM node type constant.
func (e *Element) NodeType() int {
	switch e.Node.Type {
	case html.ElementNode:
		return 1
	case html.TextNode:
		return 3
	case html.CommentNode:
		return 8
	case html.DocumentNode:
		return 9
	default:
		return 0
	}
}

func (e *Element) NodeName() string {
	switch e.Node.Type {
	case html.ElementNode:
		return strings.ToUpper(e.Node.Data)
	case html.TextNode:
		return "#text"
	case html.CommentNode:
		return "#comment"
	default:
		return ""
	}
}

func (e *Element) NodeValue() goja.Value {
	if e.Node.Type == html.TextNode || e.Node.Type == html.CommentNode {
		return e.bridge.vm.ToValue(e.Node.Data)
	}
	return goja.Null()
}

func (e *Element) SetNodeValue(val goja.Value) {
	if e.Node.Type == html.TextNode || e.Node.Type == html.CommentNode {
		e.Node.Data = val.String()
	}
}

// --- Content ---

// InnerHTML returns the serialized HTML of the element's children.
func (e *Element) InnerHTML() goja.Value {
	var sb strings.Builder
	for c := e.Node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			break
		}
	}
	return e.bridge.vm.ToValue(sb.String())
}

// SetInnerHTML parses the fragment in the element's context and replaces its children.
func (e *Element) SetInnerHTML(val goja.Value) {
	nodes, err := html.ParseFragment(strings.NewReader(val.String()), e.Node)
	if err != nil {
		panic(e.bridge.vm.NewGoError(fmt.Errorf("failed to parse HTML: %w", err)))
	}
	e.removeChildren()
	for _, n := range nodes {
		e.Node.AppendChild(n)
	}
}

// OuterHTML returns the serialized HTML of the element itself.
func (e *Element) OuterHTML() goja.Value {
	var sb strings.Builder
	if err := html.Render(&sb, e.Node); err != nil {
		return e.bridge.vm.ToValue("")
	}
	return e.bridge.vm.ToValue(sb.String())
}

// TextContent returns the concatenated text of the element's descendants.
func (e *Element) TextContent() goja.Value {
	return e.bridge.vm.ToValue(dom.TextContent(e.Node))
}

// SetTextContent replaces the element's children with a single text node.
func (e *Element) SetTextContent(val goja.Value) {
	e.removeChildren()
	if text := val.String(); text != "" {
		e.Node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func (e *Element) removeChildren() {
	for c := e.Node.FirstChild; c != nil; {
		next := c.NextSibling
		e.Node.RemoveChild(c)
		c = next
	}
}

// --- Tree mutation ---

func (e *Element) AppendChild(call goja.FunctionCall) goja.Value {
	child := e.bridge.mustUnwrap("appendChild", call.Argument(0))
	e.checkInsertable("appendChild", child)
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	e.Node.AppendChild(child)
	return call.Argument(0)
}

func (e *Element) RemoveChild(call goja.FunctionCall) goja.Value {
	child := e.bridge.mustUnwrap("removeChild", call.Argument(0))
	if child.Parent != e.Node {
		panic(e.bridge.vm.NewGoError(&HierarchyError{Op: "removeChild", Message: "the node to be removed is not a child of this node"}))
	}
	e.Node.RemoveChild(child)
	return call.Argument(0)
}

func (e *Element) InsertBefore(call goja.FunctionCall) goja.Value {
	child := e.bridge.mustUnwrap("insertBefore", call.Argument(0))
	e.checkInsertable("insertBefore", child)

	var ref *html.Node
	if refVal := call.Argument(1); !goja.IsNull(refVal) && !goja.IsUndefined(refVal) {
		ref = e.bridge.mustUnwrap("insertBefore", refVal)
		if ref.Parent != e.Node {
			panic(e.bridge.vm.NewGoError(&HierarchyError{Op: "insertBefore", Message: "the reference node is not a child of this node"}))
		}
	}
	if ref == child {
		return call.Argument(0)
	}
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	e.Node.InsertBefore(child, ref)
	return call.Argument(0)
}

// checkInsertable rejects inserting a node into its own subtree.
func (e *Element) checkInsertable(op string, child *html.Node) {
	for p := e.Node; p != nil; p = p.Parent {
		if p == child {
			panic(e.bridge.vm.NewGoError(&HierarchyError{Op: op, Message: "the new child is an ancestor of the parent"}))
		}
	}
}

func (e *Element) CloneNode(call goja.FunctionCall) goja.Value {
	return e.bridge.WrapNode(cloneHTMLNode(e.Node, call.Argument(0).ToBoolean()))
}

func cloneHTMLNode(n *html.Node, deep bool) *html.Node {
	if n == nil {
		return nil
	}
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	if deep {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			clone.AppendChild(cloneHTMLNode(c, true))
		}
	}
	return clone
}

// --- Attributes ---

func (e *Element) GetAttribute(call goja.FunctionCall) goja.Value {
	if v, ok := dom.Attr(e.Node, call.Argument(0).String()); ok {
		return e.bridge.vm.ToValue(v)
	}
	return goja.Null()
}

func (e *Element) SetAttribute(call goja.FunctionCall) goja.Value {
	dom.SetAttr(e.Node, call.Argument(0).String(), call.Argument(1).String())
	return goja.Undefined()
}

func (e *Element) RemoveAttribute(call goja.FunctionCall) goja.Value {
	dom.RemoveAttr(e.Node, call.Argument(0).String())
	return goja.Undefined()
}

// --- Scoped queries ---

func (e *Element) QuerySelector(call goja.FunctionCall) goja.Value {
	n, err := dom.QuerySelector(e.Node, call.Argument(0).String())
	if err != nil {
		e.bridge.throwSelectorError(err)
	}
	return e.bridge.WrapNode(n)
}

func (e *Element) QuerySelectorAll(call goja.FunctionCall) goja.Value {
	nodes, err := dom.QuerySelectorAll(e.Node, call.Argument(0).String())
	if err != nil {
		e.bridge.throwSelectorError(err)
	}
	return e.bridge.WrapNodeList(nodes)
}

func (e *Element) Matches(call goja.FunctionCall) goja.Value {
	ok, err := dom.Matches(e.Node, call.Argument(0).String())
	if err != nil {
		e.bridge.throwSelectorError(err)
	}
	return e.bridge.vm.ToValue(ok)
}

func (e *Element) Closest(call goja.FunctionCall) goja.Value {
	sel, err := dom.Compile(call.Argument(0).String())
	if err != nil {
		e.bridge.throwSelectorError(err)
	}
	for p := e.Node; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && sel.Match(p) {
			return e.bridge.WrapNode(p)
		}
	}
	return goja.Null()
}
