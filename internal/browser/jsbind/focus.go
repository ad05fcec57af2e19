// internal/browser/jsbind/focus.go
package jsbind

import (
	"golang.org/x/net/html"

	"github.com/xkilldash9x/webnav/internal/browser/dom"
)

// ActiveElement is document.activeElement: the focused element, else <body>.
func (b *DOMBridge) ActiveElement() *html.Node {
	if b.active != nil && dom.IsConnected(b.active, b.root) {
		return b.active
	}
	return dom.Body(b.root)
}

// Focusable reports whether focus() would move focus to n.
func Focusable(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if dom.IsDisabled(n) {
		return false
	}
	if _, ok := dom.Attr(n, "tabindex"); ok {
		return true
	}
	if v, ok := dom.Attr(n, "contenteditable"); ok && v != "false" {
		return true
	}
	switch dom.TagName(n) {
	case "input":
		t, _ := dom.Attr(n, "type")
		return t != "hidden"
	case "select", "textarea", "button", "iframe", "summary":
		return true
	case "a", "area":
		_, ok := dom.Attr(n, "href")
		return ok
	default:
		return false
	}
}

// Focus moves focus to n, as HTMLElement.focus() does. The previously focused
// element receives blur then focusout; n receives focus then focusin.
// Non-focusable, detached or already focused elements are left alone.
func (b *DOMBridge) Focus(n *html.Node) {
	if !Focusable(n) || !dom.IsConnected(n, b.root) || b.active == n {
		return
	}
	prev := b.active
	b.active = n

	if prev != nil && dom.IsConnected(prev, b.root) {
		b.dispatchFocusPair(prev, "blur", "focusout", n)
	}
	b.dispatchFocusPair(n, "focus", "focusin", prev)
}

// Blur removes focus from n if it holds it.
func (b *DOMBridge) Blur(n *html.Node) {
	if n == nil || b.active != n {
		return
	}
	b.active = nil
	b.dispatchFocusPair(n, "blur", "focusout", nil)
}

func (b *DOMBridge) dispatchFocusPair(n *html.Node, direct, bubbling string, related *html.Node) {
	fields := map[string]interface{}{"relatedTarget": b.WrapNode(related)}
	b.DispatchEvent(n, KindFocusEvent, direct, EventInit{Fields: fields})
	b.DispatchEvent(n, KindFocusEvent, bubbling, EventInit{Bubbles: true, Fields: fields})
}

// Click runs the click activation of n: a cancelable, bubbling click, with
// the checkbox and radio toggle applied before dispatch and reverted if a
// listener cancels it.
func (b *DOMBridge) Click(n *html.Node) {
	e := b.Element(n)
	if e == nil || n.Type != html.ElementNode {
		return
	}
	if dom.IsDisabled(n) {
		return
	}

	typ, _ := e.Type()
	toggles := dom.TagName(n) == "input" && (typ == "checkbox" || typ == "radio")

	var before map[*html.Node]bool
	if toggles {
		before = b.checkedness(n, typ)
		if typ == "checkbox" {
			e.SetChecked(!e.Checked())
		} else {
			e.SetChecked(true)
		}
	}

	notCanceled := b.DispatchEvent(n, KindMouseEvent, "click", EventInit{
		Bubbles:    true,
		Cancelable: true,
		Fields:     map[string]interface{}{"button": 0, "detail": 1},
	})

	if !toggles {
		return
	}
	if !notCanceled {
		for node, checked := range before {
			c := checked
			b.Element(node).checked = &c
		}
		return
	}
	if before[n] != e.Checked() {
		b.DispatchEvent(n, KindInputEvent, "input", EventInit{Bubbles: true})
		b.DispatchEvent(n, KindEvent, "change", EventInit{Bubbles: true})
	}
}

// checkedness snapshots the state a click on n may change.
func (b *DOMBridge) checkedness(n *html.Node, typ string) map[*html.Node]bool {
	nodes := []*html.Node{n}
	if typ == "radio" {
		nodes = b.radioGroup(n)
	}
	out := make(map[*html.Node]bool, len(nodes))
	for _, node := range nodes {
		out[node] = b.Element(node).Checked()
	}
	return out
}
