// internal/browser/session/actions.go
package session

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/webnav/internal/browser/dom"
	"github.com/xkilldash9x/webnav/internal/browser/jsbind"
	"github.com/xkilldash9x/webnav/internal/webnav"
)

// Focus moves focus to the element. Elements that cannot take focus are left
// alone but still reported as focused.
func (p *Page) Focus(ctx context.Context, q webnav.Query) (*webnav.FocusResult, error) {
	var result *webnav.FocusResult
	err := p.withElement(ctx, q, func(b *jsbind.DOMBridge, n *html.Node) error {
		b.Focus(n)
		result = &webnav.FocusResult{Focused: true, Tag: dom.TagName(n)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Hover dispatches mouseenter, which does not bubble, then mouseover, which does.
func (p *Page) Hover(ctx context.Context, q webnav.Query) (*webnav.HoverResult, error) {
	var result *webnav.HoverResult
	err := p.withElement(ctx, q, func(b *jsbind.DOMBridge, n *html.Node) error {
		b.DispatchEvent(n, jsbind.KindMouseEvent, "mouseenter", jsbind.EventInit{})
		b.DispatchEvent(n, jsbind.KindMouseEvent, "mouseover", jsbind.EventInit{Bubbles: true, Cancelable: true})
		result = &webnav.HoverResult{
			Hovered: true,
			Tag:     dom.TagName(n),
			Text:    webnav.TruncateRunes(dom.TextContent(n), webnav.HoverTextLimit),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Toggle drives a checkbox or radio to req.Checked. change fires only when
// the state actually changes.
func (p *Page) Toggle(ctx context.Context, req webnav.ToggleRequest) (*webnav.ToggleResult, error) {
	var result *webnav.ToggleResult
	err := p.withElement(ctx, req.Query, func(b *jsbind.DOMBridge, n *html.Node) error {
		typ, _ := dom.Attr(n, "type")
		typ = strings.ToLower(typ)
		if !webnav.IsToggleType(typ) {
			return webnav.NewInvalidTargetTypeError(dom.TagName(n), typ)
		}

		el := b.Element(n)
		changed := el.Checked() != req.Checked
		if changed {
			el.SetChecked(req.Checked)
			b.DispatchEvent(n, jsbind.KindEvent, "change", jsbind.EventInit{Bubbles: true})
		}
		result = &webnav.ToggleResult{Checked: el.Checked(), Changed: changed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Clear empties the element's value and dispatches input then change.
func (p *Page) Clear(ctx context.Context, q webnav.Query) (*webnav.ClearResult, error) {
	var result *webnav.ClearResult
	err := p.withElement(ctx, q, func(b *jsbind.DOMBridge, n *html.Node) error {
		b.Element(n).SetValue("")
		b.DispatchEvent(n, jsbind.KindEvent, "input", jsbind.EventInit{Bubbles: true})
		b.DispatchEvent(n, jsbind.KindEvent, "change", jsbind.EventInit{Bubbles: true})
		result = &webnav.ClearResult{Cleared: true, Tag: dom.TagName(n)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
