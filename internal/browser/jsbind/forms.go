// internal/browser/jsbind/forms.go
package jsbind

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/webnav/internal/browser/dom"
)

// Type mirrors the IDL type property. ok is false for elements that have none.
func (e *Element) Type() (string, bool) {
	raw, present := dom.Attr(e.Node, "type")
	switch dom.TagName(e.Node) {
	case "input":
		if !present || raw == "" {
			return "text", true
		}
		return strings.ToLower(raw), true
	case "button":
		if t := strings.ToLower(raw); t == "button" || t == "reset" {
			return t, true
		}
		return "submit", true
	case "select":
		if _, multiple := dom.Attr(e.Node, "multiple"); multiple {
			return "select-multiple", true
		}
		return "select-one", true
	case "textarea":
		return "textarea", true
	default:
		return raw, present
	}
}

// Value returns the current value, falling back to the markup.
func (e *Element) Value() string {
	if e.value != nil {
		return *e.value
	}
	switch dom.TagName(e.Node) {
	case "textarea":
		return dom.TextContent(e.Node)
	case "select":
		if opt := selectedOption(e.Node); opt != nil {
			return optionValue(opt)
		}
		return ""
	case "option":
		return optionValue(e.Node)
	case "input":
		v, ok := dom.Attr(e.Node, "value")
		if !ok {
			if t, _ := e.Type(); t == "checkbox" || t == "radio" {
				return "on"
			}
		}
		return v
	default:
		v, _ := dom.Attr(e.Node, "value")
		return v
	}
}

// SetValue sets the dirty value. The value attribute is left alone.
func (e *Element) SetValue(v string) {
	e.value = &v
}

// Checked returns the current checkedness, falling back to the markup.
func (e *Element) Checked() bool {
	if e.checked != nil {
		return *e.checked
	}
	_, ok := dom.Attr(e.Node, "checked")
	return ok
}

// SetChecked sets checkedness. Checking a radio unchecks the rest of its
// group: same name, same form (or the same tree when formless).
func (e *Element) SetChecked(checked bool) {
	e.checked = &checked
	if !checked {
		return
	}
	if t, _ := e.Type(); t != "radio" {
		return
	}
	for _, other := range e.bridge.radioGroup(e.Node) {
		if other == e.Node {
			continue
		}
		off := false
		e.bridge.Element(other).checked = &off
	}
}

// radioGroup lists the radios sharing n's group, n included.
func (b *DOMBridge) radioGroup(n *html.Node) []*html.Node {
	name, _ := dom.Attr(n, "name")
	if name == "" {
		return []*html.Node{n}
	}
	form := dom.ParentForm(n)
	scope := form
	if scope == nil {
		scope = dom.Root(n)
	}

	var group []*html.Node
	for _, input := range elementsByTagName(scope, "input") {
		t, _ := dom.Attr(input, "type")
		other, _ := dom.Attr(input, "name")
		if strings.EqualFold(t, "radio") && other == name && dom.ParentForm(input) == form {
			group = append(group, input)
		}
	}
	return group
}

func selectedOption(sel *html.Node) *html.Node {
	options := elementsByTagName(sel, "option")
	for _, opt := range options {
		if _, ok := dom.Attr(opt, "selected"); ok {
			return opt
		}
	}
	if len(options) > 0 {
		return options[0]
	}
	return nil
}

func optionValue(opt *html.Node) string {
	if v, ok := dom.Attr(opt, "value"); ok {
		return v
	}
	return strings.TrimSpace(dom.TextContent(opt))
}
