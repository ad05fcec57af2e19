// internal/webnav/types.go
package webnav

import (
	"fmt"
	"strings"
)

const (
	// RefAttribute is stamped on an element when its reference handle is resolved.
	RefAttribute = "data-webnav-ref"
	// HoverTextLimit caps the text echoed back by Hover, in runes.
	HoverTextLimit = 100
	// FunctionSourceLimit caps the source text reported for a function result, in runes.
	FunctionSourceLimit = 200
)

// QueryMode says which field of a Query drives resolution.
type QueryMode int

const (
	QueryNone QueryMode = iota
	QueryBySelector
	QueryByText
)

// Query is the loose target description an agent sends. Selector wins when
// both are set; an empty string counts as absent.
type Query struct {
	Selector string `json:"selector,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Mode reports which form the query resolves with.
func (q Query) Mode() QueryMode {
	switch {
	case q.Selector != "":
		return QueryBySelector
	case q.Text != "":
		return QueryByText
	default:
		return QueryNone
	}
}

// String renders the query for log lines.
func (q Query) String() string {
	switch q.Mode() {
	case QueryBySelector:
		return fmt.Sprintf("selector=%q", q.Selector)
	case QueryByText:
		return fmt.Sprintf("text=%q", q.Text)
	default:
		return "<empty query>"
	}
}

// ToggleRequest asks for a checkbox or radio to end up in the Checked state.
type ToggleRequest struct {
	Query
	Checked bool `json:"checked"`
}

// DialogAction is the canned answer the dialog shim gives.
type DialogAction string

const (
	DialogAccept  DialogAction = "accept"
	DialogDismiss DialogAction = "dismiss"
)

// DialogConfig configures the dialog shim.
type DialogConfig struct {
	Action DialogAction `json:"action"`
	Text   string       `json:"text,omitempty"`
}

// Validate rejects actions other than accept and dismiss.
func (c DialogConfig) Validate() error {
	switch c.Action {
	case DialogAccept, DialogDismiss:
		return nil
	default:
		return NewInvalidArgumentError("dialog action must be %q or %q, got %q", DialogAccept, DialogDismiss, c.Action)
	}
}

// Accepts reports whether confirm should answer true.
func (c DialogConfig) Accepts() bool {
	return c.Action == DialogAccept
}

// FocusResult is the success payload of Focus.
type FocusResult struct {
	Focused bool   `json:"focused"`
	Tag     string `json:"tag"`
}

// HoverResult is the success payload of Hover.
type HoverResult struct {
	Hovered bool   `json:"hovered"`
	Tag     string `json:"tag"`
	Text    string `json:"text"`
}

// ToggleResult is the success payload of Toggle.
type ToggleResult struct {
	Checked bool `json:"checked"`
	Changed bool `json:"changed"`
}

// ClearResult is the success payload of Clear.
type ClearResult struct {
	Cleared bool   `json:"cleared"`
	Tag     string `json:"tag"`
}

// RefResult is the success payload of ResolveRef.
type RefResult struct {
	Resolved bool   `json:"resolved"`
	Ref      string `json:"ref"`
	Selector string `json:"selector"`
	Tag      string `json:"tag"`
}

// DialogResult is the success payload of HandleDialogs.
type DialogResult struct {
	Configured bool         `json:"configured"`
	Action     DialogAction `json:"action"`
	Text       string       `json:"text"`
}

// RefSelector builds the attribute selector that re-finds an element stamped
// by ResolveRef. Quotes and backslashes in ref are escaped.
func RefSelector(ref string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(ref)
	return fmt.Sprintf(`[%s="%s"]`, RefAttribute, escaped)
}

// TruncateRunes returns at most n runes of s.
func TruncateRunes(s string, n int) string {
	if n < 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// IsToggleType reports whether a type attribute names a checkbox or radio.
func IsToggleType(typ string) bool {
	switch strings.ToLower(typ) {
	case "checkbox", "radio":
		return true
	default:
		return false
	}
}
