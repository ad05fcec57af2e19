// internal/webnav/executor.go
package webnav

import "context"

// Executor is the element-targeting and DOM-action surface of a single page.
// Each call is one self-contained operation: it either succeeds with its
// payload or returns an error, and a failed resolution never mutates the page.
type Executor interface {
	// Focus resolves q and moves focus to the element.
	Focus(ctx context.Context, q Query) (*FocusResult, error)
	// Hover resolves q and dispatches mouseenter then mouseover.
	Hover(ctx context.Context, q Query) (*HoverResult, error)
	// Toggle drives a checkbox or radio to req.Checked, firing change only on a real change.
	Toggle(ctx context.Context, req ToggleRequest) (*ToggleResult, error)
	// Clear empties the element's value and dispatches input then change.
	Clear(ctx context.Context, q Query) (*ClearResult, error)
	// ResolveRef turns a snapshot reference into a selector that re-finds the element.
	ResolveRef(ctx context.Context, ref string) (*RefResult, error)
	// HandleDialogs installs or reconfigures the alert/confirm/prompt overrides.
	HandleDialogs(ctx context.Context, cfg DialogConfig) (*DialogResult, error)
	// Evaluate runs expression inside an async wrapper and classifies the awaited value.
	Evaluate(ctx context.Context, expression string) (*EvalResult, error)
}
