// internal/browser/cdp/script.go
package cdp

import (
	_ "embed"
)

//go:embed webnav.js
var helperScript string

// Script returns the page helper that defines window.__webnav. It is
// idempotent, so it is safe to install on every new document and to prepend
// to each call.
func Script() string {
	return helperScript
}
