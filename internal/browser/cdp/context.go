// internal/browser/cdp/context.go
package cdp

import (
	"context"
)

// CombineContext returns a context derived from tab that is also cancelled
// when op is done. Values (the chromedp target) come from tab only.
func CombineContext(tab, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(tab)

	// Exits once either side is done.
	go func() {
		select {
		case <-op.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}
