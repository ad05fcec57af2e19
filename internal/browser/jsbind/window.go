// internal/browser/jsbind/window.go
package jsbind

import (
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Window is the global object of the runtime, so that `alert(...)` and
// `window.alert(...)` resolve to the same property.
type Window struct {
	bridge *DOMBridge
	Object *goja.Object
	events *eventTarget

	location *goja.Object
}

func newWindow(bridge *DOMBridge) *Window {
	vm := bridge.vm
	w := &Window{
		bridge: bridge,
		Object: vm.GlobalObject(),
		events: newEventTarget(),
	}

	w.Object.Set("window", w.Object)
	w.Object.Set("self", w.Object)

	w.location = vm.NewObject()
	w.SetLocation("about:blank")
	w.Object.Set("location", w.location)

	navigator := vm.NewObject()
	navigator.Set("userAgent", "Mozilla/5.0 (compatible; webnav)")
	navigator.Set("language", "en-US")
	w.Object.Set("navigator", navigator)

	// Native dialogs. A headless page has nobody to answer them, so alert is
	// logged, confirm accepts and prompt returns its default.
	w.Object.Set("alert", w.Alert)
	w.Object.Set("confirm", w.Confirm)
	w.Object.Set("prompt", w.Prompt)

	bridge.installEventTarget(w.Object, w.events, func() []pathEntry {
		return []pathEntry{w.entry()}
	})
	return w
}

func (w *Window) entry() pathEntry {
	return pathEntry{target: w.events, this: w.Object}
}

// SetLocation updates window.location for the loaded document.
func (w *Window) SetLocation(href string) {
	w.location.Set("href", href)
	w.location.Set("toString", func(goja.FunctionCall) goja.Value {
		return w.location.Get("href")
	})
}

// Alert is the native window.alert.
func (w *Window) Alert(call goja.FunctionCall) goja.Value {
	message := call.Argument(0).String()
	w.bridge.logger.Info("[JS Alert]", zap.String("message", message))
	return goja.Undefined()
}

// Confirm is the native window.confirm.
func (w *Window) Confirm(call goja.FunctionCall) goja.Value {
	message := call.Argument(0).String()
	w.bridge.logger.Info("[JS Confirm]", zap.String("message", message))
	return w.bridge.vm.ToValue(true)
}

// Prompt is the native window.prompt.
func (w *Window) Prompt(call goja.FunctionCall) goja.Value {
	message := call.Argument(0).String()
	w.bridge.logger.Info("[JS Prompt]", zap.String("message", message))
	if def := call.Argument(1); !goja.IsUndefined(def) {
		return w.bridge.vm.ToValue(def.String())
	}
	return w.bridge.vm.ToValue("")
}
