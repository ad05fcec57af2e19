// internal/browser/jsbind/dom_bridge.go
package jsbind

import (
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/net/html"
)

// DOMBridge exposes a Go *html.Node tree to a goja runtime as window, document
// and element objects.
//
// The bridge is not safe for concurrent use. Every method, and every call into
// the runtime it is bound to, must happen on the goroutine that owns that
// runtime (the event loop in jsexec).
type DOMBridge struct {
	vm     *goja.Runtime
	logger *zap.Logger

	root     *html.Node
	window   *Window
	document *Document

	// Identity map: one wrapper per node, so === holds across lookups and
	// per-node state (listeners, value, checkedness) survives between calls.
	elements map[*html.Node]*Element
	objects  map[*goja.Object]*html.Node

	active *html.Node

	eventProto      *goja.Object
	mouseEventProto *goja.Object
	focusEventProto *goja.Object
	inputEventProto *goja.Object
	eventSym        *goja.Symbol
}

// NewDOMBridge binds a bridge to vm and installs the browser globals.
func NewDOMBridge(vm *goja.Runtime, logger *zap.Logger) *DOMBridge {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &DOMBridge{
		vm:       vm,
		logger:   logger.Named("dom_bridge"),
		elements: make(map[*html.Node]*Element),
		objects:  make(map[*goja.Object]*html.Node),
	}

	b.initEventConstructors()
	b.window = newWindow(b)
	b.document = newDocument(b)
	b.initializeRuntime()

	return b
}

// initializeRuntime sets the remaining globals on the window (the global object).
func (b *DOMBridge) initializeRuntime() {
	global := b.vm.GlobalObject()
	if err := global.Set("document", b.document.Object); err != nil {
		b.logger.Error("Failed to set 'document' global", zap.Error(err))
	}
	b.initConsole()
}

// Runtime returns the goja runtime the bridge is bound to.
func (b *DOMBridge) Runtime() *goja.Runtime {
	return b.vm
}

// Window returns the window wrapper.
func (b *DOMBridge) Window() *Window {
	return b.window
}

// UpdateDOM swaps in a new document. Wrappers, listeners, form state and
// focus of the previous document are dropped.
func (b *DOMBridge) UpdateDOM(root *html.Node) {
	for obj := range b.objects {
		delete(b.objects, obj)
	}
	for n := range b.elements {
		delete(b.elements, n)
	}
	b.active = nil
	b.root = root
	b.window.events.clear()
	b.document.reset(root)
}

// Root returns the current document node.
func (b *DOMBridge) Root() *html.Node {
	return b.root
}

// Element returns the wrapper for n, creating it on first use. It returns nil
// for nil and for the document node, which is wrapped by Document.
func (b *DOMBridge) Element(n *html.Node) *Element {
	if n == nil || n == b.root {
		return nil
	}
	if e, ok := b.elements[n]; ok {
		return e
	}
	e := newElement(b, n)
	b.elements[n] = e
	b.objects[e.Object] = n
	return e
}

// WrapNode converts a node into its JS object, or null.
func (b *DOMBridge) WrapNode(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if n == b.root {
		return b.document.Object
	}
	return b.Element(n).Object
}

// WrapNodeList converts nodes into a JS array (the NodeList stand-in).
func (b *DOMBridge) WrapNodeList(nodes []*html.Node) goja.Value {
	wrapped := make([]interface{}, len(nodes))
	for i, n := range nodes {
		wrapped[i] = b.WrapNode(n)
	}
	return b.vm.NewArray(wrapped...)
}

// UnwrapNode maps a JS value back to the node it wraps.
func (b *DOMBridge) UnwrapNode(v goja.Value) (*html.Node, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	if obj == b.document.Object {
		return b.root, b.root != nil
	}
	n, ok := b.objects[obj]
	return n, ok
}

// UnwrapElement is UnwrapNode restricted to element nodes.
func (b *DOMBridge) UnwrapElement(v goja.Value) (*html.Node, bool) {
	n, ok := b.UnwrapNode(v)
	if !ok || n.Type != html.ElementNode {
		return nil, false
	}
	return n, true
}

// mustUnwrap unwraps a node argument or throws a TypeError into the script.
func (b *DOMBridge) mustUnwrap(op string, v goja.Value) *html.Node {
	n, ok := b.UnwrapNode(v)
	if !ok {
		panic(b.vm.NewTypeError(NewInvalidNodeError(op).Error()))
	}
	return n
}

// defineAccessor installs a non-enumerable accessor, so JSON.stringify of a
// wrapper yields {} as it does in a browser.
func (b *DOMBridge) defineAccessor(obj *goja.Object, name string, getter func() goja.Value, setter func(goja.Value)) {
	var get, set goja.Value = goja.Undefined(), goja.Undefined()
	if getter != nil {
		get = b.vm.ToValue(func(goja.FunctionCall) goja.Value { return getter() })
	}
	if setter != nil {
		set = b.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			setter(call.Argument(0))
			return goja.Undefined()
		})
	}
	if err := obj.DefineAccessorProperty(name, get, set, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		b.logger.Error("Failed to define accessor", zap.String("property", name), zap.Error(err))
	}
}

// defineMethod installs a non-enumerable, writable method.
func (b *DOMBridge) defineMethod(obj *goja.Object, name string, fn func(goja.FunctionCall) goja.Value) {
	b.defineValue(obj, name, b.vm.ToValue(fn))
}

func (b *DOMBridge) defineValue(obj *goja.Object, name string, v goja.Value) {
	if err := obj.DefineDataProperty(name, v, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		b.logger.Error("Failed to define property", zap.String("property", name), zap.Error(err))
	}
}

// initConsole routes console.* to the structured logger.
func (b *DOMBridge) initConsole() {
	console := b.vm.NewObject()
	logFunc := func(level zapcore.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = b.describe(arg)
			}
			b.logger.Log(level, "[JS Console]", zap.String("message", strings.Join(args, " ")))
			return goja.Undefined()
		}
	}

	console.Set("log", logFunc(zap.InfoLevel))
	console.Set("info", logFunc(zap.InfoLevel))
	console.Set("warn", logFunc(zap.WarnLevel))
	console.Set("error", logFunc(zap.ErrorLevel))
	console.Set("debug", logFunc(zap.DebugLevel))

	b.vm.GlobalObject().Set("console", console)
}

// describe renders a console argument, preferring JSON for plain objects.
func (b *DOMBridge) describe(v goja.Value) string {
	if n, ok := b.UnwrapElement(v); ok {
		return "<" + strings.ToLower(n.Data) + ">"
	}
	if obj, ok := v.(*goja.Object); ok {
		if _, isFn := goja.AssertFunction(obj); !isFn {
			if out, err := obj.MarshalJSON(); err == nil {
				return string(out)
			}
		}
	}
	return v.String()
}
