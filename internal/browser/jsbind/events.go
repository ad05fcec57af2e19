// internal/browser/jsbind/events.go
package jsbind

import (
	"errors"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Event phases, as exposed through Event.eventPhase.
const (
	PhaseNone      = 0
	PhaseCapturing = 1
	PhaseAtTarget  = 2
	PhaseBubbling  = 3
)

// EventKind selects the constructor an event is created from.
type EventKind int

const (
	KindEvent EventKind = iota
	KindMouseEvent
	KindFocusEvent
	KindInputEvent
)

// EventInit mirrors the dictionary accepted by the Event constructors.
// Fields holds any extra members (clientX, relatedTarget, inputType, ...).
type EventInit struct {
	Bubbles    bool
	Cancelable bool
	Fields     map[string]interface{}
}

// Event is the Go side of a JS event object.
type Event struct {
	Type       string
	Bubbles    bool
	Cancelable bool
	Trusted    bool
	Object     *goja.Object

	target        goja.Value
	currentTarget goja.Value
	phase         int

	propagationStopped bool
	immediateStopped   bool
	defaultPrevented   bool
	dispatching        bool
}

// DefaultPrevented reports whether a listener canceled the event.
func (ev *Event) DefaultPrevented() bool {
	return ev.defaultPrevented
}

type listener struct {
	fn      goja.Callable
	value   goja.Value
	capture bool
	once    bool
	removed bool
}

// eventTarget holds the listeners of one node, the document or the window.
type eventTarget struct {
	listeners map[string][]*listener
}

func newEventTarget() *eventTarget {
	return &eventTarget{listeners: make(map[string][]*listener)}
}

func (t *eventTarget) add(typ string, l *listener) {
	for _, existing := range t.listeners[typ] {
		if existing.capture == l.capture && existing.value.SameAs(l.value) {
			return
		}
	}
	t.listeners[typ] = append(t.listeners[typ], l)
}

func (t *eventTarget) remove(typ string, value goja.Value, capture bool) {
	list := t.listeners[typ]
	for i, l := range list {
		if l.capture == capture && l.value.SameAs(value) {
			l.removed = true
			t.listeners[typ] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (t *eventTarget) clear() {
	for typ := range t.listeners {
		delete(t.listeners, typ)
	}
}

// count reports how many listeners are registered for typ.
func (t *eventTarget) count(typ string) int {
	return len(t.listeners[typ])
}

type pathEntry struct {
	target *eventTarget
	this   goja.Value
}

// initEventConstructors installs Event, MouseEvent, FocusEvent and InputEvent.
func (b *DOMBridge) initEventConstructors() {
	global := b.vm.GlobalObject()

	install := func(name string, kind EventKind) *goja.Object {
		ctor := b.vm.ToValue(func(call goja.ConstructorCall) *goja.Object {
			if len(call.Arguments) == 0 {
				panic(b.vm.NewTypeError("Failed to construct '" + name + "': 1 argument required"))
			}
			ev := &Event{Type: call.Argument(0).String()}
			if init, ok := call.Argument(1).(*goja.Object); ok {
				ev.Bubbles = init.Get("bubbles") != nil && init.Get("bubbles").ToBoolean()
				ev.Cancelable = init.Get("cancelable") != nil && init.Get("cancelable").ToBoolean()
				for _, key := range init.Keys() {
					if key == "bubbles" || key == "cancelable" || key == "composed" {
						continue
					}
					b.defineValue(call.This, key, init.Get(key))
				}
			}
			ev.Object = call.This
			b.bindEvent(ev)
			return nil
		}).(*goja.Object)
		if err := global.Set(name, ctor); err != nil {
			b.logger.Error("Failed to set event constructor", zap.String("name", name), zap.Error(err))
		}
		return ctor.Get("prototype").(*goja.Object)
	}

	b.eventProto = install("Event", KindEvent)
	b.mouseEventProto = install("MouseEvent", KindMouseEvent)
	b.focusEventProto = install("FocusEvent", KindFocusEvent)
	b.inputEventProto = install("InputEvent", KindInputEvent)
	for _, proto := range []*goja.Object{b.mouseEventProto, b.focusEventProto, b.inputEventProto} {
		if err := proto.SetPrototype(b.eventProto); err != nil {
			b.logger.Error("Failed to chain event prototype", zap.Error(err))
		}
	}
}

func (b *DOMBridge) protoFor(kind EventKind) *goja.Object {
	switch kind {
	case KindMouseEvent:
		return b.mouseEventProto
	case KindFocusEvent:
		return b.focusEventProto
	case KindInputEvent:
		return b.inputEventProto
	default:
		return b.eventProto
	}
}

// NewEvent creates an event object as the matching constructor would.
func (b *DOMBridge) NewEvent(kind EventKind, typ string, init EventInit) *Event {
	obj := b.vm.NewObject()
	if err := obj.SetPrototype(b.protoFor(kind)); err != nil {
		b.logger.Error("Failed to set event prototype", zap.Error(err))
	}
	for key, val := range init.Fields {
		b.defineValue(obj, key, b.vm.ToValue(val))
	}
	ev := &Event{Type: typ, Bubbles: init.Bubbles, Cancelable: init.Cancelable, Object: obj}
	b.bindEvent(ev)
	return ev
}

// bindEvent installs the Event interface on ev.Object.
func (b *DOMBridge) bindEvent(ev *Event) {
	obj := ev.Object
	b.defineValue(obj, "type", b.vm.ToValue(ev.Type))
	b.defineValue(obj, "bubbles", b.vm.ToValue(ev.Bubbles))
	b.defineValue(obj, "cancelable", b.vm.ToValue(ev.Cancelable))

	nullIfUnset := func(v goja.Value) goja.Value {
		if v == nil {
			return goja.Null()
		}
		return v
	}
	b.defineAccessor(obj, "target", func() goja.Value { return nullIfUnset(ev.target) }, nil)
	b.defineAccessor(obj, "srcElement", func() goja.Value { return nullIfUnset(ev.target) }, nil)
	b.defineAccessor(obj, "currentTarget", func() goja.Value { return nullIfUnset(ev.currentTarget) }, nil)
	b.defineAccessor(obj, "eventPhase", func() goja.Value { return b.vm.ToValue(ev.phase) }, nil)
	b.defineAccessor(obj, "defaultPrevented", func() goja.Value { return b.vm.ToValue(ev.defaultPrevented) }, nil)
	b.defineAccessor(obj, "isTrusted", func() goja.Value { return b.vm.ToValue(ev.Trusted) }, nil)

	b.defineMethod(obj, "stopPropagation", func(goja.FunctionCall) goja.Value {
		ev.propagationStopped = true
		return goja.Undefined()
	})
	b.defineMethod(obj, "stopImmediatePropagation", func(goja.FunctionCall) goja.Value {
		ev.propagationStopped = true
		ev.immediateStopped = true
		return goja.Undefined()
	})
	b.defineMethod(obj, "preventDefault", func(goja.FunctionCall) goja.Value {
		if ev.Cancelable {
			ev.defaultPrevented = true
		}
		return goja.Undefined()
	})

	if err := obj.DefineDataPropertySymbol(b.eventKey(), b.vm.ToValue(ev), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE); err != nil {
		b.logger.Error("Failed to tag event object", zap.Error(err))
	}
}

func (b *DOMBridge) eventKey() *goja.Symbol {
	if b.eventSym == nil {
		b.eventSym = goja.NewSymbol("webnav.goEvent")
	}
	return b.eventSym
}

// unwrapEvent recovers the Go event behind a JS event object.
func (b *DOMBridge) unwrapEvent(v goja.Value) (*Event, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	tag := obj.GetSymbol(b.eventKey())
	if tag == nil {
		return nil, false
	}
	ev, ok := tag.Export().(*Event)
	return ev, ok
}

// installEventTarget adds addEventListener, removeEventListener and
// dispatchEvent to obj. path builds the propagation path for a dispatch.
func (b *DOMBridge) installEventTarget(obj *goja.Object, t *eventTarget, path func() []pathEntry) {
	b.defineMethod(obj, "addEventListener", func(call goja.FunctionCall) goja.Value {
		cb := call.Argument(1)
		fn, ok := goja.AssertFunction(cb)
		if !ok {
			return goja.Undefined()
		}
		capture, once := listenerOptions(call.Argument(2))
		t.add(call.Argument(0).String(), &listener{fn: fn, value: cb, capture: capture, once: once})
		return goja.Undefined()
	})
	b.defineMethod(obj, "removeEventListener", func(call goja.FunctionCall) goja.Value {
		capture, _ := listenerOptions(call.Argument(2))
		t.remove(call.Argument(0).String(), call.Argument(1), capture)
		return goja.Undefined()
	})
	b.defineMethod(obj, "dispatchEvent", func(call goja.FunctionCall) goja.Value {
		ev, ok := b.unwrapEvent(call.Argument(0))
		if !ok {
			panic(b.vm.NewTypeError("dispatchEvent: parameter 1 is not of type 'Event'"))
		}
		if ev.dispatching {
			panic(b.vm.NewTypeError("dispatchEvent: the event is already being dispatched"))
		}
		return b.vm.ToValue(b.dispatch(path(), ev))
	})
}

func listenerOptions(v goja.Value) (capture, once bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return false, false
	}
	if obj, ok := v.(*goja.Object); ok {
		if c := obj.Get("capture"); c != nil {
			capture = c.ToBoolean()
		}
		if o := obj.Get("once"); o != nil {
			once = o.ToBoolean()
		}
		return capture, once
	}
	return v.ToBoolean(), false
}

// pathFor lists the event targets from n up to the window. A detached node's
// path stops at the root of its subtree.
func (b *DOMBridge) pathFor(n *html.Node) []pathEntry {
	var path []pathEntry
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == b.root {
			return append(path, b.document.entry(), b.window.entry())
		}
		e := b.Element(cur)
		path = append(path, pathEntry{target: e.events, this: e.Object})
	}
	return path
}

// DispatchEvent fires a trusted event of the given kind at n. It reports
// false when a listener canceled it.
func (b *DOMBridge) DispatchEvent(n *html.Node, kind EventKind, typ string, init EventInit) bool {
	ev := b.NewEvent(kind, typ, init)
	ev.Trusted = true
	return b.dispatch(b.pathFor(n), ev)
}

// dispatch runs the capture, target and bubble phases over path, path[0]
// being the target.
func (b *DOMBridge) dispatch(path []pathEntry, ev *Event) bool {
	if len(path) == 0 {
		return true
	}
	ev.dispatching = true
	ev.propagationStopped = false
	ev.immediateStopped = false
	ev.target = path[0].this

	for i := len(path) - 1; i >= 1 && !ev.propagationStopped; i-- {
		b.invoke(path[i], ev, PhaseCapturing)
	}
	if !ev.propagationStopped {
		b.invoke(path[0], ev, PhaseAtTarget)
	}
	if ev.Bubbles {
		for i := 1; i < len(path) && !ev.propagationStopped; i++ {
			b.invoke(path[i], ev, PhaseBubbling)
		}
	}

	ev.phase = PhaseNone
	ev.currentTarget = nil
	ev.dispatching = false
	return !ev.defaultPrevented
}

func (b *DOMBridge) invoke(entry pathEntry, ev *Event, phase int) {
	list := entry.target.listeners[ev.Type]
	if len(list) == 0 {
		return
	}
	ev.phase = phase
	ev.currentTarget = entry.this

	// Listeners added during dispatch do not run for this event.
	snapshot := append([]*listener(nil), list...)
	for _, l := range snapshot {
		if ev.immediateStopped {
			return
		}
		if l.removed {
			continue
		}
		if phase == PhaseCapturing && !l.capture || phase == PhaseBubbling && l.capture {
			continue
		}
		if l.once {
			entry.target.remove(ev.Type, l.value, l.capture)
		}
		if _, err := l.fn(entry.this, ev.Object); err != nil {
			var interrupted *goja.InterruptedError
			if errors.As(err, &interrupted) {
				ev.propagationStopped = true
				return
			}
			b.logger.Warn("Event listener threw", zap.String("type", ev.Type), zap.Error(err))
		}
	}
}

// ListenerCount reports how many listeners of type typ are registered on n.
func (b *DOMBridge) ListenerCount(n *html.Node, typ string) int {
	if n == b.root {
		return b.document.events.count(typ)
	}
	if e := b.Element(n); e != nil {
		return e.events.count(typ)
	}
	return 0
}
