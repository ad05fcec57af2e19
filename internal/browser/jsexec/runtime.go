// internal/browser/jsexec/runtime.go
package jsexec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav/internal/browser/jsbind"
)

// ErrClosed is returned by operations on a runtime that has been closed.
var ErrClosed = errors.New("javascript runtime is closed")

// ScriptError is an exception thrown by page script, or a script that failed
// to parse. Message is the error's message text.
type ScriptError struct {
	Message string
	Cause   error
}

func (e *ScriptError) Error() string {
	return e.Message
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// Runtime owns a goja VM confined to an event loop goroutine, together with
// the DOM bridge bound to that VM. Every touch of the VM or the bridge goes
// through Do, so script and DOM mutation are serialized on the loop.
type Runtime struct {
	loop   *eventloop.EventLoop
	vm     *goja.Runtime
	bridge *jsbind.DOMBridge
	logger *zap.Logger

	mu      sync.Mutex
	closed  bool
	stopped chan struct{}
}

// NewRuntime starts an event loop and installs the browser globals on its VM.
func NewRuntime(logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("jsexec")

	r := &Runtime{
		loop:    eventloop.NewEventLoop(eventloop.EnableConsole(false)),
		logger:  log,
		stopped: make(chan struct{}),
	}
	r.loop.Start()

	ready := make(chan struct{})
	r.loop.RunOnLoop(func(vm *goja.Runtime) {
		r.vm = vm
		r.bridge = jsbind.NewDOMBridge(vm, log)
		close(ready)
	})
	<-ready
	return r
}

// Bridge returns the DOM bridge. Use it only inside Do.
func (r *Runtime) Bridge() *jsbind.DOMBridge {
	return r.bridge
}

// Close stops the event loop. Pending timers are abandoned.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.loop.Stop()
	close(r.stopped)
}

func (r *Runtime) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Do runs fn on the loop goroutine and waits for it. The VM is interrupted if
// ctx ends while fn runs. Script exceptions come back as *ScriptError.
func (r *Runtime) Do(ctx context.Context, fn func(vm *goja.Runtime) error) error {
	if r.isClosed() {
		return ErrClosed
	}

	done := make(chan error, 1)
	r.loop.RunOnLoop(func(vm *goja.Runtime) {
		if err := ctx.Err(); err != nil {
			done <- err
			return
		}
		done <- r.run(ctx, vm, fn)
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stopped:
		return ErrClosed
	}
}

func (r *Runtime) run(ctx context.Context, vm *goja.Runtime, fn func(vm *goja.Runtime) error) (err error) {
	release := interruptOnDone(ctx, vm)
	defer release()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Recovered panic on the javascript loop", zap.Any("panic", p))
			err = fmt.Errorf("javascript runtime panic: %v", p)
		}
	}()
	return translate(ctx, fn(vm))
}

// interruptOnDone interrupts vm when ctx ends. The returned release stops the
// watcher and clears an interrupt that fired, so the next job starts clean.
func interruptOnDone(ctx context.Context, vm *goja.Runtime) (release func()) {
	if ctx.Done() == nil {
		return func() {}
	}

	stop := make(chan struct{})
	var fired atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			fired.Store(true)
			vm.Interrupt(ctx.Err())
		case <-stop:
		}
	}()

	return func() {
		close(stop)
		wg.Wait()
		if fired.Load() {
			vm.ClearInterrupt()
		}
	}
}

// translate maps goja failures onto this package's errors.
func translate(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("javascript execution interrupted: %w", ctxErr)
		}
		return fmt.Errorf("javascript execution interrupted: %v", interrupted.Value())
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return newScriptError(exception.Value(), err)
	}
	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		return &ScriptError{Message: "SyntaxError: " + syntax.Message, Cause: err}
	}
	return err
}

// newScriptError reads the message of a thrown value: the message property
// of an Error, else the value's string form. Call it on the loop.
func newScriptError(v goja.Value, cause error) *ScriptError {
	msg := ""
	if obj, ok := v.(*goja.Object); ok {
		if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) && !goja.IsNull(m) {
			msg = m.String()
		}
	}
	if msg == "" && v != nil {
		msg = v.String()
	}
	return &ScriptError{Message: msg, Cause: cause}
}

// ExecuteScript runs a classic script (an inline <script> of the page) and
// exports its completion value.
func (r *Runtime) ExecuteScript(ctx context.Context, script string) (interface{}, error) {
	var result interface{}
	err := r.Do(ctx, func(vm *goja.Runtime) error {
		v, err := vm.RunString(script)
		if err != nil {
			return err
		}
		result = v.Export()
		return nil
	})
	return result, err
}

// CompileAsync wraps expr in an async arrow function. The expression form
// `(async () => (expr))()` is tried first; when expr does not parse as an
// expression the body form `(async () => { expr })()` is used, so statements
// and explicit returns work.
func CompileAsync(name, expr string) (*goja.Program, error) {
	if prog, err := goja.Compile(name, "(async () => (\n"+expr+"\n))()", false); err == nil {
		return prog, nil
	}
	prog, err := goja.Compile(name, "(async () => {\n"+expr+"\n})()", false)
	if err != nil {
		var syntax *goja.CompilerSyntaxError
		if errors.As(err, &syntax) {
			return nil, &ScriptError{Message: "SyntaxError: " + strings.TrimSpace(syntax.Message), Cause: err}
		}
		return nil, &ScriptError{Message: err.Error(), Cause: err}
	}
	return prog, nil
}

type settlement struct {
	value    goja.Value
	rejected bool
}

// Evaluate runs prog and settles its completion value: a promise is awaited
// while the loop keeps running timers and jobs. inspect then runs on the loop
// with the fulfilled value. A rejection becomes a *ScriptError.
func (r *Runtime) Evaluate(ctx context.Context, prog *goja.Program, inspect func(vm *goja.Runtime, v goja.Value) error) error {
	settled := make(chan settlement, 1)

	err := r.Do(ctx, func(vm *goja.Runtime) error {
		v, err := vm.RunProgram(prog)
		if err != nil {
			return err
		}
		promise, ok := v.Export().(*goja.Promise)
		if !ok {
			settled <- settlement{value: v}
			return nil
		}
		switch promise.State() {
		case goja.PromiseStateFulfilled:
			settled <- settlement{value: promise.Result()}
			return nil
		case goja.PromiseStateRejected:
			settled <- settlement{value: promise.Result(), rejected: true}
			return nil
		}

		then, ok := goja.AssertFunction(v.(*goja.Object).Get("then"))
		if !ok {
			return errors.New("promise has no callable then")
		}
		onFulfilled := func(call goja.FunctionCall) goja.Value {
			settled <- settlement{value: call.Argument(0)}
			return goja.Undefined()
		}
		onRejected := func(call goja.FunctionCall) goja.Value {
			settled <- settlement{value: call.Argument(0), rejected: true}
			return goja.Undefined()
		}
		_, err = then(v, vm.ToValue(onFulfilled), vm.ToValue(onRejected))
		return err
	})
	if err != nil {
		return err
	}

	var s settlement
	select {
	case s = <-settled:
	case <-ctx.Done():
		return fmt.Errorf("awaiting script result: %w", ctx.Err())
	case <-r.stopped:
		return ErrClosed
	}

	return r.Do(ctx, func(vm *goja.Runtime) error {
		if s.rejected {
			return newScriptError(s.value, nil)
		}
		return inspect(vm, s.value)
	})
}
