// internal/browser/session/evaluate.go
package session

import (
	"context"
	"errors"
	"math/big"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav/internal/browser/dom"
	"github.com/xkilldash9x/webnav/internal/browser/jsbind"
	"github.com/xkilldash9x/webnav/internal/browser/jsexec"
	"github.com/xkilldash9x/webnav/internal/webnav"
)

// Evaluate runs expression in an async wrapper, awaits it and classifies the
// value. Script failures become EvaluationFailure errors; the evaluator
// timeout and ctx bound the await.
func (p *Page) Evaluate(ctx context.Context, expression string) (*webnav.EvalResult, error) {
	d, err := p.current()
	if err != nil {
		return nil, err
	}

	prog, err := jsexec.CompileAsync("evaluate.js", expression)
	if err != nil {
		return nil, evaluationError(err)
	}

	if timeout := p.cfg.Evaluator().Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var result *webnav.EvalResult
	err = d.rt.Evaluate(ctx, prog, func(vm *goja.Runtime, v goja.Value) error {
		result = classify(vm, d.rt.Bridge(), v)
		return nil
	})
	if err != nil {
		p.logger.Debug("Evaluation failed", zap.Error(err))
		return nil, evaluationError(err)
	}
	p.logger.Debug("Evaluated expression",
		zap.Stringer("kind", result.Kind),
		zap.String("result", webnav.TruncateRunes(result.Text(), webnav.HoverTextLimit)))
	return result, nil
}

// evaluationError turns script failures into EvaluationFailure and passes
// anything else (cancellation, a closed runtime) through.
func evaluationError(err error) error {
	var scriptErr *jsexec.ScriptError
	if errors.As(err, &scriptErr) {
		return webnav.NewEvaluationError(scriptErr.Message)
	}
	return err
}

// classify maps a settled value onto an EvalResult. It runs on the loop.
func classify(vm *goja.Runtime, b *jsbind.DOMBridge, v goja.Value) *webnav.EvalResult {
	if v == nil || goja.IsUndefined(v) {
		return webnav.UndefinedResult()
	}
	if goja.IsNull(v) {
		return webnav.NullResult()
	}
	if n, ok := b.UnwrapElement(v); ok {
		return webnav.ElementResult(dom.Summary(n))
	}
	if _, ok := goja.AssertFunction(v); ok {
		return webnav.FunctionResult(stringOf(vm, v))
	}

	typ := typeOf(v)
	if raw, ok := stringify(vm, v); ok {
		return webnav.ValueResult(typ, []byte(raw))
	}
	return webnav.UnserializableResult(typ, stringOf(vm, v))
}

// typeOf is the typeof operator for non-function values.
func typeOf(v goja.Value) string {
	switch v.(type) {
	case *goja.Symbol:
		return "symbol"
	case *goja.Object:
		return "object"
	}
	switch v.Export().(type) {
	case bool:
		return "boolean"
	case string:
		return "string"
	case int64, float64:
		return "number"
	case *big.Int:
		return "bigint"
	default:
		return "object"
	}
}

// stringify runs JSON.stringify. ok is false when it throws (cycles, BigInt)
// or produces no text (symbols).
func stringify(vm *goja.Runtime, v goja.Value) (string, bool) {
	jsonObj := vm.Get("JSON")
	if jsonObj == nil {
		return "", false
	}
	fn, ok := goja.AssertFunction(jsonObj.ToObject(vm).Get("stringify"))
	if !ok {
		return "", false
	}
	out, err := fn(goja.Undefined(), v)
	if err != nil || out == nil || goja.IsUndefined(out) {
		return "", false
	}
	return out.String(), true
}

// stringOf is String(v), which unlike string concatenation accepts symbols.
func stringOf(vm *goja.Runtime, v goja.Value) string {
	if fn, ok := goja.AssertFunction(vm.Get("String")); ok {
		if out, err := fn(goja.Undefined(), v); err == nil {
			return out.String()
		}
	}
	return v.String()
}
