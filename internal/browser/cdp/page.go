// internal/browser/cdp/page.go
package cdp

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav/internal/config"
	"github.com/xkilldash9x/webnav/internal/webnav"
)

// Page drives one Chrome tab through the injected page helper.
type Page struct {
	id          string
	ctx         context.Context // the tab; carries the chromedp target
	cancel      context.CancelFunc
	logger      *zap.Logger
	evalTimeout time.Duration
	navTimeout  time.Duration

	// runActionsFunc executes actions against the tab. Tests swap it out.
	runActionsFunc func(ctx context.Context, actions ...chromedp.Action) error

	closeOnce sync.Once
	onClose   func()
}

var _ webnav.Executor = (*Page)(nil)

func newPage(tabCtx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger) *Page {
	id := uuid.New().String()
	p := &Page{
		id:          id,
		ctx:         tabCtx,
		cancel:      cancel,
		logger:      logger.Named("cdp").With(zap.String("page_id", id)),
		evalTimeout: cfg.Evaluator().Timeout,
		navTimeout:  cfg.Browser().NavigationTimeout,
	}
	p.runActionsFunc = p.runActions
	return p
}

// ID returns the page's unique identifier.
func (p *Page) ID() string {
	return p.id
}

// runActions executes actions on the tab, bounded by both the tab's lifetime
// and the caller's ctx.
func (p *Page) runActions(ctx context.Context, actions ...chromedp.Action) error {
	combined, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(combined, actions...); err != nil {
		// Report the caller's cancellation cause over chromedp's generic one.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// evaluateAction runs an expression with promise awaiting and by-value
// return, storing the JSON result.
type evaluateAction struct {
	Expression string
	Result     *[]byte
}

// Do implements chromedp.Action.
func (a *evaluateAction) Do(ctx context.Context) error {
	obj, exp, err := runtime.Evaluate(a.Expression).
		WithAwaitPromise(true).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return err
	}
	if exp != nil {
		msg := exp.Text
		if exp.Exception != nil && exp.Exception.Description != "" {
			msg = exp.Exception.Description
		}
		return fmt.Errorf("page helper threw: %s", msg)
	}
	if obj == nil || len(obj.Value) == 0 {
		*a.Result = []byte("null")
		return nil
	}
	*a.Result = append([]byte(nil), obj.Value...)
	return nil
}

// outcome is the failure half of every helper reply.
type outcome struct {
	Error *string     `json:"error"`
	Kind  webnav.Kind `json:"kind"`
}

// decodeOutcome turns a helper reply into out, or into a *webnav.Error when
// the reply carries {error, kind}.
func decodeOutcome(raw []byte, out interface{}) error {
	var o outcome
	if err := json.Unmarshal(raw, &o); err != nil {
		return fmt.Errorf("decoding helper reply %q: %w", raw, err)
	}
	if o.Error != nil {
		kind := o.Kind
		if kind == "" {
			kind = webnav.KindEvaluationFailure
		}
		return &webnav.Error{Kind: kind, Message: *o.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding helper reply %q: %w", raw, err)
	}
	return nil
}

// call invokes window.__webnav[method](arg). The helper source is prepended
// so the call works even when the document was created before the
// new-document hook was installed.
func (p *Page) call(ctx context.Context, method string, arg interface{}, out interface{}) error {
	encoded, err := json.Marshal(arg)
	if err != nil {
		return fmt.Errorf("encoding %s arguments: %w", method, err)
	}
	expr := Script() + "\n;window.__webnav." + method + "(" + string(encoded) + ")"

	var raw []byte
	if err := p.runActionsFunc(ctx, &evaluateAction{Expression: expr, Result: &raw}); err != nil {
		return fmt.Errorf("cdp %s: %w", method, err)
	}
	if err := decodeOutcome(raw, out); err != nil {
		p.logger.Debug("Helper call failed.", zap.String("method", method), zap.Error(err))
		return err
	}
	return nil
}

// Focus implements webnav.Executor.
func (p *Page) Focus(ctx context.Context, q webnav.Query) (*webnav.FocusResult, error) {
	var res webnav.FocusResult
	if err := p.call(ctx, "focus", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Hover implements webnav.Executor.
func (p *Page) Hover(ctx context.Context, q webnav.Query) (*webnav.HoverResult, error) {
	var res webnav.HoverResult
	if err := p.call(ctx, "hover", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Toggle implements webnav.Executor.
func (p *Page) Toggle(ctx context.Context, req webnav.ToggleRequest) (*webnav.ToggleResult, error) {
	var res webnav.ToggleResult
	if err := p.call(ctx, "toggle", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Clear implements webnav.Executor.
func (p *Page) Clear(ctx context.Context, q webnav.Query) (*webnav.ClearResult, error) {
	var res webnav.ClearResult
	if err := p.call(ctx, "clear", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ResolveRef implements webnav.Executor.
func (p *Page) ResolveRef(ctx context.Context, ref string) (*webnav.RefResult, error) {
	var res webnav.RefResult
	if err := p.call(ctx, "resolveRef", ref, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// InstallRefSelectors builds the page's reference table from ref to selector
// pairs. Every selector must match; on failure the previous table is kept.
func (p *Page) InstallRefSelectors(ctx context.Context, selectors map[string]string) error {
	var res struct {
		Installed int `json:"installed"`
	}
	if err := p.call(ctx, "installRefs", selectors, &res); err != nil {
		return err
	}
	p.logger.Debug("Installed reference table.", zap.Int("refs", res.Installed))
	return nil
}

// HandleDialogs implements webnav.Executor.
func (p *Page) HandleDialogs(ctx context.Context, cfg webnav.DialogConfig) (*webnav.DialogResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var res webnav.DialogResult
	if err := p.call(ctx, "dialog", cfg, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// evalReply is the success shape of the helper's evaluate.
type evalReply struct {
	Variant string          `json:"variant"`
	Type    string          `json:"type"`
	Result  json.RawMessage `json:"result"`
}

// Evaluate implements webnav.Executor.
func (p *Page) Evaluate(ctx context.Context, expression string) (*webnav.EvalResult, error) {
	if p.evalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.evalTimeout)
		defer cancel()
	}

	var reply evalReply
	if err := p.call(ctx, "evaluate", expression, &reply); err != nil {
		return nil, err
	}
	return reply.result()
}

func (r evalReply) result() (*webnav.EvalResult, error) {
	text := func() (string, error) {
		var s string
		if err := json.Unmarshal(r.Result, &s); err != nil {
			return "", fmt.Errorf("decoding %s result: %w", r.Variant, err)
		}
		return s, nil
	}

	switch r.Variant {
	case "undefined":
		return webnav.UndefinedResult(), nil
	case "null":
		return webnav.NullResult(), nil
	case "element":
		s, err := text()
		if err != nil {
			return nil, err
		}
		return webnav.ElementResult(s), nil
	case "function":
		s, err := text()
		if err != nil {
			return nil, err
		}
		return webnav.FunctionResult(s), nil
	case "value":
		return webnav.ValueResult(r.Type, r.Result), nil
	case "unserializable":
		s, err := text()
		if err != nil {
			return nil, err
		}
		return webnav.UnserializableResult(r.Type, s), nil
	default:
		return nil, webnav.NewEvaluationError(fmt.Sprintf("unexpected result variant %q", r.Variant))
	}
}

// Navigate loads targetURL in the tab and waits for the load event.
func (p *Page) Navigate(ctx context.Context, targetURL string) error {
	if p.navTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.navTimeout)
		defer cancel()
	}
	p.logger.Debug("Navigating.", zap.String("url", targetURL))
	if err := p.runActionsFunc(ctx, chromedp.Navigate(targetURL)); err != nil {
		return fmt.Errorf("navigating to %s: %w", targetURL, err)
	}
	return nil
}

// Load shows markup in the tab through a data: URL. A non-empty baseURL is
// emitted as a <base> element so relative links resolve against it.
func (p *Page) Load(ctx context.Context, markup, baseURL string) error {
	if baseURL != "" {
		markup = `<base href="` + html.EscapeString(baseURL) + `">` + markup
	}
	return p.Navigate(ctx, "data:text/html;charset=utf-8;base64,"+base64.StdEncoding.EncodeToString([]byte(markup)))
}

// URL reports the tab's current location.
func (p *Page) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.runActionsFunc(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("reading location: %w", err)
	}
	return loc, nil
}

// Close closes the tab. It is safe to call more than once.
func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		if p.onClose != nil {
			p.onClose()
		}
		p.logger.Debug("Page closed.")
	})
	return nil
}
