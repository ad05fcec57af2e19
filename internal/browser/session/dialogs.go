// internal/browser/session/dialogs.go
package session

import (
	"context"

	"github.com/dop251/goja"

	"github.com/xkilldash9x/webnav/internal/webnav"
)

// dialogShim holds the canned dialog behaviour of one document and the
// functions it replaced. It is only touched on the runtime's loop.
type dialogShim struct {
	captured bool
	alert    goja.Value
	confirm  goja.Value
	prompt   goja.Value

	cfg webnav.DialogConfig
}

// Originals returns the alert, confirm and prompt captured by the first
// install, or nils if the shim was never installed.
func (s *dialogShim) Originals() (alert, confirm, prompt goja.Value) {
	return s.alert, s.confirm, s.prompt
}

// install captures the current dialog functions on the first call only, then
// (re)installs the overrides.
func (s *dialogShim) install(vm *goja.Runtime, cfg webnav.DialogConfig) error {
	global := vm.GlobalObject()
	if !s.captured {
		s.alert = global.Get("alert")
		s.confirm = global.Get("confirm")
		s.prompt = global.Get("prompt")
		s.captured = true
	}
	s.cfg = cfg

	overrides := map[string]func(goja.FunctionCall) goja.Value{
		"alert": func(goja.FunctionCall) goja.Value {
			return goja.Undefined()
		},
		"confirm": func(goja.FunctionCall) goja.Value {
			return vm.ToValue(s.cfg.Accepts())
		},
		"prompt": func(goja.FunctionCall) goja.Value {
			if !s.cfg.Accepts() {
				return goja.Null()
			}
			return vm.ToValue(s.cfg.Text)
		},
	}
	for name, fn := range overrides {
		if err := global.Set(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// HandleDialogs overrides alert, confirm and prompt on the current document.
// The originals are captured once; later calls only change the answers.
func (p *Page) HandleDialogs(ctx context.Context, cfg webnav.DialogConfig) (*webnav.DialogResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := p.current()
	if err != nil {
		return nil, err
	}

	err = d.rt.Do(ctx, func(vm *goja.Runtime) error {
		return d.dialogs.install(vm, cfg)
	})
	if err != nil {
		return nil, err
	}
	return &webnav.DialogResult{Configured: true, Action: cfg.Action, Text: cfg.Text}, nil
}
