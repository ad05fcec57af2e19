// internal/webnav/dispatch.go
package webnav

import (
	"bytes"
	"context"

	json "github.com/json-iterator/go"
)

// Action names one operation of the wire contract.
type Action string

const (
	ActionFocus      Action = "focus"
	ActionHover      Action = "hover"
	ActionToggle     Action = "toggle"
	ActionClear      Action = "clear"
	ActionResolveRef Action = "resolve_ref"
	ActionDialog     Action = "dialog"
	ActionEvaluate   Action = "evaluate"
)

// Actions lists every action Dispatch understands.
func Actions() []Action {
	return []Action{
		ActionFocus, ActionHover, ActionToggle, ActionClear,
		ActionResolveRef, ActionDialog, ActionEvaluate,
	}
}

type toggleArgs struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
	Checked  *bool  `json:"checked"`
}

type refArgs struct {
	Ref string `json:"ref"`
}

type evaluateArgs struct {
	Expression string `json:"expression"`
}

// ErrorPayload is the failure shape of every action.
type ErrorPayload struct {
	Error string `json:"error"`
}

// Invoke decodes args for action, runs exactly one operation on exec and
// returns its success payload.
func Invoke(ctx context.Context, exec Executor, action Action, args []byte) (interface{}, error) {
	if len(bytes.TrimSpace(args)) == 0 {
		args = []byte("{}")
	}

	switch action {
	case ActionFocus, ActionHover, ActionClear:
		var q Query
		if err := decodeArgs(action, args, &q); err != nil {
			return nil, err
		}
		switch action {
		case ActionFocus:
			return settle(exec.Focus(ctx, q))
		case ActionHover:
			return settle(exec.Hover(ctx, q))
		default:
			return settle(exec.Clear(ctx, q))
		}

	case ActionToggle:
		var a toggleArgs
		if err := decodeArgs(action, args, &a); err != nil {
			return nil, err
		}
		if a.Checked == nil {
			return nil, NewInvalidArgumentError("toggle requires a boolean \"checked\"")
		}
		return settle(exec.Toggle(ctx, ToggleRequest{
			Query:   Query{Selector: a.Selector, Text: a.Text},
			Checked: *a.Checked,
		}))

	case ActionResolveRef:
		var a refArgs
		if err := decodeArgs(action, args, &a); err != nil {
			return nil, err
		}
		if a.Ref == "" {
			return nil, NewInvalidArgumentError("resolve_ref requires a non-empty \"ref\"")
		}
		return settle(exec.ResolveRef(ctx, a.Ref))

	case ActionDialog:
		var cfg DialogConfig
		if err := decodeArgs(action, args, &cfg); err != nil {
			return nil, err
		}
		return settle(exec.HandleDialogs(ctx, cfg))

	case ActionEvaluate:
		var a evaluateArgs
		if err := decodeArgs(action, args, &a); err != nil {
			return nil, err
		}
		if a.Expression == "" {
			return nil, NewInvalidArgumentError("evaluate requires a non-empty \"expression\"")
		}
		return settle(exec.Evaluate(ctx, a.Expression))

	default:
		return nil, NewInvalidArgumentError("unknown action %q", action)
	}
}

// Dispatch runs Invoke and encodes the outcome as exactly one JSON payload:
// the action's success shape or {"error": message}.
func Dispatch(ctx context.Context, exec Executor, action Action, args []byte) []byte {
	return EncodeOutcome(Invoke(ctx, exec, action, args))
}

// EncodeOutcome renders a (result, error) pair as a single payload.
func EncodeOutcome(result interface{}, err error) []byte {
	if err != nil {
		return encodeError(err)
	}
	out, mErr := json.Marshal(result)
	if mErr != nil {
		return encodeError(mErr)
	}
	return out
}

func encodeError(err error) []byte {
	out, mErr := json.Marshal(ErrorPayload{Error: err.Error()})
	if mErr != nil {
		return []byte(`{"error":"internal encoding failure"}`)
	}
	return out
}

// settle keeps a typed nil result from leaking out as a non-nil interface.
func settle(result interface{}, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return result, nil
}

func decodeArgs(action Action, args []byte, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return NewInvalidArgumentError("invalid arguments for %s: %v", action, err)
	}
	return nil
}
