// internal/webnav/dispatch_test.go
package webnav

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockExecutor is a testify mock of the Executor interface.
type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Focus(ctx context.Context, q Query) (*FocusResult, error) {
	args := m.Called(ctx, q)
	r, _ := args.Get(0).(*FocusResult)
	return r, args.Error(1)
}

func (m *mockExecutor) Hover(ctx context.Context, q Query) (*HoverResult, error) {
	args := m.Called(ctx, q)
	r, _ := args.Get(0).(*HoverResult)
	return r, args.Error(1)
}

func (m *mockExecutor) Toggle(ctx context.Context, req ToggleRequest) (*ToggleResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*ToggleResult)
	return r, args.Error(1)
}

func (m *mockExecutor) Clear(ctx context.Context, q Query) (*ClearResult, error) {
	args := m.Called(ctx, q)
	r, _ := args.Get(0).(*ClearResult)
	return r, args.Error(1)
}

func (m *mockExecutor) ResolveRef(ctx context.Context, ref string) (*RefResult, error) {
	args := m.Called(ctx, ref)
	r, _ := args.Get(0).(*RefResult)
	return r, args.Error(1)
}

func (m *mockExecutor) HandleDialogs(ctx context.Context, cfg DialogConfig) (*DialogResult, error) {
	args := m.Called(ctx, cfg)
	r, _ := args.Get(0).(*DialogResult)
	return r, args.Error(1)
}

func (m *mockExecutor) Evaluate(ctx context.Context, expression string) (*EvalResult, error) {
	args := m.Called(ctx, expression)
	r, _ := args.Get(0).(*EvalResult)
	return r, args.Error(1)
}

func TestDispatch_SuccessPayloads(t *testing.T) {
	ctx := context.Background()

	t.Run("focus by selector", func(t *testing.T) {
		m := new(mockExecutor)
		m.On("Focus", ctx, Query{Selector: "#name"}).Return(&FocusResult{Focused: true, Tag: "input"}, nil)

		out := Dispatch(ctx, m, ActionFocus, []byte(`{"selector":"#name"}`))
		assert.JSONEq(t, `{"focused":true,"tag":"input"}`, string(out))
		m.AssertExpectations(t)
	})

	t.Run("hover by text", func(t *testing.T) {
		m := new(mockExecutor)
		m.On("Hover", ctx, Query{Text: "Menu"}).Return(&HoverResult{Hovered: true, Tag: "a", Text: "Menu"}, nil)

		out := Dispatch(ctx, m, ActionHover, []byte(`{"text":"Menu"}`))
		assert.JSONEq(t, `{"hovered":true,"tag":"a","text":"Menu"}`, string(out))
		m.AssertExpectations(t)
	})

	t.Run("toggle carries checked", func(t *testing.T) {
		m := new(mockExecutor)
		req := ToggleRequest{Query: Query{Selector: "#agree"}, Checked: false}
		m.On("Toggle", ctx, req).Return(&ToggleResult{Checked: false, Changed: true}, nil)

		out := Dispatch(ctx, m, ActionToggle, []byte(`{"selector":"#agree","checked":false}`))
		assert.JSONEq(t, `{"checked":false,"changed":true}`, string(out))
		m.AssertExpectations(t)
	})

	t.Run("clear", func(t *testing.T) {
		m := new(mockExecutor)
		m.On("Clear", ctx, Query{Selector: "textarea"}).Return(&ClearResult{Cleared: true, Tag: "textarea"}, nil)

		out := Dispatch(ctx, m, ActionClear, []byte(`{"selector":"textarea"}`))
		assert.JSONEq(t, `{"cleared":true,"tag":"textarea"}`, string(out))
	})

	t.Run("resolve_ref", func(t *testing.T) {
		m := new(mockExecutor)
		m.On("ResolveRef", ctx, "e12").Return(&RefResult{
			Resolved: true, Ref: "e12", Selector: RefSelector("e12"), Tag: "button",
		}, nil)

		out := Dispatch(ctx, m, ActionResolveRef, []byte(`{"ref":"e12"}`))
		assert.JSONEq(t, `{"resolved":true,"ref":"e12","selector":"[data-webnav-ref=\"e12\"]","tag":"button"}`, string(out))
	})

	t.Run("dialog", func(t *testing.T) {
		m := new(mockExecutor)
		cfg := DialogConfig{Action: DialogAccept, Text: "yes"}
		m.On("HandleDialogs", ctx, cfg).Return(&DialogResult{Configured: true, Action: DialogAccept, Text: "yes"}, nil)

		out := Dispatch(ctx, m, ActionDialog, []byte(`{"action":"accept","text":"yes"}`))
		assert.JSONEq(t, `{"configured":true,"action":"accept","text":"yes"}`, string(out))
	})

	t.Run("evaluate undefined omits result", func(t *testing.T) {
		m := new(mockExecutor)
		m.On("Evaluate", ctx, "void 0").Return(UndefinedResult(), nil)

		out := Dispatch(ctx, m, ActionEvaluate, []byte(`{"expression":"void 0"}`))
		assert.JSONEq(t, `{"type":"undefined"}`, string(out))
	})
}

func TestDispatch_ErrorPayloads(t *testing.T) {
	ctx := context.Background()

	t.Run("executor error is surfaced verbatim", func(t *testing.T) {
		m := new(mockExecutor)
		m.On("Focus", ctx, Query{Selector: "#missing"}).Return(nil, NewSelectorNotFoundError("#missing"))

		out := Dispatch(ctx, m, ActionFocus, []byte(`{"selector":"#missing"}`))
		assert.JSONEq(t, `{"error":"no element matches selector \"#missing\""}`, string(out))
	})

	t.Run("infrastructure errors are surfaced too", func(t *testing.T) {
		m := new(mockExecutor)
		m.On("Clear", ctx, Query{Selector: "input"}).Return(nil, errors.New("websocket closed"))

		out := Dispatch(ctx, m, ActionClear, []byte(`{"selector":"input"}`))
		assert.JSONEq(t, `{"error":"websocket closed"}`, string(out))
	})

	t.Run("unknown action", func(t *testing.T) {
		m := new(mockExecutor)
		_, err := Invoke(ctx, m, Action("scroll"), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		m.AssertNotCalled(t, "Focus", mock.Anything, mock.Anything)
	})

	t.Run("toggle without checked", func(t *testing.T) {
		m := new(mockExecutor)
		_, err := Invoke(ctx, m, ActionToggle, []byte(`{"selector":"#c"}`))
		assert.ErrorIs(t, err, ErrInvalidArgument)
		m.AssertNotCalled(t, "Toggle", mock.Anything, mock.Anything)
	})

	t.Run("malformed json", func(t *testing.T) {
		m := new(mockExecutor)
		out := Dispatch(ctx, m, ActionHover, []byte(`{"selector":`))
		assert.Contains(t, string(out), `"error":"invalid arguments for hover`)
	})

	t.Run("empty ref and expression", func(t *testing.T) {
		m := new(mockExecutor)
		_, err := Invoke(ctx, m, ActionResolveRef, []byte(`{}`))
		assert.ErrorIs(t, err, ErrInvalidArgument)
		_, err = Invoke(ctx, m, ActionEvaluate, nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("failed call yields a nil result", func(t *testing.T) {
		m := new(mockExecutor)
		m.On("Hover", ctx, Query{Text: "x"}).Return(nil, NewTextNotFoundError("x"))

		result, err := Invoke(ctx, m, ActionHover, []byte(`{"text":"x"}`))
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestActions(t *testing.T) {
	assert.Len(t, Actions(), 7)
	assert.Contains(t, Actions(), ActionResolveRef)
}
