// internal/browser/cdp/helper_test.go
package cdp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/webnav/internal/browser/jsexec"
	"github.com/xkilldash9x/webnav/internal/webnav"
)

// The page helper is exercised here against the in-process DOM, with the
// runner standing in for runtime.Evaluate.

type helperPage struct {
	*Page
	rt *jsexec.Runtime
}

func newHelperPage(t *testing.T, markup string) *helperPage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	root, err := html.Parse(strings.NewReader(markup))
	require.NoError(t, err)

	rt := jsexec.NewRuntime(zaptest.NewLogger(t))
	t.Cleanup(rt.Close)
	require.NoError(t, rt.Do(ctx, func(*goja.Runtime) error {
		rt.Bridge().UpdateDOM(root)
		return nil
	}))

	runner := func(ctx context.Context, actions ...chromedp.Action) error {
		for _, a := range actions {
			ev, ok := a.(*evaluateAction)
			if !ok {
				return errors.New("unexpected action")
			}
			err := rt.Do(ctx, func(vm *goja.Runtime) error {
				v, err := vm.RunString(ev.Expression)
				if err != nil {
					return err
				}
				stringify, _ := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
				out, err := stringify(goja.Undefined(), v)
				if err != nil {
					return err
				}
				*ev.Result = []byte(out.String())
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}
	return &helperPage{Page: newMockPage(t, nil, runner), rt: rt}
}

// run executes setup script on the page.
func (h *helperPage) run(t *testing.T, script string) goja.Value {
	t.Helper()
	var v goja.Value
	require.NoError(t, h.rt.Do(context.Background(), func(vm *goja.Runtime) error {
		var err error
		v, err = vm.RunString(script)
		return err
	}))
	return v
}

func (h *helperPage) log(t *testing.T) []string {
	t.Helper()
	var out []string
	v := h.run(t, `(window.log || []).join(',')`)
	if s := v.String(); s != "" {
		out = strings.Split(s, ",")
	}
	return out
}

const listenScript = `
window.log = [];
['a', 'b', 'cb', 'name'].forEach(function (id) {
	var el = document.getElementById(id);
	if (!el) { return; }
	['focus', 'blur', 'mouseenter', 'mouseover', 'change', 'input'].forEach(function (type) {
		el.addEventListener(type, function () { log.push(id + ':' + type); });
	});
});
`

func TestHelper_Resolution(t *testing.T) {
	h := newHelperPage(t, `<html><head><title>Secret</title></head><body>
		<p class="x">alpha</p><p class="x">beta</p>
		<div><span>Hello <b>World</b></span></div>
	</body></html>`)
	ctx := context.Background()

	res, err := h.Hover(ctx, webnav.Query{Selector: "p.x", Text: "beta"})
	require.NoError(t, err)
	assert.Equal(t, "alpha", res.Text)

	res, err = h.Hover(ctx, webnav.Query{Text: "Wor"})
	require.NoError(t, err)
	assert.Equal(t, "b", res.Tag)

	_, err = h.Hover(ctx, webnav.Query{Text: "Hello World"})
	assert.ErrorIs(t, err, webnav.ErrNotFound)

	_, err = h.Hover(ctx, webnav.Query{Text: "Secret"})
	require.Error(t, err)
	assert.Equal(t, `no element contains text "Secret"`, err.Error())

	_, err = h.Hover(ctx, webnav.Query{Selector: "#missing", Text: "alpha"})
	require.Error(t, err)
	assert.Equal(t, `no element matches selector "#missing"`, err.Error())

	_, err = h.Hover(ctx, webnav.Query{})
	assert.ErrorIs(t, err, webnav.ErrInvalidQuery)

	_, err = h.Hover(ctx, webnav.Query{Selector: "p[["})
	assert.ErrorIs(t, err, webnav.ErrInvalidSelector)
}

func TestHelper_Actions(t *testing.T) {
	long := strings.Repeat("é", 150)
	h := newHelperPage(t, `<body>
		<input id="a"><input id="b">
		<input id="cb" type="checkbox"><div id="box">box</div>
		<input id="name" value="abc">
		<p id="long">`+long+`</p>
	</body>`)
	h.run(t, listenScript)
	ctx := context.Background()

	focused, err := h.Focus(ctx, webnav.Query{Selector: "#a"})
	require.NoError(t, err)
	assert.Equal(t, &webnav.FocusResult{Focused: true, Tag: "input"}, focused)
	_, err = h.Focus(ctx, webnav.Query{Selector: "#b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a:focus", "a:blur", "b:focus"}, h.log(t))

	h.run(t, `window.log = []`)
	hovered, err := h.Hover(ctx, webnav.Query{Selector: "#a"})
	require.NoError(t, err)
	assert.Equal(t, &webnav.HoverResult{Hovered: true, Tag: "input", Text: ""}, hovered)
	assert.Equal(t, []string{"a:mouseenter", "a:mouseover"}, h.log(t))

	hovered, err = h.Hover(ctx, webnav.Query{Selector: "#long"})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", webnav.HoverTextLimit), hovered.Text)

	h.run(t, `window.log = []`)
	toggled, err := h.Toggle(ctx, webnav.ToggleRequest{Query: webnav.Query{Selector: "#cb"}, Checked: true})
	require.NoError(t, err)
	assert.Equal(t, &webnav.ToggleResult{Checked: true, Changed: true}, toggled)
	toggled, err = h.Toggle(ctx, webnav.ToggleRequest{Query: webnav.Query{Selector: "#cb"}, Checked: true})
	require.NoError(t, err)
	assert.False(t, toggled.Changed)
	assert.Equal(t, []string{"cb:change"}, h.log(t))

	_, err = h.Toggle(ctx, webnav.ToggleRequest{Query: webnav.Query{Selector: "#box"}, Checked: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, webnav.ErrInvalidTargetType)
	assert.Equal(t, `element <div> with type "" is not a checkbox or radio`, err.Error())

	h.run(t, `window.log = []`)
	cleared, err := h.Clear(ctx, webnav.Query{Selector: "#name"})
	require.NoError(t, err)
	assert.Equal(t, &webnav.ClearResult{Cleared: true, Tag: "input"}, cleared)
	assert.Equal(t, []string{"name:input", "name:change"}, h.log(t))
	assert.Equal(t, "", h.run(t, `document.getElementById('name').value`).String())
}

func TestHelper_Refs(t *testing.T) {
	h := newHelperPage(t, `<body><button id="btn">Save</button><p id="doomed">x</p></body>`)
	ctx := context.Background()

	_, err := h.ResolveRef(ctx, "e1")
	require.Error(t, err)
	assert.ErrorIs(t, err, webnav.ErrReferenceUnavailable)
	assert.Equal(t, "no reference table on this page; run snapshot first", err.Error())

	require.NoError(t, h.InstallRefSelectors(ctx, map[string]string{"e1": "#btn", "e2": "#doomed", `q"\1`: "#btn"}))

	res, err := h.ResolveRef(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, &webnav.RefResult{Resolved: true, Ref: "e1", Selector: `[data-webnav-ref="e1"]`, Tag: "button"}, res)
	assert.Equal(t, "btn", h.run(t, `document.querySelector('[data-webnav-ref="e1"]').id`).String())

	res, err = h.ResolveRef(ctx, `q"\1`)
	require.NoError(t, err)
	assert.Equal(t, webnav.RefSelector(`q"\1`), res.Selector)

	_, err = h.ResolveRef(ctx, "e9")
	assert.ErrorIs(t, err, webnav.ErrReferenceStale)

	h.run(t, `document.getElementById('doomed').remove()`)
	_, err = h.ResolveRef(ctx, "e2")
	assert.ErrorIs(t, err, webnav.ErrReferenceStale)

	err = h.InstallRefSelectors(ctx, map[string]string{"e1": "#nothing"})
	assert.ErrorIs(t, err, webnav.ErrNotFound)
	_, err = h.ResolveRef(ctx, "e1")
	assert.NoError(t, err, "a failed install keeps the previous table")
}

func TestHelper_RefsRestamp(t *testing.T) {
	h := newHelperPage(t, `<body><p id="a">A</p><p id="b">B</p></body>`)
	ctx := context.Background()

	require.NoError(t, h.InstallRefSelectors(ctx, map[string]string{"e1": "#a"}))
	_, err := h.ResolveRef(ctx, "e1")
	require.NoError(t, err)

	require.NoError(t, h.InstallRefSelectors(ctx, map[string]string{"e1": "#b"}))
	res, err := h.ResolveRef(ctx, "e1")
	require.NoError(t, err)

	hovered, err := h.Hover(ctx, webnav.Query{Selector: res.Selector})
	require.NoError(t, err)
	assert.Equal(t, "B", hovered.Text)
	assert.Equal(t, int64(1), h.run(t, `document.querySelectorAll('[data-webnav-ref]').length`).ToInteger())
	assert.False(t, h.run(t, `document.getElementById('a').hasAttribute('data-webnav-ref')`).ToBoolean())
}

func TestHelper_Dialogs(t *testing.T) {
	h := newHelperPage(t, `<body></body>`)
	h.run(t, `window.nativeConfirm = window.confirm`)
	ctx := context.Background()

	answers := func() string {
		return h.run(t, `JSON.stringify([alert('x'), confirm('y'), prompt('z')])`).String()
	}

	res, err := h.HandleDialogs(ctx, webnav.DialogConfig{Action: webnav.DialogAccept, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, &webnav.DialogResult{Configured: true, Action: webnav.DialogAccept, Text: "hi"}, res)
	assert.Equal(t, `[null,true,"hi"]`, answers())

	_, err = h.HandleDialogs(ctx, webnav.DialogConfig{Action: webnav.DialogDismiss})
	require.NoError(t, err)
	assert.Equal(t, `[null,false,null]`, answers())

	assert.True(t, h.run(t, `window.__webnavDialogBackup.confirm === window.nativeConfirm`).ToBoolean(),
		"the backup keeps the original, not a previous override")
}
