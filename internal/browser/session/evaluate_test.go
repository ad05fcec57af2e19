// internal/browser/session/evaluate_test.go
package session

import (
	"context"
	"strings"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/webnav/internal/config"
	"github.com/xkilldash9x/webnav/internal/webnav"
)

const evalFixture = `<html><head><title>Eval</title></head><body><div id="main"><p>text</p></div></body></html>`

func TestEvaluate_Classification(t *testing.T) {
	p := loadPage(t, evalFixture)

	tests := []struct {
		name     string
		expr     string
		kind     webnav.ValueKind
		typ      string
		wantJSON string
	}{
		{"number", `1+1`, webnav.ValueNumber, "number", `{"result":2,"type":"number"}`},
		{"string", `document.title`, webnav.ValueString, "string", `{"result":"Eval","type":"string"}`},
		{"boolean", `!!document.body`, webnav.ValueBoolean, "boolean", `{"result":true,"type":"boolean"}`},
		{"object", `({a: [1, 2], b: 'x'})`, webnav.ValueJSON, "object", `{"result":{"a":[1,2],"b":"x"},"type":"object"}`},
		{"body element", `document.body`, webnav.ValueElement, "element", `{"result":"<body>","type":"element"}`},
		{"element with id", `document.querySelector('#main')`, webnav.ValueElement, "element", `{"result":"<div#main>","type":"element"}`},
		{"undefined", `undefined`, webnav.ValueUndefined, "undefined", `{"type":"undefined"}`},
		{"null", `null`, webnav.ValueNull, "null", `{"result":null,"type":"null"}`},
		{"statements", `const x = 3; return x * 2;`, webnav.ValueNumber, "number", `{"result":6,"type":"number"}`},
		{"awaited", `await new Promise(r => setTimeout(() => r('late'), 10))`, webnav.ValueString, "string", `{"result":"late","type":"string"}`},
		{"cycle", `const o = {}; o.self = o; return o;`, webnav.ValueUnserializable, "object", `{"result":"[object Object]","type":"object"}`},
		{"symbol", `Symbol('s')`, webnav.ValueUnserializable, "symbol", `{"result":"Symbol(s)","type":"symbol"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Evaluate(testContext(t), tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.typ, res.Type)

			out, err := json.Marshal(res)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantJSON, string(out))
		})
	}
}

func TestEvaluate_Functions(t *testing.T) {
	p := loadPage(t, evalFixture)
	ctx := testContext(t)

	res, err := p.Evaluate(ctx, `function add(a, b) { return a + b; }`)
	require.NoError(t, err)
	assert.Equal(t, webnav.ValueFunction, res.Kind)
	assert.Equal(t, "function", res.Type)
	assert.Contains(t, res.Text(), "return a + b")

	body := strings.Repeat("x", 300)
	res, err = p.Evaluate(ctx, `(function long() { return '`+body+`'; })`)
	require.NoError(t, err)
	assert.Len(t, []rune(res.Text()), webnav.FunctionSourceLimit)
}

func TestEvaluate_Failures(t *testing.T) {
	p := loadPage(t, evalFixture)
	ctx := testContext(t)

	tests := []struct {
		name    string
		expr    string
		message string
	}{
		{"thrown error", `throw new Error('nope')`, "nope"},
		{"reference error", `missingVariable.field`, "missingVariable is not defined"},
		{"rejected promise", `await Promise.reject(new Error('rejected'))`, "rejected"},
		{"syntax error", `this is not javascript (`, "SyntaxError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Evaluate(ctx, tt.expr)
			require.Error(t, err)
			assert.ErrorIs(t, err, webnav.ErrEvaluationFailure)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestEvaluate_SideEffectsPersist(t *testing.T) {
	p := loadPage(t, evalFixture)
	ctx := testContext(t)

	_, err := p.Evaluate(ctx, `document.getElementById('main').setAttribute('data-x', 'y')`)
	require.NoError(t, err)

	res, err := p.Hover(ctx, webnav.Query{Selector: `[data-x="y"]`})
	require.NoError(t, err)
	assert.Equal(t, "div", res.Tag)
}

func TestEvaluate_Timeout(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.SetEvaluatorTimeout(50 * time.Millisecond)
	p := newTestPage(t, cfg)
	require.NoError(t, p.Load(testContext(t), evalFixture, ""))

	start := time.Now()
	_, err := p.Evaluate(testContext(t), `new Promise(() => {})`)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, webnav.ErrEvaluationFailure)
	assert.Less(t, time.Since(start), 5*time.Second)

	_, err = p.Evaluate(testContext(t), `while (true) {}`)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The runtime survives both.
	res, err := p.Evaluate(testContext(t), `'alive'`)
	require.NoError(t, err)
	assert.Equal(t, "alive", res.Text())
}
