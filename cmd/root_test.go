// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<html><head><title>Fixture</title></head><body>
	<form>
		<input id="name" value="abc">
		<input id="agree" type="checkbox">
		<button id="save">Save</button>
	</form>
</body></html>`

// runCLI executes a fresh command tree and returns stdout and the error.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Keep a developer's ~/.webnav.yaml out of the tests.
	t.Setenv("HOME", t.TempDir())

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func decode(t *testing.T, out string) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &payload), out)
	return payload
}

func TestRootCmd_Version(t *testing.T) {
	out, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestActions(t *testing.T) {
	page := writeFile(t, "page.html", fixture)

	tests := []struct {
		name string
		args []string
		want map[string]interface{}
	}{
		{"focus", []string{"focus", "-s", "#name"}, map[string]interface{}{"focused": true, "tag": "input"}},
		{"hover by text", []string{"hover", "--text", "Save"}, map[string]interface{}{"hovered": true, "tag": "button", "text": "Save"}},
		{"check", []string{"check", "-s", "#agree"}, map[string]interface{}{"checked": true, "changed": true}},
		{"uncheck unchanged", []string{"uncheck", "-s", "#agree"}, map[string]interface{}{"checked": false, "changed": false}},
		{"clear", []string{"clear", "-s", "#name"}, map[string]interface{}{"cleared": true, "tag": "input"}},
		{"dialog", []string{"dialog", "accept", "yes"}, map[string]interface{}{"configured": true, "action": "accept", "text": "yes"}},
		{"eval", []string{"eval", "document.title"}, map[string]interface{}{"result": "Fixture", "type": "string"}},
		{"call", []string{"call", "evaluate", `{"expression":"1+1"}`}, map[string]interface{}{"result": float64(2), "type": "number"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, append([]string{"--html-file", page}, tt.args...)...)
			require.NoError(t, err, out)
			if diff := cmp.Diff(tt.want, decode(t, out)); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestActions_FailurePayload(t *testing.T) {
	page := writeFile(t, "page.html", fixture)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"not found", []string{"focus", "-s", "#missing"}, `no element matches selector "#missing"`},
		{"wrong type", []string{"check", "-s", "#name"}, `element <input> with type "" is not a checkbox or radio`},
		{"no refs", []string{"ref", "e1"}, "no reference table on this page; run snapshot first"},
		{"bad dialog", []string{"dialog", "ignore"}, `dialog action must be "accept" or "dismiss", got "ignore"`},
		{"unknown action", []string{"call", "scroll", "{}"}, `unknown action "scroll"`},
		{"thrown", []string{"eval", "throw new Error('nope')"}, "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, append([]string{"--html-file", page}, tt.args...)...)
			assert.ErrorIs(t, err, ErrActionFailed)
			assert.Equal(t, map[string]interface{}{"error": tt.want}, decode(t, out))
		})
	}
}

func TestRefsFile(t *testing.T) {
	page := writeFile(t, "page.html", fixture)
	refs := writeFile(t, "refs.json", `{"e1": "#save"}`)

	out, err := runCLI(t, "--html-file", page, "--refs", refs, "ref", "e1")
	require.NoError(t, err, out)
	assert.Equal(t, map[string]interface{}{
		"resolved": true,
		"ref":      "e1",
		"selector": `[data-webnav-ref="e1"]`,
		"tag":      "button",
	}, decode(t, out))

	t.Run("selector that matches nothing", func(t *testing.T) {
		bad := writeFile(t, "bad.json", `{"e1": "#nothing"}`)
		_, err := runCLI(t, "--html-file", page, "--refs", bad, "ref", "e1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrActionFailed)
	})
}

func TestConfigErrors(t *testing.T) {
	t.Run("explicit config file must exist", func(t *testing.T) {
		_, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "eval", "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		cfg := writeFile(t, "webnav.yaml", "browser:\n  mode: firefox\n")
		_, err := runCLI(t, "--config", cfg, "eval", "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `mode must be "inprocess" or "chrome", got "firefox"`)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("WEBNAV_EVALUATOR_TIMEOUT", "-1s")
		_, err := runCLI(t, "eval", "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "evaluator.timeout must not be negative")
	})

	t.Run("unknown log level", func(t *testing.T) {
		_, err := runCLI(t, "--log-level", "bogus", "eval", "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid logger.level "bogus"`)
	})

	t.Run("conflicting page sources", func(t *testing.T) {
		_, err := runCLI(t, "--html-file", "a.html", "--url", "https://example.test/", "eval", "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mutually exclusive")
	})
}

func TestBlankPage(t *testing.T) {
	out, err := runCLI(t, "eval", "location.href")
	require.NoError(t, err, out)
	assert.Equal(t, map[string]interface{}{"result": "about:blank", "type": "string"}, decode(t, out))
}
