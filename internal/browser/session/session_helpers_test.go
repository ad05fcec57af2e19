// internal/browser/session/session_helpers_test.go
package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/webnav/internal/config"
)

const testTimeout = 10 * time.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// testContext returns a context bounded by testTimeout.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

// newTestPage creates a page, closed at the end of the test. A nil cfg uses
// the defaults.
func newTestPage(t *testing.T, cfg *config.Config) *Page {
	t.Helper()
	p, err := NewPage(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// loadPage creates a page with markup loaded.
func loadPage(t *testing.T, markup string) *Page {
	t.Helper()
	p := newTestPage(t, nil)
	require.NoError(t, p.Load(testContext(t), markup, "https://example.test/"))
	return p
}

// evalInto evaluates expr and decodes the result into out.
func evalInto(t *testing.T, p *Page, expr string, out interface{}) {
	t.Helper()
	res, err := p.Evaluate(testContext(t), expr)
	require.NoError(t, err, "evaluating %s", expr)
	require.NoError(t, res.Decode(out), "decoding %s (%s)", expr, res.Value)
}

// eventLog returns the entries pushed onto window.log by page listeners.
func eventLog(t *testing.T, p *Page) []string {
	t.Helper()
	var log []string
	evalInto(t, p, `window.log || []`, &log)
	return log
}

// createTestServer starts an httptest server closed at the end of the test.
func createTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// createStaticTestServer serves the same HTML at every path.
func createStaticTestServer(t *testing.T, markup string) *httptest.Server {
	t.Helper()
	return createTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, markup)
	}))
}
