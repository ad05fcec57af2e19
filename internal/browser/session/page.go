// internal/browser/session/page.go
package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"github.com/dop251/goja"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"

	"github.com/xkilldash9x/webnav/internal/browser/dom"
	"github.com/xkilldash9x/webnav/internal/browser/jsbind"
	"github.com/xkilldash9x/webnav/internal/browser/jsexec"
	"github.com/xkilldash9x/webnav/internal/config"
	"github.com/xkilldash9x/webnav/internal/webnav"
)

var (
	// ErrPageClosed is returned by operations on a closed page.
	ErrPageClosed = errors.New("page is closed")
	// ErrNoDocument is returned before anything has been loaded.
	ErrNoDocument = errors.New("page has no document; load or navigate first")
)

// NavigationError reports a navigation that did not produce an HTML document.
type NavigationError struct {
	URL        string
	StatusCode int
	Reason     string
}

func (e *NavigationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("navigation to %s failed with status %d: %s", e.URL, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("navigation to %s failed: %s", e.URL, e.Reason)
}

// document is everything that belongs to one loaded HTML document. It is
// replaced wholesale on navigation, so reference tables and dialog overrides
// never outlive the document they were made for.
type document struct {
	rt      *jsexec.Runtime
	url     *url.URL
	refs    *webnav.RefTable
	dialogs *dialogShim
}

// Page is an in-process browser tab: an HTML document parsed into a DOM tree
// and scripted by a goja runtime. It implements webnav.Executor.
type Page struct {
	id     string
	cfg    *config.Config
	logger *zap.Logger
	client *http.Client

	mu     sync.RWMutex
	doc    *document
	closed bool
}

var _ webnav.Executor = (*Page)(nil)

// NewPage creates an empty page. A nil cfg uses the defaults.
func NewPage(cfg *config.Config, logger *zap.Logger) (*Page, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	id := uuid.New().String()
	p := &Page{
		id:     id,
		cfg:    cfg,
		logger: logger.Named("session").With(zap.String("page_id", id)),
	}

	client, err := newHTTPClient(cfg.Browser())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize http client: %w", err)
	}
	p.client = client
	return p, nil
}

// newHTTPClient builds the client Navigate fetches documents with. Cookies
// persist across navigations of the same page.
func newHTTPClient(cfg config.BrowserConfig) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.IgnoreTLSErrors {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via browser.ignore_tls_errors
	}
	return &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.NavigationTimeout,
	}, nil
}

// ID returns the page ID.
func (p *Page) ID() string {
	return p.id
}

// URL returns the address of the current document, or "" before the first load.
func (p *Page) URL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc == nil || p.doc.url == nil {
		return ""
	}
	return p.doc.url.String()
}

// Close stops the page's runtime. It is safe to call more than once.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.doc != nil {
		p.doc.rt.Close()
		p.doc = nil
	}
	if t, ok := p.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	p.logger.Debug("Page closed.")
	return nil
}

// Load replaces the page with the given markup. baseURL becomes
// window.location and the base for relative navigation; it may be empty.
func (p *Page) Load(ctx context.Context, markup, baseURL string) error {
	u := &url.URL{Scheme: "about", Opaque: "blank"}
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid base URL %q: %w", baseURL, err)
		}
		u = parsed
	}

	root, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	return p.loadDocument(ctx, root, u)
}

// Navigate fetches targetURL, resolved against the current document, and
// loads the response. Reference handles and dialog overrides of the previous
// document are dropped.
func (p *Page) Navigate(ctx context.Context, targetURL string) error {
	resolved, err := p.resolveURL(targetURL)
	if err != nil {
		return fmt.Errorf("failed to resolve URL '%s': %w", targetURL, err)
	}

	navCtx := ctx
	if timeout := p.cfg.Browser().NavigationTimeout; timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	p.logger.Info("Navigating", zap.String("url", resolved.String()))

	req, err := http.NewRequestWithContext(navCtx, http.MethodGet, resolved.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request for '%s': %w", resolved.String(), err)
	}
	p.prepareRequestHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// The client follows redirects, so the final URL is on the response.
	finalURL := resp.Request.URL
	if resp.StatusCode >= 400 {
		return &NavigationError{URL: finalURL.String(), StatusCode: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return &NavigationError{URL: finalURL.String(), StatusCode: resp.StatusCode, Reason: fmt.Sprintf("content type %q is not HTML", contentType)}
	}

	root, err := htmlquery.Parse(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse HTML response from '%s': %w", finalURL.String(), err)
	}
	return p.loadDocument(navCtx, root, finalURL)
}

func (p *Page) prepareRequestHeaders(req *http.Request) {
	if ua := p.cfg.Browser().UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

// resolveURL resolves target against the current document's URL.
func (p *Page) resolveURL(target string) (*url.URL, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc != nil && p.doc.url != nil && p.doc.url.Scheme != "about" {
		return p.doc.url.ResolveReference(ref), nil
	}
	if !ref.IsAbs() {
		return nil, fmt.Errorf("relative URL with no current document")
	}
	return ref, nil
}

// loadDocument starts a fresh runtime for root, runs the inline scripts in
// document order, fires DOMContentLoaded and swaps the document in.
func (p *Page) loadDocument(ctx context.Context, root *html.Node, u *url.URL) error {
	if p.isClosed() {
		return ErrPageClosed
	}

	rt := jsexec.NewRuntime(p.logger)
	err := rt.Do(ctx, func(*goja.Runtime) error {
		rt.Bridge().UpdateDOM(root)
		rt.Bridge().Window().SetLocation(u.String())
		return nil
	})
	if err != nil {
		rt.Close()
		return fmt.Errorf("failed to bind document: %w", err)
	}

	for i, script := range inlineScripts(root) {
		if _, err := rt.ExecuteScript(ctx, script); err != nil {
			if ctx.Err() != nil {
				rt.Close()
				return fmt.Errorf("loading document: %w", ctx.Err())
			}
			// A broken page script does not stop the page from loading.
			p.logger.Debug("Inline script failed", zap.Int("index", i), zap.Error(err))
		}
	}

	err = rt.Do(ctx, func(*goja.Runtime) error {
		rt.Bridge().DispatchEvent(root, jsbind.KindEvent, "DOMContentLoaded", jsbind.EventInit{Bubbles: true})
		return nil
	})
	if err != nil {
		rt.Close()
		return fmt.Errorf("loading document: %w", err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		rt.Close()
		return ErrPageClosed
	}
	previous := p.doc
	p.doc = &document{rt: rt, url: u, dialogs: &dialogShim{}}
	p.mu.Unlock()

	if previous != nil {
		previous.rt.Close()
	}
	p.logger.Debug("Document loaded", zap.String("url", u.String()), zap.String("title", title(root)))
	return nil
}

// inlineScripts returns the source of every classic inline script.
func inlineScripts(root *html.Node) []string {
	var scripts []string
	for _, n := range htmlquery.Find(root, "//script[not(@src)]") {
		if typ, ok := dom.Attr(n, "type"); ok && typ != "" && !strings.Contains(strings.ToLower(typ), "javascript") {
			continue
		}
		scripts = append(scripts, dom.TextContent(n))
	}
	return scripts
}

func title(root *html.Node) string {
	if n := htmlquery.FindOne(root, "//title"); n != nil {
		return strings.TrimSpace(htmlquery.InnerText(n))
	}
	return ""
}

func (p *Page) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// current returns the loaded document.
func (p *Page) current() (*document, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPageClosed
	}
	if p.doc == nil {
		return nil, ErrNoDocument
	}
	return p.doc, nil
}

// withElement resolves q on the loop and runs fn with the element. A failed
// resolution returns before fn, so nothing is mutated.
func (p *Page) withElement(ctx context.Context, q webnav.Query, fn func(b *jsbind.DOMBridge, n *html.Node) error) error {
	d, err := p.current()
	if err != nil {
		return err
	}
	return d.rt.Do(ctx, func(*goja.Runtime) error {
		b := d.rt.Bridge()
		n, err := dom.Locate(b.Root(), q)
		if err != nil {
			p.logger.Debug("Resolution failed", zap.Stringer("query", q), zap.Error(err))
			return err
		}
		p.logger.Debug("Resolved element", zap.Stringer("query", q), zap.String("xpath", dom.GenerateUniqueXPath(n)))
		return fn(b, n)
	})
}
