// internal/browser/cdp/manager.go
package cdp

import (
	"context"
	"fmt"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav/internal/config"
)

// Manager owns the Chrome process (or the remote connection) and hands out tabs.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	// allocCtx manages the browser process; browserCtx is the first target,
	// and every tab derives from it.
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// wg tracks open pages for a graceful shutdown.
	wg sync.WaitGroup
}

// NewManager launches Chrome, or attaches to cfg.Browser().RemoteURL, and
// waits until the browser answers.
func NewManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}
	if err := m.launch(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

func (m *Manager) launch(ctx context.Context) error {
	bc := m.cfg.Browser()
	if bc.RemoteURL != "" {
		m.logger.Info("Attaching to remote browser.", zap.String("url", bc.RemoteURL))
		m.allocCtx, m.allocCancel = chromedp.NewRemoteAllocator(ctx, bc.RemoteURL)
	} else {
		m.logger.Info("Initializing browser allocator.", zap.Bool("headless", bc.Headless))
		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(ctx, allocatorOptions(bc)...)
	}
	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
		chromedp.WithErrorf(m.logger.Sugar().Errorf),
	)

	// The first Run starts the browser and binds it to browserCtx, so the
	// launch deadline is enforced from outside rather than on the run context.
	if err := runWithin(ctx, bc.LaunchTimeout, func() error { return chromedp.Run(m.browserCtx) }); err != nil {
		m.browserCancel()
		m.allocCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser is responsive.")
	return nil
}

// runWithin runs fn and gives up after timeout or when ctx is done. fn keeps
// running in the background on timeout; callers cancel whatever it is using.
func runWithin(ctx context.Context, timeout time.Duration, fn func() error) error {
	errc := make(chan error, 1)
	go func() { errc <- fn() }()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case err := <-errc:
		return err
	case <-deadline:
		return fmt.Errorf("timed out after %v: %w", timeout, context.DeadlineExceeded)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// allocatorFlags is the Chrome command line beyond chromedp's defaults.
func allocatorFlags(bc config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"enable-automation":         false,
		"headless":                  bc.Headless,
		"ignore-certificate-errors": bc.IgnoreTLSErrors,
		"disable-blink-features":    "AutomationControlled",
		"disable-extensions":        true,
		"disable-gpu":               bc.Headless,
	}
	if bc.UserAgent != "" {
		flags["user-agent"] = bc.UserAgent
	}

	// --name=value or --switch from config.
	for _, arg := range bc.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags[name] = parts[1]
		} else {
			flags[name] = true
		}
	}

	// Containers on Linux.
	if goruntime.GOOS == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
		flags["disable-setuid-sandbox"] = true
	}
	return flags
}

func allocatorOptions(bc config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range allocatorFlags(bc) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// NewPage opens a tab with the page helper installed on every new document.
func (m *Manager) NewPage(ctx context.Context) (*Page, error) {
	tabCtx, cancel := chromedp.NewContext(m.browserCtx)

	install := chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(Script()).Do(ctx)
		return err
	})
	// As with the browser, the tab is created by its first Run.
	if err := runWithin(ctx, m.cfg.Browser().LaunchTimeout, func() error { return chromedp.Run(tabCtx, install) }); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	p := newPage(tabCtx, cancel, m.cfg, m.logger)
	m.wg.Add(1)
	p.onClose = m.wg.Done
	m.logger.Debug("Opened tab.", zap.String("page_id", p.ID()))
	return p, nil
}

// Shutdown waits for open pages to close, up to ctx, then stops the browser.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated. Waiting for open pages to close...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All pages have closed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	m.browserCancel()
	m.allocCancel()
	<-m.allocCtx.Done()
	return nil
}
