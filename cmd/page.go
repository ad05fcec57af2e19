// File: cmd/page.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav/internal/browser/cdp"
	"github.com/xkilldash9x/webnav/internal/browser/session"
	"github.com/xkilldash9x/webnav/internal/config"
	"github.com/xkilldash9x/webnav/internal/webnav"
)

// targetPage is what both backends offer the harness.
type targetPage interface {
	webnav.Executor
	Load(ctx context.Context, markup, baseURL string) error
	Navigate(ctx context.Context, targetURL string) error
	InstallRefSelectors(ctx context.Context, selectors map[string]string) error
}

// pageSource says where the page comes from.
type pageSource struct {
	htmlFile string
	url      string
	refsFile string
}

func sourceFrom(cmd *cobra.Command) (pageSource, error) {
	var src pageSource
	flags := cmd.Flags()
	src.htmlFile, _ = flags.GetString("html-file")
	src.url, _ = flags.GetString("url")
	src.refsFile, _ = flags.GetString("refs")
	if src.htmlFile != "" && src.url != "" {
		return src, fmt.Errorf("--html-file and --url are mutually exclusive")
	}
	return src, nil
}

// openPage builds the configured backend and loads src into it. The returned
// release func closes everything that was opened.
func openPage(ctx context.Context, cfg *config.Config, src pageSource, logger *zap.Logger) (targetPage, func(), error) {
	var (
		page    targetPage
		release func()
	)

	switch cfg.Browser().Mode {
	case config.ModeChrome:
		mgr, err := cdp.NewManager(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		p, err := mgr.NewPage(ctx)
		if err != nil {
			_ = mgr.Shutdown(context.Background())
			return nil, nil, err
		}
		page = p
		release = func() {
			_ = p.Close()
			_ = mgr.Shutdown(context.Background())
		}
	default:
		p, err := session.NewPage(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		page = p
		release = func() { _ = p.Close() }
	}

	if err := loadSource(ctx, page, src); err != nil {
		release()
		return nil, nil, err
	}
	return page, release, nil
}

func loadSource(ctx context.Context, page targetPage, src pageSource) error {
	switch {
	case src.htmlFile != "":
		markup, err := os.ReadFile(src.htmlFile)
		if err != nil {
			return fmt.Errorf("reading page: %w", err)
		}
		abs, err := filepath.Abs(src.htmlFile)
		if err != nil {
			return fmt.Errorf("resolving page path: %w", err)
		}
		if err := page.Load(ctx, string(markup), "file://"+filepath.ToSlash(abs)); err != nil {
			return fmt.Errorf("loading page: %w", err)
		}
	case src.url != "":
		if err := page.Navigate(ctx, src.url); err != nil {
			return err
		}
	default:
		if err := page.Load(ctx, "", ""); err != nil {
			return fmt.Errorf("loading blank page: %w", err)
		}
	}

	if src.refsFile == "" {
		return nil
	}
	raw, err := os.ReadFile(src.refsFile)
	if err != nil {
		return fmt.Errorf("reading refs: %w", err)
	}
	var selectors map[string]string
	if err := json.Unmarshal(raw, &selectors); err != nil {
		return fmt.Errorf("decoding refs %s: %w", src.refsFile, err)
	}
	return page.InstallRefSelectors(ctx, selectors)
}
