// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav/internal/config"
	"github.com/xkilldash9x/webnav/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// defaultConfigName is looked up in the home directory when --config is not given.
const defaultConfigName = ".webnav.yaml"

// ErrActionFailed is returned after a failure payload has been written, so
// the process exits non-zero without printing the error a second time.
var ErrActionFailed = errors.New("action failed")

// NewRootCmd builds the command tree. Every call returns an independent tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "webnav",
		Short:         "webnav drives a web page for an agent, one action per call.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "webnav"})
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "webnav"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			// The logger is process-wide; a later tree still gets its own level.
			if err := observability.SetLevel(cfg.Logger().Level); err != nil {
				return fmt.Errorf("invalid logger.level %q: %w", cfg.Logger().Level, err)
			}
			observability.GetLogger().Debug("Starting webnav",
				zap.String("version", Version),
				zap.String("mode", cfg.Browser().Mode))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/"+defaultConfigName+")")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("html-file", "", "load the page from a local HTML file")
	pf.String("url", "", "navigate to this URL before acting")
	pf.Bool("chrome", false, "drive a real Chrome instead of the in-process page")
	pf.String("remote-url", "", "attach to a running Chrome at this DevTools URL (implies --chrome)")
	pf.String("refs", "", "JSON file mapping snapshot refs to selectors")

	root.AddCommand(
		newQueryCmd(actionFocusCmd),
		newQueryCmd(actionHoverCmd),
		newQueryCmd(actionClearCmd),
		newToggleCmd("check", true),
		newToggleCmd("uncheck", false),
		newRefCmd(),
		newDialogCmd(),
		newEvalCmd(),
		newCallCmd(),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrActionFailed) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	observability.Sync()
	return err
}

// initializeConfig reads the config file and environment, then applies the
// persistent flags on top.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			v.SetConfigFile(filepath.Join(home, defaultConfigName))
		}
	}

	config.BindEnvironment(v)

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			// The default file is optional; an explicit one is not.
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if cfgFile != "" || !missing {
				return fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	flags := cmd.Flags()
	if level, _ := flags.GetString("log-level"); level != "" {
		v.Set("logger.level", level)
	}
	if remote, _ := flags.GetString("remote-url"); remote != "" {
		v.Set("browser.remote_url", remote)
		v.Set("browser.mode", config.ModeChrome)
	}
	if chrome, _ := flags.GetBool("chrome"); chrome {
		v.Set("browser.mode", config.ModeChrome)
	}
	return nil
}

// configFrom returns the config stored by the root pre-run.
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not initialized")
	}
	return cfg, nil
}
