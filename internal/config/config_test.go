// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "console", cfg.Logger().Format)
	assert.Equal(t, "webnav", cfg.Logger().ServiceName)
	assert.Equal(t, ModeInProcess, cfg.Browser().Mode)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser().LaunchTimeout)
	assert.Equal(t, 60*time.Second, cfg.Browser().NavigationTimeout)
	assert.Equal(t, 30*time.Second, cfg.Evaluator().Timeout)
	assert.Equal(t, 2*time.Minute, cfg.Command().Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetLoggerLevel("debug")
	cfg.SetBrowserMode(ModeChrome)
	cfg.SetBrowserHeadless(false)
	cfg.SetBrowserRemoteURL("ws://127.0.0.1:9222")
	cfg.SetBrowserIgnoreTLSErrors(true)
	cfg.SetEvaluatorTimeout(time.Second)
	cfg.SetCommandTimeout(time.Minute)

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, ModeChrome, cfg.Browser().Mode)
	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, "ws://127.0.0.1:9222", cfg.Browser().RemoteURL)
	assert.True(t, cfg.Browser().IgnoreTLSErrors)
	assert.Equal(t, time.Second, cfg.Evaluator().Timeout)
	assert.Equal(t, time.Minute, cfg.Command().Timeout)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown mode", func(c *Config) { c.BrowserCfg.Mode = "firefox" }, `mode must be "inprocess" or "chrome"`},
		{"remote url without chrome", func(c *Config) { c.BrowserCfg.RemoteURL = "ws://x" }, "remote_url requires mode"},
		{"zero launch timeout", func(c *Config) { c.BrowserCfg.LaunchTimeout = 0 }, "launch_timeout must be a positive duration"},
		{"zero navigation timeout", func(c *Config) { c.BrowserCfg.NavigationTimeout = 0 }, "navigation_timeout must be a positive duration"},
		{"negative evaluator timeout", func(c *Config) { c.EvaluatorCfg.Timeout = -time.Second }, "evaluator.timeout must not be negative"},
		{"zero command timeout", func(c *Config) { c.CommandCfg.Timeout = 0 }, "command.timeout must be a positive duration"},
		{"bad log format", func(c *Config) { c.LoggerCfg.Format = "xml" }, "logger.format must be console or json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("zero evaluator timeout is allowed", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.EvaluatorCfg.Timeout = 0
		assert.NoError(t, cfg.Validate())
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
browser:
  mode: chrome
  remote_url: ws://127.0.0.1:9222/devtools/browser/abc
  args: ["--no-sandbox", "--disable-gpu"]
evaluator:
  timeout: 5s
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, ModeChrome, cfg.Browser().Mode)
		assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/abc", cfg.Browser().RemoteURL)
		assert.Equal(t, []string{"--no-sandbox", "--disable-gpu"}, cfg.Browser().Args)
		assert.Equal(t, 5*time.Second, cfg.Evaluator().Timeout)
		// Defaults survive alongside file values.
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("browser.mode", "netscape")

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString("logger:\n  level: warn\n")))

		t.Setenv("WEBNAV_LOGGER_LEVEL", "debug")
		t.Setenv("WEBNAV_COMMAND_TIMEOUT", "45s")
		BindEnvironment(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logger().Level, "env overrides the config file")
		assert.Equal(t, 45*time.Second, cfg.Command().Timeout)
	})
}
