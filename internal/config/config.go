// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Browser modes.
const (
	ModeInProcess = "inprocess"
	ModeChrome    = "chrome"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Evaluator() EvaluatorConfig
	Command() CommandConfig

	// Logger Setters
	SetLoggerLevel(string)

	// Browser Setters
	SetBrowserMode(string)
	SetBrowserHeadless(bool)
	SetBrowserRemoteURL(string)
	SetBrowserIgnoreTLSErrors(bool)

	// Timeout Setters
	SetEvaluatorTimeout(time.Duration)
	SetCommandTimeout(time.Duration)
}

// Config holds the entire application configuration. Access goes through the
// Interface getters; the fields are exported so viper can unmarshal into them.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	BrowserCfg   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	EvaluatorCfg EvaluatorConfig `mapstructure:"evaluator" yaml:"evaluator"`
	CommandCfg   CommandConfig   `mapstructure:"command" yaml:"command"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig     { return c.BrowserCfg }
func (c *Config) Evaluator() EvaluatorConfig { return c.EvaluatorCfg }
func (c *Config) Command() CommandConfig     { return c.CommandCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetLoggerLevel(level string) { c.LoggerCfg.Level = level }

// Browser Setters
func (c *Config) SetBrowserMode(mode string)       { c.BrowserCfg.Mode = mode }
func (c *Config) SetBrowserHeadless(b bool)        { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserRemoteURL(u string)     { c.BrowserCfg.RemoteURL = u }
func (c *Config) SetBrowserIgnoreTLSErrors(b bool) { c.BrowserCfg.IgnoreTLSErrors = b }

// Timeout Setters
func (c *Config) SetEvaluatorTimeout(d time.Duration) { c.EvaluatorCfg.Timeout = d }
func (c *Config) SetCommandTimeout(d time.Duration)   { c.CommandCfg.Timeout = d }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig selects and tunes the page backend.
type BrowserConfig struct {
	// Mode is "inprocess" (parsed HTML plus goja) or "chrome" (chromedp).
	// RemoteURL attaches to a running Chrome instead of launching one.
	Mode              string        `mapstructure:"mode" yaml:"mode"`
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	RemoteURL         string        `mapstructure:"remote_url" yaml:"remote_url"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	LaunchTimeout     time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// EvaluatorConfig bounds expression evaluation.
type EvaluatorConfig struct {
	// Timeout caps the await of a single evaluation. Zero leaves it to the caller.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CommandConfig applies to every harness invocation.
type CommandConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "webnav")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.mode", ModeInProcess)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.launch_timeout", "30s")
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (compatible; webnav)")
	v.SetDefault("browser.navigation_timeout", "60s")

	// -- Evaluator --
	v.SetDefault("evaluator.timeout", "30s")

	// -- Command --
	v.SetDefault("command.timeout", "2m")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if c.EvaluatorCfg.Timeout < 0 {
		return fmt.Errorf("evaluator.timeout must not be negative")
	}
	if c.CommandCfg.Timeout <= 0 {
		return fmt.Errorf("command.timeout must be a positive duration")
	}
	switch strings.ToLower(c.LoggerCfg.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.LoggerCfg.Format)
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	switch b.Mode {
	case ModeInProcess, ModeChrome:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeInProcess, ModeChrome, b.Mode)
	}
	if b.RemoteURL != "" && b.Mode != ModeChrome {
		return fmt.Errorf("remote_url requires mode %q", ModeChrome)
	}
	if b.LaunchTimeout <= 0 {
		return fmt.Errorf("launch_timeout must be a positive duration")
	}
	if b.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be a positive duration")
	}
	return nil
}

// EnvPrefix is the prefix of environment overrides: WEBNAV_BROWSER_MODE
// overrides browser.mode.
const EnvPrefix = "WEBNAV"

// BindEnvironment makes every defaulted key overridable from the environment.
func BindEnvironment(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}
