package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config holds all application configuration
type Config struct {
	Observer struct {
		IntervalMs     int    `mapstructure:"interval_ms"`
		FetchTimeoutMs int    `mapstructure:"fetch_timeout_ms"`
		Provider       string `mapstructure:"provider"`
	} `mapstructure:"observer"`
	Thumbnail struct {
		Enabled  bool  `mapstructure:"enabled"`
		MaxBytes int64 `mapstructure:"max_bytes"`
	} `mapstructure:"thumbnail"`
	Output struct {
		Format string `mapstructure:"format"`
		Listen string `mapstructure:"listen"`
	} `mapstructure:"output"`
	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
		File        string `mapstructure:"file"`
	} `mapstructure:"log"`
	UI struct {
		Color     string `mapstructure:"color"`
		ColorMode string `mapstructure:"color_mode"`
		MaxWidth  int    `mapstructure:"max_width"`
	} `mapstructure:"ui"`
	Artwork struct {
		Enabled      bool `mapstructure:"enabled"`
		Padding      int  `mapstructure:"padding"`
		WidthPixels  int  `mapstructure:"width_pixels"`
		WidthColumns int  `mapstructure:"width_columns"`
	} `mapstructure:"artwork"`
	Text struct {
		MaxLengthWithArt int `mapstructure:"max_length_with_art"`
		MaxLengthNoArt   int `mapstructure:"max_length_no_art"`
	} `mapstructure:"text"`
	Timing struct {
		UIRefreshMs int `mapstructure:"ui_refresh_ms"`
	} `mapstructure:"timing"`
}

var (
	outputFormats = []string{"text", "json", "yaml", "tui", "websocket"}
	providers     = []string{"auto", "mpris", "playerctl"}
)

// observerSettings converts the polling section for the observer
func (c Config) observerSettings() ObserverSettings {
	return ObserverSettings{
		Interval:     time.Duration(c.Observer.IntervalMs) * time.Millisecond,
		FetchTimeout: time.Duration(c.Observer.FetchTimeoutMs) * time.Millisecond,
	}
}

// SafeConfig wraps Config with thread-safe access
type SafeConfig struct {
	mu  sync.RWMutex
	cfg Config
}

// Get returns a copy of the current config (thread-safe read)
func (sc *SafeConfig) Get() Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.cfg
}

// Set updates the config (thread-safe write)
func (sc *SafeConfig) Set(cfg Config) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cfg = cfg
}

var config = &SafeConfig{}

// Config file changed notification
type configReloadMsg struct{}

var configChangeChan = make(chan struct{}, 1)

// Watch for config file changes
func watchConfigCmd() tea.Cmd {
	return func() tea.Msg {
		<-configChangeChan
		return configReloadMsg{}
	}
}

// configError is a validation problem with one config key
type configError struct {
	field   string
	message string
	fatal   bool // no sensible default exists
}

func (e configError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.message)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("observer.interval_ms", 1000)
	v.SetDefault("observer.fetch_timeout_ms", 0)
	v.SetDefault("observer.provider", "auto")
	v.SetDefault("thumbnail.enabled", true)
	v.SetDefault("thumbnail.max_bytes", MaxThumbnailBytes)
	v.SetDefault("output.format", "text")
	v.SetDefault("output.listen", "127.0.0.1:8974")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
	v.SetDefault("ui.color", "2")
	v.SetDefault("ui.color_mode", "auto")
	v.SetDefault("ui.max_width", 45)
	v.SetDefault("artwork.enabled", true)
	v.SetDefault("artwork.padding", 16)
	v.SetDefault("artwork.width_pixels", 300)
	v.SetDefault("artwork.width_columns", 13)
	v.SetDefault("text.max_length_with_art", 22)
	v.SetDefault("text.max_length_no_art", 36)
	v.SetDefault("timing.ui_refresh_ms", 100)
}

// flagKeys binds command-line flags to config keys; set flags take precedence
var flagKeys = map[string]string{
	"format":    "output.format",
	"listen":    "output.listen",
	"interval":  "observer.interval_ms",
	"timeout":   "observer.fetch_timeout_ms",
	"provider":  "observer.provider",
	"color":     "ui.color",
	"log-level": "log.level",
	"log-file":  "log.file",
	"debug":     "log.development",
}

// loadConfig reads defaults, the config file, MEDIAWATCH_* env vars and flags.
// Invalid values are reported on stderr and replaced by defaults; only an
// unknown output format or provider is an error.
func loadConfig(flags *pflag.FlagSet, configFile string) (*viper.Viper, Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// Set config file location following XDG standard
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	// Environment variable support with MEDIAWATCH_ prefix
	v.SetEnvPrefix("MEDIAWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file found but had errors
			fmt.Fprintf(os.Stderr, "Warning: Error reading config file: %v\n", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
		if noArt, err := flags.GetBool("no-artwork"); err == nil && noArt {
			v.Set("artwork.enabled", false)
			v.Set("thumbnail.enabled", false)
		}
	}

	cfg, err := decodeConfig(v)
	if err != nil {
		return nil, Config{}, err
	}
	return v, cfg, nil
}

// decodeConfig unmarshals, validates and repairs the current viper state
func decodeConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config: %w", err)
	}

	errs := validateConfig(&cfg)
	for _, err := range errs {
		var ce configError
		if errors.As(err, &ce) && ce.fatal {
			return Config{}, err
		}
	}
	if len(errs) > 0 {
		printConfigWarnings(errs)
		applyDefaultsForInvalidFields(&cfg, errs)
	}
	return cfg, nil
}

// watchConfig live-reloads the config file into the global SafeConfig.
// Output format and provider are fixed for the life of the process.
func watchConfig(v *viper.Viper) {
	v.OnConfigChange(func(e fsnotify.Event) {
		current := config.Get()
		newCfg, err := decodeConfig(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Ignoring config change: %v\n", err)
			return
		}
		newCfg.Output = current.Output
		newCfg.Observer.Provider = current.Observer.Provider
		config.Set(newCfg)

		// Config reloaded successfully, notify the app
		select {
		case configChangeChan <- struct{}{}:
		default:
			// Channel full, skip notification
		}
	})
	v.WatchConfig()
}

// configDir checks XDG_CONFIG_HOME first, fallback to ~/.config
func configDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "mediawatch")
}

// validateConfig checks every field and returns one error per invalid field
func validateConfig(cfg *Config) []error {
	var errs []error
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, configError{field: field, message: fmt.Sprintf(format, args...)})
	}

	if !contains(outputFormats, cfg.Output.Format) {
		errs = append(errs, configError{
			field:   "output.format",
			message: fmt.Sprintf("must be one of %s (got '%s')", strings.Join(outputFormats, ", "), cfg.Output.Format),
			fatal:   true,
		})
	}
	if !contains(providers, cfg.Observer.Provider) {
		errs = append(errs, configError{
			field:   "observer.provider",
			message: fmt.Sprintf("must be one of %s (got '%s')", strings.Join(providers, ", "), cfg.Observer.Provider),
			fatal:   true,
		})
	}

	if cfg.Observer.IntervalMs < 100 || cfg.Observer.IntervalMs > 60000 {
		add("observer.interval_ms", "must be between 100 and 60000 (got %d)", cfg.Observer.IntervalMs)
	}
	if cfg.Observer.FetchTimeoutMs < 0 {
		add("observer.fetch_timeout_ms", "must not be negative (got %d)", cfg.Observer.FetchTimeoutMs)
	}
	if cfg.Thumbnail.MaxBytes <= 0 || cfg.Thumbnail.MaxBytes > MaxThumbnailBytes {
		add("thumbnail.max_bytes", "must be between 1 and %d (got %d)", MaxThumbnailBytes, cfg.Thumbnail.MaxBytes)
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		add("log.level", "unknown level '%s'", cfg.Log.Level)
	}

	if cfg.UI.MaxWidth < 20 || cfg.UI.MaxWidth > 200 {
		add("ui.max_width", "must be between 20 and 200 (got %d)", cfg.UI.MaxWidth)
	}
	if !isValidColor(cfg.UI.Color) {
		add("ui.color", "invalid color format '%s'", cfg.UI.Color)
	}
	if cfg.UI.ColorMode != "manual" && cfg.UI.ColorMode != "auto" {
		add("ui.color_mode", "must be 'manual' or 'auto' (got '%s')", cfg.UI.ColorMode)
	}
	if cfg.Artwork.Padding < 0 || cfg.Artwork.Padding >= cfg.UI.MaxWidth {
		add("artwork.padding", "must be between 0 and max_width (got %d)", cfg.Artwork.Padding)
	}
	if cfg.Artwork.WidthPixels < 1 || cfg.Artwork.WidthPixels > 2000 {
		add("artwork.width_pixels", "must be between 1 and 2000 (got %d)", cfg.Artwork.WidthPixels)
	}
	if cfg.Artwork.WidthColumns < 1 || cfg.Artwork.WidthColumns > 100 {
		add("artwork.width_columns", "must be between 1 and 100 (got %d)", cfg.Artwork.WidthColumns)
	}
	if cfg.Text.MaxLengthWithArt < 1 || cfg.Text.MaxLengthWithArt > 200 {
		add("text.max_length_with_art", "must be between 1 and 200 (got %d)", cfg.Text.MaxLengthWithArt)
	}
	if cfg.Text.MaxLengthNoArt < 1 || cfg.Text.MaxLengthNoArt > 200 {
		add("text.max_length_no_art", "must be between 1 and 200 (got %d)", cfg.Text.MaxLengthNoArt)
	}
	if cfg.Timing.UIRefreshMs < 10 || cfg.Timing.UIRefreshMs > 5000 {
		add("timing.ui_refresh_ms", "must be between 10 and 5000 (got %d)", cfg.Timing.UIRefreshMs)
	}

	return errs
}

// applyDefaultsForInvalidFields resets every field named in errs to its default
func applyDefaultsForInvalidFields(cfg *Config, errs []error) {
	for _, err := range errs {
		var ce configError
		if !errors.As(err, &ce) {
			continue
		}
		switch ce.field {
		case "observer.interval_ms":
			cfg.Observer.IntervalMs = 1000
		case "observer.fetch_timeout_ms":
			cfg.Observer.FetchTimeoutMs = 0
		case "thumbnail.max_bytes":
			cfg.Thumbnail.MaxBytes = MaxThumbnailBytes
		case "log.level":
			cfg.Log.Level = "info"
		case "ui.max_width":
			cfg.UI.MaxWidth = 45
		case "ui.color":
			cfg.UI.Color = "2"
		case "ui.color_mode":
			cfg.UI.ColorMode = "auto"
		case "artwork.padding":
			cfg.Artwork.Padding = 16
		case "artwork.width_pixels":
			cfg.Artwork.WidthPixels = 300
		case "artwork.width_columns":
			cfg.Artwork.WidthColumns = 13
		case "text.max_length_with_art":
			cfg.Text.MaxLengthWithArt = 22
		case "text.max_length_no_art":
			cfg.Text.MaxLengthNoArt = 36
		case "timing.ui_refresh_ms":
			cfg.Timing.UIRefreshMs = 100
		}
	}

	// Padding is checked against max_width, which may itself have been reset
	if cfg.Artwork.Padding >= cfg.UI.MaxWidth {
		cfg.Artwork.Padding = 16
	}
}

func printConfigWarnings(errs []error) {
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "Warning: config %v, using default\n", err)
	}
}

// isValidColor accepts ANSI codes 0-255 and #RGB / #RRGGBB hex colors
func isValidColor(color string) bool {
	if strings.HasPrefix(color, "#") {
		hex := color[1:]
		if len(hex) != 3 && len(hex) != 6 {
			return false
		}
		_, err := strconv.ParseUint(hex, 16, 32)
		return err == nil
	}

	if color == "" || len(color) > 3 {
		return false
	}
	for _, c := range color {
		if c < '0' || c > '9' {
			return false
		}
	}
	n, _ := strconv.Atoi(color)
	return n <= 255
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
