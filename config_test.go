package main

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// validConfig returns a config that passes validation, for tests to break one field at a time
func validConfig() Config {
	cfg := Config{}
	cfg.Observer.IntervalMs = 1000
	cfg.Observer.Provider = "auto"
	cfg.Thumbnail.Enabled = true
	cfg.Thumbnail.MaxBytes = MaxThumbnailBytes
	cfg.Output.Format = "text"
	cfg.Output.Listen = "127.0.0.1:8974"
	cfg.Log.Level = "info"
	cfg.UI.Color = "2"
	cfg.UI.ColorMode = "manual"
	cfg.UI.MaxWidth = 45
	cfg.Artwork.Enabled = true
	cfg.Artwork.Padding = 15
	cfg.Artwork.WidthPixels = 300
	cfg.Artwork.WidthColumns = 13
	cfg.Text.MaxLengthWithArt = 22
	cfg.Text.MaxLengthNoArt = 36
	cfg.Timing.UIRefreshMs = 100
	return cfg
}

// TestSafeConfigConcurrency tests that SafeConfig can be safely accessed from multiple goroutines
func TestSafeConfigConcurrency(t *testing.T) {
	sc := &SafeConfig{}
	sc.Set(validConfig())

	var wg sync.WaitGroup

	// Start 10 writers
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cfg := validConfig()
				cfg.UI.Color = string(rune('0' + (id % 10)))
				cfg.Observer.IntervalMs = 100 * (id + 1)
				cfg.Artwork.Enabled = (j % 2) == 0
				sc.Set(cfg)
			}
		}(i)
	}

	// Start 10 readers, the way the observer and the TUI read it
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cfg := sc.Get()
				if cfg.observerSettings().Interval < 100*time.Millisecond {
					t.Errorf("Torn read: interval %v", cfg.observerSettings().Interval)
				}
				_ = cfg.Artwork.Enabled
			}
		}()
	}

	wg.Wait()
}

// TestSafeConfigGetReturnsCopy tests that Get() returns a copy, not a reference
func TestSafeConfigGetReturnsCopy(t *testing.T) {
	sc := &SafeConfig{}
	sc.Set(validConfig())

	retrieved1 := sc.Get()
	retrieved1.UI.Color = "9"
	retrieved1.Observer.IntervalMs = 5000

	retrieved2 := sc.Get()
	assertEqual(t, retrieved2.UI.Color, "2", "color")
	assertEqual(t, retrieved2.Observer.IntervalMs, 1000, "interval")
}

func TestObserverSettingsFromConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Observer.IntervalMs = 250
	cfg.Observer.FetchTimeoutMs = 1500

	settings := cfg.observerSettings()
	assertEqual(t, settings.Interval, 250*time.Millisecond, "interval")
	assertEqual(t, settings.FetchTimeout, 1500*time.Millisecond, "timeout")
}

// TestIsValidColor tests the color validation function
func TestIsValidColor(t *testing.T) {
	tests := []struct {
		name  string
		color string
		valid bool
	}{
		// ANSI codes
		{"ansi single digit", "1", true},
		{"ansi double digit", "15", true},
		{"ansi triple digit", "255", true},
		{"ansi zero", "0", true},
		{"ansi out of range", "256", false},
		{"ansi with letter", "1a", false},

		// Hex colors
		{"hex 6 digits", "#FF5733", true},
		{"hex lowercase", "#ff5733", true},
		{"hex 3 digits", "#F00", true},
		{"hex mixed case", "#Ff5733", true},
		{"hex no hash", "FF5733", false},
		{"hex invalid char", "#GG5733", false},
		{"hex wrong length", "#FF57", false},

		// Edge cases
		{"empty", "", false},
		{"just hash", "#", false},
		{"spaces", " 1 ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isValidColor(tt.color)
			if result != tt.valid {
				t.Errorf("isValidColor(%q) = %v; want %v", tt.color, result, tt.valid)
			}
		})
	}
}

// TestValidateConfig breaks one field at a time and expects exactly that field reported
func TestValidateConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := validConfig()
		if errs := validateConfig(&cfg); len(errs) > 0 {
			t.Errorf("Expected no errors for valid config, got %d: %v", len(errs), errs)
		}
	})

	tests := []struct {
		field  string
		mutate func(*Config)
		fatal  bool
	}{
		{"output.format", func(c *Config) { c.Output.Format = "xml" }, true},
		{"observer.provider", func(c *Config) { c.Observer.Provider = "winrt" }, true},
		{"observer.interval_ms", func(c *Config) { c.Observer.IntervalMs = 50 }, false},
		{"observer.interval_ms", func(c *Config) { c.Observer.IntervalMs = 120000 }, false},
		{"observer.fetch_timeout_ms", func(c *Config) { c.Observer.FetchTimeoutMs = -1 }, false},
		{"thumbnail.max_bytes", func(c *Config) { c.Thumbnail.MaxBytes = 0 }, false},
		{"thumbnail.max_bytes", func(c *Config) { c.Thumbnail.MaxBytes = MaxThumbnailBytes + 1 }, false},
		{"log.level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"ui.max_width", func(c *Config) { c.UI.MaxWidth = 10 }, false},
		{"ui.color", func(c *Config) { c.UI.Color = "invalid" }, false},
		{"ui.color_mode", func(c *Config) { c.UI.ColorMode = "invalid" }, false},
		{"artwork.padding", func(c *Config) { c.Artwork.Padding = 50 }, false},
		{"artwork.padding", func(c *Config) { c.Artwork.Padding = -5 }, false},
		{"artwork.width_pixels", func(c *Config) { c.Artwork.WidthPixels = 0 }, false},
		{"artwork.width_columns", func(c *Config) { c.Artwork.WidthColumns = 101 }, false},
		{"text.max_length_with_art", func(c *Config) { c.Text.MaxLengthWithArt = 0 }, false},
		{"text.max_length_no_art", func(c *Config) { c.Text.MaxLengthNoArt = 300 }, false},
		{"timing.ui_refresh_ms", func(c *Config) { c.Timing.UIRefreshMs = 5 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			errs := validateConfig(&cfg)
			if len(errs) != 1 {
				t.Fatalf("Expected one error, got %d: %v", len(errs), errs)
			}
			var ce configError
			if !errors.As(errs[0], &ce) {
				t.Fatalf("Expected configError, got %T", errs[0])
			}
			assertEqual(t, ce.field, tt.field, "field")
			assertEqual(t, ce.fatal, tt.fatal, "fatal")
		})
	}

	t.Run("multiple errors", func(t *testing.T) {
		cfg := Config{}
		cfg.Output.Format = "text"
		cfg.Observer.Provider = "auto"

		errs := validateConfig(&cfg)
		if len(errs) < 10 {
			t.Errorf("Expected multiple errors, got %d", len(errs))
		}
	})
}

// TestApplyDefaultsForInvalidFields tests default value application
func TestApplyDefaultsForInvalidFields(t *testing.T) {
	cfg := Config{}
	cfg.Output.Format = "text"
	cfg.Observer.Provider = "auto"
	cfg.Observer.IntervalMs = 10
	cfg.Observer.FetchTimeoutMs = -3
	cfg.UI.MaxWidth = 10
	cfg.UI.Color = "invalid"
	cfg.UI.ColorMode = "wrong"
	cfg.Artwork.Padding = -5
	cfg.Log.Level = "loud"

	errs := validateConfig(&cfg)
	applyDefaultsForInvalidFields(&cfg, errs)

	assertEqual(t, cfg.Observer.IntervalMs, 1000, "interval_ms")
	assertEqual(t, cfg.Observer.FetchTimeoutMs, 0, "fetch_timeout_ms")
	assertEqual(t, cfg.Thumbnail.MaxBytes, MaxThumbnailBytes, "max_bytes")
	assertEqual(t, cfg.Log.Level, "info", "log level")
	assertEqual(t, cfg.UI.MaxWidth, 45, "max_width")
	assertEqual(t, cfg.UI.Color, "2", "color")
	assertEqual(t, cfg.UI.ColorMode, "auto", "color_mode")
	assertEqual(t, cfg.Artwork.Padding, 16, "padding")
	assertEqual(t, cfg.Artwork.WidthPixels, 300, "width_pixels")
	assertEqual(t, cfg.Timing.UIRefreshMs, 100, "ui_refresh_ms")

	// Validate that corrected config is now valid
	if newErrs := validateConfig(&cfg); len(newErrs) > 0 {
		t.Errorf("Expected no errors after applying defaults, got %d: %v", len(newErrs), newErrs)
	}
}

func TestPrintConfigWarnings(t *testing.T) {
	errs := []error{
		configError{field: "ui.max_width", message: "must be at least 20 (got 5)"},
		configError{field: "ui.color", message: "invalid color format 'notacolor'"},
	}

	// Output goes to stderr; this only checks it doesn't panic
	printConfigWarnings(errs)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assertNoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, cfg, err := loadConfig(nil, "")
	assertNoError(t, err)

	assertEqual(t, cfg.Observer.IntervalMs, 1000, "interval")
	assertEqual(t, cfg.Observer.FetchTimeoutMs, 0, "timeout")
	assertEqual(t, cfg.Observer.Provider, "auto", "provider")
	assertEqual(t, cfg.Thumbnail.Enabled, true, "thumbnails")
	assertEqual(t, cfg.Thumbnail.MaxBytes, MaxThumbnailBytes, "max bytes")
	assertEqual(t, cfg.Output.Format, "text", "format")
	assertEqual(t, cfg.Output.Listen, "127.0.0.1:8974", "listen")
	assertEqual(t, cfg.Log.Level, "info", "log level")
	assertEqual(t, cfg.UI.ColorMode, "auto", "color mode")

	if errs := validateConfig(&cfg); len(errs) > 0 {
		t.Errorf("Defaults should validate, got %v", errs)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
observer:
  interval_ms: 250
  fetch_timeout_ms: 800
  provider: playerctl
output:
  format: json
thumbnail:
  max_bytes: 1048576
ui:
  max_width: 5
`)

	v, cfg, err := loadConfig(nil, path)
	assertNoError(t, err)
	assertEqual(t, v.ConfigFileUsed(), path, "config file")
	assertEqual(t, cfg.Observer.IntervalMs, 250, "interval")
	assertEqual(t, cfg.Observer.FetchTimeoutMs, 800, "timeout")
	assertEqual(t, cfg.Observer.Provider, "playerctl", "provider")
	assertEqual(t, cfg.Output.Format, "json", "format")
	assertEqual(t, cfg.Thumbnail.MaxBytes, int64(1<<20), "max bytes")
	// Invalid values fall back to defaults with a warning
	assertEqual(t, cfg.UI.MaxWidth, 45, "max width")
}

func TestLoadConfigUnknownFormatIsFatal(t *testing.T) {
	path := writeConfigFile(t, "output:\n  format: xml\n")

	_, _, err := loadConfig(nil, path)
	assertError(t, err, "unknown output format")
}

func TestLoadConfigEnvAndFlags(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MEDIAWATCH_OBSERVER_INTERVAL_MS", "2000")
	t.Setenv("MEDIAWATCH_OUTPUT_FORMAT", "yaml")

	flags := newFlagSet()
	assertNoError(t, flags.Parse([]string{"--format", "json", "--timeout", "300", "--no-artwork"}))

	_, cfg, err := loadConfig(flags, "")
	assertNoError(t, err)

	assertEqual(t, cfg.Observer.IntervalMs, 2000, "env interval")
	assertEqual(t, cfg.Output.Format, "json", "flag beats env")
	assertEqual(t, cfg.Observer.FetchTimeoutMs, 300, "flag timeout")
	assertEqual(t, cfg.Artwork.Enabled, false, "artwork")
	assertEqual(t, cfg.Thumbnail.Enabled, false, "thumbnails")
}

func TestLoadConfigUnsetFlagsKeepFileValues(t *testing.T) {
	path := writeConfigFile(t, "observer:\n  interval_ms: 300\n")

	flags := newFlagSet()
	assertNoError(t, flags.Parse(nil))

	_, cfg, err := loadConfig(flags, path)
	assertNoError(t, err)
	assertEqual(t, cfg.Observer.IntervalMs, 300, "interval")
}
