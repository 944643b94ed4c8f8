package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/m96-chan/zterm/internal/consts"
)

//go:embed config.toml
var defaultConfig []byte

// Config holds the application configuration.
type Config struct {
	Mouse   bool   `toml:"mouse"`
	Zuliprc string `toml:"zuliprc"`

	Server        Server         `toml:"server"`
	Timestamps    Timestamps     `toml:"timestamps"`
	Markdown      MarkdownConfig `toml:"markdown"`
	Notifications Notifications  `toml:"notifications"`

	Keybinds Keybinds `toml:"keybinds"`
	Theme    Theme    `toml:"theme"`
}

// Server identifies the account used when no zuliprc file is present. The
// API key itself lives in the system keyring.
type Server struct {
	Site  string `toml:"site"`
	Email string `toml:"email"`
}

// MarkdownConfig controls markdown rendering in messages.
type MarkdownConfig struct {
	Enabled   bool   `toml:"enabled"`
	CodeStyle string `toml:"code_style"`
}

// Timestamps controls message timestamp display.
type Timestamps struct {
	Enabled bool   `toml:"enabled"`
	Format  string `toml:"format"`
}

// Notifications controls desktop notification behavior.
type Notifications struct {
	Enabled  bool              `toml:"enabled"`
	Private  bool              `toml:"private"`
	Mentions bool              `toml:"mentions"`
	Sound    NotificationSound `toml:"sound"`
}

// NotificationSound controls notification sound behavior.
type NotificationSound struct {
	Enabled bool `toml:"enabled"`
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, consts.Name, "config.toml")
}

// Load reads the config from the given path. If the file does not exist,
// it writes the default config and loads that. Config loading is two-phase:
// embedded defaults are applied first, then the user file overlays on top.
//
// A non-empty themeOverride replaces the configured preset. An unknown
// preset yields an *UnknownThemeError.
func Load(path, themeOverride string) (*Config, error) {
	// Phase 1: unmarshal embedded defaults.
	var cfg Config
	if err := toml.Unmarshal(defaultConfig, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}

	// Write default config if file does not exist.
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, defaultConfig, 0o600); err != nil {
			return nil, err
		}
	}

	// Phase 2: overlay user file on top of defaults.
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if themeOverride != "" {
		cfg.Theme.Preset = themeOverride
	}
	if err := resolveTheme(path, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// resolveTheme loads the selected preset and re-applies the user's style
// tables over it.
func resolveTheme(path string, cfg *Config) error {
	preset := cfg.Theme.Preset
	theme, err := BuiltinTheme(preset)
	if err != nil {
		return err
	}

	overlay := struct {
		Theme *Theme `toml:"theme"`
	}{Theme: &theme}
	if _, err := toml.DecodeFile(path, &overlay); err != nil {
		return fmt.Errorf("parsing theme overrides: %w", err)
	}

	theme.Preset = preset
	cfg.Theme = theme
	return nil
}

// applyDefaults resolves computed defaults that can't be expressed in TOML.
func applyDefaults(cfg *Config) {
	if cfg.Zuliprc == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Zuliprc = filepath.Join(home, "zuliprc")
		}
	} else if rest, ok := strings.CutPrefix(cfg.Zuliprc, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Zuliprc = filepath.Join(home, rest)
		}
	}

	cfg.Server.Site = strings.TrimRight(strings.TrimSpace(cfg.Server.Site), "/")
	cfg.Server.Email = strings.TrimSpace(cfg.Server.Email)

	if cfg.Timestamps.Format == "" {
		cfg.Timestamps.Format = "3:04PM"
	}
}

// validate checks that config values are within acceptable ranges.
func validate(cfg *Config) error {
	if (cfg.Server.Site == "") != (cfg.Server.Email == "") {
		return errors.New("server.site and server.email must be set together")
	}
	return nil
}
