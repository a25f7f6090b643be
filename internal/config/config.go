package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional ferry configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Theme    ThemeConfig    `toml:"theme"`
}

// DefaultsConfig holds persistent flag defaults. A nil field means the
// built-in default applies.
type DefaultsConfig struct {
	Attempts    *int     `toml:"attempts"`
	Compare     *bool    `toml:"compare"`
	Shallow     *bool    `toml:"shallow"`
	LedgerDir   *string  `toml:"ledger_dir"`
	Exclude     []string `toml:"exclude"`
	AttrRetries *int     `toml:"attr_retries"`
	MaxPasses   *int     `toml:"max_passes"`
	Invalidate  *string  `toml:"invalidate"`
	Copier      *string  `toml:"copier"`
}

// ThemeConfig holds optional color overrides for the final summary.
type ThemeConfig struct {
	Green  *string `toml:"green"`
	Yellow *string `toml:"yellow"`
	Red    *string `toml:"red"`
	Muted  *string `toml:"muted"`
	Bright *string `toml:"bright"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "ferry", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path. A missing file yields a zero
// Config.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	d := c.Defaults
	if d.Attempts != nil && *d.Attempts < 1 {
		return fmt.Errorf("defaults.attempts must be at least 1, got %d", *d.Attempts)
	}
	if d.AttrRetries != nil && *d.AttrRetries < 1 {
		return fmt.Errorf("defaults.attr_retries must be at least 1, got %d", *d.AttrRetries)
	}
	if d.MaxPasses != nil && *d.MaxPasses < 0 {
		return fmt.Errorf("defaults.max_passes must not be negative, got %d", *d.MaxPasses)
	}
	if d.Invalidate != nil {
		switch *d.Invalidate {
		case "none", "changed":
		default:
			return fmt.Errorf("defaults.invalidate must be \"none\" or \"changed\", got %q", *d.Invalidate)
		}
	}
	if d.Copier != nil {
		switch *d.Copier {
		case "native", "cp":
		default:
			return fmt.Errorf("defaults.copier must be \"native\" or \"cp\", got %q", *d.Copier)
		}
	}
	return nil
}
