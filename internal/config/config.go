// Package config loads shore settings.
//
// Precedence, lowest first: built-in defaults, the TOML file at Path(),
// SHORE_* environment variables. Command-line flags are applied on top by
// the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

const (
	DefaultAddr     = ":8080"
	DefaultLogLevel = "info"
)

// Config holds user settings
type Config struct {
	DBPath   string `toml:"db_path"`
	Addr     string `toml:"addr"`
	LogLevel string `toml:"log_level"`
	// Timezone is an IANA name used to decide which day an entry belongs to.
	// Empty means the system zone.
	Timezone string `toml:"timezone"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		DBPath:   defaultDBPath(),
		Addr:     DefaultAddr,
		LogLevel: DefaultLogLevel,
	}
}

func defaultDBPath() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "shore", "shore.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".shore", "shore.db")
	}
	return filepath.Join(home, ".shore", "shore.db")
}

// Path returns the location of the config file
func Path() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "shore", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config path: %w", err)
	}
	return filepath.Join(home, ".config", "shore", "config.toml"), nil
}

// Load reads the config file (if any) and applies environment overrides
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Normalize(ApplyEnv(Default())), err
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit path. A missing file is not an error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Normalize(ApplyEnv(Default())), fmt.Errorf("parse config %s: %w", path, err)
	}
	return Normalize(ApplyEnv(cfg)), nil
}

// ApplyEnv overrides fields from SHORE_DB, SHORE_ADDR, SHORE_LOG_LEVEL and SHORE_TZ
func ApplyEnv(cfg Config) Config {
	if v := strings.TrimSpace(os.Getenv("SHORE_DB")); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv("SHORE_ADDR")); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("SHORE_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("SHORE_TZ")); v != "" {
		cfg.Timezone = v
	}
	return cfg
}

// Normalize trims values and replaces invalid ones with defaults
func Normalize(cfg Config) Config {
	cfg.DBPath = strings.TrimSpace(cfg.DBPath)
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil || cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			cfg.Timezone = ""
		}
	}
	return cfg
}

// Location resolves Timezone, falling back to time.Local
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Save writes cfg to path as TOML
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(Normalize(cfg)); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
