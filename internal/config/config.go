// Package config resolves runtime settings for culture-kernel.
//
// Settings are layered: built-in defaults, then an optional YAML or TOML
// file, then CULTURE_KERNEL_* environment variables. Command-line flags are
// applied last by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted by Load.
const (
	EnvDatabase = "CULTURE_KERNEL_DB"
	EnvAddr     = "CULTURE_KERNEL_ADDR"
	EnvColor    = "CULTURE_KERNEL_COLOR"
	EnvLogLevel = "CULTURE_KERNEL_LOG_LEVEL"
)

// Defaults.
const (
	DefaultDatabase = "culture.db"
	DefaultAddr     = ":8080"
	DefaultLogLevel = "info"
)

// Config is the resolved runtime configuration.
type Config struct {
	Database string
	Addr     string
	Color    bool
	LogLevel string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DefaultDatabase,
		Addr:     DefaultAddr,
		Color:    true,
		LogLevel: DefaultLogLevel,
	}
}

// fileConfig mirrors Config with optional fields so unset keys keep their
// defaults.
type fileConfig struct {
	Database *string `yaml:"database" toml:"database"`
	Addr     *string `yaml:"addr" toml:"addr"`
	Color    *bool   `yaml:"color" toml:"color"`
	LogLevel *string `yaml:"log_level" toml:"log_level"`
}

// Load resolves configuration from defaults, the file at path (if path is
// non-empty) and the environment read through getenv. A nil getenv reads the
// process environment. The result is validated.
func Load(path string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	if path != "" {
		fc, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.apply(fc)
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.DecodeFile(path, &fc)
		if err != nil {
			return fileConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fileConfig{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fileConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return fileConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	default:
		return fileConfig{}, fmt.Errorf("config %s: unsupported extension %q (want .yaml, .yml or .toml)", path, ext)
	}
	return fc, nil
}

func (c *Config) apply(fc fileConfig) {
	if fc.Database != nil {
		c.Database = strings.TrimSpace(*fc.Database)
	}
	if fc.Addr != nil {
		c.Addr = strings.TrimSpace(*fc.Addr)
	}
	if fc.Color != nil {
		c.Color = *fc.Color
	}
	if fc.LogLevel != nil {
		c.LogLevel = strings.TrimSpace(*fc.LogLevel)
	}
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvDatabase)); v != "" {
		c.Database = v
	}
	if v := strings.TrimSpace(getenv(EnvAddr)); v != "" {
		c.Addr = v
	}
	if v := strings.TrimSpace(getenv(EnvColor)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvColor, err)
		}
		c.Color = b
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return errors.New("config missing database path")
	}
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("config missing addr")
	}
	_, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return fmt.Errorf("config addr %q: %w", c.Addr, err)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("config addr %q: invalid port", c.Addr)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel as a slog level (debug, info, warn, error).
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// WithPort returns c with the port of Addr replaced, keeping the host.
func (c Config) WithPort(port int) (Config, error) {
	if port < 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", port)
	}
	host := ""
	if h, _, err := net.SplitHostPort(c.Addr); err == nil {
		host = h
	}
	c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	return c, nil
}
