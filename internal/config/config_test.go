package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "culture.db", cfg.Database)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, cfg.Color)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "culture.yaml", "database: /var/lib/ck/culture.db\ncolor: false\n")

	cfg, err := Load(path, env(nil))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ck/culture.db", cfg.Database)
	assert.False(t, cfg.Color)
	assert.Equal(t, DefaultAddr, cfg.Addr, "unset keys keep defaults")
}

func TestLoad_EmptyYAML(t *testing.T) {
	path := writeFile(t, "culture.yml", "")

	cfg, err := Load(path, env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "culture.toml", "addr = \"127.0.0.1:9090\"\nlog_level = \"debug\"\n")

	cfg, err := Load(path, env(nil))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_UnknownKeys(t *testing.T) {
	yamlPath := writeFile(t, "bad.yaml", "databse: typo.db\n")
	_, err := Load(yamlPath, env(nil))
	assert.Error(t, err)

	tomlPath := writeFile(t, "bad.toml", "databse = \"typo.db\"\n")
	_, err = Load(tomlPath, env(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "databse")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "culture.json", "{}")
	_, err := Load(path, env(nil))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), env(nil))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "culture.yaml", "database: file.db\naddr: \":7000\"\n")

	cfg, err := Load(path, env(map[string]string{
		EnvDatabase: "env.db",
		EnvColor:    "false",
		EnvLogLevel: "warn",
	}))
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.False(t, cfg.Color)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_BadEnv(t *testing.T) {
	_, err := Load("", env(map[string]string{EnvColor: "sometimes"}))
	assert.Error(t, err)

	_, err = Load("", env(map[string]string{EnvLogLevel: "loud"}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty database", func(c *Config) { c.Database = " " }, true},
		{"empty addr", func(c *Config) { c.Addr = "" }, true},
		{"addr without port", func(c *Config) { c.Addr = "localhost" }, true},
		{"port out of range", func(c *Config) { c.Addr = ":70000" }, true},
		{"host and port", func(c *Config) { c.Addr = "0.0.0.0:80" }, false},
		{"bad level", func(c *Config) { c.LogLevel = "chatty" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithPort(t *testing.T) {
	cfg := Default()
	cfg.Addr = "127.0.0.1:8080"

	got, err := cfg.WithPort(9000)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", got.Addr)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr)

	got, err = Default().WithPort(3000)
	require.NoError(t, err)
	assert.Equal(t, ":3000", got.Addr)

	_, err = cfg.WithPort(-1)
	assert.Error(t, err)
}
