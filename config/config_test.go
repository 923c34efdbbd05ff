package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TRACKER_SESSION_SECRET", "s3cret")

	cfg, err := Load(New(""))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, CacheMemory, cfg.Cache)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.AllowedOrigins)
}

func TestLoad_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TRACKER_SESSION_SECRET", "s3cret")
	t.Setenv("TRACKER_BACKEND", "SHEETS")
	t.Setenv("TRACKER_SPREADSHEET_ID", "doc-1")
	t.Setenv("TRACKER_CREDENTIALS", `{"type":"service_account"}`)
	t.Setenv("TRACKER_CACHE_TTL", "0s")
	t.Setenv("TRACKER_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(New(""))
	require.NoError(t, err)

	assert.Equal(t, BackendSheets, cfg.Backend)
	assert.Equal(t, "doc-1", cfg.SpreadsheetID)
	assert.Equal(t, time.Duration(0), cfg.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session_secret: from-file\nport: \"9090\"\ncache_ttl: 1m\n"), 0o644))

	cfg, err := Load(New(path))
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.SessionSecret)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(New(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		SessionSecret: "s",
		SessionTTL:    time.Hour,
		Backend:       BackendSQLite,
		DBPath:        "x.db",
		Cache:         CacheMemory,
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *Config){
		"missing secret":        func(c *Config) { c.SessionSecret = "" },
		"sheets without id":     func(c *Config) { c.Backend = BackendSheets; c.Credentials = "{}" },
		"sheets without creds":  func(c *Config) { c.Backend = BackendSheets; c.SpreadsheetID = "doc" },
		"unknown backend":       func(c *Config) { c.Backend = "csv" },
		"redis without address": func(c *Config) { c.Cache = CacheRedis },
		"unknown cache":         func(c *Config) { c.Cache = "memcached" },
		"non-positive session":  func(c *Config) { c.SessionTTL = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateStorage_IgnoresSessionSettings(t *testing.T) {
	c := Config{Backend: BackendSQLite, DBPath: "x.db", Cache: CacheMemory}

	assert.NoError(t, c.ValidateStorage())
	assert.Error(t, c.Validate())
}
