package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dictd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
server:
  listen: "127.0.0.1:9090"
  base_path: "/api"
  read_timeout: "2s"
log:
  level: "debug"
  format: "text"
search:
  limit: 50
  wait_timeout: "3s"
session:
  max_sessions: 10
dictionaries:
  - id: wn
    name: WordNet
    path: /data/wordnet.tsv
    case_fold: true
`

func TestLoad_ValidYAML(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	cfg, err := Load(writeYAML(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Listen)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 50, cfg.Search.Limit)
	assert.Equal(t, 1024, cfg.Search.CacheSize)
	assert.Equal(t, 3*time.Second, cfg.Search.WaitTimeout)
	assert.Equal(t, 10, cfg.Session.MaxSessions)
	require.Len(t, cfg.Dictionaries, 1)
	assert.Equal(t, "wn", cfg.Dictionaries[0].ID)
	assert.True(t, cfg.Dictionaries[0].CaseFold)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("DICTD_SEARCH_LIMIT", "7")
	t.Setenv("DICTD_LOG_LEVEL", "warn")

	cfg, err := Load(writeYAML(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.Limit)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 20, cfg.Search.Limit)
	assert.Equal(t, 5*time.Minute, cfg.Search.CacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Empty(t, cfg.Dictionaries)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeYAML(t, validYAML))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Listen)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:  ServerConfig{Listen: ":8080"},
			Log:     LogConfig{Level: "info", Format: "json"},
			Search:  SearchConfig{Limit: 20, WaitTimeout: time.Second},
			Session: SessionConfig{MaxSessions: 1},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"zero limit", func(c *Config) { c.Search.Limit = 0 }, false},
		{"huge limit", func(c *Config) { c.Search.Limit = 5000 }, false},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"no sessions", func(c *Config) { c.Session.MaxSessions = 0 }, false},
		{"dict without id", func(c *Config) {
			c.Dictionaries = []DictConfig{{Path: "a.tsv"}}
		}, false},
		{"dict id with colon", func(c *Config) {
			c.Dictionaries = []DictConfig{{ID: "a:b", Path: "a.tsv"}}
		}, false},
		{"duplicate dict", func(c *Config) {
			c.Dictionaries = []DictConfig{{ID: "a", Path: "a.tsv"}, {ID: "a", Path: "b.tsv"}}
		}, false},
		{"dict without path", func(c *Config) {
			c.Dictionaries = []DictConfig{{ID: "a"}}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDictionary(t *testing.T) {
	cfg := Config{Dictionaries: []DictConfig{{ID: "a", Path: "a.tsv"}, {ID: "b", Path: "b.db"}}}
	d, ok := cfg.Dictionary("b")
	require.True(t, ok)
	assert.Equal(t, "b.db", d.Path)
	_, ok = cfg.Dictionary("c")
	assert.False(t, ok)
}
