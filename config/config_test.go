package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 6379, c.Port)
	assert.Equal(t, 16, c.Workers)
	assert.Equal(t, 30*time.Second, c.ReadTimeout)
	assert.Equal(t, ":6379", c.Addr())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Port = 70000 }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"timeout", func(c *Config) { c.ReadTimeout = 0 }},
		{"shards", func(c *Config) { c.Shards = 3 }},
		{"rate", func(c *Config) { c.RateLimit = -1 }},
		{"level", func(c *Config) { c.Log.Level = "loud" }},
		{"encoding", func(c *Config) { c.Log.Encoding = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestAddr(t *testing.T) {
	c := Default()
	c.Bind = "127.0.0.1"
	c.Port = 0
	assert.Equal(t, "127.0.0.1:0", c.Addr())
}

func TestLoaderDefaults(t *testing.T) {
	var c Config
	require.NoError(t, NewLoader(WithEnvPrefix("MINIREDIS_TEST_UNSET_")).Load(&c))
	assert.Equal(t, *Default(), c)
}

func TestLoaderPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miniredis.yaml")
	content := `
port: 7000
workers: 4
read_timeout: 5s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("MINIREDIS_T_WORKERS", "8")
	t.Setenv("MINIREDIS_T_READ_TIMEOUT", "2s")
	t.Setenv("MINIREDIS_T_LOG__ENCODING", "json")

	l := NewLoader(WithConfigFile(path), WithEnvPrefix("MINIREDIS_T_"))
	l.LoadMap(map[string]any{"workers": 2, "log.level": "warn"})

	var c Config
	require.NoError(t, l.Load(&c))

	assert.Equal(t, 7000, c.Port, "from file")
	assert.Equal(t, 2, c.Workers, "flag beats env and file")
	assert.Equal(t, 2*time.Second, c.ReadTimeout, "env beats file")
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, "json", c.Log.Encoding)
	assert.Equal(t, 1, c.Shards, "default kept")
}

func TestLoaderMissingFile(t *testing.T) {
	var c Config
	err := NewLoader(WithConfigFile("/nonexistent/miniredis.yaml")).Load(&c)
	assert.Error(t, err)
}

func TestUnflatten(t *testing.T) {
	out := unflatten(map[string]any{"port": 1, "log.level": "debug", "log.encoding": "json"})
	assert.Equal(t, map[string]any{
		"port": 1,
		"log":  map[string]any{"level": "debug", "encoding": "json"},
	}, out)
}
