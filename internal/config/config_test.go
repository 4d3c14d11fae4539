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
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "wss://ws.infect.live/ws", cfg.ServerURL)
	assert.Equal(t, 2*time.Second, cfg.Cooldown)
	assert.Equal(t, 150*time.Millisecond, cfg.Flash)
	assert.Equal(t, 6, cfg.IDLength)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INFECT_SERVER_URL", "ws://localhost:8080/ws")
	t.Setenv("INFECT_COOLDOWN", "100ms")
	t.Setenv("INFECT_FLASH", "50ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.ServerURL)
	assert.Equal(t, 100*time.Millisecond, cfg.Cooldown)
	assert.Equal(t, 50*time.Millisecond, cfg.Flash)
}

func TestLoad_DotenvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("INFECT_ID_LENGTH=8\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("INFECT_ID_LENGTH") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.IDLength)
}

func TestLoad_MissingNamedFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{
		ServerURL:    "wss://example.com/ws",
		Cooldown:     time.Second,
		Flash:        100 * time.Millisecond,
		Notice:       time.Second,
		ReconnectMax: time.Second,
		IDLength:     6,
	}
	require.NoError(t, base.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "http scheme", mutate: func(c *Config) { c.ServerURL = "http://example.com" }},
		{name: "zero cooldown", mutate: func(c *Config) { c.Cooldown = 0 }},
		{name: "flash longer than cooldown", mutate: func(c *Config) { c.Flash = 2 * time.Second }},
		{name: "short ids", mutate: func(c *Config) { c.IDLength = 2 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}
