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
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, DefaultStoragePath, c.Storage.Path)
	assert.Equal(t, "local", c.API.Mode)
	assert.Equal(t, 10*time.Second, c.API.Timeout)
	assert.Equal(t, "http://localhost:3000/api", c.API.BaseURL)
	assert.Equal(t, ModeDebug, c.Mode)
}

func TestLoad_FileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
port: "8088"
storage:
  driver: SQLite
  path: /tmp/fv.db
api:
  mode: remote
  timeout: 3s
`)
	require.NoError(t, os.WriteFile(file, content, 0o600))

	t.Setenv("FUNDVERSE_API_BASE_URL", "http://api.example.test")

	c, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "8088", c.Port)
	assert.Equal(t, "sqlite", c.Storage.Driver)
	assert.Equal(t, "/tmp/fv.db", c.Storage.Path)
	assert.Equal(t, "remote", c.API.Mode)
	assert.Equal(t, 3*time.Second, c.API.Timeout)
	assert.Equal(t, "http://api.example.test", c.API.BaseURL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestGet_FallsBackToDefault(t *testing.T) {
	Set(nil)
	t.Cleanup(func() { Set(nil) })
	require.NotNil(t, Get())
	assert.Equal(t, "memory", Get().Storage.Driver)
}
