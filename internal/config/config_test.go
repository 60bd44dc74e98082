package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("full file", func(t *testing.T) {
		path := writeConfig(t, `
gpu:
  backend: noop
  fenceTimeout: 2s
  nfc: true
kernel:
  path: /etc/trscan/turkish_preprocess.wgsl
logger:
  verbosity: debug
server:
  listenAddr: 127.0.0.1:9000
  maxBodyBytes: 1024
`)
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "noop", cfg.GPU.Backend)
		assert.Equal(t, 2*time.Second, cfg.GPU.FenceTimeout)
		assert.True(t, cfg.GPU.NFC)
		assert.Equal(t, "/etc/trscan/turkish_preprocess.wgsl", cfg.Kernel.Path)
		assert.Equal(t, "debug", cfg.Logger.Verbosity)
		assert.Equal(t, "127.0.0.1:9000", cfg.Server.ListenAddr)
		assert.Equal(t, int64(1024), cfg.Server.MaxBodyBytes)
	})

	t.Run("partial file gets defaults", func(t *testing.T) {
		path := writeConfig(t, "logger:\n  verbosity: warn\n")
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.Logger.Verbosity)
		assert.Equal(t, DefaultBackend, cfg.GPU.Backend)
		assert.Equal(t, DefaultFenceTimeout, cfg.GPU.FenceTimeout)
		assert.Equal(t, DefaultListenAddr, cfg.Server.ListenAddr)
		assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.Server.MaxBodyBytes)
		assert.Empty(t, cfg.Kernel.Path)
	})

	t.Run("empty path", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("missing file", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.Nil(t, cfg)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "gpu: [unterminated\n")
		_, err := LoadConfig(path)
		require.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		path := writeConfig(t, "gpu:\n  fenceTimeout: soon\n")
		_, err := LoadConfig(path)
		require.Error(t, err)
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "vulkan", cfg.GPU.Backend)
	assert.Equal(t, 5*time.Second, cfg.GPU.FenceTimeout)
	assert.False(t, cfg.GPU.NFC)
	assert.Equal(t, "info", cfg.Logger.Verbosity)
}
