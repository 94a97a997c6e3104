package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, "720p", cfg.Resolution)
	assert.Equal(t, "/tmp/elgato_gchd.ts", cfg.FifoPath)
	assert.Equal(t, "/usr/lib/firmware/gchd", cfg.FirmwareDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0x4000, cfg.ChunkSize)

	// The default file was written out.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestNewManagerLoadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resolution: c1080i\nfifo_path: /run/gchd.ts\n"), 0644))

	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, "c1080i", cfg.Resolution)
	assert.Equal(t, "/run/gchd.ts", cfg.FifoPath)

	// Unset fields fall back to defaults.
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0x4000, cfg.ChunkSize)
}

func TestNewManagerRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resolution: [unclosed"), 0644))

	_, err := NewManager(path)
	assert.Error(t, err)
}

func TestOverridesStickForTheRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	m, err := NewManager(path)
	require.NoError(t, err)

	m.SetResolution("1080p")
	m.SetFifoPath("/tmp/other.ts")
	m.SetFirmwareDir("/opt/fw")
	m.SetLogLevel("debug")

	cfg := m.Get()
	assert.Equal(t, "1080p", cfg.Resolution)
	assert.Equal(t, "/tmp/other.ts", cfg.FifoPath)
	assert.Equal(t, "/opt/fw", cfg.FirmwareDir)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestSaveRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	m, err := NewManager(path)
	require.NoError(t, err)
	m.SetResolution("c720p")
	require.NoError(t, m.Save())

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, "c720p", reloaded.Get().Resolution)
}
