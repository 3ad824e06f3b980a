package dconfig

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, uint(13), cfg.ChunkerNBits)
	assert.Equal(t, "", cfg.StorePath)
}

func TestLoadWithEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(os.TempDir(), "dhstore-does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "dhstore-dconfig-")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.toml")
	body := "log_level = \"debug\"\nchunker_nbits = 16\n"
	require.NoError(t, ioutil.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint(16), cfg.ChunkerNBits)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "dhstore-dconfig-bad-")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, ioutil.WriteFile(path, []byte("this is not toml = = ="), 0o644))

	_, err = Load(path)
	assert.Error(t, err)
}
