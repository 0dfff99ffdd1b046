package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	t.Setenv("DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("SOCKET_PATH", filepath.Join(t.TempDir(), "cortex.sock"))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 50_000, cfg.MaxNodes)
	assert.Equal(t, 30_000, cfg.TimeoutMS)
	assert.True(t, cfg.RespectRobots)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("SOCKET_PATH", filepath.Join(t.TempDir(), "cortex.sock"))

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, 50_000, cfg.MaxNodes)
}

func TestLoadYAMLFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cortex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_nodes: 1234\ntimeout_ms: 5000\n"), 0o644))
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("SOCKET_PATH", filepath.Join(dir, "cortex.sock"))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1234, cfg.MaxNodes)
	assert.Equal(t, 5000, cfg.TimeoutMS)
}

func TestEnvVarOverridesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cortex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_nodes: 1234\n"), 0o644))
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("SOCKET_PATH", filepath.Join(dir, "cortex.sock"))
	t.Setenv("MAX_NODES", "777")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 777, cfg.MaxNodes)
}

func TestLoadRejectsUnknownYAMLFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cortex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not_a_real_field: 1\n"), 0o644))
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("SOCKET_PATH", filepath.Join(dir, "cortex.sock"))

	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveMaxNodes(t *testing.T) {
	t.Setenv("DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("SOCKET_PATH", filepath.Join(t.TempDir(), "cortex.sock"))
	t.Setenv("MAX_NODES", "-5")

	cfg, err := Load("", nil)
	require.NoError(t, err) // negative env override is ignored, default retained
	assert.Equal(t, 50_000, cfg.MaxNodes)
}

func TestRespectRobotsEnvOverrideFalse(t *testing.T) {
	t.Setenv("DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("SOCKET_PATH", filepath.Join(t.TempDir(), "cortex.sock"))
	t.Setenv("RESPECT_ROBOTS", "false")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.False(t, cfg.RespectRobots)
}

func TestDisableSSRFProtectionEnvOverride(t *testing.T) {
	t.Setenv("DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("SOCKET_PATH", filepath.Join(t.TempDir(), "cortex.sock"))
	t.Setenv("DISABLE_SSRF_PROTECTION", "true")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.True(t, cfg.DisableSSRFProtection)
}

func TestInsecureSkipVerifyEnvOverride(t *testing.T) {
	t.Setenv("DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("SOCKET_PATH", filepath.Join(t.TempDir(), "cortex.sock"))
	t.Setenv("INSECURE_SKIP_VERIFY", "true")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.True(t, cfg.InsecureSkipVerify)
}

func TestSocketPathFallsBackWhenDirUnwritable(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DATA_DIR", filepath.Join(t.TempDir(), "data"))

	roDir := filepath.Join(t.TempDir(), "readonly")
	require.NoError(t, os.MkdirAll(roDir, 0o555))
	t.Setenv("SOCKET_PATH", filepath.Join(roDir, "nested", "cortex.sock"))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".cortex", "cortex.sock"), cfg.SocketPath)
}
