package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadFrom_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, info, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.False(t, info.PortSpecified)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFrom_TomlAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", `
[server]
port = 8088
log_env = "production"

[import]
default_category = "Máy may công nghiệp"
max_rows = 100
`)
	t.Setenv(EnvDataDir, "/var/lib/tpm")

	cfg, info, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.True(t, info.PortSpecified)
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.LogEnv)
	assert.Equal(t, "Máy may công nghiệp", cfg.Import.DefaultCategory)
	assert.Equal(t, 100, cfg.Import.MaxRows)
	// 未出现在文件里的字段保留默认值
	assert.Equal(t, 10, cfg.Import.MaxFileMB)
	assert.Equal(t, "/var/lib/tpm", cfg.Data.DataDir)
}

func TestLoadFrom_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "TPM_PORT=9099\nTPM_DEFAULT_CATEGORY=Khác\n")
	t.Cleanup(func() {
		_ = os.Unsetenv(EnvPort)
		_ = os.Unsetenv(EnvDefaultCategory)
	})

	cfg, info, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.True(t, info.PortSpecified)
	assert.Equal(t, 9099, cfg.Server.Port)
	assert.Equal(t, "Khác", cfg.Import.DefaultCategory)
}

func TestLoadFrom_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", "[listing]\ndefault_limit = 50\nmax_limit = 10\n")

	_, _, err := LoadFrom(dir)
	require.Error(t, err)
}

func TestEnsureDataDir(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	cfg := DefaultConfig()

	dir, err := EnsureDataDir(base, cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "data"), dir)
	assert.DirExists(t, filepath.Join(dir, "exports"))
}
