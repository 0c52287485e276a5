package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataBaseDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvScribeDataDir, dir)

	assert.Equal(t, filepath.Clean(dir), DataBaseDir())
}

func TestDataBaseDirDefaultsUnderHome(t *testing.T) {
	t.Setenv(EnvScribeDataDir, "")
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, ".scribe", "sessions"), DataBaseDir())
}

func TestLogsBaseDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvScribeLogDir, dir)

	assert.Equal(t, filepath.Clean(dir), LogsBaseDir())
}

func TestSessionDirJoinsSessionID(t *testing.T) {
	base := t.TempDir()
	t.Setenv(EnvScribeDataDir, base)

	got := SessionDir("conv-01")
	require.Equal(t, filepath.Join(base, "conv-01"), got)

	assert.Equal(t, filepath.Clean(base), SessionDir("  "))
}

func TestExpandHomePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, home, expandHomePath("~"))
	assert.Equal(t, filepath.Join(home, "data"), expandHomePath("~/data"))
	assert.Equal(t, "/var/data", expandHomePath("/var/data"))
}
