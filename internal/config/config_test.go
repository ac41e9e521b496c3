package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Pagination.MaxScrolls)
	assert.Equal(t, 20*time.Second, cfg.Timeouts.ChallengeWindow)
	assert.Equal(t, EngineChromedp, cfg.Browser.Engine)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Browser.Engine = "selenium"
	cfg.Pagination.MaxScrolls = 0
	cfg.Timeouts.Like = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser.engine")
	assert.Contains(t, err.Error(), "max_scrolls")
	assert.Contains(t, err.Error(), "timeouts.like")
}

func TestValidateRequiresDriverBounds(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Click)

	cfg.Timeouts.Click = 0
	cfg.Timeouts.Script = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeouts.click must be positive")
	assert.Contains(t, err.Error(), "timeouts.script must be positive")

	// Pauses may be zero
	cfg = Default()
	cfg.Timeouts.PostAction = 0
	cfg.Timeouts.VideoRender = 0
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = 1

[browser]
engine = "rod"
headless = true

[pagination]
max_scrolls = 9
settle = "750ms"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("TIKFOLLOW_MAX_SCROLLS", "12")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, EngineRod, cfg.Browser.Engine)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 12, cfg.Pagination.MaxScrolls)
	assert.Equal(t, 750*time.Millisecond, cfg.Pagination.Settle)
	// untouched sections keep their defaults
	assert.Equal(t, 20*time.Second, cfg.Timeouts.Follow)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Schedule.Cron = "0 */6 * * *"
	cfg.Timeouts.ChallengeWindow = 45 * time.Second

	require.NoError(t, cfg.Save(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfigPathUsesUserConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "config.toml", filepath.Base(path))
	assert.Equal(t, "tikfollow", filepath.Base(filepath.Dir(path)))
}
