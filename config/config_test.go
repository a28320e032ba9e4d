package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 20, cfg.Dungeon.Width)
	assert.Equal(t, 7, cfg.Dungeon.RoomCount)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DUNGEON_ADDR", ":9090")
	t.Setenv("DUNGEON_WIDTH", "30")
	t.Setenv("DUNGEON_ROOMS", "4")
	t.Setenv("DUNGEON_TICK_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 30, cfg.Dungeon.Width)
	assert.Equal(t, 20, cfg.Dungeon.Height)
	assert.Equal(t, 4, cfg.Dungeon.RoomCount)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DUNGEON_HEIGHT=25\n"), 0o644))
	// godotenv 不会覆盖已存在的变量；t.Setenv 结束后会恢复
	t.Setenv("DUNGEON_HEIGHT", "")
	require.NoError(t, os.Unsetenv("DUNGEON_HEIGHT"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Dungeon.Height)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "dungeon.yaml")
	body := `
addr: ":7000"
log_level: info
tick_interval: 200ms
dungeon:
  width: 40
  height: 30
  room_count: 10
  avg_room_size: 6
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("DUNGEON_CONFIG", path)
	t.Setenv("DUNGEON_ROOM_SIZE", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 200*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 40, cfg.Dungeon.Width)
	assert.Equal(t, 30, cfg.Dungeon.Height)
	assert.Equal(t, 10, cfg.Dungeon.RoomCount)
	assert.Equal(t, 5, cfg.Dungeon.AvgRoomSize, "env wins over file")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non-integer width", map[string]string{"DUNGEON_WIDTH": "wide"}},
		{"invalid dungeon", map[string]string{"DUNGEON_ROOMS": "0"}},
		{"missing config file", map[string]string{"DUNGEON_CONFIG": "does-not-exist.yaml"}},
		{"empty addr", map[string]string{"DUNGEON_ADDR": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
