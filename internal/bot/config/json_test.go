package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	path := writeTempJSON(t, dir, "flag.json", map[string]any{
		"token":              "json-token",
		"data_dir":           "/srv/atelier",
		"gallery_channel":    "showcase",
		"star_role_duration": "72h",
		"sweep_interval":     "30m",
		"daily_reward":       25,
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "json-token", cfg.Token)
		assert.Equal(t, "/srv/atelier", cfg.DataDir)
		assert.Equal(t, "showcase", cfg.GalleryChannelName)
		assert.Equal(t, 72*time.Hour, cfg.StarRoleDuration)
		assert.Equal(t, 30*time.Minute, cfg.SweepInterval)
		assert.Equal(t, 25, cfg.DailyReward)
	})

	t.Run("fields absent from json keep their defaults", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "✅", cfg.ProcessedEmoji)
		assert.Equal(t, "Star of the Week", cfg.StarRoleName)
		assert.Equal(t, 10, cfg.StarRoleCost)
		assert.Equal(t, "currency_data.json", cfg.LedgerFile)
	})

	t.Run("no config flag means no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{GalleryChannelName: "kept"}
		parseJson(cfg)

		assert.Equal(t, "kept", cfg.GalleryChannelName)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
