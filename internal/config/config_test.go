package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dashboard.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadDashboardConfig(t *testing.T) {
	t.Parallel()

	t.Run("full config", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{
			"listen": ":9090",
			"db_path": "/tmp/laps.db",
			"units": "mph",
			"team_colors": {"Ferrari": "#FF0000"}
		}`)

		cfg, err := LoadDashboardConfig(path)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.GetListen())
		assert.Equal(t, "/tmp/laps.db", cfg.GetDBPath())
		assert.Equal(t, "mph", cfg.GetUnits())
		assert.Equal(t, "#FF0000", cfg.TeamColors["Ferrari"])
	})

	t.Run("partial config keeps defaults", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{"listen": ":3000"}`)

		cfg, err := LoadDashboardConfig(path)
		require.NoError(t, err)
		assert.Equal(t, ":3000", cfg.GetListen())
		assert.Equal(t, "session_data.db", cfg.GetDBPath())
		assert.Equal(t, "kph", cfg.GetUnits())
	})

	t.Run("rejects non-json extension", func(t *testing.T) {
		t.Parallel()
		_, err := LoadDashboardConfig("dashboard.yaml")
		assert.Error(t, err)
	})

	t.Run("rejects invalid units", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{"units": "furlongs"}`)
		_, err := LoadDashboardConfig(path)
		assert.ErrorContains(t, err, "invalid units")
	})

	t.Run("rejects malformed colour", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{"team_colors": {"Ferrari": "red"}}`)
		_, err := LoadDashboardConfig(path)
		assert.ErrorContains(t, err, "hex")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadDashboardConfig(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg := EmptyDashboardConfig()
	assert.Equal(t, ":8080", cfg.GetListen())
	assert.Equal(t, "session_data.db", cfg.GetDBPath())
	assert.Equal(t, "kph", cfg.GetUnits())
	assert.NoError(t, cfg.Validate())
}
