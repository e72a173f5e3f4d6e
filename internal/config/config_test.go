package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindows(t *testing.T) {
	t.Run("empty falls back to defaults", func(t *testing.T) {
		windows, err := parseWindows("")
		require.NoError(t, err)
		assert.Nil(t, windows)
	})

	t.Run("parses entries", func(t *testing.T) {
		windows, err := parseWindows("US=America/New_York@20:30, br=America/Sao_Paulo@21:00")
		require.NoError(t, err)
		require.Len(t, windows, 2)

		assert.Equal(t, CountryWindow{Country: "US", Timezone: "America/New_York", Hour: 20, Minute: 30}, windows[0])
		assert.Equal(t, CountryWindow{Country: "BR", Timezone: "America/Sao_Paulo", Hour: 21, Minute: 0}, windows[1])
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		for _, raw := range []string{
			"US-America/New_York@20:30",
			"US=America/New_York",
			"US=America/New_York@2030",
			"US=America/New_York@25:00",
			"US=America/New_York@20:75",
		} {
			_, err := parseWindows(raw)
			assert.Error(t, err, "input %q", raw)
		}
	})
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/engage")
	t.Setenv("NOTIFY_WINDOWS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.APIPort)
	assert.Equal(t, "*/30 * * * *", cfg.CronSpec)
	assert.True(t, cfg.SchedulerEnabled)
	assert.Equal(t, 4, cfg.DispatchWorkers)
	assert.Equal(t, defaultWindows, cfg.NotifyWindows)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/engage")
	t.Setenv("NOTIFY_WINDOWS", "JP=Asia/Tokyo@19:00")
	t.Setenv("DISPATCH_WORKERS", "16")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.NotifyWindows, 1)
	assert.Equal(t, "JP", cfg.NotifyWindows[0].Country)
	assert.Equal(t, 16, cfg.DispatchWorkers)
	assert.False(t, cfg.SchedulerEnabled)
}
