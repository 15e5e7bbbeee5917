package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"WAM_HUB_CONFIG", "HOST", "PORT", "SQLITE_DB_PATH",
		"SSDP_DISCOVERY_TIMEOUT_MS", "SSDP_DISCOVERY_PASSES", "SSDP_PASS_INTERVAL_MS",
		"WAM_DISCOVERY_BIND_IP", "RESCAN_CRON", "WAM_TIMEOUT_MS",
		"SPEAKERS_FILE", "EVENTS_ENABLED", "LOCK_TIMEOUT_MS", "STATIC_SPEAKER_IPS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Host)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, "./data/wam-hub.db", cfg.SQLiteDBPath)
	require.Equal(t, 3, cfg.SSDPDiscoveryPasses)
	require.Equal(t, 5000, cfg.WamTimeoutMs)
	require.Equal(t, 30000, cfg.LockTimeoutMs)
	require.True(t, cfg.EventsEnabled)
	require.Empty(t, cfg.RescanCronSpec)
	require.Empty(t, cfg.StaticSpeakerIPs)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("SSDP_DISCOVERY_PASSES", "1")
	t.Setenv("EVENTS_ENABLED", "false")
	t.Setenv("STATIC_SPEAKER_IPS", "192.168.1.10, 192.168.1.11,")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 1, cfg.SSDPDiscoveryPasses)
	require.False(t, cfg.EventsEnabled)
	require.Equal(t, []string{"192.168.1.10", "192.168.1.11"}, cfg.StaticSpeakerIPs)
}

func TestLoad_FileOverlayEnvWins(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "hub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: \"7070\"\nrescan_cron: \"@every 5m\"\nwam_timeout_ms: 2500\nevents_enabled: false\n"), 0o644))
	t.Setenv("WAM_HUB_CONFIG", path)
	t.Setenv("PORT", "9091")

	cfg, err := Load()
	require.NoError(t, err)
	// Env beats file; file beats default.
	require.Equal(t, "9091", cfg.Port)
	require.Equal(t, "@every 5m", cfg.RescanCronSpec)
	require.Equal(t, 2500, cfg.WamTimeoutMs)
	require.False(t, cfg.EventsEnabled)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SSDP_DISCOVERY_PASSES", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("WAM_HUB_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	require.Error(t, err)
}
