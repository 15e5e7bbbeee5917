package speakers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadLegacyFile_MissingFile(t *testing.T) {
	speakers, err := LoadLegacyFile(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	require.Empty(t, speakers)
}

func TestLoadLegacyFile_ParsesLegacyKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speakers.json")
	raw := `[
		{"IPAddress": "192.168.1.10", "MAC": "AA:BB:CC:00:00:01", "Name": "Kitchen",
		 "Volume": 14, "Mute": "off", "LED": "on", "GroupName": "Downstairs", "Repeat": "off"},
		{"IPAddress": "", "MAC": "", "Name": "ghost"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	speakers, err := LoadLegacyFile(path)
	require.NoError(t, err)
	require.Len(t, speakers, 1)
	require.Equal(t, "aa:bb:cc:00:00:01", speakers[0].MAC)
	require.Equal(t, "Kitchen", speakers[0].Name)
	require.Equal(t, 14, speakers[0].Volume)
	require.True(t, speakers[0].LEDOn)
	require.False(t, speakers[0].Muted)
	require.Equal(t, "Downstairs", speakers[0].GroupName)
}

func TestLoadLegacyFile_RejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speakers.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadLegacyFile(path)
	require.Error(t, err)
}

func TestSaveLegacyFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speakers.json")

	original := []Speaker{{
		MAC:        "aa:bb:cc:00:00:01",
		IP:         "192.168.1.10",
		Name:       "Kitchen",
		Volume:     14,
		Muted:      true,
		LEDOn:      false,
		GroupName:  "Downstairs",
		RepeatMode: "all",
	}}
	require.NoError(t, SaveLegacyFile(path, original))

	loaded, err := LoadLegacyFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, original[0].MAC, loaded[0].MAC)
	require.Equal(t, original[0].IP, loaded[0].IP)
	require.True(t, loaded[0].Muted)
	require.False(t, loaded[0].LEDOn)
	require.Equal(t, "all", loaded[0].RepeatMode)
}
