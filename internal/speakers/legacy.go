package speakers

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// legacyRecord is the on-disk speaker entry written by earlier tooling.
// The key casing is preserved so existing files keep working.
type legacyRecord struct {
	IPAddress string `json:"IPAddress"`
	MAC       string `json:"MAC"`
	Name      string `json:"Name"`
	Volume    int    `json:"Volume"`
	Mute      string `json:"Mute"`
	LED       string `json:"LED"`
	GroupName string `json:"GroupName"`
	Repeat    string `json:"Repeat"`
	APSSID    string `json:"APSSID,omitempty"`
}

// LoadLegacyFile reads speakers from a legacy JSON file. A missing file is
// not an error; it returns an empty slice.
func LoadLegacyFile(path string) ([]Speaker, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Speaker{}, nil
		}
		return nil, fmt.Errorf("read speakers file %s: %w", path, err)
	}

	var records []legacyRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse speakers file %s: %w", path, err)
	}

	speakers := make([]Speaker, 0, len(records))
	for _, rec := range records {
		if rec.IPAddress == "" && rec.MAC == "" {
			continue
		}
		speakers = append(speakers, Speaker{
			MAC:        normalizeMAC(rec.MAC),
			IP:         rec.IPAddress,
			Name:       rec.Name,
			Volume:     rec.Volume,
			Muted:      rec.Mute == "on",
			LEDOn:      rec.LED == "on",
			GroupName:  rec.GroupName,
			RepeatMode: rec.Repeat,
			APSSID:     rec.APSSID,
		})
	}
	return speakers, nil
}

// SaveLegacyFile writes the registry in the legacy JSON layout.
func SaveLegacyFile(path string, speakers []Speaker) error {
	records := make([]legacyRecord, 0, len(speakers))
	for _, speaker := range speakers {
		records = append(records, legacyRecord{
			IPAddress: speaker.IP,
			MAC:       speaker.MAC,
			Name:      speaker.Name,
			Volume:    speaker.Volume,
			Mute:      onOff(speaker.Muted),
			LED:       onOff(speaker.LEDOn),
			GroupName: speaker.GroupName,
			Repeat:    speaker.RepeatMode,
			APSSID:    speaker.APSSID,
		})
	}

	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.tmp-%d", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
