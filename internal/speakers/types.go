package speakers

import (
	"strings"
	"time"

	"github.com/strefethen/wam-hub-go/internal/discovery"
)

// Speaker is the hub's view of one WAM device. MAC is the stable identity;
// the IP can change between scans.
type Speaker struct {
	MAC        string    `json:"mac"`
	IP         string    `json:"ip"`
	Name       string    `json:"name"`
	Volume     int       `json:"volume"`
	Muted      bool      `json:"muted"`
	LEDOn      bool      `json:"led_on"`
	GroupName  string    `json:"group_name"`
	RepeatMode string    `json:"repeat_mode"`
	APSSID     string    `json:"ap_ssid"`
	Hydrated   bool      `json:"hydrated"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Grouped reports whether the speaker currently belongs to a group.
func (s Speaker) Grouped() bool {
	return s.GroupName != ""
}

func normalizeMAC(mac string) string {
	return strings.ToLower(strings.TrimSpace(mac))
}

// fromSnapshot converts a discovery snapshot into a Speaker. The device
// reports mute and LED as "on"/"off" literals.
func fromSnapshot(snap discovery.Snapshot) Speaker {
	return Speaker{
		MAC:        normalizeMAC(snap.MAC),
		IP:         snap.IP,
		Name:       snap.Name,
		Volume:     snap.Volume,
		Muted:      snap.Mute == "on",
		LEDOn:      snap.LED == "on",
		GroupName:  snap.GroupName,
		RepeatMode: snap.Repeat,
		APSSID:     snap.APSSID,
		Hydrated:   snap.Hydrated,
		LastSeenAt: snap.DiscoveredAt,
	}
}
