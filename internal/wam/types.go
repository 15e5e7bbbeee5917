package wam

// MusicInfo describes the currently loaded track (GetMusicInfo).
type MusicInfo struct {
	Title      string
	Artist     string
	Album      string
	TimeLength string
	PlayStatus string
	Thumbnail  string
}

// MainInfo is the device's group/identity snapshot (GetMainInfo). The
// speaker MAC reported here is the protocol-level identity used for
// grouping, independent of the IP which may change.
type MainInfo struct {
	SpeakerMAC   string
	GroupType    string
	GroupMainIP  string
	GroupMainMAC string
	ChannelType  string
	BTMAC        string
}

// APInfo is the access-point association snapshot (GetApInfo).
type APInfo struct {
	SSID    string
	MAC     string
	RSSI    string
	Channel string
}

// PlayTime is the playback position snapshot (GetCurrentPlayTime).
type PlayTime struct {
	TimeLength int
	PlayTime   int
}

// EQPreset is one entry from Get7BandEQList.
type EQPreset struct {
	Index int
	Name  string
}

// RadioInfo is the current radio/content-provider state (CPM GetRadioInfo).
type RadioInfo struct {
	CPName      string
	Title       string
	Description string
	PlayStatus  string
}

// SubSpeaker identifies one sub member in a SetMultispkGroup payload.
type SubSpeaker struct {
	IP  string
	MAC string
}

// GroupPayload is the single command that encodes multiple speakers'
// identities into one request. It is sent to the main speaker only; subs
// adopt membership through the vendor's own speaker-to-speaker protocol.
type GroupPayload struct {
	Name     string
	MainMAC  string
	MainName string
	Subs     []SubSpeaker
}
