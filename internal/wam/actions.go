package wam

import (
	"context"
	"sort"
	"strconv"
)

const (
	// VolumeMax is the device-enforced ceiling. Values above are clamped
	// before transmission; negative values are rejected.
	VolumeMax = 30

	unknownMAC = "00:00:00:00:00:00"
)

// eqPresetIndexes maps the fixed preset names to device indexes. Indexes 4
// and 5 are the two custom slots.
var eqPresetIndexes = map[string]int{
	"none":    0,
	"pop":     1,
	"jazz":    2,
	"classic": 3,
	"custom1": 4,
	"custom2": 5,
}

// Speaker identity and naming

func (c *Client) SpeakerName(ctx context.Context, addr string) (string, error) {
	resp, err := c.Execute(ctx, addr, EndpointUIC, Cmd("GetSpkName"))
	if err != nil {
		return "", err
	}
	return resp.Require("spkname")
}

func (c *Client) SetSpeakerName(ctx context.Context, addr, name string) error {
	if name == "" {
		return &InvalidArgumentError{Field: "name", Value: name, Reason: "must not be empty"}
	}
	_, err := c.Execute(ctx, addr, EndpointUIC, Cmd("SetSpkName").CData("spkname", name))
	return err
}

// MainInfo returns the device's identity/group snapshot, including the MAC
// address used as grouping identity.
func (c *Client) MainInfo(ctx context.Context, addr string) (MainInfo, error) {
	resp, err := c.Execute(ctx, addr, EndpointUIC, Cmd("GetMainInfo"))
	if err != nil {
		return MainInfo{}, err
	}
	return MainInfo{
		SpeakerMAC:   resp.Field("spkmacaddr"),
		GroupType:    resp.Field("grouptype"),
		GroupMainIP:  resp.Field("groupmainip"),
		GroupMainMAC: resp.Field("groupmainmacaddr"),
		ChannelType:  resp.Field("channeltype"),
		BTMAC:        resp.Field("btmacaddr"),
	}, nil
}

// Volume

func (c *Client) Volume(ctx context.Context, addr string) (int, error) {
	resp, err := c.Execute(ctx, addr, EndpointUIC, Cmd("GetVolume"))
	if err != nil {
		return 0, err
	}
	return resp.RequireInt("volume")
}

// SetVolume clamps level to the device range before sending. Negative
// levels are rejected client-side.
func (c *Client) SetVolume(ctx context.Context, addr string, level int) error {
	if level < 0 {
		return &InvalidArgumentError{Field: "volume", Value: strconv.Itoa(level), Reason: "must not be negative"}
	}
	if level > VolumeMax {
		level = VolumeMax
	}
	_, err := c.Execute(ctx, addr, EndpointUIC, Cmd("SetVolume").Dec("volume", level))
	return err
}

// Mute and LED accept only the literal values "on"/"off", validated before
// any network call.

func (c *Client) Mute(ctx context.Context, addr string) (string, error) {
	resp, err := c.Execute(ctx, addr, EndpointUIC, Cmd("GetMute"))
	if err != nil {
		return "", err
	}
	return resp.Require("mute")
}

func (c *Client) SetMute(ctx context.Context, addr, state string) error {
	if err := validateOnOff("mute", state); err != nil {
		return err
	}
	_, err := c.Execute(ctx, addr, EndpointUIC, Cmd("SetMute").Str("mute", state))
	return err
}

func (c *Client) LED(ctx context.Context, addr string) (string, error) {
	resp, err := c.Execute(ctx, addr, EndpointUIC, Cmd("GetLed"))
	if err != nil {
		return "", err
	}
	return resp.Require("led")
}

func (c *Client) SetLED(ctx context.Context, addr, state string) error {
	if err := validateOnOff("led", state); err != nil {
		return err
	}
	_, err := c.Execute(ctx, addr, EndpointUIC, Cmd("SetLed").Str("option", state))
	return err
}

// Playback. Each control maps to SetPlaybackControl with a different
// literal; there is no toggle, callers track intent.

func (c *Client) Play(ctx context.Context, addr string) error {
	return c.setPlaybackControl(ctx, addr, "play")
}

func (c *Client) Pause(ctx context.Context, addr string) error {
	return c.setPlaybackControl(ctx, addr, "pause")
}

func (c *Client) Resume(ctx context.Context, addr string) error {
	return c.setPlaybackControl(ctx, addr, "resume")
}

func (c *Client) Next(ctx context.Context, addr string) error {
	return c.setPlaybackControl(ctx, addr, "next")
}

func (c *Client) Previous(ctx context.Context, addr string) error {
	return c.setPlaybackControl(ctx, addr, "previous")
}

func (c *Client) setPlaybackControl(ctx context.Context, addr, control string) error {
	_, err := c.Execute(ctx, addr, EndpointUIC, Cmd("SetPlaybackControl").Str("playbackcontrol", control))
	return err
}

// Repeat and shuffle

func (c *Client) RepeatMode(ctx context.Context, addr string) (string, error) {
	resp, err := c.Execute(ctx, addr, EndpointUIC, Cmd("GetRepeatMode"))
	if err != nil {
		return "", err
	}
	return resp.Require("repeat")
}

func (c *Client) SetRepeatMode(ctx context.Context, addr, mode string) error {
	switch mode {
	case "off", "one", "all":
	default:
		return &InvalidArgumentError{Field: "repeat", Value: mode, Reason: "must be off, one or all"}
	}
	_, err := c.Execute(ctx, addr, EndpointUIC, Cmd("SetRepeatMode").Str("repeatmode", mode))
	return err
}

func (c *Client) SetShuffle(ctx context.Context, addr string, enabled bool) error {
	mode := "off"
	if enabled {
		mode = "on"
	}
	_, err := c.Execute(ctx, addr, EndpointUIC, Cmd("SetShuffleMode").Str("shufflemode", mode))
	return err
}

// URL playback. No reachability validation here; failures surface only if
// the device rejects the stream.

func (c *Client) PlayURL(ctx context.Context, addr, streamURL string, resume bool) error {
	if streamURL == "" {
		return &InvalidArgumentError{Field: "url", Value: streamURL, Reason: "must not be empty"}
	}
	resumeFlag := 0
	if resume {
		resumeFlag = 1
	}
	cmd := Cmd("SetUrlPlayback").
		CData("url", streamURL).
		Dec("buffersize", 0).
		Dec("seektime", 0).
		Dec("resume", resumeFlag)
	_, err := c.Execute(ctx, addr, EndpointUIC, cmd)
	return err
}

// Position

func (c *Client) CurrentPlayTime(ctx context.Context, addr string) (PlayTime, error) {
	resp, err := c.Execute(ctx, addr, EndpointUIC, Cmd("GetCurrentPlayTime"))
	if err != nil {
		return PlayTime{}, err
	}
	length, _ := strconv.Atoi(resp.Field("timelength"))
	position, err := resp.RequireInt("playtime")
	if err != nil {
		return PlayTime{}, err
	}
	return PlayTime{TimeLength: length, PlayTime: position}, nil
}

func (c *Client) Seek(ctx context.Context, addr string, seconds int) error {
	if seconds < 0 {
		return &InvalidArgumentError{Field: "playtime", Value: strconv.Itoa(seconds), Reason: "must not be negative"}
	}
	_, err := c.Execute(ctx, addr, EndpointUIC, Cmd("SetSearchTime").Dec("playtime", seconds))
	return err
}

// Metadata

func (c *Client) MusicInfo(ctx context.Context, addr string) (MusicInfo, error) {
	resp, err := c.Execute(ctx, addr, EndpointUIC, Cmd("GetMusicInfo"))
	if err != nil {
		return MusicInfo{}, err
	}
	return MusicInfo{
		Title:      resp.Field("title"),
		Artist:     resp.Field("artist"),
		Album:      resp.Field("album"),
		TimeLength: resp.Field("timelength"),
		PlayStatus: resp.Field("playstatus"),
		Thumbnail:  resp.Field("thumbnail"),
	}, nil
}

func (c *Client) APInfo(ctx context.Context, addr string) (APInfo, error) {
	resp, err := c.Execute(ctx, addr, EndpointUIC, Cmd("GetApInfo"))
	if err != nil {
		return APInfo{}, err
	}
	return APInfo{
		SSID:    resp.Field("ssid"),
		MAC:     resp.Field("mac"),
		RSSI:    resp.Field("rssi"),
		Channel: resp.Field("ch"),
	}, nil
}

// EQ

func (c *Client) EQMode(ctx context.Context, addr string) (string, error) {
	resp, err := c.Execute(ctx, addr, EndpointUIC, Cmd("GetEQMode"))
	if err != nil {
		return "", err
	}
	return resp.Require("eqmode")
}

func (c *Client) SetEQMode(ctx context.Context, addr, mode string) error {
	_, err := c.Execute(ctx, addr, EndpointUIC, Cmd("SetEQMode").Str("eqmode", mode))
	return err
}

// EQPresetNames returns the recognized preset names in index order.
func EQPresetNames() []string {
	names := make([]string, 0, len(eqPresetIndexes))
	for name := range eqPresetIndexes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return eqPresetIndexes[names[i]] < eqPresetIndexes[names[j]]
	})
	return names
}

// EQPresetIndex resolves a preset name to its device index. Unknown names
// are rejected rather than defaulting to 0.
func EQPresetIndex(name string) (int, error) {
	idx, ok := eqPresetIndexes[normalizePresetName(name)]
	if !ok {
		return 0, &InvalidArgumentError{Field: "preset", Value: name, Reason: "unknown EQ preset name"}
	}
	return idx, nil
}

func (c *Client) EQPresets(ctx context.Context, addr string) ([]EQPreset, error) {
	resp, err := c.Execute(ctx, addr, EndpointUIC, Cmd("Get7BandEQList"))
	if err != nil {
		return nil, err
	}
	return parseEQPresets(resp.Raw()), nil
}

func (c *Client) Set7BandEQPreset(ctx context.Context, addr string, index int) error {
	if index < 0 {
		return &InvalidArgumentError{Field: "presetindex", Value: strconv.Itoa(index), Reason: "must not be negative"}
	}
	_, err := c.Execute(ctx, addr, EndpointUIC, Cmd("Set7bandEQMode").Dec("presetindex", index))
	return err
}

// Set7BandEQPresetByName resolves the name table first; the lookup failure
// happens before any network call.
func (c *Client) Set7BandEQPresetByName(ctx context.Context, addr, name string) error {
	index, err := EQPresetIndex(name)
	if err != nil {
		return err
	}
	return c.Set7BandEQPreset(ctx, addr, index)
}

// Set7BandEQValues sets custom band values on a preset slot. The protocol
// has no partial form: exactly 7 values are required.
func (c *Client) Set7BandEQValues(ctx context.Context, addr string, presetIndex int, values []int) error {
	if len(values) != 7 {
		return &InvalidArgumentError{
			Field:  "eqvalues",
			Value:  strconv.Itoa(len(values)),
			Reason: "exactly 7 band values required",
		}
	}
	cmd := Cmd("Set7bandEQValue").Dec("presetindex", presetIndex)
	for i, v := range values {
		cmd = cmd.Dec("eqvalue"+strconv.Itoa(i+1), v)
	}
	_, err := c.Execute(ctx, addr, EndpointUIC, cmd)
	return err
}

func (c *Client) AddCustomEQPreset(ctx context.Context, addr string, index int, name string) error {
	if name == "" {
		return &InvalidArgumentError{Field: "presetname", Value: name, Reason: "must not be empty"}
	}
	cmd := Cmd("AddCustomEQMode").Dec("presetindex", index).Str("presetname", name)
	_, err := c.Execute(ctx, addr, EndpointUIC, cmd)
	return err
}

func (c *Client) RemoveCustomEQPreset(ctx context.Context, addr string, index int) error {
	_, err := c.Execute(ctx, addr, EndpointUIC, Cmd("DelCustomEQMode").Dec("presetindex", index))
	return err
}

// Grouping primitives. The coordinator in internal/groups sequences these.

func (c *Client) GroupName(ctx context.Context, addr string) (string, error) {
	resp, err := c.Execute(ctx, addr, EndpointUIC, Cmd("GetGroupName"))
	if err != nil {
		return "", err
	}
	// Empty group name means ungrouped; not an error.
	return resp.Field("groupname"), nil
}

// Ungroup removes the speaker from any group. Issuing it against an
// already-ungrouped speaker succeeds and leaves it ungrouped.
func (c *Client) Ungroup(ctx context.Context, addr string) error {
	_, err := c.Execute(ctx, addr, EndpointUIC, Cmd("SetUngroup"))
	return err
}

// CreateMultispeakerGroup sends the grouping broadcast to the main speaker.
// Sub speakers are never contacted directly; they adopt membership through
// the vendor's own speaker-to-speaker protocol.
func (c *Client) CreateMultispeakerGroup(ctx context.Context, mainAddr string, payload GroupPayload) error {
	if payload.Name == "" {
		return &InvalidArgumentError{Field: "name", Value: payload.Name, Reason: "group name must not be empty"}
	}

	cmd := Cmd("SetMultispkGroup").
		CData("name", payload.Name).
		Dec("index", 1).
		Str("type", "main").
		Dec("spknum", len(payload.Subs)+1).
		Str("audiosourcemacaddr", orUnknownMAC(payload.MainMAC)).
		CData("audiosourcename", payload.MainName).
		Str("audiosourcetype", "speaker")

	for _, sub := range payload.Subs {
		cmd = cmd.Str("subspkip", sub.IP).Str("subspkmacaddr", orUnknownMAC(sub.MAC))
	}

	_, err := c.Execute(ctx, mainAddr, EndpointUIC, cmd)
	return err
}

// CPM commands (content-provider family)

func (c *Client) RadioInfo(ctx context.Context, addr string) (RadioInfo, error) {
	resp, err := c.Execute(ctx, addr, EndpointCPM, Cmd("GetRadioInfo"))
	if err != nil {
		return RadioInfo{}, err
	}
	return RadioInfo{
		CPName:      resp.Field("cpname"),
		Title:       resp.Field("title"),
		Description: resp.Field("description"),
		PlayStatus:  resp.Field("playstatus"),
	}, nil
}

func (c *Client) RadioPresetList(ctx context.Context, addr string, start, count int) ([]string, error) {
	if count <= 0 {
		return nil, &InvalidArgumentError{Field: "listcount", Value: strconv.Itoa(count), Reason: "must be positive"}
	}
	cmd := Cmd("GetPresetList").Dec("startindex", start).Dec("listcount", count)
	resp, err := c.Execute(ctx, addr, EndpointCPM, cmd)
	if err != nil {
		return nil, err
	}
	return parsePresetTitles(resp.Raw()), nil
}

func validateOnOff(field, state string) error {
	if state != "on" && state != "off" {
		return &InvalidArgumentError{Field: field, Value: state, Reason: "must be on or off"}
	}
	return nil
}

func orUnknownMAC(mac string) string {
	if mac == "" {
		return unknownMAC
	}
	return mac
}

func normalizePresetName(name string) string {
	b := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		if ch == ' ' {
			continue
		}
		b = append(b, ch)
	}
	return string(b)
}
