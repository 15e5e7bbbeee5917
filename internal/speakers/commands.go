package speakers

import (
	"context"
	"errors"

	"github.com/strefethen/wam-hub-go/internal/wam"
)

// ErrNotFound is returned when an id matches no registered speaker.
var ErrNotFound = errors.New("speaker not found")

// resolve maps an id (MAC or IP) to the cached speaker.
func (s *Service) resolve(id string) (Speaker, error) {
	speaker := s.Get(id)
	if speaker == nil {
		return Speaker{}, ErrNotFound
	}
	return *speaker, nil
}

// locked runs one device call under the speaker's lock so it cannot
// interleave with grouping steps or a rescan addressing the same device.
func (s *Service) locked(addr string, fn func() error) error {
	return s.locks.WithLock(addr, fn)
}

// SetVolume sets the speaker volume and updates the cache. Levels above the
// device maximum are clamped by the command layer.
func (s *Service) SetVolume(ctx context.Context, id string, level int) (*Speaker, error) {
	speaker, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	if err := s.locked(speaker.IP, func() error {
		return s.client.SetVolume(ctx, speaker.IP, level)
	}); err != nil {
		return nil, err
	}
	applied := level
	if applied > wam.VolumeMax {
		applied = wam.VolumeMax
	}
	return s.mutate(speaker.MAC, func(sp *Speaker) { sp.Volume = applied }), nil
}

// SetMute sets mute state from an "on"/"off" literal.
func (s *Service) SetMute(ctx context.Context, id, state string) (*Speaker, error) {
	speaker, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	if err := s.locked(speaker.IP, func() error {
		return s.client.SetMute(ctx, speaker.IP, state)
	}); err != nil {
		return nil, err
	}
	return s.mutate(speaker.MAC, func(sp *Speaker) { sp.Muted = state == "on" }), nil
}

// SetLED sets the front LED from an "on"/"off" literal.
func (s *Service) SetLED(ctx context.Context, id, state string) (*Speaker, error) {
	speaker, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	if err := s.locked(speaker.IP, func() error {
		return s.client.SetLED(ctx, speaker.IP, state)
	}); err != nil {
		return nil, err
	}
	return s.mutate(speaker.MAC, func(sp *Speaker) { sp.LEDOn = state == "on" }), nil
}

// Rename changes the speaker's advertised name.
func (s *Service) Rename(ctx context.Context, id, name string) (*Speaker, error) {
	speaker, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	if err := s.locked(speaker.IP, func() error {
		return s.client.SetSpeakerName(ctx, speaker.IP, name)
	}); err != nil {
		return nil, err
	}
	return s.mutate(speaker.MAC, func(sp *Speaker) { sp.Name = name }), nil
}

// SetRepeatMode sets the repeat mode (off, one, all).
func (s *Service) SetRepeatMode(ctx context.Context, id, mode string) (*Speaker, error) {
	speaker, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	if err := s.locked(speaker.IP, func() error {
		return s.client.SetRepeatMode(ctx, speaker.IP, mode)
	}); err != nil {
		return nil, err
	}
	return s.mutate(speaker.MAC, func(sp *Speaker) { sp.RepeatMode = mode }), nil
}

// SetShuffle toggles shuffle playback.
func (s *Service) SetShuffle(ctx context.Context, id string, enabled bool) error {
	speaker, err := s.resolve(id)
	if err != nil {
		return err
	}
	return s.locked(speaker.IP, func() error {
		return s.client.SetShuffle(ctx, speaker.IP, enabled)
	})
}

// PlaybackControl dispatches a transport action: play, pause, resume, next
// or previous.
func (s *Service) PlaybackControl(ctx context.Context, id, action string) error {
	speaker, err := s.resolve(id)
	if err != nil {
		return err
	}
	var call func() error
	switch action {
	case "play":
		call = func() error { return s.client.Play(ctx, speaker.IP) }
	case "pause":
		call = func() error { return s.client.Pause(ctx, speaker.IP) }
	case "resume":
		call = func() error { return s.client.Resume(ctx, speaker.IP) }
	case "next":
		call = func() error { return s.client.Next(ctx, speaker.IP) }
	case "previous":
		call = func() error { return s.client.Previous(ctx, speaker.IP) }
	default:
		return &wam.InvalidArgumentError{Field: "action", Value: action, Reason: "must be play, pause, resume, next or previous"}
	}
	return s.locked(speaker.IP, call)
}

// PlayURL streams an audio URL on the speaker.
func (s *Service) PlayURL(ctx context.Context, id, streamURL string, resume bool) error {
	speaker, err := s.resolve(id)
	if err != nil {
		return err
	}
	return s.locked(speaker.IP, func() error {
		return s.client.PlayURL(ctx, speaker.IP, streamURL, resume)
	})
}

// Seek jumps to an absolute position in the current track.
func (s *Service) Seek(ctx context.Context, id string, seconds int) error {
	speaker, err := s.resolve(id)
	if err != nil {
		return err
	}
	return s.locked(speaker.IP, func() error {
		return s.client.Seek(ctx, speaker.IP, seconds)
	})
}

// PlayTime reads the current playback position.
func (s *Service) PlayTime(ctx context.Context, id string) (wam.PlayTime, error) {
	speaker, err := s.resolve(id)
	if err != nil {
		return wam.PlayTime{}, err
	}
	var position wam.PlayTime
	err = s.locked(speaker.IP, func() error {
		var callErr error
		position, callErr = s.client.CurrentPlayTime(ctx, speaker.IP)
		return callErr
	})
	return position, err
}

// MusicInfo reads the currently loaded track metadata.
func (s *Service) MusicInfo(ctx context.Context, id string) (wam.MusicInfo, error) {
	speaker, err := s.resolve(id)
	if err != nil {
		return wam.MusicInfo{}, err
	}
	var info wam.MusicInfo
	err = s.locked(speaker.IP, func() error {
		var callErr error
		info, callErr = s.client.MusicInfo(ctx, speaker.IP)
		return callErr
	})
	return info, err
}

// RadioInfo reads the current radio state over the CPM endpoint.
func (s *Service) RadioInfo(ctx context.Context, id string) (wam.RadioInfo, error) {
	speaker, err := s.resolve(id)
	if err != nil {
		return wam.RadioInfo{}, err
	}
	var info wam.RadioInfo
	err = s.locked(speaker.IP, func() error {
		var callErr error
		info, callErr = s.client.RadioInfo(ctx, speaker.IP)
		return callErr
	})
	return info, err
}

// RadioPresets lists stored radio presets over the CPM endpoint.
func (s *Service) RadioPresets(ctx context.Context, id string, start, count int) ([]string, error) {
	speaker, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	var presets []string
	err = s.locked(speaker.IP, func() error {
		var callErr error
		presets, callErr = s.client.RadioPresetList(ctx, speaker.IP, start, count)
		return callErr
	})
	return presets, err
}

// EQPresets lists the speaker's equalizer presets.
func (s *Service) EQPresets(ctx context.Context, id string) ([]wam.EQPreset, error) {
	speaker, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	var presets []wam.EQPreset
	err = s.locked(speaker.IP, func() error {
		var callErr error
		presets, callErr = s.client.EQPresets(ctx, speaker.IP)
		return callErr
	})
	return presets, err
}

// SetEQPreset applies a named equalizer preset.
func (s *Service) SetEQPreset(ctx context.Context, id, name string) error {
	speaker, err := s.resolve(id)
	if err != nil {
		return err
	}
	return s.locked(speaker.IP, func() error {
		return s.client.Set7BandEQPresetByName(ctx, speaker.IP, name)
	})
}

// SetEQValues writes seven band gains into a preset slot.
func (s *Service) SetEQValues(ctx context.Context, id string, presetIndex int, values []int) error {
	speaker, err := s.resolve(id)
	if err != nil {
		return err
	}
	return s.locked(speaker.IP, func() error {
		return s.client.Set7BandEQValues(ctx, speaker.IP, presetIndex, values)
	})
}

// UpdateGroupName rewrites the cached group membership for a speaker. The
// group coordinator calls this after a successful grouping run.
func (s *Service) UpdateGroupName(mac, groupName string) {
	s.mutate(normalizeMAC(mac), func(sp *Speaker) { sp.GroupName = groupName })
}
