package speakers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/strefethen/wam-hub-go/internal/api"
	"github.com/strefethen/wam-hub-go/internal/apperrors"
	"github.com/strefethen/wam-hub-go/internal/wam"
)

func rfc3339Millis(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// RegisterRoutes wires speaker routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodGet, "/v1/speakers", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		speakers := service.List()
		formatted := make([]map[string]any, 0, len(speakers))
		for _, speaker := range speakers {
			formatted = append(formatted, formatSpeaker(speaker))
		}
		return api.ListResponse(w, r, http.StatusOK, "speakers", formatted, nil)
	}))

	router.Method(http.MethodPost, "/v1/speakers/rescan", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		count, durationMs, err := service.Rescan(r.Context())
		if err != nil {
			return apperrors.NewAppError(apperrors.ErrorCodeDiscoveryFailed, "Speaker rescan failed", 502, map[string]any{
				"cause": err.Error(),
			}, nil)
		}
		return api.ActionResponse(w, r, http.StatusOK, map[string]any{
			"speakers_found": count,
			"duration_ms":    durationMs,
		})
	}))

	router.Method(http.MethodGet, "/v1/speakers/{speaker_id}", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		speaker := service.Get(chi.URLParam(r, "speaker_id"))
		if speaker == nil {
			return apperrors.NewSpeakerNotFound(chi.URLParam(r, "speaker_id"))
		}
		return api.SingleResponse(w, r, http.StatusOK, "speaker", formatSpeaker(*speaker))
	}))

	router.Method(http.MethodPost, "/v1/speakers/{speaker_id}/refresh", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		speaker, err := service.Refresh(r.Context(), chi.URLParam(r, "speaker_id"))
		if err != nil {
			return mapCommandError(r, err)
		}
		if speaker == nil {
			return apperrors.NewSpeakerNotFound(chi.URLParam(r, "speaker_id"))
		}
		return api.SingleResponse(w, r, http.StatusOK, "speaker", formatSpeaker(*speaker))
	}))

	router.Method(http.MethodPut, "/v1/speakers/{speaker_id}/volume", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			Level *int `json:"level"`
		}
		if err := decodeBody(r, &body); err != nil {
			return err
		}
		if body.Level == nil {
			return apperrors.NewValidationError("level is required", nil)
		}
		speaker, err := service.SetVolume(r.Context(), chi.URLParam(r, "speaker_id"), *body.Level)
		if err != nil {
			return mapCommandError(r, err)
		}
		return api.SingleResponse(w, r, http.StatusOK, "speaker", formatSpeaker(*speaker))
	}))

	router.Method(http.MethodPut, "/v1/speakers/{speaker_id}/mute", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			State string `json:"state"`
		}
		if err := decodeBody(r, &body); err != nil {
			return err
		}
		speaker, err := service.SetMute(r.Context(), chi.URLParam(r, "speaker_id"), body.State)
		if err != nil {
			return mapCommandError(r, err)
		}
		return api.SingleResponse(w, r, http.StatusOK, "speaker", formatSpeaker(*speaker))
	}))

	router.Method(http.MethodPut, "/v1/speakers/{speaker_id}/led", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			State string `json:"state"`
		}
		if err := decodeBody(r, &body); err != nil {
			return err
		}
		speaker, err := service.SetLED(r.Context(), chi.URLParam(r, "speaker_id"), body.State)
		if err != nil {
			return mapCommandError(r, err)
		}
		return api.SingleResponse(w, r, http.StatusOK, "speaker", formatSpeaker(*speaker))
	}))

	router.Method(http.MethodPut, "/v1/speakers/{speaker_id}/name", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			return err
		}
		if body.Name == "" {
			return apperrors.NewValidationError("name is required", nil)
		}
		speaker, err := service.Rename(r.Context(), chi.URLParam(r, "speaker_id"), body.Name)
		if err != nil {
			return mapCommandError(r, err)
		}
		return api.SingleResponse(w, r, http.StatusOK, "speaker", formatSpeaker(*speaker))
	}))

	router.Method(http.MethodPut, "/v1/speakers/{speaker_id}/repeat", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			Mode string `json:"mode"`
		}
		if err := decodeBody(r, &body); err != nil {
			return err
		}
		speaker, err := service.SetRepeatMode(r.Context(), chi.URLParam(r, "speaker_id"), body.Mode)
		if err != nil {
			return mapCommandError(r, err)
		}
		return api.SingleResponse(w, r, http.StatusOK, "speaker", formatSpeaker(*speaker))
	}))

	router.Method(http.MethodPut, "/v1/speakers/{speaker_id}/shuffle", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := decodeBody(r, &body); err != nil {
			return err
		}
		if err := service.SetShuffle(r.Context(), chi.URLParam(r, "speaker_id"), body.Enabled); err != nil {
			return mapCommandError(r, err)
		}
		return api.ActionResponse(w, r, http.StatusOK, map[string]any{"shuffle": body.Enabled})
	}))

	router.Method(http.MethodPost, "/v1/speakers/{speaker_id}/playback", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			Action string `json:"action"`
		}
		if err := decodeBody(r, &body); err != nil {
			return err
		}
		if err := service.PlaybackControl(r.Context(), chi.URLParam(r, "speaker_id"), body.Action); err != nil {
			return mapCommandError(r, err)
		}
		return api.ActionResponse(w, r, http.StatusOK, map[string]any{"action": body.Action})
	}))

	router.Method(http.MethodPost, "/v1/speakers/{speaker_id}/play-url", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			URL    string `json:"url"`
			Resume bool   `json:"resume"`
		}
		if err := decodeBody(r, &body); err != nil {
			return err
		}
		if body.URL == "" {
			return apperrors.NewValidationError("url is required", nil)
		}
		if err := service.PlayURL(r.Context(), chi.URLParam(r, "speaker_id"), body.URL, body.Resume); err != nil {
			return mapCommandError(r, err)
		}
		return api.ActionResponse(w, r, http.StatusOK, map[string]any{"playing": body.URL})
	}))

	router.Method(http.MethodPost, "/v1/speakers/{speaker_id}/seek", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			Seconds *int `json:"seconds"`
		}
		if err := decodeBody(r, &body); err != nil {
			return err
		}
		if body.Seconds == nil {
			return apperrors.NewValidationError("seconds is required", nil)
		}
		if err := service.Seek(r.Context(), chi.URLParam(r, "speaker_id"), *body.Seconds); err != nil {
			return mapCommandError(r, err)
		}
		return api.ActionResponse(w, r, http.StatusOK, map[string]any{"position": *body.Seconds})
	}))

	router.Method(http.MethodGet, "/v1/speakers/{speaker_id}/play-time", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		playTime, err := service.PlayTime(r.Context(), chi.URLParam(r, "speaker_id"))
		if err != nil {
			return mapCommandError(r, err)
		}
		return api.SingleResponse(w, r, http.StatusOK, "play_time", map[string]any{
			"position_sec": playTime.PlayTime,
			"length_sec":   playTime.TimeLength,
		})
	}))

	router.Method(http.MethodGet, "/v1/speakers/{speaker_id}/music-info", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		info, err := service.MusicInfo(r.Context(), chi.URLParam(r, "speaker_id"))
		if err != nil {
			return mapCommandError(r, err)
		}
		return api.SingleResponse(w, r, http.StatusOK, "music_info", map[string]any{
			"title":       info.Title,
			"artist":      info.Artist,
			"album":       info.Album,
			"time_length": info.TimeLength,
			"play_status": info.PlayStatus,
			"thumbnail":   info.Thumbnail,
		})
	}))

	router.Method(http.MethodGet, "/v1/speakers/{speaker_id}/radio", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		info, err := service.RadioInfo(r.Context(), chi.URLParam(r, "speaker_id"))
		if err != nil {
			return mapCommandError(r, err)
		}
		return api.SingleResponse(w, r, http.StatusOK, "radio", map[string]any{
			"provider":    info.CPName,
			"title":       info.Title,
			"description": info.Description,
			"play_status": info.PlayStatus,
		})
	}))

	router.Method(http.MethodGet, "/v1/speakers/{speaker_id}/radio/presets", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		presets, err := service.RadioPresets(r.Context(), chi.URLParam(r, "speaker_id"), 0, 10)
		if err != nil {
			return mapCommandError(r, err)
		}
		return api.ListResponse(w, r, http.StatusOK, "presets", presets, nil)
	}))

	router.Method(http.MethodGet, "/v1/speakers/{speaker_id}/eq/presets", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		presets, err := service.EQPresets(r.Context(), chi.URLParam(r, "speaker_id"))
		if err != nil {
			return mapCommandError(r, err)
		}
		formatted := make([]map[string]any, 0, len(presets))
		for _, preset := range presets {
			formatted = append(formatted, map[string]any{
				"index": preset.Index,
				"name":  preset.Name,
			})
		}
		return api.ListResponse(w, r, http.StatusOK, "presets", formatted, nil)
	}))

	router.Method(http.MethodPut, "/v1/speakers/{speaker_id}/eq/preset", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			return err
		}
		if err := service.SetEQPreset(r.Context(), chi.URLParam(r, "speaker_id"), body.Name); err != nil {
			return mapCommandError(r, err)
		}
		return api.ActionResponse(w, r, http.StatusOK, map[string]any{"preset": body.Name})
	}))

	router.Method(http.MethodPut, "/v1/speakers/{speaker_id}/eq/values", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			PresetIndex int   `json:"preset_index"`
			Values      []int `json:"values"`
		}
		if err := decodeBody(r, &body); err != nil {
			return err
		}
		if err := service.SetEQValues(r.Context(), chi.URLParam(r, "speaker_id"), body.PresetIndex, body.Values); err != nil {
			return mapCommandError(r, err)
		}
		return api.ActionResponse(w, r, http.StatusOK, map[string]any{"preset_index": body.PresetIndex})
	}))
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("Invalid JSON body", map[string]any{"cause": err.Error()})
	}
	return nil
}

func mapCommandError(r *http.Request, err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperrors.NewSpeakerNotFound(chi.URLParam(r, "speaker_id"))
	}
	if errors.Is(err, wam.ErrLockTimeout) {
		return apperrors.NewAppError(apperrors.ErrorCodeSpeakerLockHeld, "Speaker is busy with another operation", 409, nil, nil)
	}
	return apperrors.FromWAMError(err)
}

func formatSpeaker(speaker Speaker) map[string]any {
	var lastSeen any
	if !speaker.LastSeenAt.IsZero() {
		lastSeen = rfc3339Millis(speaker.LastSeenAt)
	}
	return map[string]any{
		"speaker_id":  speaker.MAC,
		"mac":         speaker.MAC,
		"ip":          speaker.IP,
		"name":        speaker.Name,
		"volume":      speaker.Volume,
		"muted":       speaker.Muted,
		"led_on":      speaker.LEDOn,
		"group_name":  speaker.GroupName,
		"repeat_mode": speaker.RepeatMode,
		"ap_ssid":     speaker.APSSID,
		"hydrated":    speaker.Hydrated,
		"grouped":     speaker.Grouped(),
		"last_seen":   lastSeen,
	}
}
