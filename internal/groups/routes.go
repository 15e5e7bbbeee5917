package groups

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

// RegisterRoutes wires group routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodGet, "/v1/groups", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		groups, err := service.List()
		if err != nil {
			return apperrors.NewInternalError("Failed to load groups")
		}
		formatted := make([]map[string]any, 0, len(groups))
		for _, group := range groups {
			formatted = append(formatted, formatGroup(group))
		}
		return api.ListResponse(w, r, http.StatusOK, "groups", formatted, nil)
	}))

	router.Method(http.MethodPost, "/v1/groups", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			Name     string   `json:"name"`
			Members  []string `json:"members"`
			FromStep int      `json:"from_step"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return apperrors.NewValidationError("Invalid JSON body", map[string]any{"cause": err.Error()})
		}

		group, err := service.Resume(r.Context(), body.Name, body.Members, body.FromStep)
		if err != nil {
			return mapGroupError(err)
		}
		return api.SingleResponse(w, r, http.StatusCreated, "group", formatGroup(*group))
	}))

	router.Method(http.MethodGet, "/v1/groups/{group_id}", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		group, err := service.Get(chi.URLParam(r, "group_id"))
		if err != nil {
			return apperrors.NewInternalError("Failed to load group")
		}
		if group == nil {
			return apperrors.NewNotFoundResource("Group", chi.URLParam(r, "group_id"))
		}
		return api.SingleResponse(w, r, http.StatusOK, "group", formatGroup(*group))
	}))

	router.Method(http.MethodDelete, "/v1/groups/{group_id}", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		if err := service.DissolveGroup(r.Context(), chi.URLParam(r, "group_id")); err != nil {
			return mapGroupError(err)
		}
		return api.ActionResponse(w, r, http.StatusOK, map[string]any{"dissolved": true})
	}))

	router.Method(http.MethodPost, "/v1/speakers/{speaker_id}/ungroup", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		if err := service.DissolveSpeaker(r.Context(), chi.URLParam(r, "speaker_id")); err != nil {
			return mapGroupError(err)
		}
		return api.ActionResponse(w, r, http.StatusOK, map[string]any{"ungrouped": true})
	}))
}

func mapGroupError(err error) error {
	var groupingErr *GroupingError
	if errors.As(err, &groupingErr) {
		return apperrors.NewGroupingFailed(groupingErr.Error(), map[string]any{
			"step_index": groupingErr.StepIndex,
			"step_kind":  string(groupingErr.Step.Kind),
			"speaker_ip": groupingErr.Step.SpeakerIP,
		})
	}
	if errors.Is(err, ErrSpeakerUnknown) {
		return apperrors.NewNotFoundError(err.Error(), nil)
	}
	if errors.Is(err, wam.ErrLockTimeout) {
		return apperrors.NewAppError(apperrors.ErrorCodeSpeakerLockHeld, "Speaker is busy with another grouping operation", 409, nil, nil)
	}
	return apperrors.FromWAMError(err)
}

func formatGroup(group StoredGroup) map[string]any {
	members := make([]map[string]any, 0, len(group.Members))
	for _, member := range group.Members {
		members = append(members, map[string]any{
			"mac":  member.MAC,
			"ip":   member.IP,
			"name": member.Name,
			"role": string(member.Role),
		})
	}

	main := group.Main()
	return map[string]any{
		"group_id":   group.GroupID,
		"name":       group.Name,
		"main_mac":   main.MAC,
		"members":    members,
		"created_at": group.CreatedAt.UTC().Format(time.RFC3339),
	}
}
