package groups

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/strefethen/wam-hub-go/internal/speakers"
	"github.com/strefethen/wam-hub-go/internal/wam"
)

// ErrSpeakerUnknown is returned when a member id matches no registered
// speaker.
var ErrSpeakerUnknown = errors.New("unknown speaker in member list")

// registry is the slice of the speaker registry the group service needs.
type registry interface {
	Get(id string) *speakers.Speaker
	UpdateGroupName(mac, groupName string)
}

// Publisher receives group change notifications.
type Publisher interface {
	Publish(eventType string, payload any)
}

// Service resolves member ids against the speaker registry, drives the
// coordinator, and keeps cached group names and persisted records in sync
// with what the devices were told.
type Service struct {
	coordinator *Coordinator
	registry    registry
	repo        *Repository
	logger      *log.Logger
	publisher   Publisher
}

func NewService(coordinator *Coordinator, registry registry, repo *Repository, logger *log.Logger, publisher Publisher) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		coordinator: coordinator,
		registry:    registry,
		repo:        repo,
		logger:      logger,
		publisher:   publisher,
	}
}

// Create builds a group from member ids. The first id becomes the main
// speaker. On success the registry and the database reflect the new
// membership; on a step failure the returned GroupingError names the step
// so the caller can resume.
func (s *Service) Create(ctx context.Context, name string, memberIDs []string) (*StoredGroup, error) {
	return s.create(ctx, name, memberIDs, 0)
}

// Resume retries a failed grouping run from the given step, skipping the
// steps that already completed.
func (s *Service) Resume(ctx context.Context, name string, memberIDs []string, fromStep int) (*StoredGroup, error) {
	return s.create(ctx, name, memberIDs, fromStep)
}

func (s *Service) create(ctx context.Context, name string, memberIDs []string, fromStep int) (*StoredGroup, error) {
	members, err := s.resolveMembers(memberIDs)
	if err != nil {
		return nil, err
	}

	group, err := s.coordinator.ResumeCreateGroup(ctx, name, members, fromStep)
	if err != nil {
		return nil, err
	}

	for _, member := range group.Members {
		s.registry.UpdateGroupName(member.MAC, name)
	}

	stored := &StoredGroup{Group: *group}
	if s.repo != nil {
		groupID, err := s.repo.Save(*group)
		if err != nil {
			s.logger.Printf("Persist group %q failed: %v", name, err)
		} else {
			stored.GroupID = groupID
		}
	}

	if s.publisher != nil {
		s.publisher.Publish("group.created", stored)
	}
	return stored, nil
}

// DissolveSpeaker removes one speaker from whatever group it is in.
func (s *Service) DissolveSpeaker(ctx context.Context, id string) error {
	speaker := s.registry.Get(id)
	if speaker == nil {
		return fmt.Errorf("%w: %s", ErrSpeakerUnknown, id)
	}
	if err := s.coordinator.Dissolve(ctx, speaker.IP); err != nil {
		return err
	}
	s.registry.UpdateGroupName(speaker.MAC, "")
	if s.publisher != nil {
		s.publisher.Publish("group.member_removed", map[string]any{"speaker": speaker.MAC})
	}
	return nil
}

// DissolveGroup ungroups every member of a persisted group and deletes the
// record. Every member is attempted even when some fail; failures are
// joined into the returned error.
func (s *Service) DissolveGroup(ctx context.Context, groupID string) error {
	if s.repo == nil {
		return errors.New("group persistence is not configured")
	}
	stored, err := s.repo.Get(groupID)
	if err != nil {
		return err
	}
	if stored == nil {
		return nil
	}

	var errs []error
	for _, member := range stored.Members {
		addr := member.IP
		if speaker := s.registry.Get(member.MAC); speaker != nil {
			addr = speaker.IP
		}
		if err := s.coordinator.Dissolve(ctx, addr); err != nil {
			errs = append(errs, fmt.Errorf("ungroup %s: %w", member.MAC, err))
			continue
		}
		s.registry.UpdateGroupName(member.MAC, "")
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if err := s.repo.Delete(groupID); err != nil {
		return err
	}
	if s.publisher != nil {
		s.publisher.Publish("group.dissolved", map[string]any{"group_id": groupID})
	}
	return nil
}

// List returns all persisted groups.
func (s *Service) List() ([]StoredGroup, error) {
	if s.repo == nil {
		return []StoredGroup{}, nil
	}
	return s.repo.List()
}

// Get returns one persisted group, or nil when unknown.
func (s *Service) Get(groupID string) (*StoredGroup, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.Get(groupID)
}

// resolveMembers maps ids to grouping members. All members need a known
// MAC and a current IP; grouping with a stale identity bricks the run
// halfway through.
func (s *Service) resolveMembers(memberIDs []string) ([]Member, error) {
	members := make([]Member, 0, len(memberIDs))
	seen := make(map[string]struct{}, len(memberIDs))

	for _, id := range memberIDs {
		speaker := s.registry.Get(id)
		if speaker == nil {
			return nil, fmt.Errorf("%w: %s", ErrSpeakerUnknown, id)
		}
		if speaker.MAC == "" || speaker.IP == "" {
			return nil, &wam.InvalidArgumentError{Field: "members", Value: id, Reason: "speaker has no resolved MAC or IP"}
		}
		if _, dup := seen[speaker.MAC]; dup {
			return nil, &wam.InvalidArgumentError{Field: "members", Value: id, Reason: "duplicate member"}
		}
		seen[speaker.MAC] = struct{}{}
		members = append(members, Member{
			IP:   speaker.IP,
			MAC:  speaker.MAC,
			Name: speaker.Name,
		})
	}
	return members, nil
}
