package groups

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/strefethen/wam-hub-go/internal/wam"
)

// Commander is the protocol surface the coordinator drives. *wam.Client
// implements it; tests substitute fakes.
type Commander interface {
	Ungroup(ctx context.Context, addr string) error
	CreateMultispeakerGroup(ctx context.Context, addr string, payload wam.GroupPayload) error
}

// Coordinator sequences the multi-step grouping protocol. The sequence is
// not transactional: a failure partway leaves the member set mixed, so
// every failure names its step and the plan can be resumed from there.
//
// locks must be the same SpeakerLock instance the rest of the process uses
// for direct commands, otherwise a volume or playback call can interleave
// with an in-flight grouping run on the same device.
type Coordinator struct {
	commander Commander
	locks     *wam.SpeakerLock
	logger    *log.Logger
}

func NewCoordinator(commander Commander, locks *wam.SpeakerLock, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	if locks == nil {
		locks = wam.NewSpeakerLock(0, logger)
	}
	return &Coordinator{
		commander: commander,
		locks:     locks,
		logger:    logger,
	}
}

// Plan enumerates the steps of a grouping sequence: one unconditional
// ungroup per member (the first member is main), then the single
// SetMultispkGroup broadcast to the main speaker.
func Plan(members []Member) []Step {
	steps := make([]Step, 0, len(members)+1)
	for _, m := range members {
		steps = append(steps, Step{Kind: StepUngroup, SpeakerIP: m.IP})
	}
	if len(members) > 0 {
		steps = append(steps, Step{Kind: StepGroupCommand, SpeakerIP: members[0].IP})
	}
	return steps
}

// CreateGroup forms a group from scratch. members must be non-empty; the
// first member becomes main, the rest subs.
func (c *Coordinator) CreateGroup(ctx context.Context, name string, members []Member) (*Group, error) {
	return c.ResumeCreateGroup(ctx, name, members, 0)
}

// ResumeCreateGroup retries a grouping sequence from a given step index,
// typically the StepIndex of a previous GroupingError. Steps already
// completed are not re-issued.
//
// The main speaker's lock is held for the whole plan; each sub's lock is
// additionally held for the step that addresses it. A lock that cannot be
// acquired fails the run like any other step failure.
func (c *Coordinator) ResumeCreateGroup(ctx context.Context, name string, members []Member, fromStep int) (*Group, error) {
	if name == "" {
		return nil, &wam.InvalidArgumentError{Field: "name", Value: name, Reason: "group name must not be empty"}
	}
	if len(members) == 0 {
		return nil, &wam.InvalidArgumentError{Field: "members", Value: "", Reason: "at least one member required"}
	}

	steps := Plan(members)
	if fromStep < 0 || fromStep >= len(steps) {
		return nil, &wam.InvalidArgumentError{
			Field:  "from_step",
			Value:  fmt.Sprintf("%d", fromStep),
			Reason: fmt.Sprintf("must be within [0, %d)", len(steps)),
		}
	}

	main := members[0]
	var group *Group
	err := c.locks.WithLock(main.IP, func() error {
		for i := fromStep; i < len(steps); i++ {
			if err := c.executeStep(ctx, steps[i], name, members); err != nil {
				return &GroupingError{Step: steps[i], StepIndex: i, Err: err}
			}
		}
		group = assembleGroup(name, members)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Printf("group %q formed: main=%s subs=%d", name, main.IP, len(members)-1)
	return group, nil
}

func (c *Coordinator) executeStep(ctx context.Context, step Step, name string, members []Member) error {
	main := members[0]
	switch step.Kind {
	case StepUngroup:
		// The main's lock is already held for the whole plan; the lock is
		// not reentrant, so only subs are acquired per step.
		if step.SpeakerIP == main.IP {
			return c.commander.Ungroup(ctx, step.SpeakerIP)
		}
		return c.locks.WithLock(step.SpeakerIP, func() error {
			return c.commander.Ungroup(ctx, step.SpeakerIP)
		})
	case StepGroupCommand:
		payload := wam.GroupPayload{
			Name:     name,
			MainMAC:  main.MAC,
			MainName: main.Name,
		}
		for _, sub := range members[1:] {
			payload.Subs = append(payload.Subs, wam.SubSpeaker{IP: sub.IP, MAC: sub.MAC})
		}
		return c.commander.CreateMultispeakerGroup(ctx, main.IP, payload)
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

// Dissolve issues UnGroup against one speaker. Per vendor semantics the
// whole group dissolves when addressed at the main speaker, while a sub
// only leaves. Ungrouping an already-ungrouped speaker is a no-op.
func (c *Coordinator) Dissolve(ctx context.Context, addr string) error {
	return c.locks.WithLock(addr, func() error {
		return c.commander.Ungroup(ctx, addr)
	})
}

func assembleGroup(name string, members []Member) *Group {
	assembled := make([]Member, len(members))
	copy(assembled, members)
	for i := range assembled {
		if i == 0 {
			assembled[i].Role = RoleMain
		} else {
			assembled[i].Role = RoleSub
		}
	}
	return &Group{Name: name, Members: assembled, CreatedAt: time.Now()}
}
