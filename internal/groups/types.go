package groups

import (
	"fmt"
	"time"
)

// Role of a member within a group. Exactly one member is main; the main
// speaker is the addressed coordinator for group formation, subs are
// passive members.
type Role string

const (
	RoleMain Role = "main"
	RoleSub  Role = "sub"
)

// Member is one speaker participating in a group. MAC is the grouping
// identity; IP is only the current control address.
type Member struct {
	IP   string `json:"ip"`
	MAC  string `json:"mac"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Group is a formed multi-speaker group. It has no device-side identity
// beyond the main speaker's group-name field: ungrouping the main
// implicitly dissolves it.
type Group struct {
	Name      string    `json:"name"`
	Members   []Member  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// Main returns the main member.
func (g Group) Main() Member {
	for _, m := range g.Members {
		if m.Role == RoleMain {
			return m
		}
	}
	return Member{}
}

// StepKind identifies one phase of the grouping plan.
type StepKind string

const (
	// StepUngroup clears a member's existing membership. Issued
	// unconditionally for every member since client-side state may be
	// stale.
	StepUngroup StepKind = "ungroup"

	// StepGroupCommand is the single SetMultispkGroup broadcast to the
	// main speaker.
	StepGroupCommand StepKind = "group_command"
)

// Step is one entry in a grouping plan.
type Step struct {
	Kind      StepKind `json:"kind"`
	SpeakerIP string   `json:"speaker_ip"`
}

// GroupingError reports exactly which step of the non-transactional
// grouping sequence failed, so callers can resume from that step instead
// of blindly restarting.
type GroupingError struct {
	Step      Step
	StepIndex int
	Err       error
}

func (e *GroupingError) Error() string {
	return fmt.Sprintf("grouping step %d (%s %s) failed: %v", e.StepIndex, e.Step.Kind, e.Step.SpeakerIP, e.Err)
}

func (e *GroupingError) Unwrap() error {
	return e.Err
}
