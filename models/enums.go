package models

import "fmt"

// DateLayout is the calendar-date key format shared by check-in logs, notification logs and markers.
const DateLayout = "2006-01-02"

// RepeatType is the recurrence kind of a task.
type RepeatType string

const (
	RepeatOnce     RepeatType = "ONCE"
	RepeatDaily    RepeatType = "DAILY"
	RepeatWeekdays RepeatType = "WEEKDAYS"
	RepeatWeekends RepeatType = "WEEKENDS"
)

// ParseRepeatType validates a client supplied recurrence kind.
func ParseRepeatType(s string) (RepeatType, error) {
	switch r := RepeatType(s); r {
	case RepeatOnce, RepeatDaily, RepeatWeekdays, RepeatWeekends:
		return r, nil
	}
	return "", fmt.Errorf("unknown repeat type %q", s)
}

// CheckInOutcome is the recorded result of an accepted check-in.
type CheckInOutcome string

const (
	OutcomeOnTime CheckInOutcome = "ON_TIME"
	OutcomeLate   CheckInOutcome = "LATE"
)

// RelationStatus is the lifecycle state of a pairing between two users.
type RelationStatus string

const (
	RelationPending   RelationStatus = "PENDING"
	RelationAccepted  RelationStatus = "ACCEPTED"
	RelationRejected  RelationStatus = "REJECTED"
	RelationUnbinding RelationStatus = "UNBINDING"
	RelationUnbound   RelationStatus = "UNBOUND"
)

// Occupying reports whether a relation in this state blocks a new invite between the same pair.
func (s RelationStatus) Occupying() bool {
	return s == RelationPending || s == RelationAccepted || s == RelationUnbinding
}

// OccupyingRelationStatuses lists the states that hold a pair.
var OccupyingRelationStatuses = []RelationStatus{RelationPending, RelationAccepted, RelationUnbinding}

// RelationAction labels an entry in the relation audit trail.
type RelationAction string

const (
	ActionInvited         RelationAction = "INVITED"
	ActionBind            RelationAction = "BIND"
	ActionRejected        RelationAction = "REJECTED"
	ActionUnbindInitiated RelationAction = "UNBIND_INITIATED"
	ActionUnbindWithdrawn RelationAction = "UNBIND_WITHDRAWN"
	ActionUnbindCompleted RelationAction = "UNBIND_COMPLETED"
)

// NotifyKind identifies a push template. The first four kinds are deduplicated per
// (task, date); the rest are one-off notices.
type NotifyKind string

const (
	NotifyRemind          NotifyKind = "REMIND"
	NotifyCheckInComplete NotifyKind = "CHECK_IN_COMPLETE"
	NotifyMissed          NotifyKind = "MISSED"
	NotifyMakeUp          NotifyKind = "MAKE_UP"

	NotifyUnbindRequested NotifyKind = "UNBIND_REQUESTED"
	NotifyTaskAssigned    NotifyKind = "TASK_ASSIGNED"
)

// Deduplicated reports whether dispatches of this kind go through the idempotency gate.
func (k NotifyKind) Deduplicated() bool {
	switch k {
	case NotifyRemind, NotifyCheckInComplete, NotifyMissed, NotifyMakeUp:
		return true
	}
	return false
}
