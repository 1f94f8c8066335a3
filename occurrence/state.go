package occurrence

import (
	"time"

	"github.com/cppla/careping/clock"
	"github.com/cppla/careping/errcode"
	"github.com/cppla/careping/models"
)

// DefaultWindow is the tolerance on either side of the target instant.
const DefaultWindow = 30 * time.Minute

// State is the lifecycle state of an occurrence.
type State string

const (
	StatePending State = "PENDING"
	StateNormal  State = "NORMAL"
	StateLate    State = "LATE"
	StateMissed  State = "MISSED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s != StatePending }

// StateOf maps a recorded check-in outcome onto the occurrence state it terminates in.
func StateOf(o models.CheckInOutcome) State {
	if o == models.OutcomeOnTime {
		return StateNormal
	}
	return StateLate
}

// Policy holds the check-in window. The window is symmetric around the target.
type Policy struct {
	Window time.Duration
}

// NewPolicy returns a policy with the given window, or DefaultWindow when w is not positive.
func NewPolicy(w time.Duration) Policy {
	if w <= 0 {
		w = DefaultWindow
	}
	return Policy{Window: w}
}

// Validate decides whether a check-in at now is acceptable for an occurrence due at target.
func (p Policy) Validate(target, now time.Time) (models.CheckInOutcome, error) {
	if now.Before(target.Add(-p.Window)) {
		return "", errcode.ErrTooEarly
	}
	if now.After(target.Add(p.Window)) {
		return "", errcode.ErrExpired
	}
	if now.After(target) {
		return models.OutcomeLate, nil
	}
	return models.OutcomeOnTime, nil
}

// WindowOpen reports whether now lies inside the acceptance window.
func (p Policy) WindowOpen(target, now time.Time) bool {
	return !now.Before(target.Add(-p.Window)) && !now.After(target.Add(p.Window))
}

// Overdue reports whether the window has closed.
func (p Policy) Overdue(target, now time.Time) bool {
	return now.After(target.Add(p.Window))
}

// Classify computes the state of occ at now. record is nil when no check-in exists.
func (p Policy) Classify(occ Occurrence, record *models.CheckInLog, now time.Time) State {
	if record != nil {
		return StateOf(record.Outcome)
	}
	if occ.Date.Before(clock.DayStart(now.In(occ.Date.Location()))) {
		return StateMissed
	}
	if p.Overdue(occ.Target, now) {
		return StateMissed
	}
	return StatePending
}

// Aggregate folds one day's occurrence states into a single supervisee status.
func Aggregate(states []State) State {
	if len(states) == 0 {
		return StatePending
	}
	done := true
	for _, s := range states {
		switch s {
		case StateMissed:
			return StateMissed
		case StateNormal, StateLate:
		default:
			done = false
		}
	}
	if done {
		return StateNormal
	}
	return StatePending
}
