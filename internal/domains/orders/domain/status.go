package domain

import (
	"fmt"
	"strings"
)

// Status is the production state of an order.
//
//	pending ──> milling ──> completed
//	   └────────────────────────^
//
// completed is terminal and no state moves backwards.
type Status string

const (
	StatusPending   Status = "pending"
	StatusMilling   Status = "milling"
	StatusCompleted Status = "completed"
)

var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusMilling:   true,
		StatusCompleted: true,
	},
	StatusMilling: {
		StatusCompleted: true,
	},
	StatusCompleted: {},
}

// ParseStatus accepts the wire form of a status, ignoring case and surrounding space.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// IsValid reports whether the status is one of the known states.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition may leave the status.
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// CanTransitionTo consults the transition table.
func (s Status) CanTransitionTo(target Status) bool {
	return transitions[s][target]
}

// ValidateTransition returns ErrIllegalTransition when the table forbids the move.
func (s Status) ValidateTransition(target Status) error {
	if !target.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}
	if !s.CanTransitionTo(target) {
		return &TransitionError{From: s, To: target}
	}
	return nil
}

func (s Status) String() string {
	return string(s)
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	if e.From.IsTerminal() {
		return fmt.Sprintf("%s: order is %s and cannot move to %s", ErrIllegalTransition, e.From, e.To)
	}
	return fmt.Sprintf("%s: %s -> %s", ErrIllegalTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}
