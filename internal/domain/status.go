package domain

import (
	"fmt"
	"strings"
)

// Status is the execution status of a simulation.
type Status string

const (
	StatusNotStarted Status = "NotStarted"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
)

// statusOrder is the explicit total order used for transition checks.
// Comparisons never rely on how statuses happen to be encoded.
var statusOrder = map[Status]int{
	StatusNotStarted: 0,
	StatusInProgress: 1,
	StatusCompleted:  2,
}

func (s Status) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// ParseStatus accepts the status spellings clients send, ignoring case and
// interior spaces ("In Progress" and "inprogress" both parse).
func ParseStatus(value string) (Status, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
	for candidate := range statusOrder {
		if strings.ToLower(string(candidate)) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// CanTransition reports whether a status change is allowed. Identity
// transitions are no-ops and always allowed.
func CanTransition(from, to Status) bool {
	return ValidateTransition(from, to) == nil
}

// ValidateTransition enforces the simulation lifecycle:
// statuses only move forward, and a simulation cannot complete without
// having been in progress.
func ValidateTransition(from, to Status) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("invalid status transition %q -> %q", from, to)
	}
	if from == to {
		return nil
	}
	if statusOrder[to] < statusOrder[from] {
		return &TransitionError{From: from, To: to, Reason: "cannot move to a previous state"}
	}
	if from == StatusNotStarted && to == StatusCompleted {
		return &TransitionError{From: from, To: to, Reason: "cannot jump directly to Completed"}
	}
	return nil
}
