package domain

import "fmt"

// TransitionError rejects a disallowed status change, naming both sides.
type TransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("status transition %q -> %q not allowed: %s", e.From, e.To, e.Reason)
}

// ImmutabilityError rejects a change to a field that is frozen once the
// simulation has left NotStarted. Field names the request field so callers
// can surface it directly.
type ImmutabilityError struct {
	Field  string
	Reason string
}

func (e *ImmutabilityError) Error() string {
	return fmt.Sprintf("%s is immutable: %s", e.Field, e.Reason)
}

// ValidationError rejects a request field that fails format or range rules.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
