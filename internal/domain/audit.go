package domain

import (
	"errors"
	"strings"
	"time"
)

// AuditAction names the mutation an audit entry records.
type AuditAction string

const (
	AuditActionUpdate AuditAction = "Update"
	AuditActionDelete AuditAction = "Delete"
)

// ActorAnonymous is recorded when no authenticated actor is known.
const ActorAnonymous = "anonymous"

// FieldChange captures one field that actually changed during a mutation.
type FieldChange struct {
	Field  string `json:"field"`
	Before any    `json:"before"`
	After  any    `json:"after"`
}

// AuditEntry is an immutable record of a committed simulation mutation.
// Entries are append-only: they are never updated or deleted.
type AuditEntry struct {
	ID            int64
	SimulationID  int64
	Actor         string
	CorrelationID string
	OccurredAt    time.Time
	Action        AuditAction
	Changes       []FieldChange
	PrevToken     string
	NewToken      string
}

func (e AuditEntry) Validate() error {
	if e.SimulationID <= 0 {
		return errors.New("simulation id is required")
	}
	if strings.TrimSpace(e.Actor) == "" {
		return errors.New("actor is required")
	}
	if e.OccurredAt.IsZero() {
		return errors.New("occurred_at is required")
	}
	switch e.Action {
	case AuditActionUpdate, AuditActionDelete:
	default:
		return errors.New("action must be Update or Delete")
	}
	return nil
}
