// Package repo defines the storage contracts for simulation records and the
// audit trail. Implementations own durability and are the sole arbiters of
// whether an optimistic compare-and-swap write succeeds.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/weatherstream-labs/weatherstream-go/internal/domain"
	"github.com/weatherstream-labs/weatherstream-go/internal/token"
)

// ErrNotFound is returned when an id does not resolve to a live
// (not soft-deleted) simulation.
var ErrNotFound = errors.New("simulation not found")

// ConflictError is returned when a compare-and-swap write observes a stored
// token different from the caller's expected token. CurrentToken carries the
// record's actual token when the store could fetch it, so callers can retry
// without a blind re-read.
type ConflictError struct {
	CurrentToken token.Token
}

func (e *ConflictError) Error() string {
	return "concurrency conflict: the provided token does not match the current record version"
}

// SimulationFilter narrows simulation listings.
type SimulationFilter struct {
	// FromStartTime keeps simulations starting at or after the boundary.
	FromStartTime *time.Time
}

// SimulationRepository manages simulation lifecycle records.
//
// Update and SoftDelete must be atomic with respect to the token check: of
// any set of concurrent writers presenting the same expected token for one
// id, at most one may succeed.
type SimulationRepository interface {
	// Create persists a new record, assigning its id and minting its first
	// token.
	Create(ctx context.Context, sim domain.Simulation) (domain.Simulation, error)

	// GetByID loads a live record. Returns ErrNotFound for missing or
	// soft-deleted ids.
	GetByID(ctx context.Context, id int64) (domain.Simulation, error)

	// List returns live records ordered by start time, then id.
	List(ctx context.Context, filter SimulationFilter) ([]domain.Simulation, error)

	// IsDataSourceInUse reports whether a live InProgress simulation is
	// already streaming the given data source.
	IsDataSourceInUse(ctx context.Context, path string) (bool, error)

	// Update writes the mutated record if and only if the stored token
	// equals expected, minting a new token on success. Returns ErrNotFound
	// or *ConflictError otherwise.
	Update(ctx context.Context, sim domain.Simulation, expected token.Token) (domain.Simulation, error)

	// SoftDelete marks the record deleted under the same compare-and-swap
	// rule and returns the newly minted token. Returns ErrNotFound when the
	// id does not resolve to a live record.
	SoftDelete(ctx context.Context, id int64, expected token.Token) (token.Token, error)
}

// AuditRepository is the append-only audit trail boundary. Writes may fail
// independently of the record store; callers treat failures as degraded
// observability, never as operation failures.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) (int64, error)
	ListBySimulation(ctx context.Context, simulationID int64) ([]domain.AuditEntry, error)
}
