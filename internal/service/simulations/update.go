package simulations

import (
	"context"
	"time"

	"github.com/weatherstream-labs/weatherstream-go/internal/domain"
	"github.com/weatherstream-labs/weatherstream-go/internal/repo"
	"github.com/weatherstream-labs/weatherstream-go/internal/token"
)

// UpdateCommand is a partial update. Nil pointers leave the field alone.
type UpdateCommand struct {
	ID            int64
	Name          *string
	StartTime     *string
	DataSource    *string
	Status        *string
	IfMatch       string
	Actor         string
	CorrelationID string
}

// Update applies a partial update under optimistic concurrency. The version
// token from IfMatch is decoded before any storage access, business rules
// run against the loaded row, and the token comparison itself happens only
// inside the storage compare-and-swap.
func (s *Service) Update(ctx context.Context, cmd UpdateCommand) (domain.Simulation, error) {
	if cmd.ID <= 0 {
		return domain.Simulation{}, repo.ErrNotFound
	}
	expected, err := token.ParseIfMatch(cmd.IfMatch)
	if err != nil {
		return domain.Simulation{}, err
	}

	var (
		newStartTime *time.Time
		newStatus    *domain.Status
	)
	if cmd.Name != nil {
		if err := validateName(*cmd.Name); err != nil {
			return domain.Simulation{}, err
		}
	}
	if cmd.StartTime != nil {
		t, err := parseStartTime(*cmd.StartTime, s.now())
		if err != nil {
			return domain.Simulation{}, err
		}
		newStartTime = &t
	}
	if cmd.DataSource != nil {
		if err := validateDataSource(*cmd.DataSource); err != nil {
			return domain.Simulation{}, err
		}
	}
	if cmd.Status != nil {
		st, err := domain.ParseStatus(*cmd.Status)
		if err != nil {
			return domain.Simulation{}, &domain.ValidationError{Field: "Status", Message: err.Error()}
		}
		newStatus = &st
	}

	cur, err := s.sims.GetByID(ctx, cmd.ID)
	if err != nil {
		return domain.Simulation{}, err
	}

	if err := cur.EnsureMutableForUpdate(cmd.DataSource, newStartTime); err != nil {
		return domain.Simulation{}, err
	}
	if newStatus != nil {
		if err := domain.ValidateTransition(cur.Status, *newStatus); err != nil {
			return domain.Simulation{}, err
		}
	}

	before := cur
	next := cur
	if cmd.Name != nil {
		next.Name = *cmd.Name
	}
	if newStartTime != nil {
		next.StartTime = *newStartTime
	}
	if cmd.DataSource != nil {
		next.FileName = *cmd.DataSource
	}
	if newStatus != nil {
		next.Status = *newStatus
	}

	updated, err := s.sims.Update(ctx, next, expected)
	if err != nil {
		return domain.Simulation{}, err
	}

	s.recordAudit(ctx, domain.AuditEntry{
		SimulationID:  updated.ID,
		Actor:         actorOrAnonymous(cmd.Actor),
		CorrelationID: cmd.CorrelationID,
		OccurredAt:    s.now(),
		Action:        domain.AuditActionUpdate,
		Changes:       diffSimulations(before, updated),
		PrevToken:     before.Token.String(),
		NewToken:      updated.Token.String(),
	})
	return updated, nil
}

// diffSimulations lists the mutable fields whose values changed across a
// committed update. A no-op update yields an empty list.
func diffSimulations(before, after domain.Simulation) []domain.FieldChange {
	var changes []domain.FieldChange
	if before.Name != after.Name {
		changes = append(changes, domain.FieldChange{Field: "Name", Before: before.Name, After: after.Name})
	}
	if !before.StartTime.Equal(after.StartTime) {
		changes = append(changes, domain.FieldChange{
			Field:  "StartTime",
			Before: before.StartTime.UTC().Format(time.RFC3339),
			After:  after.StartTime.UTC().Format(time.RFC3339),
		})
	}
	if before.FileName != after.FileName {
		changes = append(changes, domain.FieldChange{Field: "DataSource", Before: before.FileName, After: after.FileName})
	}
	if before.Status != after.Status {
		changes = append(changes, domain.FieldChange{Field: "Status", Before: string(before.Status), After: string(after.Status)})
	}
	return changes
}
