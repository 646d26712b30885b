package simulations

import (
	"context"
	"errors"

	"github.com/weatherstream-labs/weatherstream-go/internal/domain"
	"github.com/weatherstream-labs/weatherstream-go/internal/repo"
	"github.com/weatherstream-labs/weatherstream-go/internal/token"
)

type DeleteCommand struct {
	ID            int64
	IfMatch       string
	Actor         string
	CorrelationID string
}

// DeleteResult reports whether the delete flipped a live row. NewToken is
// the version minted by the delete and is empty when Deleted is false.
type DeleteResult struct {
	Deleted  bool
	NewToken token.Token
}

// Delete soft-deletes a simulation under optimistic concurrency. Deleting a
// row that is missing or already deleted is not an error; it reports
// Deleted: false.
func (s *Service) Delete(ctx context.Context, cmd DeleteCommand) (DeleteResult, error) {
	if cmd.ID <= 0 {
		return DeleteResult{}, nil
	}
	expected, err := token.ParseIfMatch(cmd.IfMatch)
	if err != nil {
		return DeleteResult{}, err
	}

	prev, err := s.sims.GetByID(ctx, cmd.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return DeleteResult{}, nil
		}
		return DeleteResult{}, err
	}

	newToken, err := s.sims.SoftDelete(ctx, cmd.ID, expected)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return DeleteResult{}, nil
		}
		return DeleteResult{}, err
	}

	s.recordAudit(ctx, domain.AuditEntry{
		SimulationID:  cmd.ID,
		Actor:         actorOrAnonymous(cmd.Actor),
		CorrelationID: cmd.CorrelationID,
		OccurredAt:    s.now(),
		Action:        domain.AuditActionDelete,
		Changes: []domain.FieldChange{
			{Field: "IsDeleted", Before: false, After: true},
		},
		PrevToken: prev.Token.String(),
		NewToken:  newToken.String(),
	})
	return DeleteResult{Deleted: true, NewToken: newToken}, nil
}

// Audit returns the audit trail for one simulation, oldest first.
func (s *Service) Audit(ctx context.Context, simulationID int64) ([]domain.AuditEntry, error) {
	if s.audits == nil {
		return nil, nil
	}
	return s.audits.ListBySimulation(ctx, simulationID)
}
