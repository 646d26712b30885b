package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/weatherstream-labs/weatherstream-go/internal/domain"
)

const insertAuditEntryQuery = `
	INSERT INTO audit_entries (
		simulation_id,
		actor,
		correlation_id,
		occurred_at,
		action,
		changes,
		prev_token,
		new_token
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`

const listAuditEntriesQuery = `
	SELECT id, simulation_id, actor, correlation_id, occurred_at, action, changes, prev_token, new_token
	FROM audit_entries
	WHERE simulation_id = $1
	ORDER BY occurred_at, id`

// AuditStore persists the append-only audit trail. There is no update or
// delete path on purpose.
type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	if db == nil {
		return nil
	}
	return &AuditStore{db: db}
}

func (s *AuditStore) Append(ctx context.Context, entry domain.AuditEntry) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("audit store not initialized")
	}
	if err := entry.Validate(); err != nil {
		return 0, err
	}
	changes := entry.Changes
	if changes == nil {
		changes = []domain.FieldChange{}
	}
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return 0, fmt.Errorf("encode changes: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(
		ctx,
		insertAuditEntryQuery,
		entry.SimulationID,
		entry.Actor,
		nullString(entry.CorrelationID),
		normalizeTime(entry.OccurredAt),
		string(entry.Action),
		changesJSON,
		nullString(entry.PrevToken),
		nullString(entry.NewToken),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert audit entry: %w", err)
	}
	return id, nil
}

func (s *AuditStore) ListBySimulation(ctx context.Context, simulationID int64) ([]domain.AuditEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("audit store not initialized")
	}
	rows, err := s.db.QueryContext(ctx, listAuditEntriesQuery, simulationID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var correlationID, prevToken, newToken sql.NullString
		var action string
		var changesJSON []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.SimulationID,
			&entry.Actor,
			&correlationID,
			&entry.OccurredAt,
			&action,
			&changesJSON,
			&prevToken,
			&newToken,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.CorrelationID = correlationID.String
		entry.Action = domain.AuditAction(action)
		entry.PrevToken = prevToken.String
		entry.NewToken = newToken.String
		entry.OccurredAt = entry.OccurredAt.UTC()
		if len(changesJSON) > 0 {
			if err := json.Unmarshal(changesJSON, &entry.Changes); err != nil {
				return nil, fmt.Errorf("decode changes: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
