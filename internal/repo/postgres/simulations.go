package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/weatherstream-labs/weatherstream-go/internal/domain"
	"github.com/weatherstream-labs/weatherstream-go/internal/repo"
	"github.com/weatherstream-labs/weatherstream-go/internal/token"
)

const simulationColumns = "id, name, start_time, file_name, status, is_deleted, row_version"

const insertSimulationQuery = `
	INSERT INTO simulations (name, start_time, file_name, status, is_deleted, row_version)
	VALUES ($1, $2, $3, $4, FALSE, $5)
	RETURNING id`

const selectSimulationByIDQuery = `
	SELECT ` + simulationColumns + `
	FROM simulations
	WHERE id = $1 AND is_deleted = FALSE`

const selectCurrentTokenQuery = `
	SELECT row_version
	FROM simulations
	WHERE id = $1 AND is_deleted = FALSE`

const dataSourceInUseQuery = `
	SELECT EXISTS (
		SELECT 1 FROM simulations
		WHERE file_name = $1 AND status = $2 AND is_deleted = FALSE
	)`

// The token predicate makes the update an atomic compare-and-swap: of any
// set of concurrent writers presenting the same expected token, the database
// lets at most one row match.
const casUpdateSimulationQuery = `
	UPDATE simulations
	SET name = $1, start_time = $2, file_name = $3, status = $4, row_version = $5
	WHERE id = $6 AND row_version = $7 AND is_deleted = FALSE
	RETURNING ` + simulationColumns

const casSoftDeleteSimulationQuery = `
	UPDATE simulations
	SET is_deleted = TRUE, row_version = $1
	WHERE id = $2 AND row_version = $3 AND is_deleted = FALSE
	RETURNING row_version`

type SimulationStore struct {
	db DB
}

func NewSimulationStore(db DB) *SimulationStore {
	if db == nil {
		return nil
	}
	return &SimulationStore{db: db}
}

func (s *SimulationStore) Create(ctx context.Context, sim domain.Simulation) (domain.Simulation, error) {
	if s == nil || s.db == nil {
		return domain.Simulation{}, fmt.Errorf("simulation store not initialized")
	}
	if err := sim.Validate(); err != nil {
		return domain.Simulation{}, err
	}
	minted, err := token.New()
	if err != nil {
		return domain.Simulation{}, err
	}
	err = s.db.QueryRowContext(
		ctx,
		insertSimulationQuery,
		strings.TrimSpace(sim.Name),
		normalizeTime(sim.StartTime),
		sim.FileName,
		string(sim.Status),
		[]byte(minted),
	).Scan(&sim.ID)
	if err != nil {
		return domain.Simulation{}, fmt.Errorf("insert simulation: %w", err)
	}
	sim.StartTime = normalizeTime(sim.StartTime)
	sim.IsDeleted = false
	sim.Token = minted
	return sim, nil
}

func (s *SimulationStore) GetByID(ctx context.Context, id int64) (domain.Simulation, error) {
	if s == nil || s.db == nil {
		return domain.Simulation{}, fmt.Errorf("simulation store not initialized")
	}
	if id <= 0 {
		return domain.Simulation{}, repo.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, selectSimulationByIDQuery, id)
	sim, err := scanSimulation(row)
	if err != nil {
		return domain.Simulation{}, handleNotFound(err)
	}
	return sim, nil
}

func (s *SimulationStore) List(ctx context.Context, filter repo.SimulationFilter) ([]domain.Simulation, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("simulation store not initialized")
	}
	query := "SELECT " + simulationColumns + " FROM simulations WHERE is_deleted = FALSE"
	args := []any{}
	if filter.FromStartTime != nil {
		query += " AND start_time >= $1"
		args = append(args, filter.FromStartTime.UTC())
	}
	query += " ORDER BY start_time, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list simulations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sims []domain.Simulation
	for rows.Next() {
		sim, err := scanSimulation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan simulation: %w", err)
		}
		sims = append(sims, sim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list simulations: %w", err)
	}
	return sims, nil
}

func (s *SimulationStore) IsDataSourceInUse(ctx context.Context, path string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("simulation store not initialized")
	}
	if strings.TrimSpace(path) == "" {
		return false, errors.New("data source path is required")
	}
	var inUse bool
	err := s.db.QueryRowContext(ctx, dataSourceInUseQuery, path, string(domain.StatusInProgress)).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("data source in use: %w", err)
	}
	return inUse, nil
}

func (s *SimulationStore) Update(ctx context.Context, sim domain.Simulation, expected token.Token) (domain.Simulation, error) {
	if s == nil || s.db == nil {
		return domain.Simulation{}, fmt.Errorf("simulation store not initialized")
	}
	if err := sim.Validate(); err != nil {
		return domain.Simulation{}, err
	}
	if expected.IsZero() {
		return domain.Simulation{}, token.ErrMissing
	}
	minted, err := token.New()
	if err != nil {
		return domain.Simulation{}, err
	}
	row := s.db.QueryRowContext(
		ctx,
		casUpdateSimulationQuery,
		strings.TrimSpace(sim.Name),
		normalizeTime(sim.StartTime),
		sim.FileName,
		string(sim.Status),
		[]byte(minted),
		sim.ID,
		[]byte(expected),
	)
	updated, err := scanSimulation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Simulation{}, s.classifyMiss(ctx, sim.ID)
		}
		return domain.Simulation{}, fmt.Errorf("update simulation: %w", err)
	}
	return updated, nil
}

func (s *SimulationStore) SoftDelete(ctx context.Context, id int64, expected token.Token) (token.Token, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("simulation store not initialized")
	}
	if expected.IsZero() {
		return nil, token.ErrMissing
	}
	minted, err := token.New()
	if err != nil {
		return nil, err
	}
	var stored []byte
	err = s.db.QueryRowContext(ctx, casSoftDeleteSimulationQuery, []byte(minted), id, []byte(expected)).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyMiss(ctx, id)
		}
		return nil, fmt.Errorf("soft delete simulation: %w", err)
	}
	return token.Token(stored), nil
}

// classifyMiss separates "record gone" from "token mismatch" after a CAS
// write matched no rows. The conflict error carries the record's actual
// current token so callers can retry without another read.
func (s *SimulationStore) classifyMiss(ctx context.Context, id int64) error {
	var current []byte
	err := s.db.QueryRowContext(ctx, selectCurrentTokenQuery, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return repo.ErrNotFound
	}
	if err != nil {
		// The record exists in an unknown state; report the conflict
		// without a current token rather than masking it.
		return &repo.ConflictError{}
	}
	return &repo.ConflictError{CurrentToken: token.Token(current)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSimulation(row rowScanner) (domain.Simulation, error) {
	var sim domain.Simulation
	var status string
	var version []byte
	if err := row.Scan(&sim.ID, &sim.Name, &sim.StartTime, &sim.FileName, &status, &sim.IsDeleted, &version); err != nil {
		return domain.Simulation{}, err
	}
	sim.Status = domain.Status(status)
	sim.StartTime = sim.StartTime.UTC()
	sim.Token = token.Token(version)
	return sim, nil
}
