package simulations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/weatherstream-labs/weatherstream-go/internal/datasource"
	"github.com/weatherstream-labs/weatherstream-go/internal/domain"
	"github.com/weatherstream-labs/weatherstream-go/internal/repo"
)

// ErrDataSourceInUse rejects creation against a file another live
// InProgress simulation is already streaming.
var ErrDataSourceInUse = errors.New("data source is in use by an in-progress simulation")

type Service struct {
	sims   repo.SimulationRepository
	audits repo.AuditRepository
	files  datasource.Validator
	logger *slog.Logger
	now    func() time.Time
}

func New(sims repo.SimulationRepository, audits repo.AuditRepository, files datasource.Validator, logger *slog.Logger) *Service {
	if sims == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sims:   sims,
		audits: audits,
		files:  files,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateCommand describes a new simulation.
type CreateCommand struct {
	Name          string
	StartTime     string
	DataSource    string
	Actor         string
	CorrelationID string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (domain.Simulation, error) {
	if err := validateName(cmd.Name); err != nil {
		return domain.Simulation{}, err
	}
	startTime, err := parseStartTime(cmd.StartTime, s.now())
	if err != nil {
		return domain.Simulation{}, err
	}
	if err := validateDataSource(cmd.DataSource); err != nil {
		return domain.Simulation{}, err
	}

	if s.files != nil {
		if err := s.files.Validate(ctx, cmd.DataSource); err != nil {
			return domain.Simulation{}, err
		}
	}
	inUse, err := s.sims.IsDataSourceInUse(ctx, cmd.DataSource)
	if err != nil {
		return domain.Simulation{}, fmt.Errorf("check data source: %w", err)
	}
	if inUse {
		return domain.Simulation{}, ErrDataSourceInUse
	}

	created, err := s.sims.Create(ctx, domain.Simulation{
		Name:      strings.TrimSpace(cmd.Name),
		StartTime: startTime,
		FileName:  cmd.DataSource,
		Status:    domain.StatusNotStarted,
	})
	if err != nil {
		return domain.Simulation{}, err
	}

	s.logger.Info("simulation created",
		"simulation_id", created.ID,
		"actor", actorOrAnonymous(cmd.Actor),
		"correlation_id", cmd.CorrelationID,
	)
	return created, nil
}

// Get loads a live simulation by id.
func (s *Service) Get(ctx context.Context, id int64) (domain.Simulation, error) {
	if id <= 0 {
		return domain.Simulation{}, repo.ErrNotFound
	}
	return s.sims.GetByID(ctx, id)
}

// List returns all live simulations ordered by start time, then id.
func (s *Service) List(ctx context.Context) ([]domain.Simulation, error) {
	return s.sims.List(ctx, repo.SimulationFilter{})
}

// ListFromStartTime returns live simulations starting at or after the
// boundary, ordered by start time, then id.
func (s *Service) ListFromStartTime(ctx context.Context, boundary time.Time) ([]domain.Simulation, error) {
	b := boundary.UTC()
	return s.sims.List(ctx, repo.SimulationFilter{FromStartTime: &b})
}

func actorOrAnonymous(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return domain.ActorAnonymous
	}
	return actor
}

// recordAudit appends one audit entry for a committed mutation. The primary
// write has already committed when this runs, so failures here are logged
// and discarded; they never turn a success into a reported failure.
func (s *Service) recordAudit(ctx context.Context, entry domain.AuditEntry) {
	if s.audits == nil {
		return
	}
	if _, err := s.audits.Append(ctx, entry); err != nil {
		s.logger.Error("audit append failed",
			"simulation_id", entry.SimulationID,
			"action", string(entry.Action),
			"correlation_id", entry.CorrelationID,
			"error", err,
		)
	}
}
