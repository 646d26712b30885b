package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/weatherstream-labs/weatherstream-go/internal/token"
)

const (
	// MaxNameLength bounds the descriptive simulation name.
	MaxNameLength = 70
	// MaxFileNameLength bounds data source paths (Windows MAX_PATH).
	MaxFileNameLength = 260
)

// Simulation is a weather data streaming simulation lifecycle record.
//
// ID is assigned at creation and immutable. FileName and StartTime are
// frozen once the simulation leaves NotStarted. IsDeleted, once set, makes
// the record invisible to reads and ineligible for further writes. Token is
// regenerated by the repository on every committed mutation.
type Simulation struct {
	ID        int64
	Name      string
	StartTime time.Time
	FileName  string
	Status    Status
	IsDeleted bool
	Token     token.Token
}

func (s Simulation) Validate() error {
	if s.ID < 0 {
		return errors.New("simulation id must not be negative")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("simulation name is required")
	}
	if len(s.Name) > MaxNameLength {
		return &ValidationError{Field: "Name", Message: "cannot exceed 70 characters"}
	}
	if strings.TrimSpace(s.FileName) == "" {
		return errors.New("simulation data source is required")
	}
	if len(s.FileName) > MaxFileNameLength {
		return &ValidationError{Field: "DataSource", Message: "cannot exceed 260 characters"}
	}
	if !s.Status.Valid() {
		return errors.New("simulation status is invalid")
	}
	return nil
}

// EnsureMutableForUpdate enforces the frozen-field rule against the current
// record: once status is past NotStarted, neither the data source nor the
// start time may change to a different value. Nil candidates mean the patch
// leaves the field untouched. This is business-rule validation and is
// independent of whether the caller's concurrency token matches.
func (s Simulation) EnsureMutableForUpdate(candidateFileName *string, candidateStartTime *time.Time) error {
	if s.Status == StatusNotStarted {
		return nil
	}
	if candidateFileName != nil && *candidateFileName != s.FileName {
		return &ImmutabilityError{
			Field:  "DataSource",
			Reason: "cannot be changed after the simulation has started",
		}
	}
	if candidateStartTime != nil && !candidateStartTime.Equal(s.StartTime) {
		return &ImmutabilityError{
			Field:  "StartTime",
			Reason: "cannot be changed after the simulation has started",
		}
	}
	return nil
}
