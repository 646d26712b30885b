package domain

import (
	"errors"
	"testing"
	"time"
)

func TestEnsureMutableForUpdateFreezesFieldsAfterStart(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sim := Simulation{
		ID:        5,
		Name:      "Gulf Stream",
		StartTime: start,
		FileName:  `C:\data\a.csv`,
		Status:    StatusInProgress,
	}

	otherFile := `C:\data\b.csv`
	if err := sim.EnsureMutableForUpdate(&otherFile, nil); err == nil {
		t.Fatalf("expected immutability violation for data source change")
	} else {
		var immErr *ImmutabilityError
		if !errors.As(err, &immErr) || immErr.Field != "DataSource" {
			t.Fatalf("expected DataSource immutability error, got %v", err)
		}
	}

	otherStart := start.Add(time.Hour)
	var immErr *ImmutabilityError
	if err := sim.EnsureMutableForUpdate(nil, &otherStart); !errors.As(err, &immErr) {
		t.Fatalf("expected immutability violation for start time change, got %v", err)
	} else if immErr.Field != "StartTime" {
		t.Fatalf("expected StartTime field, got %q", immErr.Field)
	}
}

func TestEnsureMutableForUpdateAllowsSameValues(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sim := Simulation{
		ID:        5,
		StartTime: start,
		FileName:  `C:\data\a.csv`,
		Status:    StatusCompleted,
	}

	sameFile := sim.FileName
	sameStart := start
	if err := sim.EnsureMutableForUpdate(&sameFile, &sameStart); err != nil {
		t.Fatalf("unchanged values should pass: %v", err)
	}
	if err := sim.EnsureMutableForUpdate(nil, nil); err != nil {
		t.Fatalf("absent candidates should pass: %v", err)
	}
}

func TestEnsureMutableForUpdateNotStartedIsUnrestricted(t *testing.T) {
	sim := Simulation{
		ID:        5,
		StartTime: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		FileName:  `C:\data\a.csv`,
		Status:    StatusNotStarted,
	}
	newFile := `C:\data\b.csv`
	newStart := sim.StartTime.Add(48 * time.Hour)
	if err := sim.EnsureMutableForUpdate(&newFile, &newStart); err != nil {
		t.Fatalf("NotStarted simulations accept new values: %v", err)
	}
}

func TestAuditEntryValidate(t *testing.T) {
	entry := AuditEntry{
		SimulationID: 5,
		Actor:        ActorAnonymous,
		OccurredAt:   time.Now().UTC(),
		Action:       AuditActionUpdate,
	}
	if err := entry.Validate(); err != nil {
		t.Fatalf("valid entry rejected: %v", err)
	}

	bad := entry
	bad.Actor = " "
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected actor validation error")
	}

	bad = entry
	bad.Action = "Create"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected action validation error")
	}

	bad = entry
	bad.SimulationID = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected simulation id validation error")
	}
}
