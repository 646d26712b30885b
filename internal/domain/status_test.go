package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateTransitionTable(t *testing.T) {
	cases := []struct {
		from, to   Status
		allowed    bool
		reasonPart string
	}{
		{StatusNotStarted, StatusInProgress, true, ""},
		{StatusInProgress, StatusCompleted, true, ""},
		{StatusNotStarted, StatusCompleted, false, "jump directly"},
		{StatusCompleted, StatusInProgress, false, "previous state"},
		{StatusInProgress, StatusNotStarted, false, "previous state"},
		{StatusCompleted, StatusNotStarted, false, "previous state"},
		{StatusNotStarted, StatusNotStarted, true, ""},
		{StatusInProgress, StatusInProgress, true, ""},
		{StatusCompleted, StatusCompleted, true, ""},
	}

	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to)
		if tc.allowed {
			if err != nil {
				t.Fatalf("transition %s -> %s should be allowed, got %v", tc.from, tc.to, err)
			}
			continue
		}
		var transErr *TransitionError
		if !errors.As(err, &transErr) {
			t.Fatalf("transition %s -> %s: expected TransitionError, got %v", tc.from, tc.to, err)
		}
		if transErr.From != tc.from || transErr.To != tc.to {
			t.Fatalf("transition error names wrong states: %+v", transErr)
		}
		if !strings.Contains(err.Error(), tc.reasonPart) {
			t.Fatalf("transition %s -> %s: error %q missing %q", tc.from, tc.to, err, tc.reasonPart)
		}
	}
}

func TestValidateTransitionRejectsUnknownStatus(t *testing.T) {
	if err := ValidateTransition(Status("Paused"), StatusCompleted); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if err := ValidateTransition(StatusNotStarted, Status("")); err == nil {
		t.Fatalf("expected error for empty target status")
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		input string
		want  Status
	}{
		{"NotStarted", StatusNotStarted},
		{"not started", StatusNotStarted},
		{"In Progress", StatusInProgress},
		{"inprogress", StatusInProgress},
		{"COMPLETED", StatusCompleted},
	}
	for _, tc := range cases {
		got, err := ParseStatus(tc.input)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseStatus(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}

	if _, err := ParseStatus("Cancelled"); err == nil {
		t.Fatalf("expected error for unknown status name")
	}
}
