package postgres

import (
	"strings"
	"testing"
)

func TestCasQueriesGuardTokenAndLiveness(t *testing.T) {
	if !strings.Contains(casUpdateSimulationQuery, "row_version = $7") {
		t.Fatalf("expected token predicate in CAS update query")
	}
	if !strings.Contains(casUpdateSimulationQuery, "is_deleted = FALSE") {
		t.Fatalf("expected liveness predicate in CAS update query")
	}
	if !strings.Contains(casSoftDeleteSimulationQuery, "row_version = $3") {
		t.Fatalf("expected token predicate in CAS soft-delete query")
	}
	if !strings.Contains(casSoftDeleteSimulationQuery, "is_deleted = FALSE") {
		t.Fatalf("expected liveness predicate in CAS soft-delete query")
	}
}

func TestReadQueriesExcludeSoftDeletedRows(t *testing.T) {
	for name, query := range map[string]string{
		"get by id":     selectSimulationByIDQuery,
		"current token": selectCurrentTokenQuery,
		"in use":        dataSourceInUseQuery,
	} {
		if !strings.Contains(query, "is_deleted = FALSE") {
			t.Fatalf("%s query must filter soft-deleted rows", name)
		}
	}
}

func TestInsertMintsFreshVersion(t *testing.T) {
	if !strings.Contains(insertSimulationQuery, "row_version") {
		t.Fatalf("insert must persist the minted token")
	}
	if !strings.Contains(insertSimulationQuery, "RETURNING id") {
		t.Fatalf("insert must return the assigned id")
	}
}
