package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/weatherstream-labs/weatherstream-go/internal/datasource"
	"github.com/weatherstream-labs/weatherstream-go/internal/domain"
	"github.com/weatherstream-labs/weatherstream-go/internal/platform/httpserver"
	"github.com/weatherstream-labs/weatherstream-go/internal/platform/metrics"
	"github.com/weatherstream-labs/weatherstream-go/internal/repo"
	"github.com/weatherstream-labs/weatherstream-go/internal/service/simulations"
	"github.com/weatherstream-labs/weatherstream-go/internal/token"
)

type memSimRepo struct {
	byID   map[int64]domain.Simulation
	nextID int64
	inUse  bool
}

func newMemSimRepo() *memSimRepo {
	return &memSimRepo{byID: map[int64]domain.Simulation{}, nextID: 1}
}

func (m *memSimRepo) Create(_ context.Context, sim domain.Simulation) (domain.Simulation, error) {
	sim.ID = m.nextID
	m.nextID++
	tok, err := token.New()
	if err != nil {
		return domain.Simulation{}, err
	}
	sim.Token = tok
	m.byID[sim.ID] = sim
	return sim, nil
}

func (m *memSimRepo) GetByID(_ context.Context, id int64) (domain.Simulation, error) {
	sim, ok := m.byID[id]
	if !ok || sim.IsDeleted {
		return domain.Simulation{}, repo.ErrNotFound
	}
	return sim, nil
}

func (m *memSimRepo) List(_ context.Context, filter repo.SimulationFilter) ([]domain.Simulation, error) {
	var out []domain.Simulation
	for _, sim := range m.byID {
		if sim.IsDeleted {
			continue
		}
		if filter.FromStartTime != nil && sim.StartTime.Before(*filter.FromStartTime) {
			continue
		}
		out = append(out, sim)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memSimRepo) IsDataSourceInUse(_ context.Context, _ string) (bool, error) {
	return m.inUse, nil
}

func (m *memSimRepo) Update(_ context.Context, sim domain.Simulation, expected token.Token) (domain.Simulation, error) {
	cur, ok := m.byID[sim.ID]
	if !ok || cur.IsDeleted {
		return domain.Simulation{}, repo.ErrNotFound
	}
	if !cur.Token.Equal(expected) {
		return domain.Simulation{}, &repo.ConflictError{CurrentToken: cur.Token}
	}
	tok, err := token.New()
	if err != nil {
		return domain.Simulation{}, err
	}
	sim.Token = tok
	m.byID[sim.ID] = sim
	return sim, nil
}

func (m *memSimRepo) SoftDelete(_ context.Context, id int64, expected token.Token) (token.Token, error) {
	cur, ok := m.byID[id]
	if !ok || cur.IsDeleted {
		return nil, repo.ErrNotFound
	}
	if !cur.Token.Equal(expected) {
		return nil, &repo.ConflictError{CurrentToken: cur.Token}
	}
	tok, err := token.New()
	if err != nil {
		return nil, err
	}
	cur.IsDeleted = true
	cur.Token = tok
	m.byID[id] = cur
	return tok, nil
}

type memAuditRepo struct {
	entries []domain.AuditEntry
}

func (m *memAuditRepo) Append(_ context.Context, entry domain.AuditEntry) (int64, error) {
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return entry.ID, nil
}

func (m *memAuditRepo) ListBySimulation(_ context.Context, simulationID int64) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, e := range m.entries {
		if e.SimulationID == simulationID {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubValidator struct{ err error }

func (s stubValidator) Validate(_ context.Context, _ string) error { return s.err }

type testServer struct {
	handler http.Handler
	sims    *memSimRepo
	audits  *memAuditRepo
}

func newTestServer(t *testing.T, validator datasource.Validator) *testServer {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	sims := newMemSimRepo()
	audits := &memAuditRepo{}
	svc := simulations.New(sims, audits, validator, logger)

	mux := http.NewServeMux()
	api := newSimulationsAPI(logger, svc, metrics.New("test"))
	api.register(mux)
	return &testServer{
		handler: httpserver.Wrap(logger, mux),
		sims:    sims,
		audits:  audits,
	}
}

func (ts *testServer) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func futureTime(t *testing.T) string {
	t.Helper()
	return time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
}

func createSimulation(t *testing.T, ts *testServer) simulationResponse {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/simulations",
		`{"name":"storm replay","startTime":"`+futureTime(t)+`","dataSource":"storms/march.csv"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var sim simulationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sim); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return sim
}

func TestCreateReturns201WithETagAndLocation(t *testing.T) {
	ts := newTestServer(t, stubValidator{})
	rec := ts.do(t, http.MethodPost, "/api/simulations",
		`{"name":"storm replay","startTime":"`+futureTime(t)+`","dataSource":"storms/march.csv"}`, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("ETag") == "" {
		t.Fatal("missing ETag header")
	}
	if got := rec.Header().Get("Location"); got != "/api/simulations/1" {
		t.Fatalf("Location = %q", got)
	}
	var sim simulationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sim); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sim.Status != "NotStarted" || sim.Version == "" {
		t.Fatalf("unexpected body %+v", sim)
	}
}

func TestCreateMissingDataSourceIs404(t *testing.T) {
	ts := newTestServer(t, stubValidator{err: datasource.ErrNotFound})
	rec := ts.do(t, http.MethodPost, "/api/simulations",
		`{"name":"x","startTime":"`+futureTime(t)+`","dataSource":"missing.csv"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCreateInUseDataSourceIs423(t *testing.T) {
	ts := newTestServer(t, stubValidator{})
	ts.sims.inUse = true
	rec := ts.do(t, http.MethodPost, "/api/simulations",
		`{"name":"x","startTime":"`+futureTime(t)+`","dataSource":"busy.csv"}`, nil)
	if rec.Code != http.StatusLocked {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCreateValidationFailureBodyShape(t *testing.T) {
	ts := newTestServer(t, stubValidator{})
	rec := ts.do(t, http.MethodPost, "/api/simulations",
		`{"name":"","startTime":"`+futureTime(t)+`","dataSource":"a.csv"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.CorrelationID == "" || body.StatusCode != http.StatusBadRequest || body.Error == "" {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestGetReturnsETag(t *testing.T) {
	ts := newTestServer(t, stubValidator{})
	created := createSimulation(t, ts)

	rec := ts.do(t, http.MethodGet, "/api/simulations/1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("ETag"); got != `"`+created.Version+`"` {
		t.Fatalf("ETag = %q, want quoted %q", got, created.Version)
	}
}

func TestGetMissingIs404(t *testing.T) {
	ts := newTestServer(t, stubValidator{})
	rec := ts.do(t, http.MethodGet, "/api/simulations/99", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPatchRequiresIfMatch(t *testing.T) {
	ts := newTestServer(t, stubValidator{})
	createSimulation(t, ts)

	rec := ts.do(t, http.MethodPatch, "/api/simulations/1", `{"name":"renamed"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestPatchHappyPathRotatesETag(t *testing.T) {
	ts := newTestServer(t, stubValidator{})
	created := createSimulation(t, ts)

	rec := ts.do(t, http.MethodPatch, "/api/simulations/1", `{"name":"renamed","status":"InProgress"}`,
		map[string]string{"If-Match": `"` + created.Version + `"`, "X-Actor": "ops@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated simulationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Version == created.Version {
		t.Fatal("version must rotate on every committed write")
	}
	if rec.Header().Get("ETag") != `"`+updated.Version+`"` {
		t.Fatal("ETag must carry the new version")
	}
	if len(ts.audits.entries) != 1 || ts.audits.entries[0].Actor != "ops@example.com" {
		t.Fatalf("unexpected audit trail %+v", ts.audits.entries)
	}
}

func TestPatchStaleTokenIs409WithCurrentVersion(t *testing.T) {
	ts := newTestServer(t, stubValidator{})
	created := createSimulation(t, ts)

	stale, err := token.New()
	if err != nil {
		t.Fatal(err)
	}
	rec := ts.do(t, http.MethodPatch, "/api/simulations/1", `{"name":"loser"}`,
		map[string]string{"If-Match": stale.ETag()})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Details["currentVersion"] != created.Version {
		t.Fatalf("details = %+v, want currentVersion %q", body.Details, created.Version)
	}
}

func TestPatchImmutableFieldIs400(t *testing.T) {
	ts := newTestServer(t, stubValidator{})
	created := createSimulation(t, ts)

	rec := ts.do(t, http.MethodPatch, "/api/simulations/1", `{"status":"InProgress"}`,
		map[string]string{"If-Match": `"` + created.Version + `"`})
	if rec.Code != http.StatusOK {
		t.Fatalf("transition status = %d, body %s", rec.Code, rec.Body.String())
	}
	var started simulationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = ts.do(t, http.MethodPatch, "/api/simulations/1", `{"dataSource":"other.csv"}`,
		map[string]string{"If-Match": `"` + started.Version + `"`})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Details["field"] != "DataSource" {
		t.Fatalf("details = %+v, want field DataSource", body.Details)
	}
}

func TestDeleteLifecycle(t *testing.T) {
	ts := newTestServer(t, stubValidator{})
	created := createSimulation(t, ts)

	rec := ts.do(t, http.MethodDelete, "/api/simulations/1", "",
		map[string]string{"If-Match": `"` + created.Version + `"`})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("ETag") == "" {
		t.Fatal("delete must surface the newly minted version")
	}

	rec = ts.do(t, http.MethodDelete, "/api/simulations/1", "",
		map[string]string{"If-Match": `"` + created.Version + `"`})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("repeat delete status = %d, want 404", rec.Code)
	}
	if rec2 := ts.do(t, http.MethodGet, "/api/simulations/1", "", nil); rec2.Code != http.StatusNotFound {
		t.Fatal("deleted simulation must be invisible to reads")
	}
}

func TestListByStartTimeRequiresParameter(t *testing.T) {
	ts := newTestServer(t, stubValidator{})
	rec := ts.do(t, http.MethodGet, "/api/simulations/by-start-time", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/simulations/by-start-time?start_time=garbage", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuditTrailEndpoint(t *testing.T) {
	ts := newTestServer(t, stubValidator{})
	created := createSimulation(t, ts)

	ts.do(t, http.MethodPatch, "/api/simulations/1", `{"name":"renamed"}`,
		map[string]string{"If-Match": `"` + created.Version + `"`})

	rec := ts.do(t, http.MethodGet, "/api/simulations/1/audit", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var entries []auditEntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "Update" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if len(entries[0].Changes) != 1 || entries[0].Changes[0].Field != "Name" {
		t.Fatalf("unexpected changes %+v", entries[0].Changes)
	}
}

func TestOpenAPIDocumentIsValid(t *testing.T) {
	if _, err := loadOpenAPIDoc(context.Background()); err != nil {
		t.Fatalf("embedded openapi document: %v", err)
	}
}
