package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/weatherstream-labs/weatherstream-go/internal/datasource"
	"github.com/weatherstream-labs/weatherstream-go/internal/domain"
	"github.com/weatherstream-labs/weatherstream-go/internal/platform/httpserver"
	"github.com/weatherstream-labs/weatherstream-go/internal/platform/metrics"
	"github.com/weatherstream-labs/weatherstream-go/internal/repo"
	"github.com/weatherstream-labs/weatherstream-go/internal/service/simulations"
	"github.com/weatherstream-labs/weatherstream-go/internal/token"
)

// actorHeader names the caller for audit attribution. It is set by the
// fronting proxy; absent it, mutations are attributed to "anonymous".
const actorHeader = "X-Actor"

type simulationsAPI struct {
	logger  *slog.Logger
	svc     *simulations.Service
	metrics *metrics.Metrics
	now     func() time.Time
}

func newSimulationsAPI(logger *slog.Logger, svc *simulations.Service, m *metrics.Metrics) *simulationsAPI {
	return &simulationsAPI{
		logger:  logger,
		svc:     svc,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (api *simulationsAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/simulations", api.handleCreate)
	mux.HandleFunc("GET /api/simulations", api.handleList)
	mux.HandleFunc("GET /api/simulations/by-start-time", api.handleListByStartTime)
	mux.HandleFunc("GET /api/simulations/{id}", api.handleGet)
	mux.HandleFunc("PATCH /api/simulations/{id}", api.handleUpdate)
	mux.HandleFunc("DELETE /api/simulations/{id}", api.handleDelete)
	mux.HandleFunc("GET /api/simulations/{id}/audit", api.handleAudit)
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	CorrelationID string         `json:"correlationId"`
	Timestamp     time.Time      `json:"timestamp"`
	StatusCode    int            `json:"statusCode"`
	Error         string         `json:"error"`
	Details       map[string]any `json:"details,omitempty"`
}

func (api *simulationsAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *simulationsAPI) writeError(w http.ResponseWriter, r *http.Request, status int, message string, details map[string]any) {
	correlationID, _ := httpserver.CorrelationIDFromContext(r.Context())
	api.writeJSON(w, status, errorResponse{
		CorrelationID: correlationID,
		Timestamp:     api.now(),
		StatusCode:    status,
		Error:         message,
		Details:       details,
	})
}

// writeServiceError maps domain and storage failures onto HTTP statuses. A
// stale-token conflict carries the record's current version so clients can
// refresh without a second round trip.
func (api *simulationsAPI) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr     *domain.ValidationError
		imm      *domain.ImmutabilityError
		terr     *domain.TransitionError
		conflict *repo.ConflictError
	)
	switch {
	case errors.Is(err, token.ErrMissing), errors.Is(err, token.ErrInvalid):
		api.writeError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.As(err, &verr):
		api.writeError(w, r, http.StatusBadRequest, verr.Error(), map[string]any{"field": verr.Field})
	case errors.As(err, &imm):
		api.writeError(w, r, http.StatusBadRequest, imm.Error(), map[string]any{"field": imm.Field})
	case errors.As(err, &terr):
		api.writeError(w, r, http.StatusBadRequest, terr.Error(), nil)
	case errors.Is(err, repo.ErrNotFound):
		api.writeError(w, r, http.StatusNotFound, "simulation not found", nil)
	case errors.Is(err, datasource.ErrNotFound):
		api.writeError(w, r, http.StatusNotFound, "data source not found", nil)
	case errors.Is(err, simulations.ErrDataSourceInUse):
		api.writeError(w, r, http.StatusLocked, err.Error(), nil)
	case errors.As(err, &conflict):
		api.metrics.ObserveConflict()
		details := map[string]any{}
		if !conflict.CurrentToken.IsZero() {
			details["currentVersion"] = conflict.CurrentToken.String()
		}
		api.writeError(w, r, http.StatusConflict, conflict.Error(), details)
	default:
		correlationID, _ := httpserver.CorrelationIDFromContext(r.Context())
		api.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"correlation_id", correlationID,
			"error", err,
		)
		api.writeError(w, r, http.StatusInternalServerError, "internal server error", nil)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err == nil {
		return errors.New("multiple JSON values")
	}
	return nil
}

func actorFrom(r *http.Request) string {
	actor := strings.TrimSpace(r.Header.Get(actorHeader))
	if actor == "" {
		return domain.ActorAnonymous
	}
	return actor
}
