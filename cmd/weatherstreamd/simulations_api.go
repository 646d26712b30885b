package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/weatherstream-labs/weatherstream-go/internal/domain"
	"github.com/weatherstream-labs/weatherstream-go/internal/platform/httpserver"
	"github.com/weatherstream-labs/weatherstream-go/internal/service/simulations"
)

type simulationResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	StartTime  string `json:"startTime"`
	DataSource string `json:"dataSource"`
	Status     string `json:"status"`
	Version    string `json:"version"`
}

func toSimulationResponse(sim domain.Simulation) simulationResponse {
	return simulationResponse{
		ID:         sim.ID,
		Name:       sim.Name,
		StartTime:  sim.StartTime.UTC().Format(time.RFC3339),
		DataSource: sim.FileName,
		Status:     string(sim.Status),
		Version:    sim.Token.String(),
	}
}

type createSimulationRequest struct {
	Name       string `json:"name"`
	StartTime  string `json:"startTime"`
	DataSource string `json:"dataSource"`
}

type updateSimulationRequest struct {
	Name       *string `json:"name,omitempty"`
	StartTime  *string `json:"startTime,omitempty"`
	DataSource *string `json:"dataSource,omitempty"`
	Status     *string `json:"status,omitempty"`
}

type auditEntryResponse struct {
	ID            int64                `json:"id"`
	SimulationID  int64                `json:"simulationId"`
	Actor         string               `json:"actor"`
	CorrelationID string               `json:"correlationId,omitempty"`
	OccurredAt    string               `json:"occurredAt"`
	Action        string               `json:"action"`
	Changes       []domain.FieldChange `json:"changes"`
	PrevVersion   string               `json:"prevVersion,omitempty"`
	NewVersion    string               `json:"newVersion,omitempty"`
}

func (api *simulationsAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSimulationRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}

	correlationID, _ := httpserver.CorrelationIDFromContext(r.Context())
	created, err := api.svc.Create(r.Context(), simulations.CreateCommand{
		Name:          req.Name,
		StartTime:     req.StartTime,
		DataSource:    req.DataSource,
		Actor:         actorFrom(r),
		CorrelationID: correlationID,
	})
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("ETag", created.Token.ETag())
	w.Header().Set("Location", "/api/simulations/"+strconv.FormatInt(created.ID, 10))
	api.writeJSON(w, http.StatusCreated, toSimulationResponse(created))
}

func (api *simulationsAPI) handleList(w http.ResponseWriter, r *http.Request) {
	sims, err := api.svc.List(r.Context())
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, toSimulationResponses(sims))
}

func (api *simulationsAPI) handleListByStartTime(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("start_time"))
	if raw == "" {
		api.writeError(w, r, http.StatusBadRequest, "start_time query parameter is required", nil)
		return
	}
	boundary, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		boundary, err = time.ParseInLocation("2006-01-02T15:04:05", raw, time.UTC)
		if err != nil {
			api.writeError(w, r, http.StatusBadRequest, "start_time must be a valid ISO-8601 timestamp", nil)
			return
		}
	}

	sims, err := api.svc.ListFromStartTime(r.Context(), boundary)
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, toSimulationResponses(sims))
}

func (api *simulationsAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := api.pathID(w, r)
	if !ok {
		return
	}

	sim, err := api.svc.Get(r.Context(), id)
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("ETag", sim.Token.ETag())
	api.writeJSON(w, http.StatusOK, toSimulationResponse(sim))
}

func (api *simulationsAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := api.pathID(w, r)
	if !ok {
		return
	}

	var req updateSimulationRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}

	correlationID, _ := httpserver.CorrelationIDFromContext(r.Context())
	updated, err := api.svc.Update(r.Context(), simulations.UpdateCommand{
		ID:            id,
		Name:          req.Name,
		StartTime:     req.StartTime,
		DataSource:    req.DataSource,
		Status:        req.Status,
		IfMatch:       r.Header.Get("If-Match"),
		Actor:         actorFrom(r),
		CorrelationID: correlationID,
	})
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("ETag", updated.Token.ETag())
	api.writeJSON(w, http.StatusOK, toSimulationResponse(updated))
}

func (api *simulationsAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := api.pathID(w, r)
	if !ok {
		return
	}

	correlationID, _ := httpserver.CorrelationIDFromContext(r.Context())
	res, err := api.svc.Delete(r.Context(), simulations.DeleteCommand{
		ID:            id,
		IfMatch:       r.Header.Get("If-Match"),
		Actor:         actorFrom(r),
		CorrelationID: correlationID,
	})
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}
	if !res.Deleted {
		api.writeError(w, r, http.StatusNotFound, "simulation not found", nil)
		return
	}

	w.Header().Set("ETag", res.NewToken.ETag())
	w.WriteHeader(http.StatusNoContent)
}

func (api *simulationsAPI) handleAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := api.pathID(w, r)
	if !ok {
		return
	}

	entries, err := api.svc.Audit(r.Context(), id)
	if err != nil {
		api.writeServiceError(w, r, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		changes := e.Changes
		if changes == nil {
			changes = []domain.FieldChange{}
		}
		out = append(out, auditEntryResponse{
			ID:            e.ID,
			SimulationID:  e.SimulationID,
			Actor:         e.Actor,
			CorrelationID: e.CorrelationID,
			OccurredAt:    e.OccurredAt.UTC().Format(time.RFC3339),
			Action:        string(e.Action),
			Changes:       changes,
			PrevVersion:   e.PrevToken,
			NewVersion:    e.NewToken,
		})
	}
	api.writeJSON(w, http.StatusOK, out)
}

func (api *simulationsAPI) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.writeError(w, r, http.StatusBadRequest, "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func toSimulationResponses(sims []domain.Simulation) []simulationResponse {
	out := make([]simulationResponse, 0, len(sims))
	for _, sim := range sims {
		out = append(out, toSimulationResponse(sim))
	}
	return out
}
