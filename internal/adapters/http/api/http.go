// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/pvnet/internal/adapters/repository"
	"github.com/okian/pvnet/internal/domain/model"
	"github.com/okian/pvnet/internal/domain/pipeline"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Submit queues a dataset build. Errors carry one of the package kinds.
	Submit(ctx context.Context, s Submission) (Receipt, error)

	// Dataset returns one build record or an error matching ErrNotFound.
	Dataset(ctx context.Context, id string) (repository.Record, error)

	// Datasets lists build records newest first.
	Datasets(ctx context.Context, limit int) ([]repository.Record, error)
}

// Submission is a validated build request.
type Submission struct {
	RequestID string
	Events    []model.RawEvent
	Params    pipeline.Params
}

// Receipt acknowledges a submission.
type Receipt struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Server wires HTTP routes for the dataset API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	datasetsHandler *DatasetsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		datasetsHandler: NewDatasetsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /datasets", MetricsMiddleware(s.datasetsHandler.HandleCreate, "datasets_create"))
	mux.HandleFunc("GET /datasets", MetricsMiddleware(s.datasetsHandler.HandleList, "datasets_list"))
	mux.HandleFunc("GET /datasets/{id}", MetricsMiddleware(s.datasetsHandler.HandleGet, "datasets_get"))
	mux.HandleFunc("GET /datasets/{id}/rows", MetricsMiddleware(s.datasetsHandler.HandleRows, "datasets_rows"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeKindError maps an error kind to its status and code.
func writeKindError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrConfiguration):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrNotReady):
		writeError(w, http.StatusConflict, "not_ready", err)
	case errors.Is(err, ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
