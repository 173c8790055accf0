// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	service "github.com/varvaraparamon/final-eval-bot/internal/app"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/dedupe"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Submit runs one update through the conversation and waits for its result.
	Submit(ctx context.Context, u model.Update) (service.Result, error)
}

// StatsProvider reports service statistics for GET /stats.
type StatsProvider interface {
	GetStats() map[string]any
}

// Server wires HTTP routes for the webhook API.
type Server struct {
	healthHandler  *HealthHandler
	stats          StatsProvider
	updatesHandler *UpdatesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := settings{
		requestTimeout: defaultRequestTimeout,
		log:            logger.Get().Named("api"),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		stats:          statsProvider,
		updatesHandler: newUpdatesHandler(deps, cfg),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", instrument("healthz", s.healthHandler.HandleHealth))
	mux.HandleFunc("/stats", instrument("stats", s.handleStats))
	mux.HandleFunc("/updates", instrument("updates", s.updatesHandler.HandlePostUpdate))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if s.stats == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.stats.GetStats())
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, requestID string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, RequestID: requestID})
}
