// Package api exposes the orchestrator over HTTP: one endpoint to submit
// a transfer, one to force a resumption sweep outside its schedule.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mohitM0/eliza-tx/pkg/logger"
	"github.com/mohitM0/eliza-tx/pkg/models"
	"github.com/mohitM0/eliza-tx/pkg/orchestrator"
)

// submitTimeout bounds one synchronous submission: swap plans block until
// their last step confirms
const submitTimeout = 45 * time.Minute

// Orchestrator is the service surface the API fronts
type Orchestrator interface {
	Submit(ctx context.Context, req models.TransferRequest) models.Outcome
	RunDueSweep(ctx context.Context) error
}

type Server struct {
	port    string
	service Orchestrator
	logger  logger.Logger
}

func NewServer(port string, service Orchestrator, log logger.Logger) *Server {
	return &Server{port: port, service: service, logger: log}
}

// Handler returns the route table, separate from Start for tests
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/transfers", s.handleSubmit)
	mux.HandleFunc("/v1/sweeps/run", s.handleSweep)
	return mux
}

func (s *Server) Start() {
	s.logger.Info("Starting submission API on port %s", s.port)
	if err := http.ListenAndServe(":"+s.port, s.Handler()); err != nil {
		s.logger.Error("Submission API error: %v", err)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()

	outcome := s.service.Submit(ctx, req)

	w.Header().Set("Content-Type", "application/json")
	// The outcome is the payload either way; failed requests are still
	// well-formed responses, not transport errors
	if outcome.Status == models.StatusFailed {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		s.logger.Error("Error encoding outcome: %v", err)
	}
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := s.service.RunDueSweep(r.Context()); err != nil {
		if errors.Is(err, orchestrator.ErrSweepInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Sweep completed"))
}
