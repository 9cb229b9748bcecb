package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
)

// APIServer provides an HTTP interface for the trading engine.
type APIServer struct {
	server *http.Server
	engine *Engine
	logger *zap.Logger
}

// NewAPIServer creates a new APIServer listening on the configured port.
func NewAPIServer(engine *Engine, logger *zap.Logger) *APIServer {
	s := &APIServer{
		engine: engine,
		logger: logger.Named("api-server"),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", engine.cfg.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routes of the server.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(s.engine.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// StatusResponse is the body of /status.
type StatusResponse struct {
	UUID           string `json:"uuid"`
	Name           string `json:"name"`
	BuyPolicy      string `json:"buy_policy"`
	Simulated      bool   `json:"simulated"`
	StartTime      string `json:"start_time"`
	Uptime         string `json:"uptime"`
	Tracked        int    `json:"tracked"`
	OpenPositions  int    `json:"open_positions"`
	Targets        int    `json:"targets"`
	AvailableSlots int    `json:"available_slots"`
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	e := s.engine
	status := StatusResponse{
		UUID:           e.UUID,
		Name:           e.Name,
		BuyPolicy:      e.policy.Name(),
		Simulated:      e.swapper.Simulated(),
		StartTime:      e.StartTime.Format(time.RFC3339),
		Uptime:         time.Since(e.StartTime).Round(time.Second).String(),
		Tracked:        e.store.Len(),
		OpenPositions:  e.store.CountByStatus(models.StatusOpen),
		Targets:        e.store.CountByStatus(models.StatusTarget),
		AvailableSlots: AvailableSlots(e.store, e.cfg.Trading.MaxActivePositions),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Failed to write status response", zap.Error(err))
		http.Error(w, "Failed to encode status", http.StatusInternalServerError)
	}
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
