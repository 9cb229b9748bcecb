package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/config"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/database"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/logger"
)

// uiPortOffset keeps the dashboard off the bot's own status port.
const uiPortOffset = 1

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	apiHandler := NewAPIHandler(log, database.NewJournal(db), cfg.Store.Path)

	addr := fmt.Sprintf(":%d", cfg.Server.Port+uiPortOffset)
	server := &http.Server{
		Addr:              addr,
		Handler:           newRouter(apiHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("Starting web server", zap.String("address", addr))

	if err := server.ListenAndServe(); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}

func newRouter(h *APIHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", h.StatusHandler)
	mux.HandleFunc("/api/trades", h.TradesHandler)
	mux.HandleFunc("/api/statistics", h.StatisticsHandler)
	mux.HandleFunc("/api/positions", h.PositionsHandler)
	return mux
}
