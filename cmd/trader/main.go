package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/config"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/database"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/logger"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/solana"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/store"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/swap"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/tracker"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/trader"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Trade journal
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open trade journal", zap.Error(err))
	}
	journal := database.NewJournal(db)
	log.Info("Trade journal ready", zap.String("dsn", cfg.Database.DSN))

	// Asset store
	st := store.New(
		store.NewFilePersister(cfg.Store.Path),
		log,
		store.WithDebounce(cfg.Store.Debounce),
		store.WithTrailing(cfg.Trading.TrailingStopPercent, cfg.Trading.TrailingTakeProfitPercent),
	)
	if err := st.Load(); err != nil {
		log.Fatal("Failed to load asset snapshot", zap.String("path", cfg.Store.Path), zap.Error(err))
	}

	market := tracker.NewRestClient(&cfg.Tracker, log)

	var wallet *solana.Wallet
	if cfg.Solana.WalletAddress != "" {
		rpc := solana.NewRPCClient(cfg.Solana.RpcURL, log, solana.WithTimeout(cfg.Tracker.Timeout))
		wallet, err = solana.NewWallet(rpc, cfg.Solana.WalletAddress)
		if err != nil {
			log.Fatal("Invalid wallet address", zap.Error(err))
		}
	}

	executor, err := swap.NewExecutor(&cfg.Swap, cfg.Solana.WalletAddress, market, log)
	if err != nil {
		log.Fatal("Failed to build swap executor", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := trader.Deps{
		Market:   market,
		Swap:     executor,
		Journal:  journal,
		Registry: reg,
	}
	// paper positions are not in the wallet, reconciling them would close them all
	if wallet != nil && !executor.Simulated() {
		deps.Wallet = wallet
	} else {
		log.Info("Wallet reconciliation disabled", zap.Bool("simulated", executor.Simulated()))
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	tradeEngine := trader.NewEngine(log, &cfg, st, deps)

	apiServer := trader.NewAPIServer(tradeEngine, log)
	apiServer.Start()

	tradeEngine.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
