package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/api"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/infrastructure/config"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/scheduler"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/selection"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/service"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/store"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/weighting"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// ── Dependencies ────────────────────────────────────────────────
	db, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	policy, err := weighting.FromName(cfg.WeightPolicy)
	if err != nil {
		logger.Error("invalid weight policy", "error", err)
		os.Exit(1)
	}

	quizSvc := service.New(db, policy, selection.New(nil), logger)
	handler := api.NewHandler(quizSvc, logger)

	if cfg.RecalcInterval > 0 {
		sched := scheduler.New(quizSvc, logger, cfg.RecalcInterval)
		sched.Start()
		defer sched.Stop()
	}

	// ── Routes ──────────────────────────────────────────────────────
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	})

	api.RegisterRoutes(mux, handler)

	// ── Middleware chain: Logging → CORS → mux ──────────────────────
	logged := api.Logging(logger)(api.CORS(mux))

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           logged,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("starting server", "address", cfg.ServerAddress, "policy", policy.Name())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed to start", "error", err)
		os.Exit(1)
	}
}
