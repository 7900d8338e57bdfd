package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skylarkhq/gleaner/api"
	"github.com/skylarkhq/gleaner/browser"
	"github.com/skylarkhq/gleaner/config"
	"github.com/skylarkhq/gleaner/engine"
	"github.com/skylarkhq/gleaner/fallback"
	"github.com/skylarkhq/gleaner/fetch"
	"github.com/skylarkhq/gleaner/models"
	"github.com/skylarkhq/gleaner/sandbox"
	"github.com/skylarkhq/gleaner/store"
	"github.com/skylarkhq/gleaner/webagent"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("gleaner starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"webagent", cfg.WebAgent.BaseURL != "",
		"browser", cfg.Browser.Enabled,
	)

	// ── 3. Assemble fallback providers ──────────────────────────────
	// The external backend is preferred; the local browser engine is
	// the second candidate when enabled.
	var providers []fallback.Provider

	if cfg.WebAgent.BaseURL != "" {
		providers = append(providers, webagent.New(cfg.WebAgent))
		slog.Info("webagent provider registered", "baseURL", cfg.WebAgent.BaseURL)
	}

	var statsFn func() *models.PoolStats
	if cfg.Browser.Enabled {
		browserEng, err := browser.NewEngine(cfg.Browser)
		if err != nil {
			slog.Error("failed to initialise local browser engine", "error", err)
			os.Exit(1)
		}
		defer browserEng.Close()
		providers = append(providers, browserEng)
		statsFn = browserEng.Stats
		slog.Info("local browser provider registered", "maxPages", cfg.Browser.MaxPages)
	}

	if len(providers) == 0 {
		slog.Warn("no browser-driven provider configured: mode=browser and antibot fallback will fail closed")
	}

	// ── 4. Wire the engine ──────────────────────────────────────────
	eng := engine.New(
		cfg,
		fetch.New(cfg.Fetch),
		sandbox.NewExecutor(),
		fallback.NewOrchestrator(providers...),
		store.NewREST(cfg.Store),
	)

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(eng, statsFn, cfg, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// browserEng.Close() runs via defer — drains page pool and kills Chrome.
	slog.Info("gleaner stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
