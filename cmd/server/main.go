// screenvoice server - captures screen areas, recognizes their text, and
// speaks what changed
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/screenvoice/platform/internal/area"
	"github.com/screenvoice/platform/internal/capture"
	"github.com/screenvoice/platform/internal/config"
	"github.com/screenvoice/platform/internal/diag"
	"github.com/screenvoice/platform/internal/history"
	"github.com/screenvoice/platform/internal/layout"
	"github.com/screenvoice/platform/internal/ocr"
	"github.com/screenvoice/platform/internal/resilience"
	"github.com/screenvoice/platform/internal/scanner"
	"github.com/screenvoice/platform/internal/scheduler"
	"github.com/screenvoice/platform/internal/server"
	"github.com/screenvoice/platform/internal/settings"
	"github.com/screenvoice/platform/internal/speech"
	"github.com/screenvoice/platform/internal/trigger"
)

func main() {
	cfg := config.Load()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		slog.Error("failed to create data dir", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	db, err := badger.Open(badger.DefaultOptions(filepath.Join(cfg.DataDir, "store")).WithLogger(nil))
	if err != nil {
		slog.Error("failed to open store, falling back to in-memory", "error", err)
		db, err = badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
		if err != nil {
			slog.Error("failed to open in-memory store", "error", err)
			os.Exit(1)
		}
	}
	defer func() { _ = db.Close() }()

	// A missing engine degrades to a frozen pipeline instead of exiting,
	// so the UI stays reachable for reconfiguration.
	degraded := false
	engine := ocr.NewTesseract()
	if err := engine.Available(); err != nil {
		slog.Error("ocr engine unavailable, starting frozen", "error", err)
		degraded = true
	}

	speaker := speech.NewExecEngine()
	if err := speaker.Available(); err != nil {
		slog.Error("speech engine unavailable, starting frozen", "error", err)
		degraded = true
	}

	layouts := layout.NewStore(db)
	store := settings.NewStore(loadSettings(layouts, cfg))
	if degraded {
		store.SetFrozen(true)
	}
	hist := history.NewLog()
	sink := diag.NewSink(64)

	provider := capture.New()
	defer provider.Close()

	breaker := resilience.NewBreaker("ocr", resilience.Settings{})
	scans := scanner.New(provider, engine, breaker, hist, store, sink)
	disp := speech.NewDispatcher(speaker, sink)

	reg := area.NewRegistry(64)
	restoreLayout(layouts, reg)

	var src trigger.Source
	if cfg.HotkeysEnabled {
		src = trigger.NewHotkey(16)
	}

	sched := scheduler.New(reg, scans, disp, store, src, sink)
	srv := server.New(reg, hist, sched, disp, store, layouts, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go disp.Run(ctx)
	go sched.Run(ctx)
	if src != nil {
		go func() {
			if err := src.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("hotkey source stopped", "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket connections stay open
	}

	go func() {
		slog.Info("screenvoice server starting", "http", cfg.HTTPAddr, "data_dir", cfg.DataDir)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	if err := layouts.SaveSettings(store.Get()); err != nil {
		slog.Warn("failed to persist settings", "error", err)
	}
	cancel()
	disp.CancelAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	slog.Info("shutdown complete")
}

// loadSettings prefers the persisted settings document over environment
// defaults, always starting unfrozen.
func loadSettings(layouts *layout.Store, cfg *config.Config) settings.Settings {
	if saved, ok, err := layouts.LoadSettings(); err == nil && ok {
		saved.Frozen = false
		return saved
	} else if err != nil {
		slog.Warn("stored settings unreadable, using defaults", "error", err)
	}
	return settings.FromConfig(cfg)
}

// restoreLayout loads the last active layout. A corrupt document leaves
// the registry empty rather than half-populated.
func restoreLayout(layouts *layout.Store, reg *area.Registry) {
	name, ok, err := layouts.LastLayout()
	if err != nil || !ok {
		return
	}
	l, err := layouts.LoadLayout(name)
	if err != nil {
		slog.Warn("last layout unusable, starting empty", "name", name, "error", err)
		return
	}
	if err := reg.LoadLayout(l); err != nil {
		slog.Warn("last layout rejected, starting empty", "name", name, "error", err)
		return
	}
	slog.Info("layout restored", "name", name, "areas", len(l.Areas))
}
