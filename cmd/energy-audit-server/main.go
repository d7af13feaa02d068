// energy-audit-server keeps audit reports for a set of input files up to
// date and exposes every run over a REST API and a WebSocket stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/openeurope/energyaudit/internal/api"
	"github.com/openeurope/energyaudit/internal/archive"
	"github.com/openeurope/energyaudit/internal/auth"
	"github.com/openeurope/energyaudit/internal/config"
	"github.com/openeurope/energyaudit/internal/findings"
	"github.com/openeurope/energyaudit/internal/pipeline"
	"github.com/openeurope/energyaudit/internal/store"
	"github.com/openeurope/energyaudit/internal/watch"
	"github.com/openeurope/energyaudit/internal/ws"
	"github.com/openeurope/energyaudit/pkg/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve static UI files from this directory; overrides server.ui_dir")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("energy-audit-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if *uiDir != "" {
		cfg.Server.UIDir = *uiDir
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"inputs", len(cfg.Server.Inputs),
		"output_dir", cfg.Audit.OutputDir,
		"run_ttl", cfg.Server.RunTTL,
		"rules", len(cfg.Audit.Findings.Rules),
		"auth_mode", cfg.Server.Auth.Mode,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Run store with background TTL eviction.
	st := store.New(cfg.Server.RunTTL)
	go st.Run(ctx)

	// Findings engine, evaluated on every finished run.
	engine, err := findings.New(cfg.Audit.Findings)
	if err != nil {
		slog.Error("failed to build findings engine", "err", err)
		os.Exit(1)
	}

	runner := pipeline.New(cfg.Audit, engine)

	// WebSocket hub: periodic snapshot plus a push after every run.
	hub := ws.New(st, engine, cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	// Optional SQLite archive: reload recent runs, then keep every new one.
	var arch *archive.Archive
	if cfg.Server.Archive != "" {
		arch, err = archive.Open(cfg.Server.Archive)
		if err != nil {
			slog.Error("failed to open run archive", "path", cfg.Server.Archive, "err", err)
			os.Exit(1)
		}
		defer arch.Close()

		var since time.Time
		if ttl := cfg.Server.RunTTL; ttl > 0 {
			since = time.Now().Add(-ttl)
			if n, err := arch.DeleteBefore(ctx, since); err != nil {
				slog.Warn("archive: pruning failed", "err", err)
			} else if n > 0 {
				slog.Info("archive: pruned expired runs", "count", n)
			}
		}
		restored, err := arch.Recent(ctx, since)
		if err != nil {
			slog.Error("failed to load archived runs", "err", err)
			os.Exit(1)
		}
		for i := len(restored) - 1; i >= 0; i-- {
			st.PutAt(restored[i], restored[i].FinishedAt)
		}
		slog.Info("archive: restored runs", "path", cfg.Server.Archive, "count", len(restored))
	}

	archiveRun := func(run *types.Run) {
		if arch == nil {
			return
		}
		md, err := os.ReadFile(run.ReportPath)
		if err != nil {
			slog.Warn("archive: report not readable", "run", run.ID, "err", err)
			md = nil
		}
		if err := arch.Save(ctx, run, md); err != nil {
			slog.Error("archive: save failed", "run", run.ID, "err", err)
		}
	}

	record := func(run *types.Run) {
		archiveRun(run)
		st.Put(run)
		hub.Notify(run)
	}

	// Audit every watched input once at startup, then on each write.
	audit := func(path string) {
		src := pipeline.FromFile(path)
		src.OutputDir = filepath.Join(cfg.Audit.OutputDir, src.Stem())
		run, err := runner.Run(ctx, src)
		if err != nil {
			return // logged by the runner
		}
		record(run)
	}
	for _, in := range cfg.Server.Inputs {
		audit(in)
	}
	go func() {
		if err := watch.Files(ctx, cfg.Server.Inputs, watch.DefaultDebounce, audit); err != nil {
			slog.Error("input watcher stopped", "err", err)
		}
	}()

	// Watch config file for hot-reload (logs only; restart to apply).
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			slog.Info("config hot-reloaded; restart to apply",
				"inputs", len(updated.Server.Inputs),
				"rules", len(updated.Audit.Findings.Rules),
			)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	httpMux := http.NewServeMux()
	apiOpts := api.Options{
		UploadDir:      filepath.Join(cfg.Audit.OutputDir, "uploads"),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		OnRun: func(run *types.Run) {
			archiveRun(run)
			hub.Notify(run)
		},
	}
	if arch != nil {
		apiOpts.Reports = arch
	}
	apiHandler := api.New(st, runner, engine, apiOpts)
	httpMux.Handle("/api/", auth.APIKey(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
		apiHandler,
	))
	httpMux.Handle("/ws/stream", hub)

	// The "/" catch-all serves index.html for unknown paths (SPA routing).
	if dir := cfg.Server.UIDir; dir != "" {
		fs := http.FileServer(http.Dir(dir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, filepath.Join(dir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", dir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("energy-audit-server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	engine.Wait()
}
