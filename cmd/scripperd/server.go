package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/PragmaticsGhost/scripper/internal/api"
	"github.com/PragmaticsGhost/scripper/internal/catalog"
	"github.com/PragmaticsGhost/scripper/internal/config"
	"github.com/PragmaticsGhost/scripper/internal/pipeline"
	"github.com/PragmaticsGhost/scripper/internal/resolver"
	"github.com/PragmaticsGhost/scripper/internal/tag"
	"github.com/PragmaticsGhost/scripper/internal/transcode"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 200 { // Only capture first WriteHeader call
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		log.Info("http request",
			"request_id", uuid.NewString(),
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func runServer(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if problems := cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "config: %s\n", p)
		}
		return fmt.Errorf("invalid config: %d problem(s)", len(problems))
	}

	// Create logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	// Catalog directory is created on startup if missing
	cat, err := catalog.New(cfg.Downloads.Dir)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	// === Pipeline ===
	ytdlp := resolver.NewYTDLP(cfg.Downloads.ResolveTimeout(), logger.With("component", "ytdlp"))
	res := resolver.New(ytdlp, ytdlp, cat.Root(), logger.With("component", "resolver"))
	ffmpeg := transcode.NewFFmpeg(cfg.Downloads.TranscodeTimeout(), logger.With("component", "transcode"))
	tagger := tag.NewTagger(logger.With("component", "tag"))
	pipe := pipeline.New(res, ffmpeg, tagger, logger.With("component", "pipeline"))

	// === HTTP Setup ===
	auth := api.NewAuthenticator(cfg.Auth.Secret, cfg.Auth.Password)
	srv := api.New(pipe, cat, auth, logger.With("component", "api"))

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	handler := logRequests(api.SecureHeaders(api.CORS(cfg.Server.CORSOrigins, mux)), logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting",
		"addr", addr,
		"downloads", cat.Root(),
		"cors_origins", len(cfg.Server.CORSOrigins),
		"log_level", cfg.Server.LogLevel,
	)

	httpSrv := &http.Server{Addr: addr, Handler: handler}

	// Start server in goroutine
	go func() {
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())

	// Graceful HTTP shutdown with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
