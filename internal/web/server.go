package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/config"
	"github.com/hpungsan/chartd/internal/identity"
	"github.com/hpungsan/chartd/internal/ops"
	"github.com/hpungsan/chartd/internal/render"
	"github.com/hpungsan/chartd/internal/renderer"
	"github.com/hpungsan/chartd/internal/screen"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the chart editor UI
// and the render endpoint. extra holds presets loaded from the presets file.
func NewServer(db *sql.DB, cfg *config.Config, extra chart.Presets, version string, logger *slog.Logger) (*http.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h, err := newHandlers(db, cfg, extra, version, logger)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           securityHeaders(logRequests(logger, h.routes(logger))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(h.screens.closeAll)
	return srv, nil
}

func newHandlers(db *sql.DB, cfg *config.Config, extra chart.Presets, version string, logger *slog.Logger) (*Handlers, error) {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}

	h := &Handlers{
		cfg:      cfg,
		renderer: NewRenderer(templateSub, version, logger),
		provider: identity.NewProvider(db, time.Duration(cfg.SessionTTLHours)*time.Hour),
		fetcher:  render.NewFetcher(time.Duration(cfg.RenderTimeoutSeconds)*time.Second, logger),
		public:   render.Builder{Origin: cfg.BaseOrigin, Path: cfg.RenderPath},
		internal: render.Builder{Origin: cfg.RendererBase(), Path: cfg.RenderPath},
	}

	gateway := ops.NewGateway(db)
	presets := editorPresets(extra)
	h.screens = newScreens(func(id string) *screen.Screen {
		return screen.New(screen.Options{
			ID:            id,
			Presets:       presets,
			Builder:       h.public,
			Session:       identity.NewSession(h.provider),
			Gateway:       gateway,
			Logger:        logger,
			DefaultWidth:  cfg.DefaultWidth,
			DefaultHeight: cfg.DefaultHeight,
		})
	})
	return h, nil
}

// routes builds the mux. The render endpoint is mounted at the configured
// render path.
func (h *Handlers) routes(logger *slog.Logger) *http.ServeMux {
	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static sub-FS: %v", err))
	}

	renderPath := h.cfg.RenderPath
	if renderPath == "" {
		renderPath = render.DefaultPath
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", h.HandleEditor)
	mux.HandleFunc("POST /editor", h.HandleUpdate)
	mux.HandleFunc("POST /presets/{key}", h.HandlePreset)
	mux.HandleFunc("GET "+previewPath, h.HandlePreview)
	mux.HandleFunc("GET /charts", h.HandleCharts)
	mux.HandleFunc("POST /charts", h.HandleSave)
	mux.HandleFunc("POST /charts/{id}/load", h.HandleLoad)
	mux.HandleFunc("DELETE /charts/{id}", h.HandleDelete)
	mux.HandleFunc("POST /charts/{id}/delete", h.HandleDelete)
	mux.HandleFunc("POST /signin", h.HandleSignIn)
	mux.HandleFunc("POST /signup", h.HandleSignUp)
	mux.HandleFunc("POST /signout", h.HandleSignOut)
	mux.Handle(renderPath, renderer.NewHandler(logger))

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return mux
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// logRequests logs each request at debug level.
func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("chartd UI running", "url", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
