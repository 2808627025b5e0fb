// Package app assembles storage, repository, export engine, metrics and the
// HTTP stack from a Config. Both binaries start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/Netonia/POIMapper/internal/config"
	"github.com/Netonia/POIMapper/internal/export"
	"github.com/Netonia/POIMapper/internal/metrics"
	"github.com/Netonia/POIMapper/internal/middleware"
	"github.com/Netonia/POIMapper/internal/repository"
	"github.com/Netonia/POIMapper/internal/service"
	"github.com/Netonia/POIMapper/internal/storage"
	"github.com/Netonia/POIMapper/internal/storage/backend"
)

const shutdownTimeout = 10 * time.Second

// App holds the wired components.
type App struct {
	Config   *config.Config
	Store    storage.Store
	Repo     *repository.Repository
	Exporter *export.Exporter
	Metrics  *metrics.Metrics
}

// Open connects the configured store and loads the POI collection.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := backend.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	repo := repository.New(store,
		repository.WithKey(cfg.Storage.Key),
		repository.WithLogger(slog.Default()),
	)
	repo.Subscribe(m.Observe)

	if err := repo.Initialize(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load POIs: %w", err)
	}
	slog.Info("POIs loaded", "count", repo.Count())

	return &App{
		Config:   cfg,
		Store:    store,
		Repo:     repo,
		Exporter: export.New(export.WithCSVQuoteEscaping(cfg.Export.CSVEscapeQuotes)),
		Metrics:  m,
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// Handler returns the full HTTP handler: API, metrics and static files,
// wrapped in recovery, logging, CORS and h2c.
func (a *App) Handler() http.Handler {
	r := mux.NewRouter()
	service.NewPOIService(a.Repo, a.Exporter, a.Metrics).Register(r)
	r.Handle("/metrics", a.Metrics.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(staticHandler(a.Config.Server.StaticPath))

	h := middleware.Recover(r)
	h = middleware.CORS(h)
	h = middleware.Logging(h)
	return h2c.NewHandler(h, &http2.Server{})
}

// Serve listens on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (a *App) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.Config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// staticHandler serves the frontend. Unknown paths fall back to index.html.
func staticHandler(staticPath string) http.Handler {
	staticDir, err := filepath.Abs(staticPath)
	if err != nil {
		slog.Warn("Failed to resolve static path", "path", staticPath, "error", err)
		return http.NotFoundHandler()
	}
	slog.Info("Serving static files", "path", staticDir)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+urlPath))
		if info, err := os.Stat(filePath); err != nil || info.IsDir() {
			index := filepath.Join(staticDir, "index.html")
			if _, err := os.Stat(index); err != nil {
				http.NotFound(w, r)
				return
			}
			http.ServeFile(w, r, index)
			return
		}

		http.ServeFile(w, r, filePath)
	})
}
