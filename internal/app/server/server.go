package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pms/internal/domain/appraisal"
	"pms/internal/domain/audit"
	"pms/internal/domain/auth"
	"pms/internal/domain/masterdata"
	"pms/internal/platform/config"
	"pms/internal/platform/db"
	"pms/internal/platform/metrics"
	"pms/internal/platform/querier"
	"pms/internal/platform/storage"
	appraisalhandler "pms/internal/transport/http/handlers/appraisal"
	audithandler "pms/internal/transport/http/handlers/audit"
	authhandler "pms/internal/transport/http/handlers/auth"
	masterdatahandler "pms/internal/transport/http/handlers/masterdata"
	"pms/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      querier.DB
	Metrics *metrics.Collector
	Files   *storage.Local
	Router  http.Handler
}

// NewLogger builds the process logger from LOG_FORMAT and LOG_LEVEL.
func NewLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// New opens the database, applies migrations and seed data when configured,
// and builds the router. Close releases the database.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, conn, cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	app := &App{
		Config:  cfg,
		DB:      conn,
		Metrics: metrics.New(),
		Files:   storage.NewLocal(cfg.EvidenceDir, cfg.EvidenceBaseURL, cfg.MaxUploadBytes),
	}
	app.Router = app.routes()
	return app, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func (a *App) routes() http.Handler {
	cfg := a.Config
	perms := auth.StaticPermissions{}

	auditSvc := audit.New(a.DB)
	masterdataSvc := masterdata.NewService(masterdata.NewStore(a.DB))
	authSvc := auth.NewService(auth.NewStore(a.DB), cfg.JWTSecret, cfg.TokenTTL)

	appraisalSvc := appraisal.NewService(appraisal.NewStore(a.DB), a.Files)
	appraisalSvc.Recorder = a.Metrics
	appraisalSvc.FanoutLimit = cfg.ReadFanoutLimit

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(a.Metrics))
	}
	router.Use(middleware.SecureHeaders(cfg.Environment == "production", evidencePath(cfg.EvidenceBaseURL)))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes, cfg.MaxUploadBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", a.Metrics.Handler())
	}

	if base := evidencePath(cfg.EvidenceBaseURL); base != "" {
		router.With(middleware.RequireAuth).Handle(base+"/*", a.Files.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authhandler.NewHandler(authSvc, masterdataSvc).RegisterRoutes(r)
		masterdatahandler.NewHandler(masterdataSvc, perms, auditSvc).RegisterRoutes(r)
		appraisalhandler.NewHandler(
			appraisalSvc,
			perms,
			auditSvc,
			middleware.NewIdempotencyStore(a.DB),
			cfg.MaxUploadBytes,
		).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, perms).RegisterRoutes(r)
	})

	return router
}

// evidencePath is the local route for stored evidence; the base URL may be
// absolute when files sit behind a separate host name.
func evidencePath(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return strings.TrimRight(u.Path, "/")
}

// Serve listens on cfg.Addr until ctx is cancelled, then drains in-flight
// requests.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("pms server listening", "addr", a.Config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Run builds the app from cfg and serves until ctx is done.
func Run(ctx context.Context, cfg config.Config) error {
	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Serve(ctx)
}
