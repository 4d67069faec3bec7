package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/evaluation"
	"perfeval/internal/domain/notifications"
	"perfeval/internal/platform/config"
	"perfeval/internal/platform/db"
	"perfeval/internal/platform/email"
	"perfeval/internal/platform/jobs"
	"perfeval/internal/platform/metrics"
	"perfeval/internal/platform/push"
	"perfeval/internal/transport/http/api"
	audithandler "perfeval/internal/transport/http/handlers/audit"
	authhandler "perfeval/internal/transport/http/handlers/auth"
	evaluationhandler "perfeval/internal/transport/http/handlers/evaluation"
	notificationshandler "perfeval/internal/transport/http/handlers/notifications"
	"perfeval/internal/transport/http/middleware"
)

type App struct {
	Config     config.Config
	DB         *pgxpool.Pool
	Router     http.Handler
	Evaluation *evaluation.Service
	Metrics    *metrics.Collector

	dispatcher *notifications.Dispatcher
	jobs       *jobs.Service
	cancel     context.CancelFunc
}

// New connects to the database, applies migrations and wires every service.
// Background workers start here; Close stops them.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	identity := auth.NewStore(pool)
	if cfg.RunSeed {
		if err := db.Seed(ctx, identity, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	collector := metrics.New()
	auditSvc := audit.New(pool)

	mailer := email.New(cfg)
	pusher, err := push.New(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("push: %w", err)
	}
	notifySvc := notifications.New(notifications.NewStore(pool), mailer, pusher)
	notifySvc.DefaultFrom = cfg.EmailFrom
	notifySvc.Observer = collector

	dispatcher := notifications.NewDispatcher(notifySvc, cfg.NotifyWorkers, cfg.NotifyQueueSize)
	dispatcher.Start()

	evalSvc := evaluation.NewService(
		evaluation.NewStore(pool),
		identity,
		evaluation.WithPublisher(dispatcher),
		evaluation.WithAuditor(auditSvc),
		evaluation.WithObserver(collector),
		evaluation.WithDefaultScoringMethod(evaluation.ScoringMethod(cfg.DefaultScoringMethod)),
		evaluation.WithMaxRating(cfg.MaxRating),
	)

	jobCtx, cancel := context.WithCancel(context.Background())
	scheduler := jobs.New(evalSvc, cfg)
	if err := scheduler.Start(jobCtx); err != nil {
		cancel()
		dispatcher.Close()
		pool.Close()
		return nil, err
	}

	app := &App{
		Config:     cfg,
		DB:         pool,
		Evaluation: evalSvc,
		Metrics:    collector,
		dispatcher: dispatcher,
		jobs:       scheduler,
		cancel:     cancel,
	}
	app.Router = app.routes(identity, auditSvc, notifySvc)
	return app, nil
}

func (a *App) routes(identity *auth.Store, auditSvc *audit.Service, notifySvc *notifications.Service) http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(auth.NewVerifier(cfg.JWTSecret)))

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
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authhandler.NewHandler(identity).RegisterRoutes(r)
		evaluationhandler.NewHandler(a.Evaluation).RegisterRoutes(r)
		notificationshandler.NewHandler(notifySvc, cfg.VAPIDPublicKey).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc).RegisterRoutes(r)
	})

	return router
}

// Close stops the scheduler, drains pending notifications and closes the pool.
func (a *App) Close() {
	a.cancel()
	a.jobs.Stop()
	a.dispatcher.Close()
	a.DB.Close()
}

func Run() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown failed", "err", err)
		}
	}()

	slog.Info("perfeval server listening", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
	}
}
