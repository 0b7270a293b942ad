// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hemolink/donorhub/internal/campaigns"
	campaignspostgres "github.com/hemolink/donorhub/internal/campaigns/postgres"
	"github.com/hemolink/donorhub/internal/config"
	"github.com/hemolink/donorhub/internal/digest"
	digestpostgres "github.com/hemolink/donorhub/internal/digest/postgres"
	directorypostgres "github.com/hemolink/donorhub/internal/directory/postgres"
	"github.com/hemolink/donorhub/internal/jobs"
	jobspostgres "github.com/hemolink/donorhub/internal/jobs/postgres"
	"github.com/hemolink/donorhub/internal/notifications"
	"github.com/hemolink/donorhub/internal/notifications/discord"
	"github.com/hemolink/donorhub/internal/notifications/email"
	"github.com/hemolink/donorhub/internal/pkg/ctxlog"
	"github.com/hemolink/donorhub/internal/pkg/httputil"
	"github.com/hemolink/donorhub/internal/pkg/metrics"
	"github.com/hemolink/donorhub/internal/pkg/postgres"
	"github.com/hemolink/donorhub/internal/requests"
	requestspostgres "github.com/hemolink/donorhub/internal/requests/postgres"
	"github.com/hemolink/donorhub/internal/stats"
	statspostgres "github.com/hemolink/donorhub/internal/stats/postgres"
	"github.com/hemolink/donorhub/internal/version"
	"github.com/hemolink/donorhub/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

// App represents the application instance.
type App struct {
	config           *config.Config
	logger           *slog.Logger
	db               *pgxpool.Pool
	server           *http.Server
	metricsServer    *http.Server
	backgroundCancel context.CancelFunc
	processor        *jobs.Processor
	scheduler        *cron.Cron
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := postgres.Migrate(cfg.Database.URL, migrations.FS); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxConns,
		MaxIdleConns:    cfg.Database.MinConns,
		ConnMaxLifetime: cfg.Database.MaxConnLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())

	app := &App{
		config:           cfg,
		logger:           logger,
		db:               db,
		backgroundCancel: backgroundCancel,
	}

	go app.collectDBMetrics(backgroundCtx)

	router, err := app.setupRouter(backgroundCtx)
	if err != nil {
		db.Close()
		backgroundCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	// Start main server
	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.backgroundCancel()

	// Stop schedules first so no new jobs are enqueued, then drain the
	// processor's in-flight batch.
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}
	if a.processor != nil {
		a.processor.Stop()
	}

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) collectQueueMetrics(ctx context.Context, repo jobs.Repository) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueStats, err := repo.QueueStats(ctx)
			if err != nil {
				slog.Error("failed to get queue stats", "error", err)
				continue
			}
			jobs.RecordQueueStats(queueStats)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Processor returns the job processor instance. Used in tests to drive
// batches synchronously.
func (a *App) Processor() *jobs.Processor {
	return a.processor
}

func (a *App) setupRouter(ctx context.Context) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	jobsRepo := jobspostgres.NewRepository(a.db)
	digestRepo := digestpostgres.NewRepository(a.db)
	campaignsRepo := campaignspostgres.NewRepository(a.db)
	requestsRepo := requestspostgres.NewRepository(a.db)
	directoryRepo := directorypostgres.NewRepository(a.db)
	statsRepo := statspostgres.NewRepository(a.db)

	discordSender := discord.NewSender(discord.Config{
		WebhookURL: a.config.Notifications.Discord.WebhookURL,
		Username:   a.config.Notifications.Discord.Username,
		AvatarURL:  a.config.Notifications.Discord.AvatarURL,
		Timeout:    a.config.Notifications.Discord.Timeout,
	})

	emailSender, err := email.NewSender(email.Config{
		Enabled:      a.config.Notifications.Email.Enabled,
		SMTPHost:     a.config.Notifications.Email.SMTPHost,
		SMTPPort:     a.config.Notifications.Email.SMTPPort,
		SMTPUser:     a.config.Notifications.Email.SMTPUser,
		SMTPPassword: a.config.Notifications.Email.SMTPPassword,
		FromAddress:  a.config.Notifications.Email.FromAddress,
		SendInterval: a.config.Notifications.Email.SendInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("create email sender: %w", err)
	}

	slog.Info("notifications configured",
		"email_enabled", a.config.Notifications.Email.Enabled,
		"discord_enabled", discordSender.Enabled(),
	)

	if !a.config.Notifications.Email.Enabled {
		slog.Warn("email sender is disabled: donor alerts and digests will not be delivered")
	}

	renderer, err := notifications.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("create notification renderer: %w", err)
	}

	notificationHandlers := notifications.NewHandlers(renderer, emailSender, requestsRepo, directoryRepo, digestRepo)

	a.processor = jobs.NewProcessor(jobs.ProcessorConfig{
		BatchSize:    a.config.Jobs.BatchSize,
		PollInterval: a.config.Jobs.PollInterval,
	}, jobsRepo, jobs.Handlers{
		BloodRequest:   notificationHandlers.HandleBloodRequest,
		CampaignDigest: notificationHandlers.HandleCampaignDigest,
	})
	a.processor.Start(ctx)

	go a.collectQueueMetrics(ctx, jobsRepo)

	aggregator := digest.NewAggregator(digestRepo, campaignsRepo, directoryRepo, discordSender, jobsRepo)
	reporter := stats.NewReporter(statsRepo, discordSender)

	if err := a.setupScheduler(ctx, aggregator, reporter); err != nil {
		return nil, fmt.Errorf("setup scheduler: %w", err)
	}

	campaignsService := campaigns.NewService(campaignsRepo, aggregator)
	campaignsHandler := campaigns.NewHandler(campaignsService)

	requestsService := requests.NewService(requestsRepo, jobsRepo, discordSender)
	requestsHandler := requests.NewHandler(requestsService)

	statsHandler := stats.NewHandler(reporter)

	r.Route("/api/v1", func(r chi.Router) {
		campaignsHandler.RegisterRoutes(r)
		requestsHandler.RegisterRoutes(r)
		statsHandler.RegisterRoutes(r)
	})

	return r, nil
}

// setupScheduler registers the digest aggregation and weekly stats cron
// entries. Cron jobs run against the background context so an HTTP shutdown
// does not cancel a half-finished aggregation cycle.
func (a *App) setupScheduler(ctx context.Context, aggregator *digest.Aggregator, reporter *stats.Reporter) error {
	a.scheduler = cron.New()

	_, err := a.scheduler.AddFunc(a.config.Digest.AggregationSchedule, func() {
		if _, err := aggregator.ProcessDigests(ctx); err != nil {
			slog.Error("digest aggregation failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule digest aggregation %q: %w", a.config.Digest.AggregationSchedule, err)
	}

	_, err = a.scheduler.AddFunc(a.config.Digest.WeeklyStatsSchedule, func() {
		if _, err := reporter.Report(ctx); err != nil {
			slog.Error("weekly stats report failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule weekly stats %q: %w", a.config.Digest.WeeklyStatsSchedule, err)
	}

	a.scheduler.Start()
	slog.Info("scheduler started",
		"digest_schedule", a.config.Digest.AggregationSchedule,
		"weekly_stats_schedule", a.config.Digest.WeeklyStatsSchedule,
	)
	return nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
