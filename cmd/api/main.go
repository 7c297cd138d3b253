package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"ylabs/internal/app"
	"ylabs/internal/config"
	"ylabs/internal/database"
	"ylabs/internal/domain/analytics"
	apphttp "ylabs/internal/http"
	"ylabs/internal/http/handlers"
	"ylabs/internal/http/metrics"
	httpmw "ylabs/internal/http/middleware"
	"ylabs/internal/http/response"
	"ylabs/internal/integration/cas"
	"ylabs/internal/integration/directory"
	"ylabs/internal/integration/mail"
	"ylabs/internal/observability"
	"ylabs/internal/repository/mongodb"
	"ylabs/internal/repository/postgres"
	"ylabs/internal/security"
	"ylabs/internal/storage"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	response.SetLogger(logger)
	response.SetDevelopment(cfg.IsDevelopment())

	client, db, err := database.NewMongo(ctx, database.MongoConfig{
		URI:            cfg.MongoURI,
		Database:       cfg.MongoDatabase,
		ConnectTimeout: 10 * time.Second,
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	created, err := mongodb.EnsureIndexes(ctx, db)
	if err != nil {
		return err
	}
	logger.Info("mongo indexes ready", "indexes", created)

	userRepo := mongodb.NewUserRepository(db)
	userBackupRepo := mongodb.NewUserBackupRepository(db)
	listingRepo := mongodb.NewListingRepository(db, cfg.SearchIndex)
	listingBackupRepo := mongodb.NewListingBackupRepository(db)
	applicationRepo := mongodb.NewApplicationRepository(db)

	var tx app.Transactor = app.Sequential{}
	if cfg.MongoTransactions {
		tx = mongodb.NewTransactor(client)
	}

	analyticsRepo, pg, err := analyticsSink(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	if pg != nil {
		defer pg.Close()
	}

	limiter, rdb, err := submitLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	dir := directory.NewClient(cfg.DirectoryURL, cfg.DirectoryAPIKey, &http.Client{Timeout: cfg.DirectoryTimeout}, cfg.DirectoryRate, cfg.DirectoryBurst)
	var notifier app.Notifier = mail.Noop{}
	if cfg.SMTPHost != "" {
		notifier = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	} else {
		logger.Warn("SMTP_HOST not set, application notices are disabled")
	}
	resumes, err := storage.NewLocalResumeStore(cfg.UploadsDir, app.MaxResumeBytes)
	if err != nil {
		return err
	}

	analyticsLogger := app.NewAnalyticsLogger(analyticsRepo, userRepo, logger)
	ownership := app.NewOwnershipService(userRepo, dir, logger)
	listingService := app.NewListingService(listingRepo, listingBackupRepo, ownership, tx, analyticsLogger, app.NewSynonyms(cfg.Synonyms))
	userService := app.NewUserService(userRepo, userBackupRepo, listingRepo, ownership, tx, analyticsLogger)
	applicationService := app.NewApplicationService(applicationRepo, listingRepo, userRepo, resumes, notifier, cfg.ServerURL, logger)

	sessions := httpmw.NewSessionAuth(security.NewSessionProvider(cfg.SessionSecret, cfg.SessionTTL), userService, !cfg.IsDevelopment())
	health := map[string]handlers.Pinger{
		"mongo": func(ctx context.Context) error { return client.Ping(ctx, nil) },
	}
	if pg != nil {
		health["postgres"] = pg.PingContext
	}
	if rdb != nil {
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	collector := metrics.NewCollector()
	response.SetErrorCollector(collector)

	router := apphttp.NewRouter(apphttp.RouterDependencies{
		AuthHandler:        handlers.NewAuthHandler(cas.NewClient(cfg.CASBaseURL, &http.Client{Timeout: 10 * time.Second}), sessions, userService, cfg.ServerURL, cfg.ClientURL, logger),
		UserHandler:        handlers.NewUserHandler(userService),
		ListingHandler:     handlers.NewListingHandler(listingService),
		ApplicationHandler: handlers.NewApplicationHandler(applicationService, resumes),
		HealthHandler:      handlers.NewHealthHandler(health),
		Sessions:           sessions,
		SubmitLimiter:      limiter,
		SubmitLimit:        cfg.SubmitLimit,
		SubmitWindow:       cfg.SubmitWindow,
		Metrics:            collector,
		Logger:             logger,
		RequestTimeout:     cfg.RequestTimeout,
	})
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API started on :" + cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := analyticsLogger.Close(shutdownCtx); err != nil {
		logger.Warn("analytics flush incomplete", "error", err)
	}
	logger.Info("API stopped")
	return nil
}

// analyticsSink picks the event store. The postgres sink also starts the
// retention purge loop, which stops with ctx.
func analyticsSink(ctx context.Context, cfg config.Config, db *mongo.Database, logger *slog.Logger) (analytics.Repository, *sql.DB, error) {
	if cfg.AnalyticsSink != config.SinkPostgres {
		return mongodb.NewAnalyticsRepository(db), nil, nil
	}
	pg, err := database.NewPostgres(ctx, database.PostgresConfig{
		DSN:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdle:     cfg.DBConnMaxIdle,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	repo := postgres.NewAnalyticsRepository(pg)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = pg.Close()
		return nil, nil, err
	}
	go purgeLoop(ctx, repo, cfg.AnalyticsPurge, logger)
	return repo, pg, nil
}

func purgeLoop(ctx context.Context, repo *postgres.AnalyticsRepository, every time.Duration, logger *slog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.Purge(ctx)
			if err != nil {
				logger.Warn("analytics purge failed", "error", err)
				continue
			}
			logger.Info("analytics purged", "rows", n)
		}
	}
}

// submitLimiter shares counters through redis when REDIS_URL is set.
func submitLimiter(ctx context.Context, cfg config.Config, logger *slog.Logger) (httpmw.Limiter, *redis.Client, error) {
	if cfg.RedisURL == "" {
		return httpmw.NewRateLimiter(), nil, nil
	}
	rdb, err := database.NewRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		return nil, nil, err
	}
	return httpmw.NewRedisLimiter(rdb, "ylabs:ratelimit", logger), rdb, nil
}
