package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Fernatzoc/skynet-next/internal/application"
	"github.com/Fernatzoc/skynet-next/internal/auth"
	"github.com/Fernatzoc/skynet-next/internal/cache"
	"github.com/Fernatzoc/skynet-next/internal/config"
	httptransport "github.com/Fernatzoc/skynet-next/internal/http"
	"github.com/Fernatzoc/skynet-next/internal/logging"
	"github.com/Fernatzoc/skynet-next/internal/mail"
	"github.com/Fernatzoc/skynet-next/internal/persistence/sqlite"
	"github.com/Fernatzoc/skynet-next/internal/report"
	"github.com/Fernatzoc/skynet-next/internal/skynetapi"
	"github.com/Fernatzoc/skynet-next/internal/telemetry"
)

const (
	detailCacheEntries   = 512
	reportPrefetch       = 4
	sessionPruneInterval = time.Hour
)

func main() {
	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("skynet stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{ServiceName: cfg.ServiceName, Endpoint: cfg.OTLPEndpoint})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()
	if err := storage.Migrate(ctx, logger); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	api, err := skynetapi.NewClient(cfg.APIURL, skynetapi.WithTimeout(cfg.RequestTimeout), skynetapi.WithLogger(logger))
	if err != nil {
		return err
	}
	gateway := newRemoteGateway(api)

	detailCache, closeCache, err := newDetailCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	mailer, closeMailer, err := newMailer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeMailer()

	now := time.Now
	authService := application.NewAuthServiceWithLogger(
		gateway,
		auth.NewDecoder(cfg.JWTSecret, now),
		newSessionRepositoryAdapter(storage.SessionRepository),
		func() string { return randomHex(32) },
		now,
		cfg.SessionTTL,
		logger,
	)
	visitService := application.NewVisitServiceWithLogger(gateway, detailCache, now, cfg.Location, logger)
	notificationService := application.NewNotificationService(gateway, detailCache, mailer, now, cfg.Location, logger)
	lifecycleDeps := application.LifecycleDependencies{
		Visits:      gateway,
		Markers:     newCompletionMarkerAdapter(storage.CompletionMarkerRepository),
		Audit:       newStatusChangeAdapter(storage.StatusChangeRepository),
		Cache:       detailCache,
		IDGenerator: uuid.NewString,
		Now:         now,
		Location:    cfg.Location,
		Logger:      logger,
	}
	if mailer != nil {
		lifecycleDeps.Notifier = notificationService
	}
	lifecycleService := application.NewLifecycleService(lifecycleDeps)
	clientService := application.NewClientService(gateway, logger)
	userService := application.NewUserService(gateway, logger)
	dashboardService := application.NewDashboardService(visitService, clientService, userService, now, cfg.Location)
	reportService := application.NewReportService(visitService, clientService, userService, report.NewPDFWriter(cfg.Location, now), now, cfg.Location, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(authService, logger),
		Visits:        httptransport.NewVisitHandler(visitService, lifecycleService, logger),
		Clients:       httptransport.NewClientHandler(clientService, logger),
		Users:         httptransport.NewUserHandler(userService, logger),
		Dashboard:     httptransport.NewDashboardHandler(dashboardService, logger),
		Reports:       httptransport.NewReportHandler(reportService, logger),
		Notifications: httptransport.NewNotificationHandler(notificationService, logger),
		Sessions:      authService,
		Logger:        logger,
		Middleware:    []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	go pruneSessions(ctx, storage.SessionRepository, sessionPruneInterval, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("skynet API listening", "addr", server.Addr, "remote_api", cfg.APIURL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newDetailCache uses Redis when an address is configured and an in-process
// cache otherwise.
func newDetailCache(ctx context.Context, cfg config.Config, logger *slog.Logger) (application.VisitDetailCache, func(), error) {
	if cfg.RedisAddr == "" {
		return application.NewMemoryDetailCache(cfg.DetailCacheTTL, detailCacheEntries, time.Now), func() {}, nil
	}
	client, err := cache.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("visit detail cache backed by redis", "addr", cfg.RedisAddr)
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}
	return cache.NewRedisDetailCache(client, cache.Options{TTL: cfg.DetailCacheTTL, Logger: logger}), closeFn, nil
}

// newMailer picks the report delivery path. With an AMQP URL reports are
// queued and a consumer in this process delivers them through Resend; without
// one they are sent synchronously. A nil mailer leaves notifications disabled.
func newMailer(ctx context.Context, cfg config.Config, logger *slog.Logger) (application.Mailer, func(), error) {
	noop := func() {}

	var resend *mail.ResendMailer
	if cfg.ResendAPIKey != "" {
		var err error
		resend, err = mail.NewResendMailer(mail.ResendConfig{
			APIKey:   cfg.ResendAPIKey,
			Endpoint: cfg.ResendURL,
			From:     cfg.MailFrom,
			Location: cfg.Location,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	if cfg.AMQPURL == "" {
		if resend == nil {
			logger.Warn("visit report emails disabled", "reason", "SKYNET_RESEND_API_KEY is not set")
			return nil, noop, nil
		}
		return resend, noop, nil
	}

	conn, err := mail.Dial(cfg.AMQPURL, cfg.AMQPQueue)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close amqp connection", "error", err)
		}
	}

	if resend != nil {
		deliveries, err := conn.Deliveries(reportPrefetch)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		consumer := mail.NewConsumer(resend, logger)
		go func() {
			if err := consumer.Run(ctx, deliveries); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("visit report consumer stopped", "error", err)
			}
		}()
	} else {
		logger.Warn("visit reports are queued but not delivered by this process", "queue", conn.Queue)
	}

	return mail.NewQueuedMailer(conn.Channel, conn.Queue, logger), closeFn, nil
}

type expiredSessionPruner interface {
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

func pruneSessions(ctx context.Context, sessions expiredSessionPruner, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.DeleteExpiredSessions(ctx, time.Now()); err != nil {
				logger.Error("failed to prune expired sessions", "error", err)
			}
		}
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
