package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/streamwatch/report-service/internal/api/http"
	"github.com/streamwatch/report-service/internal/api/http/handlers"
	"github.com/streamwatch/report-service/internal/auth"
	"github.com/streamwatch/report-service/internal/config"
	"github.com/streamwatch/report-service/internal/events"
	"github.com/streamwatch/report-service/internal/notify"
	"github.com/streamwatch/report-service/internal/observability"
	"github.com/streamwatch/report-service/internal/persistence"
	"github.com/streamwatch/report-service/internal/presence"
	"github.com/streamwatch/report-service/internal/repository"
	"github.com/streamwatch/report-service/internal/service"
	"github.com/streamwatch/report-service/internal/trends"
	"github.com/streamwatch/report-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	reportRepo := repository.NewReportRepository(pool)
	blockRepo := repository.NewBlockRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	messenger := notify.NewWebhookMessenger(cfg.Messenger, logger)

	reportService := service.NewReportService(service.ReportDependencies{
		ReportRepo: reportRepo,
		BlockRepo:  blockRepo,
		Dispatcher: dispatcher,
	})
	notificationService := service.NewNotificationService(dispatcher, messenger, settingsRepo, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	moderationService := service.NewModerationService(blockRepo, settingsRepo, messenger, logger, cfg.Notification)
	liveboardService := service.NewLiveboardService(reportService, messenger, logger, cfg.Liveboard)
	liveboardService.Start(ctx)
	defer liveboardService.Stop()

	authService := service.NewAuthService(*cfg, staffRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), staffRepo)

	presencePool := presence.NewPool(cfg.Presence.ExtraPhrases)
	trendsClient := trends.NewClient(cfg.Trends)
	trendingCache := presence.NewTrendingCache(redis.Client, 2*cfg.Trends.RefreshInterval())
	presenceScheduler := presence.NewScheduler(
		presencePool,
		trendsClient,
		trendingCache,
		messenger,
		logger,
		cfg.Presence.RotationInterval(),
		cfg.Trends.RefreshInterval(),
	)
	presenceScheduler.Start(ctx)
	defer presenceScheduler.Stop()

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Reports:        handlers.NewReportsHandler(reportService),
		StaffReports:   handlers.NewStaffReportsHandler(reportService),
		Moderation:     handlers.NewModerationHandler(moderationService),
		Liveboard:      handlers.NewLiveboardHandler(liveboardService),
		Staff:          handlers.NewStaffHandler(authService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("report service started", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = app.ShutdownWithContext(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
