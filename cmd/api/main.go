package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/atelier-boutique/support-service/internal/api/http"
	"github.com/atelier-boutique/support-service/internal/api/http/handlers"
	"github.com/atelier-boutique/support-service/internal/auth"
	"github.com/atelier-boutique/support-service/internal/config"
	"github.com/atelier-boutique/support-service/internal/domain"
	"github.com/atelier-boutique/support-service/internal/events"
	"github.com/atelier-boutique/support-service/internal/observability"
	"github.com/atelier-boutique/support-service/internal/persistence"
	"github.com/atelier-boutique/support-service/internal/realtime"
	"github.com/atelier-boutique/support-service/internal/repository"
	"github.com/atelier-boutique/support-service/internal/service"
	"github.com/atelier-boutique/support-service/internal/storage"
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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)

	attachmentStore := storage.NewLocalStore(cfg.Uploads.BaseDir, logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:      ticketRepo,
		UserRepo:        userRepo,
		HistoryRepo:     historyRepo,
		Dispatcher:      dispatcher,
		AttachmentStore: attachmentStore,
		Logger:          logger,
		Metrics:         metrics,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	hub := realtime.NewHub(logger, metrics)
	bridge := realtime.NewBridge(redis.Client, cfg.Realtime.BridgeChannel, cfg.Realtime.InstanceID, hub, logger)
	hub.AttachBridge(bridge)
	go bridge.Run(ctx)

	realtime.RegisterRelay(dispatcher, hub, logger)

	roomRouter := realtime.NewRouter(hub)
	gateway := realtime.NewGateway(roomRouter, func(ctx context.Context, senderID string, role domain.Role, ticketID, content string, attachments []realtime.ChatAttachment) error {
		inputs := make([]service.AttachmentInput, 0, len(attachments))
		for _, att := range attachments {
			inputs = append(inputs, service.AttachmentInput{URL: att.URL, Kind: att.Kind})
		}
		_, _, err := ticketService.AppendMessage(ctx, service.Caller{ID: senderID, Role: role}, ticketID, content, inputs)
		return err
	}, logger, metrics, cfg.Realtime.SendBufferSize)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret)
	authMiddleware := auth.NewMiddleware(tokenManager)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService),
		Realtime:       handlers.NewRealtimeHandler(gateway),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
