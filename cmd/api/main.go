package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/prithvi-travels/helpdesk/internal/api/http"
	"github.com/prithvi-travels/helpdesk/internal/api/http/handlers"
	"github.com/prithvi-travels/helpdesk/internal/auth"
	"github.com/prithvi-travels/helpdesk/internal/config"
	"github.com/prithvi-travels/helpdesk/internal/events"
	"github.com/prithvi-travels/helpdesk/internal/observability"
	"github.com/prithvi-travels/helpdesk/internal/persistence"
	"github.com/prithvi-travels/helpdesk/internal/repository"
	"github.com/prithvi-travels/helpdesk/internal/service"
	"github.com/prithvi-travels/helpdesk/internal/storage"
	"github.com/prithvi-travels/helpdesk/internal/worker"
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
	ticketRepo := repository.NewTicketRepository(pool)
	transitionRepo := repository.NewTransitionRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		TransitionRepo: transitionRepo,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:  userRepo,
		AgentRepo: agentRepo,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, agentRepo)

	attachmentStore, err := storage.NewAttachmentStore(cfg.Attachment, attachmentRepo, logger)
	if err != nil {
		logger.Fatal("failed to init attachment store", zap.Error(err))
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Agents:         handlers.NewAgentsHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, logger),
		AgentTickets:   handlers.NewAgentTicketsHandler(ticketService),
		Attachments:    handlers.NewAttachmentsHandler(attachmentStore),
		AuthMiddleware: authMiddleware,
		AttachmentDir:  attachmentStore.Dir(),
	})

	sweepWorker := worker.NewSweepWorker(ticketService, redis, metrics, logger, cfg.Sweep)
	go sweepWorker.Run(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
