package main

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

	"github.com/gorilla/sessions"

	"vr-theatre-marketplace/internal/cache"
	"vr-theatre-marketplace/internal/config"
	"vr-theatre-marketplace/internal/database"
	"vr-theatre-marketplace/internal/handlers"
	"vr-theatre-marketplace/internal/jobs"
	"vr-theatre-marketplace/internal/logging"
	"vr-theatre-marketplace/internal/messaging"
	"vr-theatre-marketplace/internal/middleware"
	"vr-theatre-marketplace/internal/repositories"
	"vr-theatre-marketplace/internal/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.Init(cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	db, err := database.NewConnection(ctx, database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connection established")

	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize repositories
	contentRepo := repositories.NewContentRepository(db.DB)
	orderRepo := repositories.NewOrderRepository(db.DB)
	ticketRepo := repositories.NewTicketRepository(db.DB)
	fulfillmentRepo := repositories.NewFulfillmentRepository(db.DB)
	settingsRepo := repositories.NewSettingsRepository(db.DB)
	paymentEventRepo := repositories.NewPaymentEventRepository(db.DB)

	// Webhook dedup and session locks span processes only with redis
	var guard services.WebhookGuard = cache.NewLocalGuard()
	if cfg.Redis.Addr != "" {
		rdb, err := cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable, using in-process webhook guard", "error", err)
		} else {
			defer rdb.Close()
			guard = cache.NewRedisGuard(rdb, "stripe")
			logger.Info("redis webhook guard enabled", "addr", cfg.Redis.Addr)
		}
	}

	publisher := messaging.New(ctx, messaging.Options{
		Kind:         cfg.Broker.Kind,
		RabbitMQURL:  cfg.Broker.RabbitMQURL,
		Exchange:     cfg.Broker.Exchange,
		KafkaBrokers: cfg.Broker.KafkaBrokers,
		KafkaTopic:   cfg.Broker.KafkaTopic,
	}, logger)
	defer publisher.Close()

	// Email delivery
	var mailer services.Mailer
	if cfg.Email.SMTPHost != "" {
		mailer = services.NewSMTPMailer(services.EmailConfig{
			SMTPHost:     cfg.Email.SMTPHost,
			SMTPPort:     cfg.Email.SMTPPort,
			SMTPUsername: cfg.Email.SMTPUser,
			SMTPPassword: cfg.Email.SMTPPassword,
			FromEmail:    cfg.Email.FromEmail,
			FromName:     cfg.Email.FromName,
		})
	} else {
		logger.Warn("SMTP_HOST not set, ticket emails will only be logged")
		mailer = services.NewLogMailer(logger)
	}
	dispatcher := services.NewMailDispatcher(mailer, cfg.Email.Workers, cfg.Email.QueueSize, logger)
	dispatcher.Start()

	qr := services.NewQRGenerator(cfg.QR.Size, cfg.QR.Border)

	// QR archive is optional and only runs with R2 configured
	storageFactory := services.NewStorageFactory(cfg, logger)
	var archive *services.QRArchive
	if err := storageFactory.ValidateR2Configuration(); err == nil {
		storage, err := storageFactory.CreateStorageService(ctx)
		if err != nil {
			logger.Warn("QR archive disabled", "error", err)
		} else {
			archive = services.NewQRArchive(storage, qr, logger)
		}
	}

	var gateway services.Gateway
	if cfg.Stripe.SecretKey != "" {
		sg, err := services.NewStripeGateway(services.StripeConfig{
			SecretKey: cfg.Stripe.SecretKey,
			Timeout:   cfg.Stripe.Timeout,
		}, logger)
		if err != nil {
			return err
		}
		gateway = sg
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, only manual checkouts will succeed")
	}

	// Initialize services
	fulfillmentService := services.NewFulfillmentService(services.FulfillmentConfig{
		Store:     fulfillmentRepo,
		Contents:  contentRepo,
		Mail:      dispatcher,
		QR:        qr,
		Publisher: publisher,
		Archive:   archive,
		Logger:    logger,
	})
	settingsService := services.NewSettingsService(settingsRepo, 30*time.Second, logger)
	checkoutService := services.NewCheckoutService(contentRepo, orderRepo, settingsService, gateway, fulfillmentService, logger)
	orderService := services.NewOrderService(orderRepo, ticketRepo, cfg.Jobs.PendingOrderTTL, logger)
	ticketService := services.NewTicketService(ticketRepo, qr)
	redemptionService := services.NewRedemptionService(ticketRepo, logger)
	webhookService := services.NewWebhookService(cfg.Stripe.WebhookSecret, paymentEventRepo, guard, orderRepo, fulfillmentService, logger)

	scheduler := jobs.NewScheduler(orderService, cfg.Jobs.ExpireSchedule, logger)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Create session store shared with the identity provider
	sessionStore := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	redeemLimiter := middleware.NewRateLimiter(30, time.Minute)
	defer redeemLimiter.Close()

	router := handlers.NewRouter(handlers.Handlers{
		Checkout: handlers.NewCheckoutHandler(checkoutService, logger),
		Orders:   handlers.NewOrderHandler(orderService, logger),
		Webhook:  handlers.NewWebhookHandler(webhookService, logger),
		Tickets:  handlers.NewTicketHandler(redemptionService, ticketService, logger),
		Health:   handlers.NewHealthHandler(db),
	}, handlers.RouterConfig{
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Identity: middleware.IdentityConfig{
			Store:       sessionStore,
			SessionName: cfg.Session.Name,
			JWTSecret:   []byte(cfg.Identity.JWTSecret),
			Issuer:      cfg.Identity.Issuer,
		},
		RedeemLimiter: redeemLimiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduler jobs still running at shutdown")
	}

	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("mail dispatcher shutdown failed", "error", err)
	}

	logger.Info("server stopped")
	return nil
}
