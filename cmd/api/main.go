package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"nearbuy/internal/adapter/api"
	"nearbuy/internal/adapter/api/handler"
	apimiddleware "nearbuy/internal/adapter/api/middleware"
	"nearbuy/internal/adapter/api/router"
	"nearbuy/internal/adapter/repository"
	"nearbuy/internal/infrastructure/auth"
	"nearbuy/internal/infrastructure/firebase"
	"nearbuy/internal/infrastructure/ratelimit"
	"nearbuy/internal/infrastructure/storage"
	"nearbuy/internal/infrastructure/websocket"
	"nearbuy/internal/usecase"
	"nearbuy/pkg/config"
	"nearbuy/pkg/logger"
	"nearbuy/pkg/response"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	logger.Configure(cfg.Environment, cfg.LogLevel)
	response.SetEnvironment(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open storage: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	fileStore, err := storage.New(ctx, cfg, firebase.ClientOptions(cfg)...)
	if err != nil {
		logger.Error("Failed to initialize file storage: %v", err)
		os.Exit(1)
	}
	defer fileStore.Close()

	limiter := ratelimit.NewRateLimiter(map[string]ratelimit.Rule{
		router.ActionAuth:                {Rate: cfg.AuthRateLimit, Burst: cfg.AuthRateBurst},
		websocket.MessageTypeSendMessage: {Rate: cfg.WSMessageRate, Burst: cfg.WSMessageBurst},
	})
	limiter.StartCleanupRoutine(ctx)

	wsManager := websocket.NewManager(limiter)
	if cfg.RedisURL != "" {
		redisClient, err := websocket.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("Failed to connect to redis: %v", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		wsManager.SetRelay(websocket.NewRedisRelay(redisClient))
		logger.Info("Realtime fan-out through redis enabled")
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	authUseCase := usecase.NewAuthUseCase(store.Users, tokens)
	userUseCase := usecase.NewUserUseCase(store.Users, store.Transactions)
	listingUseCase := usecase.NewListingUseCase(store.Listings, store.UnitOfWork)
	transactionUseCase := usecase.NewTransactionUseCase(
		store.Transactions,
		store.Listings,
		store.Users,
		store.UnitOfWork,
		cfg.QRValidity,
		cfg.DisputeWindow,
	)
	chatUseCase := usecase.NewChatUseCase(
		store.Chats,
		store.Transactions,
		store.Listings,
		store.Users,
		store.UnitOfWork,
		wsManager,
	)
	adminUseCase := usecase.NewAdminUseCase(store.Users, store.UnitOfWork)
	uploadUseCase := usecase.NewUploadUseCase(fileStore, cfg.MaxUploadSize)

	wsManager.SetChatService(chatUseCase)
	if err := wsManager.Start(ctx); err != nil {
		logger.Error("Failed to start websocket manager: %v", err)
		os.Exit(1)
	}

	handler.Setup(authUseCase, userUseCase, listingUseCase, transactionUseCase, chatUseCase, adminUseCase, uploadUseCase)
	handler.SetupHealthHandler(store.Ping)
	handler.SetupWebSocketHandler(wsManager, cfg.CORSAllowOrigins)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.HTTPErrorHandler
	e.Validator = api.NewValidator()

	e.Use(middleware.RequestID())
	e.Use(apimiddleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(apimiddleware.Metrics())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowOrigins,
	}))
	e.Use(middleware.BodyLimit("10M"))

	authMiddleware := apimiddleware.NewAuthMiddleware(tokens)
	adminMiddleware := apimiddleware.NewAdminMiddleware(store.Users)

	router.Setup(e, authMiddleware, adminMiddleware, limiter)

	if cfg.StorageDriver == "local" {
		e.Static("/uploads", cfg.UploadDir)
	}

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}
