package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/gyanoda/user-service/internal/adapter/http"
	"github.com/gyanoda/user-service/internal/config"
	natsmsg "github.com/gyanoda/user-service/internal/messaging/nats"
	"github.com/gyanoda/user-service/internal/notifier"
	"github.com/gyanoda/user-service/internal/platform/logger"
	"github.com/gyanoda/user-service/internal/platform/metrics"
	"github.com/gyanoda/user-service/internal/repository"
	"github.com/gyanoda/user-service/internal/storage/s3"
	"github.com/gyanoda/user-service/internal/token"
	"github.com/gyanoda/user-service/internal/usecase"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	zapLogger, err := logger.New()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer zapLogger.Sync()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		zapLogger.Fatal("Failed to load config", zap.Error(err))
	}

	mongoCtx, cancelMongo := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
	mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	cancelMongo()
	if err != nil {
		zapLogger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			zapLogger.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	db := mongoClient.Database(cfg.Mongo.Database)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	publisher, err := natsmsg.NewPublisher(&cfg.NATS, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer publisher.Close()

	avatarStore, err := s3.NewAvatarStore(cfg.Storage, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize avatar storage", zap.Error(err))
	}

	issuer, err := token.NewIssuer(cfg.Tokens)
	if err != nil {
		zapLogger.Fatal("Failed to initialize token issuer", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db, zapLogger)
	sessionCache := repository.NewSessionCache(redisClient, cfg.Tokens.SessionTTL, zapLogger)
	ticketStore := repository.NewTicketStore(redisClient, zapLogger)

	mailer := notifier.NewSMTPMailer(cfg.SMTP, zapLogger)
	dispatcher := notifier.NewDispatcher(zapLogger,
		mailer,
		notifier.NewSMSChannel(cfg.Twilio, zapLogger),
		notifier.NewWhatsAppChannel(cfg.Twilio, zapLogger),
	)

	metricsManager := metrics.NewManager("user_service")
	go func() {
		if err := metrics.StartServer(cfg.Metrics.Port, zapLogger, metricsManager.Registry); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	authUC := usecase.NewAuthUsecase(
		userRepo, sessionCache, ticketStore, issuer,
		dispatcher, mailer, publisher, metricsManager,
		zapLogger, cfg.Phone.DefaultRegion, cfg.SMTP.ResetURL,
	)
	userUC := usecase.NewUserUsecase(
		userRepo, sessionCache, avatarStore, publisher,
		zapLogger, cfg.Phone.DefaultRegion,
	)

	responder := httpadapter.NewResponder(zapLogger, metricsManager)
	authMW := httpadapter.NewAuthMiddleware(issuer, sessionCache, responder, zapLogger)
	handler := httpadapter.NewHandler(authUC, userUC, responder, cfg.Cookies, zapLogger)
	router := httpadapter.NewRouter(handler, authMW)

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Starting User Service", zap.String("port", cfg.HTTP.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP server shutdown error", zap.Error(err))
	}
	zapLogger.Info("User Service stopped")
}
