package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/shortly-app/shortly-api/internal/handler"
	"github.com/shortly-app/shortly-api/internal/keygen"
	"github.com/shortly-app/shortly-api/internal/middleware"
	"github.com/shortly-app/shortly-api/internal/repository"
	"github.com/shortly-app/shortly-api/internal/security"
	"github.com/shortly-app/shortly-api/internal/service"
	"github.com/shortly-app/shortly-api/pkg/cache"
	"github.com/shortly-app/shortly-api/pkg/config"
	"github.com/shortly-app/shortly-api/pkg/database"
	"github.com/shortly-app/shortly-api/pkg/jobs"
	"github.com/shortly-app/shortly-api/pkg/logger"
	corsmiddleware "github.com/shortly-app/shortly-api/pkg/middleware/cors"
	reqidmiddleware "github.com/shortly-app/shortly-api/pkg/middleware/requestid"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, redirect cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	codec := security.NewTokenCodec(security.CodecConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	})

	authSvc := service.NewAuthService(userRepo, codec, validate, logr, service.AuthConfig{
		AccessExpiry:  cfg.JWT.AccessExpiry,
		RefreshExpiry: cfg.JWT.RefreshExpiry,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)

	keys := keygen.New(cfg.Links.KeyAlphabet, cfg.Links.KeyLength)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var linkSvc *service.LinkService
	viewQueue := jobs.New("link-views", func(jobCtx context.Context, job jobs.Job) error {
		key, ok := job.Payload.(string)
		if !ok {
			logr.Error("view job with unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		return linkSvc.RecordView(jobCtx, key)
	}, jobs.Options{
		Workers:    cfg.Views.Workers,
		BufferSize: cfg.Views.BufferSize,
		MaxRetries: cfg.Views.MaxRetries,
		RetryDelay: cfg.Views.RetryDelay,
	}, logr)

	linkSvc = service.NewLinkService(linkRepo, cacheRepo, viewQueue, keys, metricsSvc, validate, logr, service.LinkConfig{
		MaxKeyAttempts:   cfg.Links.MaxKeyAttempts,
		RedirectCacheTTL: cfg.Links.RedirectCacheTTL,
	})

	viewQueue.Start(ctx)
	defer viewQueue.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	linkHandler := handler.NewLinkHandler(linkSvc, cfg.APIPrefix)
	redirectHandler := handler.NewRedirectHandler(linkSvc)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	r.GET("/r/:key", redirectHandler.Redirect)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/token", authHandler.Login)
		api.POST("/refresh-token", authHandler.Refresh)
		api.POST("/users", userHandler.Register)

		protected := api.Group("", middleware.JWT(authSvc))
		{
			protected.GET("/users/me", userHandler.Me)
			protected.DELETE("/users/me", userHandler.Delete)

			protected.POST("/links", linkHandler.Create)
			protected.GET("/links", linkHandler.List)
			protected.GET("/links/:key", linkHandler.Get)
			protected.GET("/links/:key/stats", linkHandler.Stats)
			protected.DELETE("/links/:key", linkHandler.Delete)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}

	logr.Info("server stopped")
}
