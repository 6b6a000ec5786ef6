package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/bookwyrm-admin/api/swagger"
	"github.com/noah-isme/bookwyrm-admin/internal/handler"
	internalmiddleware "github.com/noah-isme/bookwyrm-admin/internal/middleware"
	"github.com/noah-isme/bookwyrm-admin/internal/models"
	"github.com/noah-isme/bookwyrm-admin/internal/repository"
	"github.com/noah-isme/bookwyrm-admin/internal/service"
	"github.com/noah-isme/bookwyrm-admin/pkg/cache"
	"github.com/noah-isme/bookwyrm-admin/pkg/config"
	"github.com/noah-isme/bookwyrm-admin/pkg/database"
	"github.com/noah-isme/bookwyrm-admin/pkg/jobs"
	"github.com/noah-isme/bookwyrm-admin/pkg/logger"
	"github.com/noah-isme/bookwyrm-admin/pkg/mailer"
	corsmiddleware "github.com/noah-isme/bookwyrm-admin/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/bookwyrm-admin/pkg/middleware/requestid"
	"github.com/noah-isme/bookwyrm-admin/pkg/storage"
	"github.com/noah-isme/bookwyrm-admin/web"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

// @title BookWyrm Admin API
// @version 0.1.0
// @description Registration policy, registration gate and instance metadata endpoints
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database, cfg.Timeouts.Query)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	activity, err := cache.NewRedis(cfg.Activity)
	if err != nil {
		logr.Fatal("failed to connect activity redis", zap.Error(err))
	}
	defer activity.Close()

	broker, err := cache.NewRedis(cfg.Broker)
	if err != nil {
		logr.Fatal("failed to connect broker redis", zap.Error(err))
	}
	defer broker.Close()

	media, err := storage.New(cfg)
	if err != nil {
		logr.Fatal("failed to init media storage", zap.Error(err))
	}

	policyRepo := repository.NewRegistrationPolicyRepository(db, cfg.Timeouts.Query)
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), cfg.Timeouts.Query)
	if err := policyRepo.Seed(seedCtx, models.DefaultRegistrationPolicy()); err != nil {
		logr.Fatal("failed to seed registration policy", zap.Error(err))
	}
	cancelSeed()

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(activity, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, time.Minute, logr, true)
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.Security.SecretKey,
		Issuer:            cfg.Security.Domain,
	})
	validate := service.NewValidator()
	baseURL := instanceURL(cfg)

	confirmations := service.NewConfirmationMailer(mailer.New(cfg.Email, logr), baseURL, metricsSvc, logr)
	mailQueue := jobs.NewQueue("mail", confirmations.Handle, jobs.QueueConfig{
		Workers:    2,
		MaxRetries: 3,
		RetryDelay: 30 * time.Second,
		Broker:     broker,
		Logger:     logr,
	})

	settingsSvc := service.NewRegistrationSettingsService(policyRepo, cacheSvc, validate, metricsSvc, logr)
	registrationSvc := service.NewRegistrationService(policyRepo, mailQueue, authSvc, validate, metricsSvc, logr)
	instanceSvc := service.NewInstanceService(policyRepo, cacheSvc, media, metricsSvc, logr, service.InstanceConfig{
		Domain:          cfg.Security.Domain,
		LanguageCode:    cfg.I18n.LanguageCode,
		SoftwareVersion: version,
	})

	settingsHandler := handler.NewSettingsHandler(settingsSvc, logr)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc)
	instanceHandler := handler.NewInstanceHandler(instanceSvc, baseURL)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.ReadinessCheck{
		"database":       db.PingContext,
		"redis_activity": cacheRepo.Ping,
		"redis_broker":   func(ctx context.Context) error { return broker.Ping(ctx).Err() },
		"storage":        media.Check,
	}, 2*time.Second, logr)

	tmpl, err := web.Templates()
	if err != nil {
		logr.Fatal("failed to parse templates", zap.Error(err))
	}

	r := gin.New()
	if !cfg.Security.TrustProxyHeaders {
		if err := r.SetTrustedProxies(nil); err != nil {
			logr.Fatal("failed to configure trusted proxies", zap.Error(err))
		}
	}
	r.SetHTMLTemplate(tmpl)
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	r.GET("/.well-known/nodeinfo", instanceHandler.WellKnownNodeInfo)
	r.GET("/nodeinfo/2.0", instanceHandler.NodeInfo)
	r.GET("/confirm-email/:token", registrationHandler.ConfirmEmail)

	adminLimiter := internalmiddleware.NewRateLimiter(cfg.Admin.RateLimit, cfg.Admin.RateBurst)
	settings := r.Group("/settings")
	settings.Use(
		internalmiddleware.JWT(authSvc),
		internalmiddleware.RequireCapability(models.CapabilityEditInstanceSettings),
		internalmiddleware.CSRF(authSvc, append([]string{baseURL}, corsmiddleware.OriginsFromHosts(cfg.Security.AllowedHosts, cfg.Security.UseHTTPS)...)),
	)
	settings.GET("/registration", settingsHandler.Show)
	settings.POST("/registration", internalmiddleware.RateLimit(adminLimiter), settingsHandler.Submit)

	api := r.Group(cfg.APIPrefix)
	api.Use(corsmiddleware.New(corsmiddleware.OriginsFromHosts(cfg.Security.AllowedHosts, cfg.Security.UseHTTPS)))
	api.Use(internalmiddleware.OptionalJWT(authSvc))
	api.GET("/instance", instanceHandler.Instance)
	api.POST("/registration/evaluate", registrationHandler.Evaluate)
	api.POST("/registration/confirmation", internalmiddleware.RateLimit(adminLimiter), registrationHandler.RequestConfirmation)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailQueue.Start(ctx)
	logr.Info("job queue started", zap.String("queue", mailQueue.Name()))
	defer mailQueue.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func instanceURL(cfg *config.Config) string {
	scheme := "http"
	if cfg.Security.UseHTTPS {
		scheme = "https"
	}
	return scheme + "://" + cfg.Security.Domain
}
