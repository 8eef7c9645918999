package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"geohunt/internal/api"
	"geohunt/internal/middleware"
	"geohunt/internal/repository"
	"geohunt/internal/service"
	"geohunt/pkg/auth"
	"geohunt/pkg/credential"
	"geohunt/pkg/logger"
	"geohunt/pkg/metrics"
	"geohunt/pkg/notify"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		zapLogger.Fatal("Failed to prepare schema", zap.Error(err))
	}

	m := metrics.New(nil)

	var notifier notify.PrizeNotifier = notify.Noop{}
	if cfg.Hunt.NotifyPrizes && cfg.TelegramAuth.TelegramBotToken != "" {
		tn, err := notify.NewTelegramNotifier(cfg.TelegramAuth.TelegramBotToken)
		if err != nil {
			zapLogger.Warn("Prize notifications disabled", zap.Error(err))
		} else {
			notifier = tn
		}
	}

	activity := service.NewActivityRecorder(repo, m)
	catalogService := service.NewCatalogService(repo)
	huntService := service.NewHuntService(
		repo,
		credential.NewIssuer(credential.NewQRRenderer()),
		activity,
		notifier,
		m,
		cfg.Hunt.GeofenceRadius,
	)
	redemptionService := service.NewRedemptionService(repo, m)

	telegramAuth := auth.NewTelegramAuth(cfg.TelegramAuth.TelegramBotToken, cfg.TelegramAuth.DebugMode)
	merchantAuth := auth.NewMerchantAuth(cfg.MerchantAuth.JWTSecret, cfg.MerchantAuth.Issuer, cfg.MerchantAuth.TokenTTL)
	authz := middleware.NewAuthorization(cfg.Admins)

	router := gin.New()
	router.Use(gin.Recovery(), m.Middleware())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := repo.Ping(c.Request.Context()); err != nil {
			zapLogger.Error("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	a := router.Group("/api/v1")
	api.NewHuntRoutes(a, catalogService, huntService, telegramAuth, authz)
	api.NewAdminRoutes(a, catalogService, telegramAuth, authz)
	api.NewMerchantRoutes(a, redemptionService, merchantAuth)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
