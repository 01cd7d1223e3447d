package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/slotbook/slotbook-api/api/swagger"
	"github.com/slotbook/slotbook-api/internal/handler"
	"github.com/slotbook/slotbook-api/internal/middleware"
	"github.com/slotbook/slotbook-api/internal/repository"
	"github.com/slotbook/slotbook-api/internal/service"
	"github.com/slotbook/slotbook-api/pkg/cache"
	"github.com/slotbook/slotbook-api/pkg/config"
	"github.com/slotbook/slotbook-api/pkg/database"
	"github.com/slotbook/slotbook-api/pkg/logger"
	corsmiddleware "github.com/slotbook/slotbook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/slotbook/slotbook-api/pkg/middleware/requestid"
)

// @title Slotbook API
// @version 1.0.0
// @description Availability and booking engine for appointment scheduling
// @BasePath /api/v1
// @schemes http
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	if cfg.Availability.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, availability cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Availability.CacheTTL, logr, cfg.Availability.CacheEnabled && cacheRepo != nil)

	availabilityRepo := repository.NewAvailabilityRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	providerRepo := repository.NewProviderRepository(db)
	eventTypeRepo := repository.NewEventTypeRepository(db)

	plans := service.NewPlanRegistry(cfg.Plans)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, providerRepo, eventTypeRepo, appointmentRepo, cacheSvc, metricsSvc, validate, logr)
	bookingSvc := service.NewBookingService(appointmentRepo, providerRepo, eventTypeRepo, plans, cacheSvc, metricsSvc, validate, logr)
	eventTypeSvc := service.NewEventTypeService(eventTypeRepo, validate, logr)

	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	eventTypeHandler := handler.NewEventTypeHandler(eventTypeSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public booking surface.
	api.GET("/providers/:id/slots", availabilityHandler.GetSlots)
	api.POST("/providers/:id/bookings", bookingHandler.Create)
	api.POST("/bookings/:token/cancel", bookingHandler.Cancel)
	api.POST("/bookings/:token/reschedule", bookingHandler.Reschedule)

	// Provider management surface.
	authed := api.Group("")
	authed.Use(middleware.JWT(cfg.JWT.Secret))
	authed.GET("/availability/weekly", availabilityHandler.GetWeeklyRules)
	authed.PUT("/availability/weekly", availabilityHandler.ReplaceWeeklyRules)
	authed.PUT("/availability/overrides/:date", availabilityHandler.SetOverride)
	authed.GET("/availability/overrides/:date", availabilityHandler.GetOverride)
	authed.DELETE("/availability/overrides/:date", availabilityHandler.DeleteOverride)
	authed.GET("/settings", availabilityHandler.GetSettings)
	authed.PUT("/settings", availabilityHandler.UpdateSettings)
	authed.GET("/event-types", eventTypeHandler.List)
	authed.POST("/event-types", eventTypeHandler.Create)
	authed.PUT("/event-types/:id", eventTypeHandler.Update)
	authed.GET("/appointments", bookingHandler.List)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
