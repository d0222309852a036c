package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusops/timetable-api/api/swagger"
	"github.com/campusops/timetable-api/internal/handler"
	"github.com/campusops/timetable-api/internal/middleware"
	"github.com/campusops/timetable-api/internal/models"
	"github.com/campusops/timetable-api/internal/repository"
	"github.com/campusops/timetable-api/internal/service"
	"github.com/campusops/timetable-api/pkg/cache"
	"github.com/campusops/timetable-api/pkg/config"
	"github.com/campusops/timetable-api/pkg/database"
	"github.com/campusops/timetable-api/pkg/export"
	"github.com/campusops/timetable-api/pkg/logger"
	corsmiddleware "github.com/campusops/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusops/timetable-api/pkg/middleware/requestid"
)

// @title Campus Timetable API
// @version 0.1.0
// @description Constraint-based timetable generation for course sections
// @BasePath /
// @schemes http

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

	// Redis is best effort: the generator and exports work without it, only
	// the cached result endpoint degrades.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, result caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	sectionRepo := repository.NewSectionRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduler.ResultCacheTTL, logr, cfg.Scheduler.CacheEnabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	timetableSvc := service.NewTimetableService(
		sectionRepo,
		classroomRepo,
		scheduleRepo,
		db,
		cacheSvc,
		metricsSvc,
		validate,
		logr,
		service.TimetableConfig{
			DefaultMaxIterations: cfg.Scheduler.DefaultMaxIterations,
			ResultCacheTTL:       cfg.Scheduler.ResultCacheTTL,
		},
	)

	scheduleSvc := service.NewScheduleService(
		scheduleRepo,
		export.NewCSVExporter(),
		export.NewPDFExporter(),
		validate,
		logr,
		service.ScheduleConfig{ExportTitle: cfg.Export.Title},
	)

	authHandler := handler.NewAuthHandler(authSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

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
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
			auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		}

		timetable := api.Group("/timetable", middleware.JWT(authSvc))
		{
			timetable.POST("/generate",
				middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar),
				timetableHandler.Generate,
			)
			timetable.GET("/result", timetableHandler.Result)
		}

		schedules := api.Group("/schedules", middleware.JWT(authSvc))
		{
			schedules.GET("", scheduleHandler.List)
			schedules.DELETE("/:id",
				middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar),
				scheduleHandler.Deactivate,
			)
			schedules.GET("/export/csv", scheduleHandler.ExportCSV)
			schedules.GET("/export/pdf", scheduleHandler.ExportPDF)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
