package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/aquaflow/swimschool-api/api/swagger"
	"github.com/aquaflow/swimschool-api/internal/conflict"
	"github.com/aquaflow/swimschool-api/internal/handler"
	"github.com/aquaflow/swimschool-api/internal/middleware"
	"github.com/aquaflow/swimschool-api/internal/models"
	"github.com/aquaflow/swimschool-api/internal/repository"
	"github.com/aquaflow/swimschool-api/internal/service"
	"github.com/aquaflow/swimschool-api/pkg/cache"
	"github.com/aquaflow/swimschool-api/pkg/config"
	"github.com/aquaflow/swimschool-api/pkg/database"
	"github.com/aquaflow/swimschool-api/pkg/logger"
	corsmiddleware "github.com/aquaflow/swimschool-api/pkg/middleware/cors"
	reqidmiddleware "github.com/aquaflow/swimschool-api/pkg/middleware/requestid"
)

// @title Swim School API
// @version 1.0.0
// @description Course catalog, slot availability and enrollment API for the swim school back office
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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, availability caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	capacityCfg := conflict.Config{AllowTierGrowth: cfg.Capacity.AllowTierGrowth}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db, capacityCfg)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Availability.CacheTTL, logr, cfg.Availability.CacheEnabled && redisClient != nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, validate, logr)
	availabilitySvc := service.NewAvailabilityService(courseRepo, enrollmentRepo, cacheSvc, capacityCfg, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, cacheSvc, capacityCfg, validate, logr)
	reportSvc := service.NewReportService(enrollmentRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

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
			auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
			auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		}

		courses := api.Group("/courses", middleware.JWT(authSvc))
		{
			courses.GET("", courseHandler.List)
			courses.GET("/:id", courseHandler.Get)
			courses.POST("", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(userRepo, "course.create", "courses"), courseHandler.Create)
			courses.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(userRepo, "course.update", "courses"), courseHandler.Update)
			courses.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(userRepo, "course.delete", "courses"), courseHandler.Delete)
		}

		api.GET("/availability", middleware.JWT(authSvc), middleware.ResponseMeta(), availabilityHandler.Report)

		enrollments := api.Group("/enrollments", middleware.JWT(authSvc))
		{
			enrollments.GET("", enrollmentHandler.List)
			enrollments.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleClient), middleware.Audit(userRepo, "enrollment.create", "enrollments"), enrollmentHandler.Create)
			enrollments.DELETE("/:id", middleware.Audit(userRepo, "enrollment.cancel", "enrollments"), enrollmentHandler.Cancel)
		}

		if cfg.Reports.Enabled {
			reports := api.Group("/reports", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleProfessional))
			{
				reports.GET("/enrollments", reportHandler.Enrollments)
			}
		}

		api.GET("/metrics/summary", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), metricsHandler.Summary)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
