package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"flood-report-api/config"
	"flood-report-api/handlers"
	"flood-report-api/metrics"
	"flood-report-api/middleware"
	"flood-report-api/models"
	"flood-report-api/services"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := buildLogger(cfg.Log)
	slog.SetDefault(logger)

	db, err := openDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Image{},
		&models.ImageClassification{},
		&models.FinalSurvey{},
		&models.VolunteerPost{},
		&models.WeatherObservation{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisService, err := services.NewRedisService(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisService.Close()

	store, err := services.NewBlobStore(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}

	m := metrics.New()
	clock := clockwork.NewRealClock()

	authService := services.NewAuthService(cfg.JWT)
	classifier := services.NewClassifierClient(cfg.Classifier.URL, cfg.Classifier.Timeout, logger)
	geocoder := services.NewGeocodeClient(cfg.Geocoder, m, logger)
	weather := services.NewWeatherClient(cfg.Weather, m, logger)

	queue := services.NewRedisTaskQueue(redisService)
	worker := services.NewClassifierWorker(db, queue, classifier, store, redisService, m, clock, logger, cfg.Classifier.Workers)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go worker.Run(workerCtx)

	authHandler := handlers.NewAuthHandler(db, authService)
	imagesHandler := handlers.NewImagesHandler(db, store, queue, geocoder, m, logger)
	volunteerHandler := handlers.NewVolunteerHandler(db, store, logger)
	weatherHandler := handlers.NewWeatherHandler(db, weather, clock, logger)

	router := gin.Default()
	router.Use(middleware.SetupCORS(cfg.CORS))
	router.Use(middleware.OptionalAuth(authService))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "UP",
			"message": "Flood Report API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)
	router.POST("/logout", authHandler.Logout)

	router.POST("/upload/flood", imagesHandler.UploadFlood)
	router.POST("/upload/final", imagesHandler.UploadFinal)
	router.GET("/images", imagesHandler.ListImages)
	router.GET("/by-state/:code", imagesHandler.GetByState)

	router.POST("/volunteer/:lat/:lon", volunteerHandler.CreatePost)
	router.GET("/volunteer/:lat/:lon", volunteerHandler.GetPosts)

	router.GET("/data/:lat/:lon", weatherHandler.GetData)

	router.GET("/ws/live", handlers.LiveWebSocket(redisService, authService, logger))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("starting server", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		dialector = postgres.Open(cfg.GetDSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func buildLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
