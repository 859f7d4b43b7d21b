package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"furniture-service/internal/handler"
	"furniture-service/internal/model"
	"furniture-service/internal/router"
	"furniture-service/pkg/config"
	"furniture-service/pkg/database"
	"furniture-service/pkg/jwtutil"
	"furniture-service/pkg/logger"
	"furniture-service/pkg/realtime"
	"furniture-service/pkg/storage"
	"furniture-service/prometheus"

	"go.uber.org/zap"
)

const serviceName = "furniture-service"

// cloudinaryFolder is the Cloudinary folder product media is uploaded into
const cloudinaryFolder = "furniture"

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load(serviceName)
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting furniture service", cfg.LogConfig()...)

	// Initialize database
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.MigrateModels(db, model.All()...); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	if err := handler.SeedAdmin(db, cfg.Admin, log); err != nil {
		log.Fatal("Failed to seed admin user", zap.Error(err))
	}

	// Initialize JWT utility
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized", zap.String("metrics_prefix", cfg.Metrics.Prefix))

	// Media storage: Cloudinary when configured, local disk otherwise
	var store storage.Store
	if cfg.Upload.CloudinaryURL != "" {
		store, err = storage.NewCloudinaryStore(cfg.Upload.CloudinaryURL, cloudinaryFolder)
		if err != nil {
			log.Fatal("Failed to initialize Cloudinary", zap.Error(err))
		}
		log.Info("Using Cloudinary media storage")
	} else {
		store, err = storage.NewLocalStore(cfg.Upload.Dir)
		if err != nil {
			log.Fatal("Failed to initialize upload directory", zap.Error(err))
		}
		log.Info("Using local media storage", zap.String("dir", cfg.Upload.Dir))
	}

	hub := realtime.NewHub(jwt, log.Named("realtime"))

	e := router.New(router.Deps{
		Config: cfg,
		DB:     db,
		JWT:    jwt,
		Store:  store,
		Hub:    hub,
		Logger: log,
	})

	// Start server
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	hub.Close()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
