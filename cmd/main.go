package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"gekosync/internal/caching"
	"gekosync/internal/config"
	"gekosync/internal/geko"
	"gekosync/internal/handlers"
	"gekosync/internal/jobs/background"
	"gekosync/internal/repositories"
	"gekosync/internal/services"
	"gekosync/pkg/database"
)

const version = "1.0.0"

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.toml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := database.NewPool(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Cache service
	cacheSvc := caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	// Optional raw feed archive
	var archiveSvc *services.ArchiveService
	if cfg.Minio.Enabled {
		archiveSvc, err = services.NewArchiveService(cfg.Minio.Endpoint, cfg.Minio.AccessKey,
			cfg.Minio.SecretKey, cfg.Minio.UseSSL, cfg.Minio.Bucket)
		if err != nil {
			log.Fatalf("Failed to initialize archive service: %v", err)
		}
		if err := archiveSvc.EnsureBucket(context.Background()); err != nil {
			log.Printf("WARN: archive bucket unavailable: %v", err)
		}
	}

	// Repositories and services
	healthRepo := repositories.NewSyncHealthRepository(pool)
	alertSvc := services.NewAlertService(cfg.SMTP)

	var archive services.SnapshotArchiver
	if archiveSvc != nil {
		archive = archiveSvc
	}
	syncSvc := services.NewSyncService(pool, geko.NewFetcher(), healthRepo, alertSvc, archive, cacheSvc)

	// Scheduler owns the single recurring job slot
	scheduler, err := background.NewJobScheduler(syncSvc)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	defer scheduler.Shutdown()

	// Handlers
	syncHandlers := handlers.NewSyncHandlers(syncSvc, scheduler, healthRepo, cacheSvc,
		cfg.Geko.APIURL, cfg.Geko.IntervalMinutes)

	var archivePinger handlers.Pinger
	if archiveSvc != nil {
		archivePinger = archiveSvc
	}
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, archivePinger)

	// HTTP server
	e := echo.New()
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	e.GET("/health", healthHandlers.HealthCheck)

	e.POST("/start-sync", syncHandlers.StartSync)
	e.POST("/stop-sync", syncHandlers.StopSync)
	e.GET("/sync-status", syncHandlers.SyncStatus)
	e.POST("/manual-sync", syncHandlers.ManualSync)
	e.GET("/health/recent", syncHandlers.HealthRecent)
	e.GET("/health/stats", syncHandlers.HealthStats)

	// Resume the recurring sync when an interval is configured.
	if cfg.Geko.APIURL != "" && cfg.Geko.IntervalMinutes > 0 {
		if err := scheduler.StartSync(cfg.Geko.APIURL, cfg.Geko.IntervalMinutes); err != nil {
			log.Printf("WARN: failed to start scheduled sync: %v", err)
		}
	}

	log.Printf("GEKO sync service v%s starting on port %d", version, cfg.Server.Port)
	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", cfg.Server.Port)))
}
