package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/notblessy/coinsnap/config"
	"github.com/notblessy/coinsnap/db"
	"github.com/notblessy/coinsnap/handlers"
	"github.com/notblessy/coinsnap/logger"
	"github.com/notblessy/coinsnap/workers"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}
}

func main() {
	serve := flag.Bool("serve", false, "run as a long-lived service with periodic scraping and the HTTP API")
	flag.Parse()

	if err := logger.Init(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Log.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal("config load failed", zap.Error(err))
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		logger.Log.Fatal("database open failed", zap.Error(err))
	}
	if err := db.NewSnapshotStore(gdb).Migrate(); err != nil {
		logger.Log.Fatal("migration failed", zap.Error(err))
	}
	logger.Log.Info("database ready")

	scrapeWorker := workers.NewScrapeWorker(gdb, cfg)

	if !*serve {
		// Default mode: one scrape pass, exit code carries the outcome.
		if err := scrapeWorker.RunPass(); err != nil {
			logger.Log.Sync()
			os.Exit(1)
		}
		return
	}

	runService(cfg, gdb, scrapeWorker)
}

func runService(cfg *config.Config, gdb *gorm.DB, scrapeWorker *workers.ScrapeWorker) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupWorker := workers.NewCleanupWorker(gdb, cfg)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scrapeWorker.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanupWorker.Start(ctx)
	}()

	logger.Log.Info("workers started",
		zap.Duration("scrape_interval", cfg.ScrapeInterval),
		zap.Int("retention_days", cfg.RetentionDays))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: newRouter(gdb),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Log.Info("http server listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("http server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Log.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("http server shutdown error", zap.Error(err))
	}

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("all workers stopped")
	case <-time.After(30 * time.Second):
		logger.Log.Warn("timeout waiting for workers to stop")
	}

	logger.Log.Info("shutdown complete")
}

// newRouter builds the echo instance with middleware and the read API.
func newRouter(gdb *gorm.DB) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	snapshotHandler := handlers.NewSnapshotHandler(gdb)

	api := e.Group("/api")
	api.GET("/snapshots/recent", snapshotHandler.GetRecent)
	api.GET("/snapshots/search", snapshotHandler.Search)
	api.GET("/snapshots/gainers", snapshotHandler.GetGainers)
	api.GET("/snapshots/losers", snapshotHandler.GetLosers)
	api.GET("/stats", snapshotHandler.GetStats)

	return e
}
