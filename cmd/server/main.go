package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/retail-pos-core/internal/config"
	"github.com/iliyamo/retail-pos-core/internal/database"
	"github.com/iliyamo/retail-pos-core/internal/engine"
	"github.com/iliyamo/retail-pos-core/internal/handler"
	"github.com/iliyamo/retail-pos-core/internal/health"
	"github.com/iliyamo/retail-pos-core/internal/logging"
	"github.com/iliyamo/retail-pos-core/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.NewDefault().Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Env == "dev",
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		logging.NewDefault().Fatal("invalid log configuration", zap.Error(err))
	}
	defer logger.Sync()

	pool := database.New(cfg.DB, health.NewMonitor(), logger)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if err := pool.Initialize(ctx); err != nil {
		cancel()
		logger.Fatal("pool initialization failed", zap.Error(err))
	}
	cancel()

	authEngine := engine.NewAuthEngine(pool, cfg, logger)
	saleEngine := engine.NewSaleEngine(pool, logger)

	e := echo.New()
	e.HideBanner = true
	router.Register(e,
		authEngine,
		handler.NewAuthHandler(authEngine),
		handler.NewSaleHandler(saleEngine),
		handler.NewHealthHandler(pool))

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil {
			logger.Warn("http server stopped", zap.Error(err))
		}
	}()

	// Close the pool on shutdown so in-flight transactions finish cleanly.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := pool.Close(); err != nil {
		logger.Warn("pool close", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
