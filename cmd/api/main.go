package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/address-validator/app/config"
	"github.com/address-validator/app/controllers"
	"github.com/address-validator/app/services"
	"github.com/address-validator/helpers/utils"
	"github.com/address-validator/internal/metrics"
	"github.com/address-validator/routes"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	// 2. Khởi tạo logger
	logger, err := utils.NewLogger(cfg.App.Env)
	if err != nil {
		log.Fatalf("Cannot initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Swiss Address Validator", zap.String("env", cfg.App.Env))

	// 3. Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// 4. Token cache, address client, pipeline, service
	stack, err := services.NewStack(cfg, logger, m)
	if err != nil {
		logger.Fatal("Failed to initialize validation stack", zap.Error(err))
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Error("Error closing Redis", zap.Error(err))
		}
	}()

	// 5. Controllers và routes
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	addressController := controllers.NewAddressController(stack.Service, logger)
	routes.SetupAllRoutes(router, addressController, registry, logger)

	// 6. Khởi động server
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
