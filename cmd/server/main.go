package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledropshop/wa-drops-backend/internal/config"
	"github.com/ledropshop/wa-drops-backend/internal/database"
	"github.com/ledropshop/wa-drops-backend/internal/database/repository"
	"github.com/ledropshop/wa-drops-backend/internal/router"
	"github.com/ledropshop/wa-drops-backend/internal/services"
	"github.com/ledropshop/wa-drops-backend/internal/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	// Import Swagger docs
	_ "github.com/ledropshop/wa-drops-backend/docs"
)

// @title WA Drops API
// @version 1.0
// @description Drop dispatch backend: same-day broadcast validation and WhatsApp group fanout

// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter `Bearer ` followed by your JWT token (e.g. "Bearer <token>")

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Configure logging
	configureLogging()

	// Initialize Sentry
	utils.InitSentry()

	// Initialize database connection
	db, err := database.InitDB()
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	// Dispatch engine wiring
	dispatchCfg := config.GetDispatchConfig()
	clock := services.NewSystemClock(dispatchCfg.DayBoundaryTZ)

	dropRepo := repository.NewDropRepository(db)
	historyRepo := repository.NewDropHistoryRepository(db)

	gateway := services.NewWhatsAppService(config.GetGatewayConfig())
	eligibilityService := services.NewEligibilityService(dropRepo, historyRepo, clock)
	dispatchService := services.NewDispatchService(dropRepo, historyRepo, gateway, eligibilityService, clock, dispatchCfg)

	// Initialize RabbitMQ service (optional: sync dispatch works without it)
	rabbitMQService, err := services.NewRabbitMQService()
	if err != nil {
		logrus.Warnf("Failed to initialize RabbitMQ: %v", err)
		rabbitMQService = nil
	} else {
		defer rabbitMQService.Close()

		// Start the async dispatch consumer
		consumer := services.NewDispatchConsumer(rabbitMQService, dispatchService)
		if err := consumer.Start(); err != nil {
			logrus.Warnf("Failed to start dispatch consumer: %v", err)
		} else {
			defer consumer.Stop()
		}
	}

	// Initialize router
	r := router.SetupRouter(db, rabbitMQService, dispatchService, gateway, clock)

	// Configure HTTP server
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logrus.Infof("Server starting on port %s", port)
		logrus.Infof("API Health Check: http://localhost:%s/api/v1/health", port)
		logrus.Infof("Swagger UI: http://localhost:%s/swagger/index.html", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the server
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited properly")
}

func configureLogging() {
	logLevel := getEnv("LOG_LEVEL", "info")
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
