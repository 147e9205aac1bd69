package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"

	httpapi "stationrent-backend/internal/api/http"
	"stationrent-backend/internal/app"
	"stationrent-backend/internal/config"
	"stationrent-backend/internal/logger"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	envErr := godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting StationRent API server...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	if envErr != nil {
		logger.Debug("No .env file loaded", "error", envErr)
	}
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Booking configuration",
		"payment_window", cfg.PaymentWindow(),
		"late_fee_percent", cfg.Booking.LateFeePercent,
		"timezone", cfg.Booking.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	// In-memory bookings are invisible to cmd/cronjob, so reap them here.
	if sched := application.InProcessScheduler(); sched != nil {
		logger.Warn("Running scheduled jobs inside the API server (in-memory storage)")
		sched.Start()
		defer sched.Stop()
	}

	// Routes
	handler := httpapi.NewHandler(httpapi.Services{
		Booking:       application.Booking,
		Availability:  application.Availability,
		Catalog:       application.Catalog,
		Wallet:        application.Wallet,
		Notifications: application.Notifications,
	}, cfg.Location())
	router := httpapi.NewRouter(handler, httpapi.NewAuthMiddleware(application.Tokens))
	if application.MockGateway != nil {
		httpapi.RegisterMockCheckoutRoutes(router, application.MockGateway, application.Booking)
	}

	// Middleware chain: access log, CORS, panic recovery
	var h http.Handler = router
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(h)
	h = handlers.CombinedLoggingHandler(os.Stdout, h)

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped. Goodbye!")
}
