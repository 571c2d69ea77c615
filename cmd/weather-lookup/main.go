package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	httpapi "github.com/i474232898/weather-lookup/internal/api/http"
	"github.com/i474232898/weather-lookup/internal/config"
	"github.com/i474232898/weather-lookup/internal/scheduler"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
	applog "github.com/i474232898/weather-lookup/pkg/logger"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger := applog.New("weather-lookup", cfg.LogLevel)

	// Shared HTTP client for outbound calls; its timeout caps every request.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	geocoder := providers.NewNominatimGeocoder(httpClient, cfg.GeocodeBaseURL, cfg.UserAgent)
	forecasts := providers.NewOpenMeteoProvider(httpClient, cfg.ForecastBaseURL, cfg.UserAgent, cfg.ForecastDays)

	repo, closeRepo := provideRepository(cfg, appLogger)
	defer closeRepo()

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Second)
	favorites, err := store.NewFavoriteStore(loadCtx, repo, appLogger.With("component", "favorites"))
	cancelLoad()
	if err != nil {
		appLogger.Error("failed to load favorites", "error", err)
		os.Exit(1)
	}
	favorites.Subscribe(func(ev store.Event) {
		appLogger.Debug("favorites changed", "event", ev.Kind, "key", ev.Location.Key())
	})

	// Core service orchestrating geocoding, forecasts and favorites.
	service := weather.NewService(geocoder, forecasts, favorites, appLogger.With("component", "service"),
		weather.WithForecastHours(cfg.ForecastHours))

	// Scheduler that re-commits favorites after a failed write.
	sched := scheduler.New(favorites, cfg.Store.FlushInterval, appLogger.With("component", "scheduler"))
	if err := sched.Start(); err != nil {
		appLogger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-lookup",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 5*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-lookup",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		appLogger.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			appLogger.Warn("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Error("error during shutdown", "error", err)
	}
	if err := favorites.Flush(shutdownCtx); err != nil {
		appLogger.Error("final favorites flush failed", "error", err)
	}
}
