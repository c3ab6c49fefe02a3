package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/rideback/backend/internal/delivery/http"
	"github.com/rideback/backend/internal/repository/csvstore"
	"github.com/rideback/backend/internal/repository/postgres"
	"github.com/rideback/backend/internal/repository/sqlite"
	"github.com/rideback/backend/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Configuration
	cfg := loadConfig()

	// Storage backend: Postgres when configured, otherwise SQLite,
	// otherwise the CSV files shipped with the repo.
	dataRepo, cleanup, err := openRepository(cfg)
	if err != nil {
		log.Fatalf("Could not open a data store: %v", err)
	}
	defer cleanup()

	// Dependency Injection: Services
	cache := service.NewRecommendationCache(cfg.RedisURL)
	defer cache.Close()

	demandSvc := service.NewDemandService(dataRepo, cache)
	matchSvc := service.NewMatchService(dataRepo, cfg.MatchWindow)
	trainingSvc := service.NewTrainingService(dataRepo, demandSvc, cfg.ModelDir)

	// A saved artifact starts the service warm; otherwise train once
	// from the trip log. Failing both leaves recommendations empty
	// until POST /train succeeds.
	if err := trainingSvc.LoadSavedModel(); err != nil {
		log.Printf("No usable model artifact (%v), training from trip log", err)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if _, err := trainingSvc.Train(ctx); err != nil {
			log.Printf("Warning: initial training failed: %v", err)
			log.Println("Serving without a model; recommendations will be empty until /train succeeds")
		}
		cancel()
	}

	// Scheduled retraining keeps the model current as trips accumulate
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.TrainSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := trainingSvc.Train(ctx); err != nil {
			log.Printf("scheduled training failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Invalid TRAIN_SCHEDULE %q: %v", cfg.TrainSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Prometheus metrics on a dedicated listener
	go serveMetrics(cfg.MetricsAddr)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "RideBack API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(app, dataRepo, matchSvc, demandSvc, trainingSvc)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited gracefully")
}

type Config struct {
	DatabaseURL   string
	SQLitePath    string
	DataDir       string
	RedisURL      string
	ModelDir      string
	TrainSchedule string
	MatchWindow   time.Duration
	Port          string
	MetricsAddr   string
	Env           string
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/data.db"),
		DataDir:       getEnv("DATA_DIR", "data"),
		RedisURL:      getEnv("REDIS_URL", ""),
		ModelDir:      getEnv("MODEL_DIR", "models"),
		TrainSchedule: getEnv("TRAIN_SCHEDULE", "@daily"),
		MatchWindow:   getEnvDuration("MATCH_WINDOW", service.DefaultMatchWindow),
		Port:          getEnv("PORT", "8080"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9091"),
		Env:           getEnv("GO_ENV", "development"),
	}
}

// openRepository picks the first usable storage backend.
func openRepository(cfg *Config) (service.DataRepository, func(), error) {
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err == nil {
			err = pool.Ping(ctx)
		}
		if err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
			log.Println("Falling back to SQLite")
		} else {
			log.Println("Connected to PostgreSQL")
			return postgres.NewPostgresRepository(pool), pool.Close, nil
		}
	}

	repo, err := sqlite.Open(cfg.SQLitePath)
	if err == nil {
		log.Printf("Using SQLite store at %s", cfg.SQLitePath)
		return repo, func() { repo.Close() }, nil
	}
	log.Printf("Warning: Could not open SQLite store: %v", err)
	log.Println("Falling back to CSV files")

	csvRepo, err := csvstore.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("csv store in %s: %w", cfg.DataDir, err)
	}
	log.Printf("Using CSV store in %s", cfg.DataDir)
	return csvRepo, func() {}, nil
}

func serveMetrics(addr string) {
	mux := stdhttp.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &stdhttp.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("Metrics server listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		log.Fatalf("Metrics server failed: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s %q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
