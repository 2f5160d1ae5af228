package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/gatecontrol/visits/internal/http/handlers"
	gatemw "github.com/gatecontrol/visits/internal/http/middleware"
	"github.com/gatecontrol/visits/internal/repo/postgres"
	"github.com/gatecontrol/visits/internal/service"
	"github.com/gatecontrol/visits/pkg/config"
	"github.com/gatecontrol/visits/pkg/database"
	"github.com/gatecontrol/visits/pkg/events"
	"github.com/gatecontrol/visits/pkg/logger"
	mw "github.com/gatecontrol/visits/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	redisClient := newRedisClient(ctx, cfg.Redis)

	// Repositories
	visitorsRepo := postgres.NewVisitorsRepo(pool)
	visitsRepo := postgres.NewVisitsRepo(pool, visitorsRepo)
	executivesRepo := postgres.NewExecutivesRepo(pool)
	idempotencyRepo := postgres.NewIdempotencyRepo(pool)

	// Services
	visitService := service.NewVisitService(visitsRepo, executivesRepo, idempotencyRepo, eventBus)
	gateService := service.NewGateService(visitsRepo, eventBus)

	h := handlers.New(visitService, gateService)

	scanLimiter := gatemw.NewRateLimiter(redisClient, gatemw.RateLimitConfig{
		Requests: cfg.Gate.ScanLimit,
		Window:   cfg.Gate.ScanWindow,
		KeyFunc:  gatemw.GateScanKeyFunc,
	})

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/visits", func(r chi.Router) {
			r.Post("/", h.CreateVisit)
			r.Get("/", h.ListVisits)
			r.Get("/next-code", h.NextVisitCode)
			r.Get("/{id}", h.GetVisit)
			r.Patch("/{id}", h.UpdateVisit)
			r.Post("/{id}/check-in", h.CheckIn)
			r.Post("/{id}/check-out", h.CheckOut)
		})

		r.Get("/executives", h.ListExecutives)

		r.With(scanLimiter.Middleware()).Post("/gate/validate", h.ValidateCode)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down visits service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Visits service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting visits service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Visits service error", "error", err)
		os.Exit(1)
	}
}

// newRedisClient connects to redis for gate-scan rate limiting. Returns
// nil on failure; the limiter degrades to allowing all traffic.
func newRedisClient(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, gate rate limiting disabled", "error", err)
		return nil
	}
	return client
}
