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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/saachiraju/Team-07-Spacio/internal/app"
	"github.com/saachiraju/Team-07-Spacio/internal/clock"
	"github.com/saachiraju/Team-07-Spacio/internal/config"
	"github.com/saachiraju/Team-07-Spacio/internal/metrics"
	"github.com/saachiraju/Team-07-Spacio/internal/pricing"
	"github.com/saachiraju/Team-07-Spacio/internal/storage/postgres"
	"github.com/saachiraju/Team-07-Spacio/internal/storage/rediscache"
	transporthttp "github.com/saachiraju/Team-07-Spacio/internal/transport/http"
	"github.com/saachiraju/Team-07-Spacio/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()

	settings, err := config.Load(logger)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, settings.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(startupCtx).Err(); err != nil {
		logger.Printf("WARN: redis unreachable, availability projection uncached: %v", err)
	}

	clk := clock.NewSystem()
	rates := pricing.Config{
		ServiceFeeRate:       settings.ServiceFeeRate,
		InsuranceRatePerSqft: settings.InsuranceRatePerSqft,
	}

	reservationRepo := postgres.NewReservationRepository(pool)
	reservationSvc := app.NewReservationService(reservationRepo, clk, rates, app.WithHoldTTL(settings.HoldTTL))

	listingRepo := postgres.NewListingRepository(pool)
	hostDir := postgres.NewHostDirectory(pool)
	availabilityCache := rediscache.NewAvailabilityCache(redisClient, logger)
	listingSvc := app.NewListingService(listingRepo, clk, hostDir, reservationSvc, availabilityCache)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/listings", transporthttp.OptionalAuth(settings.JWTSecret,
		transporthttp.HandleListings(listingSvc)))
	mux.Handle("/listings/", transporthttp.OptionalAuth(settings.JWTSecret,
		transporthttp.HandleListingItem(listingSvc, reservationSvc, clk.Now)))
	mux.Handle("/reservations", transporthttp.RequireAuth(settings.JWTSecret,
		transporthttp.HandleReservations(reservationSvc)))
	mux.Handle("/reservations/", transporthttp.RequireAuth(settings.JWTSecret,
		transporthttp.HandleReservationActions(reservationSvc)))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(
		transporthttp.Metrics(
			transporthttp.CORS(settings.CORSOrigins, mux)),
		logger,
	)

	server := &http.Server{
		Addr:    ":" + settings.Port,
		Handler: handler,
	}

	log.Printf("api listening on :%s", settings.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
