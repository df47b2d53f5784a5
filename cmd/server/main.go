package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/medcamp/exam-seat-registration/internal/capacity"
	"github.com/medcamp/exam-seat-registration/internal/config"
	"github.com/medcamp/exam-seat-registration/internal/database"
	"github.com/medcamp/exam-seat-registration/internal/handler"
	"github.com/medcamp/exam-seat-registration/internal/payment"
	"github.com/medcamp/exam-seat-registration/internal/queue"
	"github.com/medcamp/exam-seat-registration/internal/repository"
	"github.com/medcamp/exam-seat-registration/internal/router"
	queuepublisher "github.com/medcamp/exam-seat-registration/internal/service"
)

func main() {
	// Load .env for local development; in deployed environments the
	// variables come from the process environment and the file is absent.
	_ = godotenv.Load()

	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Fatalf("invalid EXAM_TIMEZONE %q: %v", cfg.TimeZone, err)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("migration failed: %v", err)
	}
	cancel()

	// Redis backs the view cache and the rate limiter; both stay disabled
	// when no server is reachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: response cache and rate limiting disabled")
	}

	capRepo := repository.NewCapacityRepo(db, cfg.MaxCapacity, cfg.FreeLimit)
	regRepo := repository.NewRegistrationRepo(db)
	userRepo := repository.NewUserRepo(db)

	alloc := capacity.NewAllocator(capRepo, loc)
	query := capacity.NewQuery(capRepo, capacity.Defaults{MaxCapacity: cfg.MaxCapacity, FreeLimit: cfg.FreeLimit}, loc)
	verifier := payment.NewHTTPVerifier(cfg.PaymentVerifyURL)

	regHandler := handler.NewRegistrationHandler(alloc, regRepo, userRepo, verifier, queuepublisher.PublishRegistrationConfirmed)
	capHandler := handler.NewCapacityHandler(query)
	adminHandler := handler.NewAdminHandler(capRepo, regRepo)
	pdpaHandler := handler.NewPDPAHandler(userRepo, regRepo, alloc)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterCapacity(e, capHandler, config.LoadCacheConfig(), rdb)
	router.RegisterRegistration(e, regHandler, pdpaHandler, cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)
	router.RegisterAdmin(e, adminHandler, cfg.JWTSecret)

	// Consume confirmation events in the background; the consumer
	// reconnects on its own and never blocks startup.
	go queue.StartNotificationConsumer()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, tz=%s)", addr, cfg.Env, cfg.TimeZone)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
