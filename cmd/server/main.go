package main // Entry point package

import (
	"context"

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework
	"github.com/sirupsen/logrus"  // Structured logging

	"github.com/iliyamo/venue-booking-engine/internal/config"   // Environment config loader
	"github.com/iliyamo/venue-booking-engine/internal/database" // MySQL connector and migrations
	"github.com/iliyamo/venue-booking-engine/internal/engine"   // Booking engine core
	"github.com/iliyamo/venue-booking-engine/internal/handler"  // HTTP handlers
	"github.com/iliyamo/venue-booking-engine/internal/lock"     // Lock coordinator
	"github.com/iliyamo/venue-booking-engine/internal/model"    // Domain types
	"github.com/iliyamo/venue-booking-engine/internal/queue"    // Booking event consumer
	"github.com/iliyamo/venue-booking-engine/internal/router"   // Route registration
	"github.com/iliyamo/venue-booking-engine/internal/service"  // AMQP event publisher
	"github.com/iliyamo/venue-booking-engine/internal/store"    // Seat and booking stores
	"github.com/iliyamo/venue-booking-engine/internal/waitqueue"
)

func main() {
	// Load variables from a .env file when present.  Real environments
	// set them directly, so a missing file is not an error.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logrus.WithField("component", "server")

	ctx := context.Background()

	// Seat and booking stores.  MySQL when configured, otherwise the
	// in-memory store (single-process deployments and local work).
	var seats store.SeatStore
	var bookings store.BookingStore
	persistent := cfg.DBUser != ""
	if persistent {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.WithError(err).Fatal("mysql connection failed")
		}
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		seats = store.NewMySQLSeatStore(db)
		bookings = store.NewMySQLBookingStore(db)
	} else {
		log.Warn("DB_USER not set, using in-memory stores")
		seats = store.NewMemorySeatStore()
		bookings = store.NewMemoryBookingStore()
	}

	// Redis backs the lock coordinator, the FCFS dedup markers and the
	// rate limiter.  Without it the engine degrades to in-process
	// coordination, which is correct for a single instance only.
	rdb := config.NewRedisClient()
	var locks lock.Coordinator
	var dedup engine.DedupStore
	distributed := rdb != nil
	if distributed {
		locks = lock.NewRedisCoordinator(rdb, "lock")
		dedup = engine.NewRedisDedupStore(rdb, "fcfs")
	} else {
		log.Warn("redis unavailable, using in-process lock coordinator")
		locks = lock.NewMemoryCoordinator()
		dedup = engine.NewMemoryDedupStore()
	}

	// Seed the venue.  Idempotent: existing seats are left untouched.
	seed := make([]model.Seat, 0, cfg.SeatCount)
	for i := 1; i <= cfg.SeatCount; i++ {
		seed = append(seed, model.Seat{ID: uint64(i), Status: model.SeatAvailable})
	}
	if err := seats.CreateBulk(ctx, seed); err != nil {
		log.WithError(err).Fatal("seat seeding failed")
	}

	publisher := service.NewPublisher("")

	orchestrator := engine.NewOrchestrator(seats, bookings, locks, engine.OrchestratorConfig{
		LockTTL:        cfg.LockTTL,
		HoldTTL:        cfg.HoldTTL,
		SeatPriceCents: uint32(cfg.SeatPriceCents),
		Publisher:      publisher,
	})
	allocator := engine.NewFCFSAllocator(seats, dedup, engine.FCFSConfig{
		DedupTTL:   cfg.DedupTTL,
		MaxRetries: cfg.FCFSRetries,
	})
	waits := waitqueue.New(cfg.QueueService)

	// Background workers: the reaper reverts expired holds, the
	// admitter drains the wait queue while capacity exists.
	go engine.NewReaper(seats, locks, cfg.ReapInterval).Start(ctx)
	go engine.NewAdmitter(seats, waits, publisher, cfg.AdmitInterval).Start(ctx)

	// Booking event consumer writes confirmations to the audit log.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.WithError(err).Warn("booking consumer stopped")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Reservations:     handler.NewReservationHandler(orchestrator, allocator),
		Queue:            handler.NewQueueHandler(waits),
		Seats:            handler.NewSeatHandler(seats, locks),
		JWTSecret:        cfg.JWTSecret,
		RateLimit:        config.LoadRateLimitConfig(),
		Redis:            rdb,
		DistributedLocks: distributed,
		PersistentSeats:  persistent,
	})

	addr := ":" + cfg.Port
	log.WithField("env", cfg.Env).Infof("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
