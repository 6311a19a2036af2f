package config // package config loads application configuration from environment variables

import (
	"log"  // log is used to report configuration errors and halt execution
	"os"   // os provides access to environment variables
	"time" // time parses the engine's TTL and interval settings
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for the
// engine's TTLs and sweep intervals.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username (empty disables MySQL, engine runs in-memory)
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify bearer tokens on the request surface

	SeatCount      int           // number of seats created at venue setup
	SeatPriceCents int           // flat per-seat price used for booking totals
	LockTTL        time.Duration // TTL for seat locks taken by the orchestrator
	HoldTTL        time.Duration // TTL for soft-holds before they revert to available
	DedupTTL       time.Duration // TTL for the FCFS per-requester dedup marker
	FCFSRetries    int           // bounded retry ceiling for the FCFS allocator
	ReapInterval   time.Duration // how often the expiry reaper sweeps
	AdmitInterval  time.Duration // how often the admission loop checks capacity
	QueueService   time.Duration // assumed service time per queue entry (wait estimates)
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The engine tunables
// all carry safe defaults.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),      // environment (dev/test/prod)
		Port:      must("APP_PORT"),     // port to bind the HTTP server
		DBUser:    os.Getenv("DB_USER"), // database user; empty selects the in-memory store
		DBPass:    os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:    os.Getenv("DB_HOST"), // database host
		DBPort:    os.Getenv("DB_PORT"), // database port
		DBName:    os.Getenv("DB_NAME"), // database name
		JWTSecret: must("JWT_SECRET"),   // secret used to verify bearer tokens

		SeatCount:      envInt("SEAT_COUNT", 100),
		SeatPriceCents: envInt("SEAT_PRICE_CENTS", 1500),
		LockTTL:        envDur("LOCK_TTL", 10*time.Second),
		HoldTTL:        envDur("HOLD_TTL", 5*time.Minute),
		DedupTTL:       envDur("FCFS_DEDUP_TTL", 15*time.Minute),
		FCFSRetries:    envInt("FCFS_MAX_RETRIES", 5),
		ReapInterval:   envDur("REAP_INTERVAL", 10*time.Second),
		AdmitInterval:  envDur("ADMIT_INTERVAL", 5*time.Second),
		QueueService:   envDur("QUEUE_SERVICE_TIME", 30*time.Second),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
