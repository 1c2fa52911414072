// Package config loads application configuration from environment
// variables. A .env file is honored when present so local setups do not
// need to export anything. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message;
// optional values fall back to sensible defaults (30 minute saga timeout,
// 3 retries, 30s/60s sweep intervals).
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Base holds the values every service needs.
type Base struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name
}

// Booking configures the booking service: where the participants live,
// how long one command call may take, and the saga/sweeper policy knobs.
type Booking struct {
	Base
	HotelServiceURL   string        // base URL of the hotel service
	PaymentServiceURL string        // base URL of the payment service
	CommandTimeout    time.Duration // per participant call
	SagaMaxRetries    int           // retry budget per saga
	SagaTimeout       time.Duration // absolute saga deadline
	SweepExpiredEvery time.Duration // expiry sweep interval
	SweepRetryEvery   time.Duration // retry sweep interval
	StatusCacheTTL    time.Duration // redis status cache lifetime
	RateLimit         RateLimitConfig
}

// Hotel configures the reservation participant.
type Hotel struct {
	Base
	FailureRate float64       // simulated transient failure probability
	Delay       time.Duration // simulated processing delay
}

// Payment configures the payment participant.
type Payment struct {
	Base
	FailureRate      float64       // simulated transient failure probability
	InsufficientRate float64       // simulated insufficient-funds probability
	Delay            time.Duration // simulated processing delay
}

// RateLimitConfig drives the fixed-window limiter on the booking intake.
type RateLimitConfig struct {
	Enabled bool
	Limit   int           // requests allowed per window
	Window  time.Duration // window length
	Prefix  string        // redis key namespace
}

// LoadBooking reads the booking service configuration.
func LoadBooking() Booking {
	_ = godotenv.Load()
	return Booking{
		Base:              loadBase(),
		HotelServiceURL:   must("HOTEL_SERVICE_URL"),
		PaymentServiceURL: must("PAYMENT_SERVICE_URL"),
		CommandTimeout:    envDur("COMMAND_TIMEOUT", 5*time.Second),
		SagaMaxRetries:    envInt("SAGA_MAX_RETRIES", 3),
		SagaTimeout:       envDur("SAGA_TIMEOUT", 30*time.Minute),
		SweepExpiredEvery: envDur("SWEEP_EXPIRED_EVERY", 30*time.Second),
		SweepRetryEvery:   envDur("SWEEP_RETRY_EVERY", 60*time.Second),
		StatusCacheTTL:    envDur("STATUS_CACHE_TTL", 5*time.Second),
		RateLimit: RateLimitConfig{
			Enabled: envBool("RATE_LIMIT_ENABLED", true),
			Limit:   envInt("RATE_LIMIT_LIMIT", 60),
			Window:  envDur("RATE_LIMIT_WINDOW", time.Minute),
			Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
		},
	}
}

// LoadHotel reads the hotel service configuration.
func LoadHotel() Hotel {
	_ = godotenv.Load()
	return Hotel{
		Base:        loadBase(),
		FailureRate: envFloat("HOTEL_FAILURE_RATE", 0),
		Delay:       envDur("HOTEL_DELAY", 0),
	}
}

// LoadPayment reads the payment service configuration.
func LoadPayment() Payment {
	_ = godotenv.Load()
	return Payment{
		Base:             loadBase(),
		FailureRate:      envFloat("PAYMENT_FAILURE_RATE", 0),
		InsufficientRate: envFloat("PAYMENT_INSUFFICIENT_RATE", 0.1),
		Delay:            envDur("PAYMENT_DELAY", 0),
	}
}

func loadBase() Base {
	return Base{
		Env:    envStr("APP_ENV", "dev"),
		Port:   must("APP_PORT"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"), // empty allowed
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("invalid float for %s: %q", key, v)
	}
	return f
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "":
		return def
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return def
}
