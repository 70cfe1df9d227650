package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPPort int

	Postgres Postgres
	Engine   Engine
}

type Postgres struct {
	Host string
	Port int
	User string
	Pass string
	DB   string
}

// Engine holds the fulfillment tunables. Amounts are in the smallest
// currency unit; the defaults mirror the marketplace policy (free delivery
// above 500, 50 per delivery leg, 40 minutes base preparation).
type Engine struct {
	ReservationTTL time.Duration
	SweepInterval  time.Duration

	FreeDeliveryThreshold int64
	StandardDeliveryFee   int64
	BasePrepTime          time.Duration

	MultiFulfillerMode        bool
	MultiFulfillerCartAllowed bool

	CommitTimeout time.Duration
}

func Load() Config {
	return Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPPort: getEnvInt("HTTP_PORT", 8080),
		Postgres: Postgres{
			Host: getEnv("POSTGRES_HOST", "localhost"),
			Port: getEnvInt("POSTGRES_PORT", 5432),
			User: getEnv("POSTGRES_USER", "fulfillment"),
			Pass: getEnv("POSTGRES_PASSWORD", "fulfillmentpassword"),
			DB:   getEnv("POSTGRES_DB", "fulfillment_db"),
		},
		Engine: Engine{
			ReservationTTL:            getEnvDuration("RESERVATION_TTL", 30*time.Minute),
			SweepInterval:             getEnvDuration("RESERVATION_SWEEP_INTERVAL", 5*time.Minute),
			FreeDeliveryThreshold:     getEnvInt64("FREE_DELIVERY_THRESHOLD", 500),
			StandardDeliveryFee:       getEnvInt64("STANDARD_DELIVERY_FEE", 50),
			BasePrepTime:              getEnvDuration("BASE_PREP_TIME", 40*time.Minute),
			MultiFulfillerMode:        getEnvBool("MULTI_FULFILLER_MODE", true),
			MultiFulfillerCartAllowed: getEnvBool("MULTI_FULFILLER_CART_ALLOWED", true),
			CommitTimeout:             getEnvDuration("ORDER_COMMIT_TIMEOUT", 10*time.Second),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvInt64(key string, def int64) int64 {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}

	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}

	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}

	return d
}
