package shared

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	// Deposit policy: totals at or above the threshold require a deposit of
	// DepositPercent. Threshold 0 disables deposits.
	DepositThreshold int64
	DepositPercent   int64

	// Booking number collision retry budget.
	NumberRetries int

	// Expiry sweep: pending bookings older than this with no completed payment
	// are cancelled by the expirer binary. 0 disables the sweep.
	PendingTTL time.Duration

	// Rate limit for POST /v1/bookings, requests per second.
	BookingRPS int

	// Expirer fan-out width.
	Workers int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atoi64 := func(k string, def int64) int64 {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
		}
		return def
	}
	return Config{
		AppEnv:           env("APP_ENV", "prod"),
		HTTPAddr:         env("HTTP_ADDR", ":8080"),
		MetricsAddr:      env("METRICS_ADDR", ":9100"),
		MySQLDSN:         env("MYSQL_DSN", "root:root@tcp(localhost:3306)/lotus?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:        env("REDIS_ADDR", "localhost:6379"),
		RedisPass:        env("REDIS_PASSWORD", ""),
		RedisDB:          atoi("REDIS_DB", 0),
		CacheTTL:         time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		DepositThreshold: atoi64("DEPOSIT_THRESHOLD_VND", 2_000_000),
		DepositPercent:   atoi64("DEPOSIT_PERCENT", 20),
		NumberRetries:    atoi("BOOKING_NUMBER_RETRIES", 5),
		PendingTTL:       time.Duration(atoi("PENDING_TTL_HOURS", 0)) * time.Hour,
		BookingRPS:       atoi("BOOKING_RPS", 20),
		Workers:          atoi("EXPIRE_WORKERS", 4),
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
