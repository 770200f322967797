package main

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"lotus_stay/internal/adapters/observability"
	redisad "lotus_stay/internal/adapters/redis"
	"lotus_stay/internal/app"
	"lotus_stay/internal/shared"
	mysqlrepo "lotus_stay/internal/storage/mysql"
)

// The expirer cancels pending bookings that have held a date range past
// PENDING_TTL_HOURS without a completed payment. Auto-expiry is a business
// policy knob, so the sweep lives in its own opt-in binary rather than inside
// the API: run it from cron, or not at all.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	if cfg.PendingTTL <= 0 {
		log.Info().Msg("PENDING_TTL_HOURS not set, nothing to expire")
		return
	}
	log.Info().
		Dur("ttl", cfg.PendingTTL).
		Int("workers", cfg.Workers).
		Msg("expirer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	checker := app.NewAvailabilityChecker(repo)
	pricing := app.NewPricingEngine(cfg.DepositThreshold, cfg.DepositPercent)
	bookings := app.NewBookingService(repo, checker, pricing, app.NewNumberGenerator(), cache, cfg.NumberRetries)

	numbers, err := repo.ListStalePending(ctx, time.Now().Add(-cfg.PendingTTL))
	if err != nil {
		log.Fatal().Err(err).Msg("list stale pending failed")
	}

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, number := range numbers {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(number string) {
			defer wg.Done()
			defer sem.Release(1)

			if _, err := bookings.ExpirePending(ctx, number); err != nil {
				// A payment may have landed between the sweep and the cancel.
				log.Warn().Str("booking", number).Err(err).Msg("expire skipped")
				return
			}
			log.Info().Str("booking", number).Msg("expired")
		}(number)
	}

	wg.Wait()
	log.Info().Int("swept", len(numbers)).Msg("expiry sweep completed")
}
