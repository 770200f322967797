package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "lotus_stay/internal/adapters/http_server"
	"lotus_stay/internal/adapters/observability"
	redisad "lotus_stay/internal/adapters/redis"
	"lotus_stay/internal/app"
	"lotus_stay/internal/shared"
	mysqlrepo "lotus_stay/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	checker := app.NewAvailabilityChecker(repo)
	pricing := app.NewPricingEngine(cfg.DepositThreshold, cfg.DepositPercent)
	bookings := app.NewBookingService(repo, checker, pricing, app.NewNumberGenerator(), cache, cfg.NumberRetries)
	payments := app.NewPaymentReconciler(repo, cache)
	queries := app.NewQueryService(repo, cache, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Bookings:   bookings,
		Payments:   payments,
		Queries:    queries,
		Checker:    checker,
		BookingRPS: cfg.BookingRPS,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
