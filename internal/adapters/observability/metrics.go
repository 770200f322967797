package observability

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lotus", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lotus", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	BookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "lotus", Name: "bookings_created_total", Help: "Bookings persisted in pending state."},
	)
	AvailabilityConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "lotus", Name: "availability_conflicts_total", Help: "Booking requests rejected on date overlap."},
	)
	NumberRetries = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "lotus", Name: "booking_number_retries_total", Help: "Booking number collisions retried."},
	)
	PaymentsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lotus", Name: "payments_recorded_total", Help: "Payments recorded."},
		[]string{"type", "status"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lotus", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
)

// Serve starts the standalone metrics listener when METRICS_ADDR is set.
func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, BookingsCreated, AvailabilityConflicts,
		NumberRetries, PaymentsRecorded, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveBookingCreated() { BookingsCreated.Inc() }

func ObserveAvailabilityConflict() { AvailabilityConflicts.Inc() }

func ObserveNumberRetry() { NumberRetries.Inc() }

func ObservePayment(typ, status string) {
	PaymentsRecorded.WithLabelValues(typ, status).Inc()
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}
