package app

import (
	"context"
	"fmt"
	"time"

	"lotus_stay/internal/domain"
)

// QueryService serves cached reads. Bookings are cached by number and evicted
// by every mutating command, so a stale status is never served past the next
// write; rooms change rarely and ride out their TTL.
type QueryService struct {
	repo     domain.BookingRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.BookingRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetBooking(ctx context.Context, number string) (domain.Booking, error) {
	key := fmt.Sprintf("booking:%s", number)
	var b domain.Booking
	if ok, _ := s.cache.Get(ctx, key, &b); ok {
		return b, nil
	}
	b, err := s.repo.GetBooking(ctx, number)
	if err != nil {
		return domain.Booking{}, err
	}
	_ = s.cache.Set(ctx, key, b, int(s.cacheTTL.Seconds()))
	return b, nil
}

func (s *QueryService) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	key := fmt.Sprintf("room:%d", id)
	var r domain.Room
	if ok, _ := s.cache.Get(ctx, key, &r); ok {
		return r, nil
	}
	r, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	_ = s.cache.Set(ctx, key, r, int(s.cacheTTL.Seconds()))
	return r, nil
}

func (s *QueryService) ListPayments(ctx context.Context, bookingNumber string) ([]domain.Payment, error) {
	b, err := s.GetBooking(ctx, bookingNumber)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, b.ID)
}
