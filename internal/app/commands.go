package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"lotus_stay/internal/adapters/observability"
	"lotus_stay/internal/domain"
)

// CreateBookingRequest carries a validated booking submission. ClientTotal is
// optional; when non-zero it must match the server-side quote, which guards
// guests booking against a stale price.
type CreateBookingRequest struct {
	RoomID          int64
	UserID          int64
	CheckIn         string
	CheckOut        string
	GuestCount      int
	PromotionCode   string
	SpecialRequests string
	ClientTotal     int64
}

// BookingService owns the booking lifecycle: creation, cancellation,
// check-in/out, and the stale-pending sweep.
type BookingService struct {
	repo             domain.BookingRepository
	checker          *AvailabilityChecker
	pricing          *PricingEngine
	numbers          *NumberGenerator
	cache            domain.Cache
	maxNumberRetries int
}

func NewBookingService(r domain.BookingRepository, c *AvailabilityChecker, p *PricingEngine,
	n *NumberGenerator, cache domain.Cache, maxNumberRetries int) *BookingService {
	if maxNumberRetries <= 0 {
		maxNumberRetries = 5
	}
	return &BookingService{repo: r, checker: c, pricing: p, numbers: n, cache: cache, maxNumberRetries: maxNumberRetries}
}

// Create runs the full pipeline: availability, quote, number generation with
// retry-on-collision, and the atomic pending insert. The repository re-checks
// overlap and redeems the promotion inside its transaction; losing the race
// after a clean advisory check still surfaces as an availability conflict.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (domain.Booking, error) {
	dates, err := domain.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return domain.Booking{}, err
	}

	room, err := s.repo.GetRoom(ctx, req.RoomID)
	if err != nil {
		return domain.Booking{}, err
	}
	if req.GuestCount < 1 {
		return domain.Booking{}, domain.Errorf(domain.KindValidation, "guest count must be at least 1")
	}
	if req.GuestCount > room.Capacity {
		return domain.Booking{}, domain.Errorf(domain.KindValidation,
			"room %d sleeps %d guests, requested %d", room.ID, room.Capacity, req.GuestCount)
	}

	free, err := s.checker.IsAvailable(ctx, room.ID, dates, 0)
	if err != nil {
		return domain.Booking{}, err
	}
	if !free {
		observability.ObserveAvailabilityConflict()
		return domain.Booking{}, domain.Errorf(domain.KindAvailability,
			"room %d is not available for the requested dates", room.ID)
	}

	var promo *domain.Promotion
	if req.PromotionCode != "" {
		pr, err := s.repo.GetPromotionByCode(ctx, req.PromotionCode)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Booking{}, domain.PromotionError(domain.PromotionNotFound,
					"promotion %s not found", req.PromotionCode)
			}
			return domain.Booking{}, err
		}
		promo = &pr
	}

	quote, err := s.pricing.Quote(room, dates.Nights(), promo)
	if err != nil {
		return domain.Booking{}, err
	}
	if req.ClientTotal != 0 && req.ClientTotal != quote.Total {
		return domain.Booking{}, domain.Errorf(domain.KindValidation,
			"quoted total is %d VND, client sent %d (price changed, re-quote)", quote.Total, req.ClientTotal)
	}

	b := &domain.Booking{
		RoomID:          room.ID,
		UserID:          req.UserID,
		Dates:           dates,
		GuestCount:      req.GuestCount,
		Subtotal:        quote.Subtotal,
		Discount:        quote.Discount,
		TotalPrice:      quote.Total,
		Status:          domain.StatusPending,
		SpecialRequests: req.SpecialRequests,
	}
	if quote.Promotion != nil {
		b.PromotionID = &quote.Promotion.ID
	}
	if s.pricing.RequiresDeposit(quote.Total) {
		b.RequiresDeposit = true
		b.DepositAmount = s.pricing.DepositAmount(quote.Total)
	}

	for attempt := 0; attempt < s.maxNumberRetries; attempt++ {
		b.Number = s.numbers.Next()
		err := s.repo.CreateBooking(ctx, b)
		if errors.Is(err, domain.ErrDuplicateNumber) {
			observability.ObserveNumberRetry()
			continue
		}
		if err != nil {
			return domain.Booking{}, err
		}
		observability.ObserveBookingCreated()
		s.invalidateBooking(ctx, b.Number)
		return *b, nil
	}

	// Operational alert: the 4-digit suffix space is running hot.
	log.Error().Int("attempts", s.maxNumberRetries).Msg("booking number generation exhausted")
	return domain.Booking{}, domain.Errorf(domain.KindGenerationExhausted,
		"could not allocate a unique booking number after %d attempts", s.maxNumberRetries)
}

// Cancel releases the date range held by a pending or confirmed booking.
func (s *BookingService) Cancel(ctx context.Context, number string) (domain.Booking, error) {
	b, err := s.repo.GetBooking(ctx, number)
	if err != nil {
		return domain.Booking{}, err
	}
	from := b.Status
	if err := b.Cancel(); err != nil {
		return domain.Booking{}, err
	}
	if err := s.repo.UpdateBooking(ctx, &b, from); err != nil {
		return domain.Booking{}, err
	}
	s.invalidateBooking(ctx, number)
	return b, nil
}

// CheckIn admits the guest of a confirmed booking once the check-in date has
// arrived.
func (s *BookingService) CheckIn(ctx context.Context, number string) (domain.Booking, error) {
	b, err := s.repo.GetBooking(ctx, number)
	if err != nil {
		return domain.Booking{}, err
	}
	from := b.Status
	if err := b.CheckIn(time.Now()); err != nil {
		return domain.Booking{}, err
	}
	if err := s.repo.UpdateBooking(ctx, &b, from); err != nil {
		return domain.Booking{}, err
	}
	s.invalidateBooking(ctx, number)
	return b, nil
}

// CheckOut closes the stay; billing must be fully settled first.
func (s *BookingService) CheckOut(ctx context.Context, number string) (domain.Booking, error) {
	b, err := s.repo.GetBooking(ctx, number)
	if err != nil {
		return domain.Booking{}, err
	}
	payments, err := s.repo.ListPayments(ctx, b.ID)
	if err != nil {
		return domain.Booking{}, err
	}
	var paid int64
	for _, p := range payments {
		if p.Status == domain.PaymentCompleted {
			paid += p.Amount
		}
	}
	from := b.Status
	if err := b.CheckOut(paid); err != nil {
		return domain.Booking{}, err
	}
	if err := s.repo.UpdateBooking(ctx, &b, from); err != nil {
		return domain.Booking{}, err
	}
	s.invalidateBooking(ctx, number)
	return b, nil
}

// ExpirePending cancels a stale pending booking on behalf of the expiry
// sweep. Unlike Cancel it re-checks the expiry predicate: the booking must
// still be pending with no completed payment, so a payment landing between
// the sweep listing and the cancel keeps the reservation instead of losing
// the guest's money and the room hold.
func (s *BookingService) ExpirePending(ctx context.Context, number string) (domain.Booking, error) {
	b, err := s.repo.GetBooking(ctx, number)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.Status != domain.StatusPending {
		return domain.Booking{}, fmt.Errorf("booking %s is %s, not pending", number, b.Status)
	}
	payments, err := s.repo.ListPayments(ctx, b.ID)
	if err != nil {
		return domain.Booking{}, err
	}
	for _, p := range payments {
		if p.Status == domain.PaymentCompleted {
			return domain.Booking{}, fmt.Errorf("booking %s has a completed payment", number)
		}
	}
	if err := b.Cancel(); err != nil {
		return domain.Booking{}, err
	}
	// Guarded write: a payment that confirms the booking after the checks
	// above makes this fail rather than cancel a paid stay.
	if err := s.repo.UpdateBooking(ctx, &b, domain.StatusPending); err != nil {
		return domain.Booking{}, err
	}
	s.invalidateBooking(ctx, number)
	return b, nil
}

// ValidatePromotion quotes the discount a code would yield for a booking
// value, without redeeming it.
func (s *BookingService) ValidatePromotion(ctx context.Context, code string, bookingValue int64) (int64, domain.Promotion, error) {
	promo, err := s.repo.GetPromotionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, domain.Promotion{}, domain.PromotionError(domain.PromotionNotFound, "promotion %s not found", code)
		}
		return 0, domain.Promotion{}, err
	}
	discount, err := s.pricing.Apply(&promo, bookingValue)
	if err != nil {
		return 0, domain.Promotion{}, err
	}
	return discount, promo, nil
}

func (s *BookingService) invalidateBooking(ctx context.Context, number string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, fmt.Sprintf("booking:%s", number))
}
