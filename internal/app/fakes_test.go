package app_test

import (
	"context"
	"encoding/json"
	"time"

	"lotus_stay/internal/domain"
)

// ---- fakes ----

// fakeRepo is an in-memory BookingRepository. It reproduces the storage
// contract the services rely on: overlap re-check and promotion cap inside
// CreateBooking, reconcile-under-lock inside RecordPayment, and the
// duplicate-number sentinel (forced via failDuplicates for retry tests).
type fakeRepo struct {
	rooms    map[int64]domain.Room
	promos   map[string]domain.Promotion
	bookings map[string]*domain.Booking
	payments map[int64][]domain.Payment
	nextID   int64

	failDuplicates int // next N creates return ErrDuplicateNumber
	createCalls    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rooms:    map[int64]domain.Room{},
		promos:   map[string]domain.Promotion{},
		bookings: map[string]*domain.Booking{},
		payments: map[int64][]domain.Payment{},
	}
}

func (f *fakeRepo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) GetPromotionByCode(ctx context.Context, code string) (domain.Promotion, error) {
	p, ok := f.promos[code]
	if !ok {
		return domain.Promotion{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) FindOverlapping(ctx context.Context, roomID int64, r domain.DateRange, excludeID int64) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.RoomID != roomID || b.ID == excludeID || !b.Status.Blocking() {
			continue
		}
		if b.Dates.Overlaps(r) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateBooking(ctx context.Context, b *domain.Booking) error {
	f.createCalls++
	if f.failDuplicates > 0 {
		f.failDuplicates--
		return domain.ErrDuplicateNumber
	}
	if _, exists := f.bookings[b.Number]; exists {
		return domain.ErrDuplicateNumber
	}
	over, _ := f.FindOverlapping(ctx, b.RoomID, b.Dates, 0)
	if len(over) > 0 {
		return domain.Errorf(domain.KindAvailability, "room %d is not available", b.RoomID)
	}
	if b.PromotionID != nil {
		for code, p := range f.promos {
			if p.ID != *b.PromotionID {
				continue
			}
			if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
				return domain.PromotionError(domain.PromotionUsageExceeded, "promotion exhausted")
			}
			p.UsedCount++
			f.promos[code] = p
		}
	}
	f.nextID++
	b.ID = f.nextID
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	f.bookings[b.Number] = &cp
	return nil
}

func (f *fakeRepo) GetBooking(ctx context.Context, number string) (domain.Booking, error) {
	b, ok := f.bookings[number]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return *b, nil
}

func (f *fakeRepo) UpdateBooking(ctx context.Context, b *domain.Booking, from domain.BookingStatus) error {
	stored, ok := f.bookings[b.Number]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != from {
		return domain.IllegalTransitionError(from, b.Status)
	}
	cp := *b
	f.bookings[b.Number] = &cp
	return nil
}

func (f *fakeRepo) RecordPayment(ctx context.Context, number string, p *domain.Payment) (domain.Booking, error) {
	stored, ok := f.bookings[number]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	b := *stored

	var paid int64
	var deposit *domain.Payment
	for i, pay := range f.payments[b.ID] {
		if pay.Status != domain.PaymentCompleted {
			continue
		}
		paid += pay.Amount
		if pay.Type == domain.PaymentDeposit {
			deposit = &f.payments[b.ID][i]
		}
	}
	if err := domain.ReconcilePayment(&b, p, paid, deposit); err != nil {
		return domain.Booking{}, err
	}

	f.nextID++
	p.ID = f.nextID
	p.BookingID = b.ID
	p.CreatedAt = time.Now().UTC()
	f.payments[b.ID] = append(f.payments[b.ID], *p)
	f.bookings[number] = &b
	return b, nil
}

func (f *fakeRepo) ListPayments(ctx context.Context, bookingID int64) ([]domain.Payment, error) {
	return append([]domain.Payment(nil), f.payments[bookingID]...), nil
}

func (f *fakeRepo) ListStalePending(ctx context.Context, cutoff time.Time) ([]string, error) {
	var out []string
	for n, b := range f.bookings {
		if b.Status != domain.StatusPending || !b.CreatedAt.Before(cutoff) {
			continue
		}
		settled := false
		for _, p := range f.payments[b.ID] {
			if p.Status == domain.PaymentCompleted {
				settled = true
				break
			}
		}
		if !settled {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}
