package domain

import (
	"context"
	"time"
)

// BookingRepository is the storage port of the reservation core. Availability
// is advisory outside a transaction: CreateBooking re-checks overlap and
// redeems the promotion inside a single transaction so two concurrent
// requests cannot both commit (see the mysql implementation).
type BookingRepository interface {
	GetRoom(ctx context.Context, id int64) (Room, error)
	GetPromotionByCode(ctx context.Context, code string) (Promotion, error)

	// FindOverlapping returns blocking bookings for the room whose date range
	// overlaps r, skipping excludeID when > 0 (update-in-place re-checks).
	FindOverlapping(ctx context.Context, roomID int64, r DateRange, excludeID int64) ([]Booking, error)

	// CreateBooking persists b in pending state, filling ID and timestamps.
	// Returns ErrDuplicateNumber on a booking-number collision, a
	// KindAvailability error when the transactional re-check finds an overlap,
	// and a KindPromotionInvalid error when the promotion cap is hit at commit
	// time.
	CreateBooking(ctx context.Context, b *Booking) error

	GetBooking(ctx context.Context, number string) (Booking, error)

	// UpdateBooking writes status and deposit flags guarded by the status the
	// booking was loaded in; a concurrent transition surfaces as an
	// IllegalTransition error rather than a lost update.
	UpdateBooking(ctx context.Context, b *Booking, from BookingStatus) error

	// RecordPayment locks the booking row, applies ReconcilePayment against the
	// payments recorded so far, inserts p and writes the booking back, all in
	// one transaction. Returns the updated booking.
	RecordPayment(ctx context.Context, bookingNumber string, p *Payment) (Booking, error)

	ListPayments(ctx context.Context, bookingID int64) ([]Payment, error)

	// ListStalePending returns numbers of pending bookings created before
	// cutoff that have no completed payment (expiry sweep input).
	ListStalePending(ctx context.Context, cutoff time.Time) ([]string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
