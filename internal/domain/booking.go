package domain

import "time"

// All monetary amounts are int64 VND. The dong has no minor unit, so money is
// plain integer arithmetic throughout.

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
	RoomCleaning    RoomStatus = "cleaning"
)

// Room is owned by the inventory side; the core reads its rate and capacity.
// Status is informational only: whether a room can be booked derives from
// booking overlap, never from Status (a room can be "available" today and
// fully booked next month).
type Room struct {
	ID          int64
	Name        string
	NightlyRate int64
	Capacity    int
	Status      RoomStatus
}

type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusCheckedIn  BookingStatus = "checked_in"
	StatusCheckedOut BookingStatus = "checked_out"
	StatusCancelled  BookingStatus = "cancelled"
)

// Blocking reports whether a booking in this status holds its date range
// against other bookings. Cancelled and checked-out stays never block.
func (s BookingStatus) Blocking() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn:
		return true
	}
	return false
}

// Booking is the central entity. It is never physically deleted; cancellation
// is a status transition, preserving history.
type Booking struct {
	ID              int64
	Number          string // guest-facing business key, unique
	RoomID          int64
	UserID          int64
	Dates           DateRange
	GuestCount      int
	Subtotal        int64
	Discount        int64
	TotalPrice      int64
	Status          BookingStatus
	RequiresDeposit bool
	DepositPaid     bool
	DepositAmount   int64 // quoted up front; zero unless RequiresDeposit
	PromotionID     *int64
	SpecialRequests string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PaymentMethod string

const (
	PayCash         PaymentMethod = "cash"
	PayBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	return m == PayCash || m == PayBankTransfer
}

type PaymentType string

const (
	PaymentFull      PaymentType = "full"
	PaymentDeposit   PaymentType = "deposit"
	PaymentRemaining PaymentType = "remaining"
)

func (t PaymentType) Valid() bool {
	return t == PaymentFull || t == PaymentDeposit || t == PaymentRemaining
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment records money received against a booking. Recording, not charging:
// no settlement happens here. A remaining payment links the deposit payment it
// completes via RelatedPaymentID.
type Payment struct {
	ID               int64
	BookingID        int64
	Amount           int64
	Method           PaymentMethod
	Type             PaymentType
	Status           PaymentStatus
	RelatedPaymentID *int64
	CreatedAt        time.Time
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed_amount"
)

// Promotion is a discount code with a validity window, usage cap and minimum
// booking amount. Value is percent points for percentage promotions and VND
// for fixed-amount ones.
type Promotion struct {
	ID               int64
	Code             string
	Type             DiscountType
	Value            int64
	MaxDiscount      *int64
	MinBookingAmount *int64
	UsageLimit       *int
	UsedCount        int
	StartDate        time.Time
	EndDate          time.Time
	Active           bool
}

// Quote is the priced result of a booking request before persistence.
type Quote struct {
	Subtotal  int64
	Discount  int64
	Total     int64
	Promotion *Promotion // nil when no code was applied
}
