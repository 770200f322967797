package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// ErrDuplicateNumber is returned by the repository when a booking insert hits
// the unique key on booking number. The creator regenerates and retries.
var ErrDuplicateNumber = errors.New("duplicate booking number")

type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindAvailability        ErrorKind = "availability_conflict"
	KindIllegalTransition   ErrorKind = "illegal_transition"
	KindPromotionInvalid    ErrorKind = "promotion_invalid"
	KindOverpayment         ErrorKind = "overpayment"
	KindPaymentMismatch     ErrorKind = "payment_mismatch"
	KindGenerationExhausted ErrorKind = "generation_exhausted"
)

// PromotionReason narrows KindPromotionInvalid so callers can tell which gate
// failed without string matching.
type PromotionReason string

const (
	PromotionNotFound      PromotionReason = "not_found"
	PromotionInactive      PromotionReason = "inactive"
	PromotionExpired       PromotionReason = "expired"
	PromotionUsageExceeded PromotionReason = "usage_exceeded"
	PromotionBelowMinimum  PromotionReason = "below_minimum"
)

// Error is the value-like error of the reservation core: a kind to branch on,
// a human message, and optional context. Never used for normal control flow.
type Error struct {
	Kind    ErrorKind
	Message string

	// Reason is set when Kind == KindPromotionInvalid.
	Reason PromotionReason
	// From/To are set when Kind == KindIllegalTransition.
	From, To BookingStatus
}

func (e *Error) Error() string {
	if e.Kind == KindIllegalTransition {
		return fmt.Sprintf("%s: cannot move booking from %s to %s", e.Kind, e.From, e.To)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func IllegalTransitionError(from, to BookingStatus) *Error {
	return &Error{Kind: KindIllegalTransition, From: from, To: to}
}

func PromotionError(reason PromotionReason, format string, args ...any) *Error {
	return &Error{Kind: KindPromotionInvalid, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind, or "" for errors outside the taxonomy.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf extracts the promotion rejection reason, or "" when not applicable.
func ReasonOf(err error) PromotionReason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
