package app

import (
	"context"
	"fmt"

	"lotus_stay/internal/adapters/observability"
	"lotus_stay/internal/domain"
)

// RecordPaymentRequest is a payment submission. Status defaults to completed:
// this core records money already received, it does not settle funds.
type RecordPaymentRequest struct {
	BookingNumber string
	Amount        int64
	Method        domain.PaymentMethod
	Type          domain.PaymentType
	Status        domain.PaymentStatus
}

// PaymentReconciler records payments against bookings and keeps booking status
// and deposit flags consistent with what has been paid. The amount and
// overpayment invariants live in domain.ReconcilePayment, which the repository
// runs with the booking row locked.
type PaymentReconciler struct {
	repo  domain.BookingRepository
	cache domain.Cache
}

func NewPaymentReconciler(r domain.BookingRepository, c domain.Cache) *PaymentReconciler {
	return &PaymentReconciler{repo: r, cache: c}
}

func (s *PaymentReconciler) Record(ctx context.Context, req RecordPaymentRequest) (domain.Payment, domain.Booking, error) {
	if !req.Method.Valid() {
		return domain.Payment{}, domain.Booking{}, domain.Errorf(domain.KindValidation,
			"unknown payment method %q", req.Method)
	}
	if !req.Type.Valid() {
		return domain.Payment{}, domain.Booking{}, domain.Errorf(domain.KindValidation,
			"unknown payment type %q", req.Type)
	}
	status := req.Status
	if status == "" {
		status = domain.PaymentCompleted
	}

	p := &domain.Payment{
		Amount: req.Amount,
		Method: req.Method,
		Type:   req.Type,
		Status: status,
	}
	b, err := s.repo.RecordPayment(ctx, req.BookingNumber, p)
	if err != nil {
		return domain.Payment{}, domain.Booking{}, err
	}

	observability.ObservePayment(string(p.Type), string(p.Status))
	if s.cache != nil {
		_ = s.cache.Del(ctx, fmt.Sprintf("booking:%s", req.BookingNumber))
	}
	return *p, b, nil
}
