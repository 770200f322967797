package domain

import "time"

// Legal status transitions. pending and confirmed can still be cancelled;
// checked_in and checked_out are past the point of no return and must go
// through a refund/adjustment path instead.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn: {StatusCheckedOut},
}

func (b *Booking) canMove(to BookingStatus) error {
	for _, s := range transitions[b.Status] {
		if s == to {
			return nil
		}
	}
	return IllegalTransitionError(b.Status, to)
}

// Confirm moves a pending booking to confirmed. Callers invoke it from the
// payment path once a qualifying completed payment is recorded.
func (b *Booking) Confirm() error {
	if err := b.canMove(StatusConfirmed); err != nil {
		return err
	}
	b.Status = StatusConfirmed
	return nil
}

// Cancel releases the booking's date range. Only pending and confirmed stays
// may be cancelled.
func (b *Booking) Cancel() error {
	if err := b.canMove(StatusCancelled); err != nil {
		return err
	}
	b.Status = StatusCancelled
	return nil
}

// CheckIn admits the guest. The stay must be confirmed and the check-in date
// must have arrived.
func (b *Booking) CheckIn(now time.Time) error {
	if err := b.canMove(StatusCheckedIn); err != nil {
		return err
	}
	if truncateDay(now).Before(b.Dates.CheckIn) {
		return Errorf(KindValidation, "check-in date %s has not arrived",
			b.Dates.CheckIn.Format(DateLayout))
	}
	b.Status = StatusCheckedIn
	return nil
}

// CheckOut closes the stay. Billing must be settled: the sum of completed
// payments has to equal the total price before check-out.
func (b *Booking) CheckOut(paidCompleted int64) error {
	if err := b.canMove(StatusCheckedOut); err != nil {
		return err
	}
	if paidCompleted != b.TotalPrice {
		return Errorf(KindPaymentMismatch, "outstanding balance %d VND must be settled before check-out",
			b.TotalPrice-paidCompleted)
	}
	b.Status = StatusCheckedOut
	return nil
}

// ReconcilePayment validates p against the booking and the payments recorded
// so far, then advances the booking accordingly. paidCompleted is the sum of
// completed payment amounts excluding p; deposit is the completed deposit
// payment when one exists. Implementations of BookingRepository call this
// inside the same transaction that inserts p, with the booking row locked.
func ReconcilePayment(b *Booking, p *Payment, paidCompleted int64, deposit *Payment) error {
	if b.Status == StatusCancelled || b.Status == StatusCheckedOut {
		return IllegalTransitionError(b.Status, StatusConfirmed)
	}
	if p.Amount <= 0 {
		return Errorf(KindValidation, "payment amount must be positive")
	}

	switch p.Type {
	case PaymentFull:
		if p.Amount != b.TotalPrice {
			return Errorf(KindPaymentMismatch, "full payment must equal total %d VND, got %d", b.TotalPrice, p.Amount)
		}
	case PaymentDeposit:
		if !b.RequiresDeposit {
			return Errorf(KindPaymentMismatch, "booking %s does not take a deposit", b.Number)
		}
		if deposit != nil {
			return Errorf(KindPaymentMismatch, "deposit already recorded for booking %s", b.Number)
		}
		if p.Amount != b.DepositAmount {
			return Errorf(KindPaymentMismatch, "deposit must equal quoted %d VND, got %d", b.DepositAmount, p.Amount)
		}
	case PaymentRemaining:
		if deposit == nil {
			return Errorf(KindPaymentMismatch, "no completed deposit to settle for booking %s", b.Number)
		}
		if rest := b.TotalPrice - deposit.Amount; p.Amount != rest {
			return Errorf(KindPaymentMismatch, "remaining balance is %d VND, got %d", rest, p.Amount)
		}
		p.RelatedPaymentID = &deposit.ID
	default:
		return Errorf(KindValidation, "unknown payment type %q", p.Type)
	}

	if p.Status == PaymentCompleted && paidCompleted+p.Amount > b.TotalPrice {
		return Errorf(KindOverpayment, "completed payments %d VND would exceed total %d",
			paidCompleted+p.Amount, b.TotalPrice)
	}

	// Pending or failed payments are recorded without lifecycle effect.
	if p.Status != PaymentCompleted {
		return nil
	}

	switch p.Type {
	case PaymentFull:
		if b.Status == StatusPending {
			if err := b.Confirm(); err != nil {
				return err
			}
		}
	case PaymentDeposit:
		if b.Status == StatusPending {
			if err := b.Confirm(); err != nil {
				return err
			}
		}
		b.DepositPaid = true
	case PaymentRemaining:
		b.DepositPaid = true
	}
	return nil
}
