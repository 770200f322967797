package app

import (
	"time"

	"lotus_stay/internal/domain"
)

// PricingEngine computes nightly rate x nights, applies at most one promotion,
// and splits deposits. The deposit trigger is a configured threshold, not
// business law: totals at or above DepositThreshold require a deposit of
// DepositPercent.
type PricingEngine struct {
	depositThreshold int64
	depositPercent   int64
	now              func() time.Time
}

func NewPricingEngine(depositThreshold, depositPercent int64) *PricingEngine {
	if depositPercent <= 0 || depositPercent > 100 {
		depositPercent = 20
	}
	return &PricingEngine{
		depositThreshold: depositThreshold,
		depositPercent:   depositPercent,
		now:              time.Now,
	}
}

// Quote prices a stay. promo may be nil; a rejected promotion fails the quote
// rather than silently pricing without the discount.
func (p *PricingEngine) Quote(room domain.Room, nights int, promo *domain.Promotion) (domain.Quote, error) {
	if nights <= 0 {
		return domain.Quote{}, domain.Errorf(domain.KindValidation, "stay must be at least one night")
	}
	subtotal := room.NightlyRate * int64(nights)
	q := domain.Quote{Subtotal: subtotal, Total: subtotal}
	if promo == nil {
		return q, nil
	}
	discount, err := p.Apply(promo, subtotal)
	if err != nil {
		return domain.Quote{}, err
	}
	q.Discount = discount
	q.Total = subtotal - discount
	if q.Total < 0 {
		q.Total = 0
	}
	q.Promotion = promo
	return q, nil
}

// Apply vets a promotion against a booking value and returns the discount.
// All gates must hold; the error reason names the one that failed.
func (p *PricingEngine) Apply(promo *domain.Promotion, subtotal int64) (int64, error) {
	if !promo.Active {
		return 0, domain.PromotionError(domain.PromotionInactive, "promotion %s is not active", promo.Code)
	}
	now := p.now()
	if now.Before(promo.StartDate) || now.After(promo.EndDate) {
		return 0, domain.PromotionError(domain.PromotionExpired, "promotion %s is outside its validity window", promo.Code)
	}
	if promo.UsageLimit != nil && promo.UsedCount >= *promo.UsageLimit {
		return 0, domain.PromotionError(domain.PromotionUsageExceeded, "promotion %s has reached its usage limit", promo.Code)
	}
	if promo.MinBookingAmount != nil && subtotal < *promo.MinBookingAmount {
		return 0, domain.PromotionError(domain.PromotionBelowMinimum,
			"promotion %s requires a booking of at least %d VND", promo.Code, *promo.MinBookingAmount)
	}

	var d int64
	switch promo.Type {
	case domain.DiscountPercentage:
		d = subtotal * promo.Value / 100
	case domain.DiscountFixed:
		d = promo.Value
	default:
		return 0, domain.Errorf(domain.KindValidation, "unknown discount type %q", promo.Type)
	}
	if promo.MaxDiscount != nil && d > *promo.MaxDiscount {
		d = *promo.MaxDiscount
	}
	if d > subtotal {
		d = subtotal
	}
	return d, nil
}

// RequiresDeposit applies the configured threshold. A zero threshold disables
// deposits entirely.
func (p *PricingEngine) RequiresDeposit(total int64) bool {
	return p.depositThreshold > 0 && total >= p.depositThreshold
}

// DepositAmount is total * percent / 100 in whole VND (the dong has no minor
// unit, so integer division is the rounding).
func (p *PricingEngine) DepositAmount(total int64) int64 {
	return total * p.depositPercent / 100
}
