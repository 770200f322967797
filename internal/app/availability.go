package app

import (
	"context"

	"lotus_stay/internal/domain"
)

// AvailabilityChecker answers whether a room is free for a date range.
// Read-only and advisory: the authoritative check runs again inside the
// creation transaction, so a "yes" here can still lose the race and come back
// as an availability conflict at commit time.
type AvailabilityChecker struct {
	repo domain.BookingRepository
}

func NewAvailabilityChecker(r domain.BookingRepository) *AvailabilityChecker {
	return &AvailabilityChecker{repo: r}
}

// IsAvailable reports whether any blocking booking for the room overlaps r.
// excludeID > 0 ignores the booking being edited.
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, roomID int64, r domain.DateRange, excludeID int64) (bool, error) {
	overlapping, err := c.repo.FindOverlapping(ctx, roomID, r, excludeID)
	if err != nil {
		return false, err
	}
	return len(overlapping) == 0, nil
}
