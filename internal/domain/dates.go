package domain

import "time"

// DateLayout is the wire format for calendar dates (ISO, no time-of-day).
const DateLayout = "2006-01-02"

// DateRange is a half-open stay interval [CheckIn, CheckOut). Both bounds are
// calendar dates normalized to midnight UTC, so a check-out on day D and a
// check-in on day D never collide (same-day turnover).
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewDateRange normalizes both bounds to whole days and rejects empty or
// inverted ranges at construction time.
func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	ci := truncateDay(checkIn)
	co := truncateDay(checkOut)
	if !co.After(ci) {
		return DateRange{}, Errorf(KindValidation, "check-out %s must be after check-in %s",
			co.Format(DateLayout), ci.Format(DateLayout))
	}
	return DateRange{CheckIn: ci, CheckOut: co}, nil
}

// ParseDateRange builds a range from two ISO date strings.
func ParseDateRange(checkIn, checkOut string) (DateRange, error) {
	ci, err := time.Parse(DateLayout, checkIn)
	if err != nil {
		return DateRange{}, Errorf(KindValidation, "invalid check-in date %q", checkIn)
	}
	co, err := time.Parse(DateLayout, checkOut)
	if err != nil {
		return DateRange{}, Errorf(KindValidation, "invalid check-out date %q", checkOut)
	}
	return NewDateRange(ci, co)
}

// Overlaps reports whether two half-open ranges share at least one night:
// [a1,a2) and [b1,b2) overlap iff a1 < b2 && b1 < a2.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(r.CheckOut)
}

// Nights is the whole-day length of the stay; >= 1 for any constructed range.
func (r DateRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn) / (24 * time.Hour))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
