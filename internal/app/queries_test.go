package app_test

import (
	"context"
	"testing"
	"time"

	"lotus_stay/internal/app"
	"lotus_stay/internal/domain"
)

func TestGetBooking_CacheMissThenHit(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	svc := newService(repo)
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)
	ctx := context.Background()

	b, err := svc.Create(ctx, app.CreateBookingRequest{
		RoomID: 7, UserID: 3, CheckIn: "2025-03-01", CheckOut: "2025-03-04", GuestCount: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// miss populates the cache
	got, err := q.GetBooking(ctx, b.Number)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if got.Number != b.Number || got.TotalPrice != b.TotalPrice {
		t.Fatalf("unexpected booking: %+v", got)
	}

	// mutate the repo underneath; second read must come from cache
	repo.bookings[b.Number].TotalPrice = 1

	got2, err := q.GetBooking(ctx, b.Number)
	if err != nil {
		t.Fatalf("GetBooking (cached): %v", err)
	}
	if got2.TotalPrice != b.TotalPrice {
		t.Fatalf("expected cached total %d, got %d", b.TotalPrice, got2.TotalPrice)
	}
}

func TestMutationsEvictTheBookingCache(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	cache := &fakeCache{}
	checker := app.NewAvailabilityChecker(repo)
	pricing := app.NewPricingEngine(0, 20)
	svc := app.NewBookingService(repo, checker, pricing, app.NewNumberGenerator(), cache, 5)
	q := app.NewQueryService(repo, cache, 10*time.Minute)
	ctx := context.Background()

	b, err := svc.Create(ctx, app.CreateBookingRequest{
		RoomID: 7, UserID: 3, CheckIn: "2025-03-01", CheckOut: "2025-03-04", GuestCount: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := q.GetBooking(ctx, b.Number); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if _, err := svc.Cancel(ctx, b.Number); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := q.GetBooking(ctx, b.Number)
	if err != nil {
		t.Fatalf("GetBooking after cancel: %v", err)
	}
	if got.Status != domain.StatusCancelled {
		t.Fatalf("served stale status %s after eviction", got.Status)
	}
}

func TestGetRoom_Cached(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	q := app.NewQueryService(repo, &fakeCache{}, 10*time.Minute)
	ctx := context.Background()

	r, err := q.GetRoom(ctx, 7)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if r.NightlyRate != 800_000 {
		t.Fatalf("unexpected room: %+v", r)
	}

	repo.rooms[7] = domain.Room{ID: 7, NightlyRate: 1}
	r2, _ := q.GetRoom(ctx, 7)
	if r2.NightlyRate != 800_000 {
		t.Fatalf("expected cached rate, got %d", r2.NightlyRate)
	}
}
