package app_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"lotus_stay/internal/app"
	"lotus_stay/internal/domain"
)

func newService(repo *fakeRepo) *app.BookingService {
	checker := app.NewAvailabilityChecker(repo)
	pricing := app.NewPricingEngine(2_000_000, 20)
	return app.NewBookingService(repo, checker, pricing, app.NewNumberGenerator(), &fakeCache{}, 5)
}

func seedRoom(repo *fakeRepo) {
	repo.rooms[7] = domain.Room{ID: 7, Name: "Deluxe 201", NightlyRate: 800_000, Capacity: 2, Status: domain.RoomAvailable}
}

func seedSummerPromo(repo *fakeRepo) {
	now := time.Now()
	min := int64(2_000_000)
	repo.promos["SUMMER2025"] = domain.Promotion{
		ID: 1, Code: "SUMMER2025", Type: domain.DiscountFixed, Value: 300_000,
		MinBookingAmount: &min,
		StartDate:        now.Add(-24 * time.Hour), EndDate: now.Add(24 * time.Hour),
		Active: true,
	}
}

var numberFormat = regexp.MustCompile(`^BK\d{12}$`)

func TestCreateBooking_FullScenario(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	seedSummerPromo(repo)
	svc := newService(repo)

	// 800,000/night x 3 nights, SUMMER2025 takes 300,000 off
	b, err := svc.Create(context.Background(), app.CreateBookingRequest{
		RoomID: 7, UserID: 3,
		CheckIn: "2025-03-01", CheckOut: "2025-03-04",
		GuestCount: 2, PromotionCode: "SUMMER2025",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Subtotal != 2_400_000 || b.Discount != 300_000 || b.TotalPrice != 2_100_000 {
		t.Fatalf("pricing wrong: %+v", b)
	}
	if b.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", b.Status)
	}
	if !b.RequiresDeposit || b.DepositPaid {
		t.Fatalf("deposit flags: requires=%v paid=%v", b.RequiresDeposit, b.DepositPaid)
	}
	if b.DepositAmount != 420_000 {
		t.Fatalf("deposit = %d, want 420000", b.DepositAmount)
	}
	if !numberFormat.MatchString(b.Number) {
		t.Fatalf("booking number %q does not match BK<date><4 digits>", b.Number)
	}
	if repo.promos["SUMMER2025"].UsedCount != 1 {
		t.Fatalf("promotion not redeemed with the booking")
	}
}

func TestCreateBooking_OverlapRejected(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	svc := newService(repo)
	ctx := context.Background()

	if _, err := svc.Create(ctx, app.CreateBookingRequest{
		RoomID: 7, UserID: 3, CheckIn: "2025-03-01", CheckOut: "2025-03-04", GuestCount: 2,
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.Create(ctx, app.CreateBookingRequest{
		RoomID: 7, UserID: 4, CheckIn: "2025-03-03", CheckOut: "2025-03-05", GuestCount: 1,
	})
	if domain.KindOf(err) != domain.KindAvailability {
		t.Fatalf("kind = %q, want availability_conflict", domain.KindOf(err))
	}

	// same-day turnover is legal
	if _, err := svc.Create(ctx, app.CreateBookingRequest{
		RoomID: 7, UserID: 4, CheckIn: "2025-03-04", CheckOut: "2025-03-06", GuestCount: 1,
	}); err != nil {
		t.Fatalf("back-to-back create: %v", err)
	}
}

func TestCreateBooking_CancelledBookingDoesNotBlock(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	svc := newService(repo)
	ctx := context.Background()

	b, err := svc.Create(ctx, app.CreateBookingRequest{
		RoomID: 7, UserID: 3, CheckIn: "2025-03-01", CheckOut: "2025-03-04", GuestCount: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Cancel(ctx, b.Number); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Create(ctx, app.CreateBookingRequest{
		RoomID: 7, UserID: 4, CheckIn: "2025-03-01", CheckOut: "2025-03-04", GuestCount: 2,
	}); err != nil {
		t.Fatalf("create over cancelled: %v", err)
	}
}

func TestCreateBooking_NumberCollisionRetries(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	repo.failDuplicates = 3
	svc := newService(repo)

	b, err := svc.Create(context.Background(), app.CreateBookingRequest{
		RoomID: 7, UserID: 3, CheckIn: "2025-03-01", CheckOut: "2025-03-04", GuestCount: 2,
	})
	if err != nil {
		t.Fatalf("create after collisions: %v", err)
	}
	if b.ID == 0 {
		t.Fatal("booking not persisted")
	}
	if repo.createCalls != 4 {
		t.Fatalf("create attempts = %d, want 4", repo.createCalls)
	}
}

func TestCreateBooking_GenerationExhausted(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	repo.failDuplicates = 100
	svc := newService(repo)

	_, err := svc.Create(context.Background(), app.CreateBookingRequest{
		RoomID: 7, UserID: 3, CheckIn: "2025-03-01", CheckOut: "2025-03-04", GuestCount: 2,
	})
	if domain.KindOf(err) != domain.KindGenerationExhausted {
		t.Fatalf("kind = %q, want generation_exhausted", domain.KindOf(err))
	}
	if repo.createCalls != 5 {
		t.Fatalf("create attempts = %d, want the retry budget of 5", repo.createCalls)
	}
}

func TestCreateBooking_GuestCountValidation(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	svc := newService(repo)
	ctx := context.Background()

	for _, guests := range []int{0, 3} {
		_, err := svc.Create(ctx, app.CreateBookingRequest{
			RoomID: 7, UserID: 3, CheckIn: "2025-03-01", CheckOut: "2025-03-04", GuestCount: guests,
		})
		if domain.KindOf(err) != domain.KindValidation {
			t.Fatalf("guests=%d: kind = %q, want validation", guests, domain.KindOf(err))
		}
	}
}

func TestCreateBooking_PromotionNotFound(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	svc := newService(repo)

	_, err := svc.Create(context.Background(), app.CreateBookingRequest{
		RoomID: 7, UserID: 3, CheckIn: "2025-03-01", CheckOut: "2025-03-04",
		GuestCount: 2, PromotionCode: "NOPE",
	})
	if domain.ReasonOf(err) != domain.PromotionNotFound {
		t.Fatalf("reason = %q, want not_found", domain.ReasonOf(err))
	}
}

func TestCreateBooking_StaleClientTotalRejected(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	svc := newService(repo)

	_, err := svc.Create(context.Background(), app.CreateBookingRequest{
		RoomID: 7, UserID: 3, CheckIn: "2025-03-01", CheckOut: "2025-03-04",
		GuestCount: 2, ClientTotal: 1_999_999,
	})
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("kind = %q, want validation", domain.KindOf(err))
	}
}

func TestCancel_RejectedAfterCheckIn(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	svc := newService(repo)
	ctx := context.Background()

	b, err := svc.Create(ctx, app.CreateBookingRequest{
		RoomID: 7, UserID: 3, CheckIn: "2025-03-01", CheckOut: "2025-03-04", GuestCount: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stored := repo.bookings[b.Number]
	stored.Status = domain.StatusCheckedIn

	if _, err := svc.Cancel(ctx, b.Number); domain.KindOf(err) != domain.KindIllegalTransition {
		t.Fatalf("kind = %q, want illegal_transition", domain.KindOf(err))
	}
}

func TestExpirePending_SkipsBookingPaidDuringSweep(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	svc := newService(repo)
	ctx := context.Background()

	b, err := svc.Create(ctx, app.CreateBookingRequest{
		RoomID: 7, UserID: 3, CheckIn: "2025-03-01", CheckOut: "2025-03-04", GuestCount: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	numbers, err := repo.ListStalePending(ctx, time.Now().Add(time.Minute))
	if err != nil || len(numbers) != 1 || numbers[0] != b.Number {
		t.Fatalf("sweep listing = %v (%v), want [%s]", numbers, err, b.Number)
	}

	// a full payment lands and confirms the booking before the sweep cancels
	p := &domain.Payment{Amount: b.TotalPrice, Method: domain.PayCash, Type: domain.PaymentFull, Status: domain.PaymentCompleted}
	if _, err := repo.RecordPayment(ctx, b.Number, p); err != nil {
		t.Fatalf("pay: %v", err)
	}

	if _, err := svc.ExpirePending(ctx, numbers[0]); err == nil {
		t.Fatal("paid booking must not be expired")
	}
	got, _ := repo.GetBooking(ctx, b.Number)
	if got.Status != domain.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed (range must stay held)", got.Status)
	}
}

func TestExpirePending_CancelsUnpaidBooking(t *testing.T) {
	repo := newFakeRepo()
	seedRoom(repo)
	svc := newService(repo)
	ctx := context.Background()

	b, err := svc.Create(ctx, app.CreateBookingRequest{
		RoomID: 7, UserID: 3, CheckIn: "2025-03-01", CheckOut: "2025-03-04", GuestCount: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.ExpirePending(ctx, b.Number)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if got.Status != domain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
}

func TestValidatePromotion(t *testing.T) {
	repo := newFakeRepo()
	seedSummerPromo(repo)
	svc := newService(repo)
	ctx := context.Background()

	d, promo, err := svc.ValidatePromotion(ctx, "SUMMER2025", 2_400_000)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if d != 300_000 || promo.Code != "SUMMER2025" {
		t.Fatalf("discount=%d promo=%s", d, promo.Code)
	}

	if _, _, err := svc.ValidatePromotion(ctx, "SUMMER2025", 800_000); domain.ReasonOf(err) != domain.PromotionBelowMinimum {
		t.Fatalf("reason = %q, want below_minimum", domain.ReasonOf(err))
	}
	if _, _, err := svc.ValidatePromotion(ctx, "MISSING", 800_000); domain.ReasonOf(err) != domain.PromotionNotFound {
		t.Fatalf("reason = %q, want not_found", domain.ReasonOf(err))
	}
}
