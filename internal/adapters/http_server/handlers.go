package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"lotus_stay/internal/app"
	"lotus_stay/internal/domain"
)

type Handlers struct {
	Bookings   *app.BookingService
	Payments   *app.PaymentReconciler
	Queries    *app.QueryService
	Checker    *app.AvailabilityChecker
	BookingRPS int
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	rps := h.BookingRPS
	if rps <= 0 {
		rps = 20
	}

	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/rooms/{id}/available", h.roomAvailability)
	s.mux.With(RateLimit(rps, rps*2)).Post("/v1/bookings", h.createBooking)
	s.mux.Get("/v1/bookings/{number}", h.getBooking)
	s.mux.Get("/v1/bookings/{number}/payments", h.listPayments)
	s.mux.Patch("/v1/bookings/{number}/cancel", h.cancelBooking)
	s.mux.Post("/v1/bookings/{number}/checkin", h.checkInBooking)
	s.mux.Post("/v1/bookings/{number}/checkout", h.checkOutBooking)
	s.mux.Post("/v1/payments", h.recordPayment)
	s.mux.Post("/v1/promotions/validate", h.validatePromotion)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the core error taxonomy onto HTTP statuses. Callers of the
// API branch on status plus the reason field, never on message text.
func writeError(w http.ResponseWriter, err error) {
	var e *domain.Error
	if errors.As(err, &e) {
		switch e.Kind {
		case domain.KindValidation, domain.KindPaymentMismatch:
			writeProblem(w, http.StatusBadRequest, "Bad Request", e.Message)
		case domain.KindPromotionInvalid:
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(problem{
				Type: "about:blank", Title: "Promotion Rejected",
				Status: http.StatusBadRequest, Detail: e.Message, Reason: string(e.Reason),
			})
		case domain.KindAvailability:
			// Conflicting window boundaries deliberately omitted.
			writeProblem(w, http.StatusConflict, "Not Available", "the room is not available for the requested dates")
		case domain.KindIllegalTransition, domain.KindOverpayment:
			writeProblem(w, http.StatusConflict, "Conflict", e.Error())
		case domain.KindGenerationExhausted:
			log.Error().Err(err).Msg("booking number space exhausted")
			writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not allocate a booking number")
		default:
			writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		}
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	log.Error().Err(err).Msg("unhandled error")
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// ---- views ----

type bookingView struct {
	Number          string `json:"booking_number"`
	RoomID          int64  `json:"room_id"`
	UserID          int64  `json:"user_id"`
	CheckInDate     string `json:"check_in_date"`
	CheckOutDate    string `json:"check_out_date"`
	Nights          int    `json:"nights"`
	GuestCount      int    `json:"guest_count"`
	Subtotal        int64  `json:"subtotal"`
	Discount        int64  `json:"discount"`
	TotalPrice      int64  `json:"total_price"`
	Status          string `json:"status"`
	RequiresDeposit bool   `json:"requires_deposit"`
	DepositPaid     bool   `json:"deposit_paid"`
	DepositAmount   int64  `json:"deposit_amount,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

func toBookingView(b domain.Booking) bookingView {
	return bookingView{
		Number:          b.Number,
		RoomID:          b.RoomID,
		UserID:          b.UserID,
		CheckInDate:     b.Dates.CheckIn.Format(domain.DateLayout),
		CheckOutDate:    b.Dates.CheckOut.Format(domain.DateLayout),
		Nights:          b.Dates.Nights(),
		GuestCount:      b.GuestCount,
		Subtotal:        b.Subtotal,
		Discount:        b.Discount,
		TotalPrice:      b.TotalPrice,
		Status:          string(b.Status),
		RequiresDeposit: b.RequiresDeposit,
		DepositPaid:     b.DepositPaid,
		DepositAmount:   b.DepositAmount,
		SpecialRequests: b.SpecialRequests,
	}
}

type paymentView struct {
	ID               int64  `json:"id"`
	BookingID        int64  `json:"booking_id"`
	Amount           int64  `json:"amount"`
	Method           string `json:"payment_method"`
	Type             string `json:"payment_type"`
	Status           string `json:"status"`
	RelatedPaymentID *int64 `json:"related_payment_id,omitempty"`
}

// ---- handlers ----

func (h *Handlers) roomAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "room id must be a number")
		return
	}
	dr, err := domain.ParseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	// A room that does not exist is a 404, not an available one.
	if _, err := h.Queries.GetRoom(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	free, err := h.Checker.IsAvailable(r.Context(), id, dr, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": free})
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomID          int64  `json:"room_id"`
		UserID          int64  `json:"user_id"`
		CheckInDate     string `json:"check_in_date"`
		CheckOutDate    string `json:"check_out_date"`
		GuestCount      int    `json:"guest_count"`
		PromotionCode   string `json:"promotion_code"`
		SpecialRequests string `json:"special_requests"`
		TotalPrice      int64  `json:"total_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	b, err := h.Bookings.Create(r.Context(), app.CreateBookingRequest{
		RoomID:          body.RoomID,
		UserID:          body.UserID,
		CheckIn:         body.CheckInDate,
		CheckOut:        body.CheckOutDate,
		GuestCount:      body.GuestCount,
		PromotionCode:   body.PromotionCode,
		SpecialRequests: body.SpecialRequests,
		ClientTotal:     body.TotalPrice,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingView(b))
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Queries.GetBooking(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingView(b))
}

func (h *Handlers) listPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Queries.ListPayments(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, paymentView{
			ID: p.ID, BookingID: p.BookingID, Amount: p.Amount,
			Method: string(p.Method), Type: string(p.Type), Status: string(p.Status),
			RelatedPaymentID: p.RelatedPaymentID,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.Cancel(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingView(b))
}

func (h *Handlers) checkInBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.CheckIn(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingView(b))
}

func (h *Handlers) checkOutBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.CheckOut(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingView(b))
}

func (h *Handlers) recordPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BookingNumber string `json:"booking_number"`
		Amount        int64  `json:"amount"`
		Method        string `json:"payment_method"`
		Type          string `json:"payment_type"`
		Status        string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	p, b, err := h.Payments.Record(r.Context(), app.RecordPaymentRequest{
		BookingNumber: body.BookingNumber,
		Amount:        body.Amount,
		Method:        domain.PaymentMethod(body.Method),
		Type:          domain.PaymentType(body.Type),
		Status:        domain.PaymentStatus(body.Status),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Payment paymentView `json:"payment"`
		Booking bookingView `json:"booking"`
	}{
		Payment: paymentView{
			ID: p.ID, BookingID: p.BookingID, Amount: p.Amount,
			Method: string(p.Method), Type: string(p.Type), Status: string(p.Status),
			RelatedPaymentID: p.RelatedPaymentID,
		},
		Booking: toBookingView(b),
	})
}

func (h *Handlers) validatePromotion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code         string `json:"code"`
		BookingValue int64  `json:"booking_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	discount, promo, err := h.Bookings.ValidatePromotion(r.Context(), body.Code, body.BookingValue)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Discount  int64  `json:"discount"`
		Code      string `json:"code"`
		Type      string `json:"discount_type"`
		ValidTo   string `json:"valid_to"`
		UsageLeft *int   `json:"usage_left,omitempty"`
	}{
		Discount: discount,
		Code:     promo.Code,
		Type:     string(promo.Type),
		ValidTo:  promo.EndDate.Format(time.RFC3339),
		UsageLeft: func() *int {
			if promo.UsageLimit == nil {
				return nil
			}
			left := *promo.UsageLimit - promo.UsedCount
			return &left
		}(),
	})
}
