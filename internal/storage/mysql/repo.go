package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"lotus_stay/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

// isDuplicateKey matches MySQL error 1062 (ER_DUP_ENTRY). The only unique key
// an insert into bookings can hit is the booking number.
func isDuplicateKey(err error) bool {
	var me *gomysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func (r *Repo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	row := r.db.QueryRowContext(ctx, getRoomSQL, id)
	var rm domain.Room
	if err := row.Scan(&rm.ID, &rm.Name, &rm.NightlyRate, &rm.Capacity, &rm.Status); err != nil {
		if err == sql.ErrNoRows {
			return domain.Room{}, domain.ErrNotFound
		}
		return domain.Room{}, err
	}
	return rm, nil
}

func (r *Repo) GetPromotionByCode(ctx context.Context, code string) (domain.Promotion, error) {
	row := r.db.QueryRowContext(ctx, getPromotionSQL, code)
	return scanPromotion(row)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanPromotion(row rowScanner) (domain.Promotion, error) {
	var p domain.Promotion
	var maxDisc, minAmount sql.NullInt64
	var usageLimit sql.NullInt64
	if err := row.Scan(&p.ID, &p.Code, &p.Type, &p.Value, &maxDisc, &minAmount,
		&usageLimit, &p.UsedCount, &p.StartDate, &p.EndDate, &p.Active); err != nil {
		if err == sql.ErrNoRows {
			return domain.Promotion{}, domain.ErrNotFound
		}
		return domain.Promotion{}, err
	}
	if maxDisc.Valid {
		v := maxDisc.Int64
		p.MaxDiscount = &v
	}
	if minAmount.Valid {
		v := minAmount.Int64
		p.MinBookingAmount = &v
	}
	if usageLimit.Valid {
		v := int(usageLimit.Int64)
		p.UsageLimit = &v
	}
	return p, nil
}

func scanBooking(row rowScanner) (domain.Booking, error) {
	var b domain.Booking
	var checkIn, checkOut time.Time
	var promoID sql.NullInt64
	var special sql.NullString
	if err := row.Scan(&b.ID, &b.Number, &b.RoomID, &b.UserID, &checkIn, &checkOut,
		&b.GuestCount, &b.Subtotal, &b.Discount, &b.TotalPrice, &b.Status,
		&b.RequiresDeposit, &b.DepositPaid, &b.DepositAmount, &promoID,
		&special, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Booking{}, domain.ErrNotFound
		}
		return domain.Booking{}, err
	}
	// Ranges in storage satisfy check_out > check_in; rebuild without re-validating.
	b.Dates = domain.DateRange{CheckIn: checkIn.UTC(), CheckOut: checkOut.UTC()}
	if promoID.Valid {
		v := promoID.Int64
		b.PromotionID = &v
	}
	if special.Valid {
		b.SpecialRequests = special.String
	}
	return b, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func findOverlapping(ctx context.Context, q querier, roomID int64, dr domain.DateRange, excludeID int64) ([]domain.Booking, error) {
	rows, err := q.QueryContext(ctx, findOverlappingSQL,
		roomID, dr.CheckOut.Format(domain.DateLayout), dr.CheckIn.Format(domain.DateLayout), excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) FindOverlapping(ctx context.Context, roomID int64, dr domain.DateRange, excludeID int64) ([]domain.Booking, error) {
	return findOverlapping(ctx, r.db, roomID, dr, excludeID)
}

// CreateBooking is the atomic unit of booking creation: room row lock,
// overlap re-check, promotion redemption and the insert commit or roll back
// together. Two concurrent requests for the same room serialize on the lock;
// the loser sees the winner's row and gets an availability conflict.
func (r *Repo) CreateBooking(ctx context.Context, b *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var roomID int64
	if err := tx.QueryRowContext(ctx, lockRoomSQL, b.RoomID).Scan(&roomID); err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		return err
	}

	overlapping, err := findOverlapping(ctx, tx, b.RoomID, b.Dates, 0)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return domain.Errorf(domain.KindAvailability,
			"room %d is not available for the requested dates", b.RoomID)
	}

	if b.PromotionID != nil {
		res, err := tx.ExecContext(ctx, redeemPromotionSQL, *b.PromotionID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.PromotionError(domain.PromotionUsageExceeded,
				"promotion was exhausted before the booking committed")
		}
	}

	res, err := tx.ExecContext(ctx, insertBookingSQL,
		b.Number, b.RoomID, b.UserID,
		b.Dates.CheckIn.Format(domain.DateLayout), b.Dates.CheckOut.Format(domain.DateLayout),
		b.GuestCount, b.Subtotal, b.Discount, b.TotalPrice, b.Status,
		b.RequiresDeposit, b.DepositPaid, b.DepositAmount, valInt64(b.PromotionID), b.SpecialRequests,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicateNumber
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.QueryRowContext(ctx, bookingTimesSQL, id).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	b.ID = id
	return nil
}

func (r *Repo) GetBooking(ctx context.Context, number string) (domain.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, number))
}

func (r *Repo) UpdateBooking(ctx context.Context, b *domain.Booking, from domain.BookingStatus) error {
	res, err := r.db.ExecContext(ctx, updateBookingSQL, b.Status, b.DepositPaid, b.ID, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// A concurrent transition moved the booking out of `from` first.
		return domain.IllegalTransitionError(from, b.Status)
	}
	return nil
}

// RecordPayment locks the booking row, reconciles the payment against what
// has been recorded so far, and writes payment and booking in one transaction.
func (r *Repo) RecordPayment(ctx context.Context, bookingNumber string, p *domain.Payment) (domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Booking{}, err
	}
	defer tx.Rollback()

	b, err := scanBooking(tx.QueryRowContext(ctx, getBookingForUpdateSQL, bookingNumber))
	if err != nil {
		return domain.Booking{}, err
	}

	rows, err := tx.QueryContext(ctx, listPaymentsSQL, b.ID)
	if err != nil {
		return domain.Booking{}, err
	}
	payments, err := collectPayments(rows)
	if err != nil {
		return domain.Booking{}, err
	}

	var paid int64
	var deposit *domain.Payment
	for i := range payments {
		if payments[i].Status != domain.PaymentCompleted {
			continue
		}
		paid += payments[i].Amount
		if payments[i].Type == domain.PaymentDeposit {
			deposit = &payments[i]
		}
	}

	from := b.Status
	if err := domain.ReconcilePayment(&b, p, paid, deposit); err != nil {
		return domain.Booking{}, err
	}

	res, err := tx.ExecContext(ctx, insertPaymentSQL,
		b.ID, p.Amount, p.Method, p.Type, p.Status, valInt64(p.RelatedPaymentID))
	if err != nil {
		return domain.Booking{}, err
	}
	pid, err := res.LastInsertId()
	if err != nil {
		return domain.Booking{}, err
	}
	if err := tx.QueryRowContext(ctx, paymentTimeSQL, pid).Scan(&p.CreatedAt); err != nil {
		return domain.Booking{}, err
	}

	if _, err := tx.ExecContext(ctx, updateBookingSQL, b.Status, b.DepositPaid, b.ID, from); err != nil {
		return domain.Booking{}, err
	}
	if err := tx.QueryRowContext(ctx, bookingTimesSQL, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return domain.Booking{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Booking{}, err
	}

	p.ID = pid
	p.BookingID = b.ID
	return b, nil
}

func collectPayments(rows *sql.Rows) ([]domain.Payment, error) {
	defer rows.Close()
	var out []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var related sql.NullInt64
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.Type,
			&p.Status, &related, &p.CreatedAt); err != nil {
			return nil, err
		}
		if related.Valid {
			v := related.Int64
			p.RelatedPaymentID = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) ListPayments(ctx context.Context, bookingID int64) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx, listPaymentsSQL, bookingID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (r *Repo) ListStalePending(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listStalePendingSQL, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
