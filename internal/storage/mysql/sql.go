package mysql

const getRoomSQL = `
SELECT id, name, nightly_rate, capacity, status
FROM rooms
WHERE id = ?
`

// Locking the room row serializes booking creation per room; the overlap
// re-check below then runs without a concurrent insert racing it.
const lockRoomSQL = `
SELECT id FROM rooms WHERE id = ? FOR UPDATE
`

const getPromotionSQL = `
SELECT id, code, discount_type, value, max_discount, min_booking_amount,
       usage_limit, used_count, start_date, end_date, is_active
FROM promotions
WHERE code = ?
`

// Half-open overlap: [a1,a2) and [b1,b2) overlap iff a1 < b2 AND b1 < a2.
// Cancelled and checked_out bookings never block. id <> ? skips the booking
// being edited (0 matches nothing, ids start at 1).
const findOverlappingSQL = `
SELECT id, booking_number, room_id, user_id, check_in_date, check_out_date,
       guest_count, subtotal, discount, total_price, status,
       requires_deposit, deposit_paid, deposit_amount, promotion_id,
       special_requests, created_at, updated_at
FROM bookings
WHERE room_id = ?
  AND status IN ('pending','confirmed','checked_in')
  AND check_in_date < ?
  AND check_out_date > ?
  AND id <> ?
`

const insertBookingSQL = `
INSERT INTO bookings
  (booking_number, room_id, user_id, check_in_date, check_out_date,
   guest_count, subtotal, discount, total_price, status,
   requires_deposit, deposit_paid, deposit_amount, promotion_id, special_requests)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Conditional increment enforces the usage cap at commit time: zero rows
// affected means the cap was hit by a concurrent redemption.
const redeemPromotionSQL = `
UPDATE promotions
SET used_count = used_count + 1
WHERE id = ?
  AND is_active = 1
  AND (usage_limit IS NULL OR used_count < usage_limit)
`

const getBookingSQL = `
SELECT id, booking_number, room_id, user_id, check_in_date, check_out_date,
       guest_count, subtotal, discount, total_price, status,
       requires_deposit, deposit_paid, deposit_amount, promotion_id,
       special_requests, created_at, updated_at
FROM bookings
WHERE booking_number = ?
`

const getBookingForUpdateSQL = getBookingSQL + ` FOR UPDATE`

// Guarded by the status the booking was loaded in; zero rows affected means a
// concurrent transition won.
const updateBookingSQL = `
UPDATE bookings
SET status = ?, deposit_paid = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = ?
`

// Timestamps are read back after writes so callers see exactly what a later
// SELECT serves, not a client-side clock.
const bookingTimesSQL = `
SELECT created_at, updated_at FROM bookings WHERE id = ?
`

const paymentTimeSQL = `
SELECT created_at FROM payments WHERE id = ?
`

const insertPaymentSQL = `
INSERT INTO payments
  (booking_id, amount, method, payment_type, status, related_payment_id)
VALUES (?, ?, ?, ?, ?, ?)
`

const listPaymentsSQL = `
SELECT id, booking_id, amount, method, payment_type, status, related_payment_id, created_at
FROM payments
WHERE booking_id = ?
ORDER BY created_at, id
`

const listStalePendingSQL = `
SELECT b.booking_number
FROM bookings b
WHERE b.status = 'pending'
  AND b.created_at < ?
  AND NOT EXISTS (
    SELECT 1 FROM payments p
    WHERE p.booking_id = b.id AND p.status = 'completed'
  )
ORDER BY b.created_at
`
