package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/model"
	"github.com/sakif/energy-advisor/internal/repository"
)

var _ repository.BookingRepository = (*DB)(nil)

// CreateBooking inserts a booking only if the referenced calculation belongs
// to b.UserID.
//
// INSERT ... SELECT makes the ownership check and the write one statement, so
// there is no window between "check owner" and "insert" for anything to change.
// Zero rows inserted means the calculation is missing or not the caller's.
func (db *DB) CreateBooking(ctx context.Context, b *model.Booking) error {
	b.ID = xid.New().String()
	b.CreatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO bookings (
			id, created_at, calc_id, user_id, full_name, phone,
			preferred_date, preferred_time, notes)
		 SELECT ?, ?, c.id, c.user_id, ?, ?, ?, ?, ?
		 FROM calculations c
		 WHERE c.id = ? AND c.user_id = ?`,
		b.ID,
		b.CreatedAt,
		b.FullName,
		b.Phone,
		b.PreferredDate,
		b.PreferredTime,
		b.Notes,
		b.CalculationID,
		b.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating booking: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("calculation", b.CalculationID)
	}
	return nil
}

// ListBookingsByUser returns the user's bookings joined with the calculation's
// product, newest first.
func (db *DB) ListBookingsByUser(ctx context.Context, userID string) ([]model.BookingView, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT b.id, b.created_at, b.calc_id, b.user_id, b.full_name, b.phone,
		        b.preferred_date, b.preferred_time, b.notes,
		        c.product_slug, p.name, c.cost_saved
		 FROM bookings b
		 JOIN calculations c ON c.id = b.calc_id
		 JOIN products p ON p.slug = c.product_slug
		 WHERE b.user_id = ?
		 ORDER BY b.created_at DESC, b.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]model.BookingView, 0)
	for rows.Next() {
		var v model.BookingView
		if err := rows.Scan(
			&v.ID, &v.CreatedAt, &v.CalculationID, &v.UserID, &v.FullName, &v.Phone,
			&v.PreferredDate, &v.PreferredTime, &v.Notes,
			&v.ProductSlug, &v.ProductName, &v.CostSaved,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning booking row: %w", err)
		}
		bookings = append(bookings, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating bookings: %w", err)
	}
	return bookings, nil
}
