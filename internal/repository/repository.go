// Package repository declares the storage interfaces the service layer
// depends on. Implementations live in sub-packages (sqlite, redis).
//
// Every write method is a single atomic unit against the store. Uniqueness
// is enforced by the store itself and reported as apperror.ErrConflict.
package repository

import (
	"context"

	"github.com/sakif/energy-advisor/internal/model"
)

type UserRepository interface {
	// CreateUser inserts user, filling ID and timestamps. A taken username
	// returns an error matching apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// UpdatePassword stores a new hash and clears must_change_password.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type ProductRepository interface {
	// UpsertProduct inserts a product if its slug is not already present.
	UpsertProduct(ctx context.Context, product *model.Product) error
	GetProduct(ctx context.Context, slug string) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.ProductSummary, error)
}

type CalculationRepository interface {
	CreateCalculation(ctx context.Context, calc *model.Calculation) error
	// GetCalculationForUser returns the calculation only if userID owns it.
	// A missing row and a row owned by someone else both return NotFound.
	GetCalculationForUser(ctx context.Context, id, userID string) (*model.CalculationView, error)
	ListCalculationsByUser(ctx context.Context, userID string) ([]model.CalculationView, error)
}

type BookingRepository interface {
	// CreateBooking inserts a booking. The insert only succeeds if the
	// referenced calculation is owned by booking.UserID.
	CreateBooking(ctx context.Context, booking *model.Booking) error
	ListBookingsByUser(ctx context.Context, userID string) ([]model.BookingView, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, sess *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	// TouchSession records activity so the idle timeout restarts.
	TouchSession(ctx context.Context, sess *model.Session) error
	// ClearPasswordChange clears the forced-change flag on every session of userID.
	ClearPasswordChange(ctx context.Context, userID string) error
	DeleteSession(ctx context.Context, id string) error
}
