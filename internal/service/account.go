package service

import (
	"context"
	"fmt"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/model"
	"github.com/sakif/energy-advisor/internal/repository"
)

// AccountService serves the self-service pages behind login.
type AccountService struct {
	calculations repository.CalculationRepository
	bookings     repository.BookingRepository
	identity     *IdentityService
	sessions     *SessionGate
}

func NewAccountService(
	calculations repository.CalculationRepository,
	bookings repository.BookingRepository,
	identity *IdentityService,
	sessions *SessionGate,
) *AccountService {
	return &AccountService{
		calculations: calculations,
		bookings:     bookings,
		identity:     identity,
		sessions:     sessions,
	}
}

// View returns the session user's calculations and bookings, newest first.
func (s *AccountService) View(ctx context.Context, sess *model.Session) (*model.AccountView, error) {
	if sess == nil {
		return nil, apperror.SessionRequired()
	}
	if sess.MustChangePassword {
		return nil, apperror.PasswordChangeRequired()
	}

	calcs, err := s.calculations.ListCalculationsByUser(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/account: listing calculations: %w", err)
	}
	bookings, err := s.bookings.ListBookingsByUser(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/account: listing bookings: %w", err)
	}

	return &model.AccountView{
		Email:        sess.Email,
		Calculations: calcs,
		Bookings:     bookings,
	}, nil
}

// ChangePassword is the one protected operation a forced-change session may
// perform. On success the flag is cleared on the user and on all of the
// user's sessions, including sess.
func (s *AccountService) ChangePassword(ctx context.Context, sess *model.Session, password string) error {
	if sess == nil {
		return apperror.SessionRequired()
	}
	if err := s.identity.SetPassword(ctx, sess.UserID, password); err != nil {
		return err
	}
	if err := s.sessions.ClearForcedChange(ctx, sess.UserID); err != nil {
		return err
	}
	sess.MustChangePassword = false
	return nil
}
