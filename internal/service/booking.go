package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/metrics"
	"github.com/sakif/energy-advisor/internal/model"
	"github.com/sakif/energy-advisor/internal/repository"
)

// BookingForm is the consultation request. Phone and notes are optional.
type BookingForm struct {
	FullName      string `form:"full_name" validate:"required,max=200"`
	Phone         string `form:"phone" validate:"max=50"`
	PreferredDate string `form:"preferred_date" validate:"required,date"`
	PreferredTime string `form:"preferred_time" validate:"required,clock"`
	Notes         string `form:"notes" validate:"max=2000"`
}

func (f *BookingForm) trim() {
	f.FullName = strings.TrimSpace(f.FullName)
	f.Phone = strings.TrimSpace(f.Phone)
	f.PreferredDate = strings.TrimSpace(f.PreferredDate)
	f.PreferredTime = strings.TrimSpace(f.PreferredTime)
	f.Notes = strings.TrimSpace(f.Notes)
}

// BookingService attaches consultation requests to calculations.
//
// Every method takes the acting session and only ever sees calculations that
// session's user owns. "Not yours" and "does not exist" are both ErrNotFound.
type BookingService struct {
	calculations repository.CalculationRepository
	bookings     repository.BookingRepository
	validate     *validator.Validate
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

func NewBookingService(
	calculations repository.CalculationRepository,
	bookings repository.BookingRepository,
	m *metrics.Metrics,
	logger *slog.Logger,
) *BookingService {
	return &BookingService{
		calculations: calculations,
		bookings:     bookings,
		validate:     newValidator(),
		metrics:      m,
		logger:       logger,
	}
}

// Calculation loads the calculation the booking form is about.
func (s *BookingService) Calculation(ctx context.Context, sess *model.Session, calcID string) (*model.CalculationView, error) {
	if sess == nil {
		return nil, apperror.SessionRequired()
	}
	if sess.MustChangePassword {
		return nil, apperror.PasswordChangeRequired()
	}
	return s.calculations.GetCalculationForUser(ctx, strings.TrimSpace(calcID), sess.UserID)
}

// Submit validates f and records a booking against calcID.
//
// The calculation is loaded first so a foreign id fails as ErrNotFound before
// field validation can say anything about it. The insert repeats the
// ownership check atomically in the store.
func (s *BookingService) Submit(ctx context.Context, sess *model.Session, calcID string, f BookingForm) (*model.Booking, *model.CalculationView, error) {
	calc, err := s.Calculation(ctx, sess, calcID)
	if err != nil {
		return nil, nil, err
	}

	f.trim()
	if err := s.validate.Struct(f); err != nil {
		return nil, calc, validationError(err)
	}

	b := &model.Booking{
		CalculationID: calc.ID,
		UserID:        sess.UserID,
		FullName:      f.FullName,
		Phone:         f.Phone,
		PreferredDate: f.PreferredDate,
		PreferredTime: f.PreferredTime,
		Notes:         f.Notes,
	}
	if err := s.bookings.CreateBooking(ctx, b); err != nil {
		return nil, calc, fmt.Errorf("service/booking: recording booking: %w", err)
	}

	s.metrics.BookingRecorded()
	s.logger.Info("booking recorded",
		slog.String("id", b.ID),
		slog.String("calculationID", calc.ID),
		slog.String("userID", sess.UserID),
	)
	return b, calc, nil
}
