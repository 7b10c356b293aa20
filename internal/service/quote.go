package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/estimate"
	"github.com/sakif/energy-advisor/internal/form"
	"github.com/sakif/energy-advisor/internal/metrics"
	"github.com/sakif/energy-advisor/internal/model"
	"github.com/sakif/energy-advisor/internal/repository"
)

// QuoteForm is the raw quote submission. Numeric and boolean fields stay
// strings until ParseHousehold applies the form package's fallback policy.
type QuoteForm struct {
	Email          string
	TempPassword   string
	ElectricityKWh string
	GasKWh         string
	HomeSize       string
	Occupants      string
	EVCharging     string
	SmartHome      string
}

// QuoteResult is what the handler needs to set the cookie and redirect.
type QuoteResult struct {
	Calculation    *model.Calculation
	Token          string // empty when the caller's session was kept
	Session        *model.Session
	AccountCreated bool
}

type QuoteService struct {
	products     repository.ProductRepository
	calculations repository.CalculationRepository
	identity     *IdentityService
	sessions     *SessionGate
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

func NewQuoteService(
	products repository.ProductRepository,
	calculations repository.CalculationRepository,
	identity *IdentityService,
	sessions *SessionGate,
	m *metrics.Metrics,
	logger *slog.Logger,
) *QuoteService {
	return &QuoteService{
		products:     products,
		calculations: calculations,
		identity:     identity,
		sessions:     sessions,
		metrics:      m,
		logger:       logger,
	}
}

// ParseHousehold coerces the raw quote fields. It never fails; see the
// policy table in package form.
func ParseHousehold(f QuoteForm) model.HouseholdInput {
	return model.HouseholdInput{
		ElectricityKWh: form.Float(f.ElectricityKWh, estimate.MaxUsageKWh, 0),
		GasKWh:         form.Float(f.GasKWh, estimate.MaxUsageKWh, 0),
		HomeSize: model.HomeSize(form.Choice(f.HomeSize, string(model.HomeSizeMedium),
			string(model.HomeSizeSmall), string(model.HomeSizeMedium), string(model.HomeSizeLarge))),
		Occupants:  form.Int(f.Occupants, 1, 1),
		EVCharging: form.Bool(f.EVCharging),
		SmartHome:  form.Bool(f.SmartHome),
	}
}

// SubmitQuote runs the whole quote workflow:
//
//  1. look up the product (unknown slug → ErrNotFound)
//  2. check the email shape (→ ErrValidation on "email", nothing written)
//  3. coerce the household figures permissively
//  4. estimate the savings
//  5. resolve or provision the account
//  6. open a session for that account
//  7. record the calculation, owned by that account
//
// The caller redirects to the booking page for Calculation.ID.
//
// If current already belongs to the resolved account it is kept and Token is
// empty. Otherwise a new session is opened; step 6 therefore logs the
// submitter in without proof of email ownership, even for an account that
// already existed.
func (s *QuoteService) SubmitQuote(ctx context.Context, slug string, f QuoteForm, current *model.Session) (*QuoteResult, error) {
	// === 1. PRODUCT ===
	product, err := s.products.GetProduct(ctx, slug)
	if err != nil {
		return nil, err
	}

	// === 2. EMAIL ===
	email := form.NormalizeEmail(f.Email)
	if !form.LooksLikeEmail(email) {
		return nil, apperror.ValidationFailed("email", "enter a valid email address")
	}

	// === 3-4. ESTIMATE ===
	input := ParseHousehold(f)
	savings := estimate.Estimate(product.Slug, estimate.FromHousehold(input))

	// === 5. ACCOUNT ===
	user, created, err := s.identity.ResolveOrCreate(ctx, email, f.TempPassword)
	if err != nil {
		return nil, err
	}

	// === 6. SESSION ===
	var token string
	sess := current
	if sess == nil || sess.UserID != user.ID {
		token, sess, err = s.sessions.Establish(ctx, user)
		if err != nil {
			return nil, err
		}
	}

	// === 7. CALCULATION ===
	calc := &model.Calculation{
		ProductSlug: product.Slug,
		Email:       email,
		UserID:      user.ID,
		Input:       input,
		Savings:     savings,
	}
	if err := s.calculations.CreateCalculation(ctx, calc); err != nil {
		s.logger.Error("failed to record calculation",
			slog.String("product", product.Slug),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/quote: recording calculation: %w", err)
	}

	s.metrics.QuoteCalculated(product.Slug)
	s.logger.Info("calculation recorded",
		slog.String("id", calc.ID),
		slog.String("product", product.Slug),
		slog.String("userID", user.ID),
		slog.Bool("accountCreated", created),
	)

	return &QuoteResult{
		Calculation:    calc,
		Token:          token,
		Session:        sess,
		AccountCreated: created,
	}, nil
}
