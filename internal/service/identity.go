package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator"
	"github.com/rs/xid"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/auth"
	"github.com/sakif/energy-advisor/internal/form"
	"github.com/sakif/energy-advisor/internal/metrics"
	"github.com/sakif/energy-advisor/internal/model"
	"github.com/sakif/energy-advisor/internal/repository"
)

// DefaultFallbackTempPassword is used for auto-provisioned accounts when the
// quote form leaves the temporary password empty and config does not set one.
const DefaultFallbackTempPassword = "ChangeMe123!"

// credentials is the register form. Password length is in characters here;
// the 72-byte bcrypt ceiling is enforced by auth.PasswordService.
type credentials struct {
	Email    string `form:"email" validate:"required,email_shaped"`
	Password string `form:"password" validate:"required,min=8,max=72"`
}

type newPassword struct {
	Password string `form:"password" validate:"required,min=8,max=72"`
}

// IdentityService owns every path that creates or authenticates a user.
//
// ResolveOrCreate is the only way an account comes into existence without
// explicit registration. It is called by QuoteService as its own named step.
type IdentityService struct {
	users        repository.UserRepository
	passwords    *auth.PasswordService
	validate     *validator.Validate
	fallbackTemp string
	metrics      *metrics.Metrics
	logger       *slog.Logger

	// dummyHash is compared against on unknown emails so both login
	// failures cost one bcrypt comparison.
	dummyOnce sync.Once
	dummyHash string
}

func NewIdentityService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	fallbackTempPassword string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *IdentityService {
	if fallbackTempPassword == "" {
		fallbackTempPassword = DefaultFallbackTempPassword
	}
	return &IdentityService{
		users:        users,
		passwords:    passwords,
		validate:     newValidator(),
		fallbackTemp: fallbackTempPassword,
		metrics:      m,
		logger:       logger,
	}
}

// ResolveOrCreate returns the user registered under email, creating one with
// a forced password change if none exists. created reports which happened.
//
// An existing user's password is never touched: tempPassword is ignored.
// Two concurrent calls for the same new email both end up with the same user;
// the loser of the INSERT race sees ErrConflict and re-reads the winner's row.
func (s *IdentityService) ResolveOrCreate(ctx context.Context, email, tempPassword string) (*model.User, bool, error) {
	email = form.NormalizeEmail(email)
	if !form.LooksLikeEmail(email) {
		return nil, false, apperror.ValidationFailed("email", "enter a valid email address")
	}

	existing, err := s.users.GetUserByUsername(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, fmt.Errorf("service/identity: looking up %s: %w", email, err)
	}

	if tempPassword == "" {
		tempPassword = s.fallbackTemp
	}
	hash, err := s.passwords.Hash(tempPassword)
	if err != nil {
		return nil, false, s.passwordError("temp_password", err)
	}

	user := &model.User{Username: email, PasswordHash: hash, MustChangePassword: true}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			winner, err := s.users.GetUserByUsername(ctx, email)
			if err != nil {
				return nil, false, fmt.Errorf("service/identity: re-reading %s after conflict: %w", email, err)
			}
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("service/identity: provisioning %s: %w", email, err)
	}

	s.metrics.AccountProvisioned()
	s.logger.Info("account provisioned", slog.String("userID", user.ID))
	return user, true, nil
}

// Register creates a user who chose their own password.
func (s *IdentityService) Register(ctx context.Context, email, password string) (*model.User, error) {
	in := credentials{Email: form.NormalizeEmail(email), Password: password}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, s.passwordError("password", err)
	}

	user := &model.User{Username: in.Email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Duplicate("email", "an account with this email already exists")
		}
		return nil, fmt.Errorf("service/identity: registering %s: %w", in.Email, err)
	}

	s.logger.Info("account registered", slog.String("userID", user.ID))
	return user, nil
}

// Authenticate returns the user for a matching email and password. An unknown
// email and a wrong password produce the same error value and message.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, form.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.compareDummy(password)
			s.metrics.Login(metrics.LoginFailure)
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/identity: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.metrics.Login(metrics.LoginFailure)
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/identity: verifying password: %w", err)
	}

	s.metrics.Login(metrics.LoginSuccess)
	return user, nil
}

// SetPassword replaces the user's password and clears the forced-change flag.
func (s *IdentityService) SetPassword(ctx context.Context, userID, password string) error {
	if err := s.validate.Struct(newPassword{Password: password}); err != nil {
		return validationError(err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return s.passwordError("password", err)
	}

	if err := s.users.UpdatePassword(ctx, strings.TrimSpace(userID), hash); err != nil {
		return fmt.Errorf("service/identity: updating password: %w", err)
	}

	s.logger.Info("password changed", slog.String("userID", userID))
	return nil
}

func (s *IdentityService) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.passwords.Hash(xid.New().String())
		if err != nil {
			s.logger.Error("failed to build dummy hash", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_ = s.passwords.Verify(s.dummyHash, password)
	}
}

func (s *IdentityService) passwordError(field string, err error) error {
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return apperror.ValidationFailed(field, fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes))
	}
	return fmt.Errorf("service/identity: hashing password: %w", err)
}
