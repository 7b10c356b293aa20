package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/auth"
	"github.com/sakif/energy-advisor/internal/model"
	"github.com/sakif/energy-advisor/internal/repository"
)

const DefaultIdleTimeout = 30 * time.Minute

// SessionConfig is everything the gate needs to sign and expire sessions.
// It is passed in at construction; nothing reads a package-level secret.
type SessionConfig struct {
	Secret      string
	IdleTimeout time.Duration // unused longer than this → session is gone
	MaxAge      time.Duration // absolute cookie lifetime
}

// SessionGate maps a cookie token to a server-side session record.
//
// The cookie carries a signed JWT whose jti is a random session id. The
// record itself lives in the SessionRepository, so logout and idle expiry
// take effect immediately even though the JWT is still unexpired.
type SessionGate struct {
	sessions repository.SessionRepository
	tokens   *auth.TokenService
	idle     time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

var _ auth.SessionResolver = (*SessionGate)(nil)

func NewSessionGate(sessions repository.SessionRepository, cfg SessionConfig, logger *slog.Logger) (*SessionGate, error) {
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: cfg.Secret, MaxAge: cfg.MaxAge})
	if err != nil {
		return nil, fmt.Errorf("service/session: %w", err)
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &SessionGate{
		sessions: sessions,
		tokens:   tokens,
		idle:     cfg.IdleTimeout,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// CookieMaxAge is how long the browser should keep the session cookie.
func (g *SessionGate) CookieMaxAge() time.Duration {
	return g.tokens.MaxAge()
}

// Establish creates a new session for user and returns the cookie token.
// The forced-change flag is copied from the user at this moment.
func (g *SessionGate) Establish(ctx context.Context, user *model.User) (string, *model.Session, error) {
	now := g.now().UTC()
	sess := &model.Session{
		ID:                 uuid.NewString(),
		UserID:             user.ID,
		Email:              user.Username,
		MustChangePassword: user.MustChangePassword,
		CreatedAt:          now,
		LastSeenAt:         now,
	}
	if err := g.sessions.CreateSession(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("service/session: storing session: %w", err)
	}

	token, err := g.tokens.Sign(sess.ID)
	if err != nil {
		return "", nil, fmt.Errorf("service/session: %w", err)
	}
	return token, sess, nil
}

// Resolve returns the live session behind token and records the activity.
// A bad signature, unknown id or idle-expired session is ErrSessionRequired.
func (g *SessionGate) Resolve(ctx context.Context, token string) (*model.Session, error) {
	id, err := g.tokens.Parse(token)
	if err != nil {
		return nil, apperror.SessionRequired()
	}

	sess, err := g.sessions.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.SessionRequired()
		}
		return nil, fmt.Errorf("service/session: loading session: %w", err)
	}

	now := g.now().UTC()
	if now.Sub(sess.LastSeenAt) > g.idle {
		if err := g.sessions.DeleteSession(ctx, sess.ID); err != nil {
			g.logger.Error("failed to delete idle session", slog.String("error", err.Error()))
		}
		return nil, apperror.SessionRequired()
	}

	sess.LastSeenAt = now
	if err := g.sessions.TouchSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("service/session: touching session: %w", err)
	}
	return sess, nil
}

// Destroy deletes the session behind token. An invalid or unknown token is
// already logged out, so it is not an error.
func (g *SessionGate) Destroy(ctx context.Context, token string) error {
	id, err := g.tokens.Parse(token)
	if err != nil {
		return nil
	}
	if err := g.sessions.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("service/session: deleting session: %w", err)
	}
	return nil
}

// ClearForcedChange lifts the password-change gate on every session of userID.
func (g *SessionGate) ClearForcedChange(ctx context.Context, userID string) error {
	if err := g.sessions.ClearPasswordChange(ctx, userID); err != nil {
		return fmt.Errorf("service/session: clearing forced change: %w", err)
	}
	return nil
}
