// Package auth provides password hashing, session cookie signing and the
// HTTP middleware that gates protected routes on a valid session.
//
// SESSION COOKIE FORMAT:
// Sessions are server-side records keyed by an opaque random ID. The cookie
// does not carry the ID in the clear; it carries an HS256 JWT whose "jti"
// claim is the session ID:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"jti":"<session id>","iss":"energy-advisor","exp":...}
//
// A forged or tampered cookie fails signature verification before the
// session store is ever consulted. Revocation (logout) and the idle timeout
// are enforced server-side, which a bare JWT could not do.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "energy-advisor"

// ErrTokenInvalid is returned by Parse for any cookie that is not a valid,
// unexpired token signed with our secret.
var ErrTokenInvalid = errors.New("auth: invalid session token")

// TokenConfig is the explicit signing configuration handed to TokenService.
// There is no package-level secret.
type TokenConfig struct {
	Secret string
	// MaxAge bounds the absolute lifetime of a session cookie.
	MaxAge time.Duration
}

// TokenService signs and verifies session cookies.
type TokenService struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. The secret should be at least
// 32 bytes of random data in production; fewer than 16 is rejected.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	return &TokenService{secret: []byte(cfg.Secret), maxAge: cfg.MaxAge, now: time.Now}, nil
}

// MaxAge is the cookie lifetime, used for the cookie's Max-Age attribute.
func (s *TokenService) MaxAge() time.Duration {
	return s.maxAge
}

// Sign returns a signed token carrying sessionID.
func (s *TokenService) Sign(sessionID string) (string, error) {
	return s.signWithDuration(sessionID, s.maxAge)
}

func (s *TokenService) signWithDuration(sessionID string, d time.Duration) (string, error) {
	now := s.now()

	c := jwt.RegisteredClaims{
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session token: %w", err)
	}

	return signed, nil
}

// Parse verifies a token and returns the session ID it carries.
//
// jwt.WithValidMethods pins HS256, which blocks "alg":"none" and
// algorithm-confusion tokens.
func (s *TokenService) Parse(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || c.ID == "" {
		return "", ErrTokenInvalid
	}

	return c.ID, nil
}
