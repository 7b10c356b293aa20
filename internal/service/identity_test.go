package service

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/auth"
	"github.com/sakif/energy-advisor/internal/metrics"
	"github.com/sakif/energy-advisor/internal/model"
)

// =========================================================================
// RESOLVE OR CREATE
// =========================================================================

func TestResolveOrCreate_CreatesWithForcedChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, created, err := env.identity.ResolveOrCreate(ctx, "  Ada@Example.com ", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ada@example.com", user.Username)
	assert.True(t, user.MustChangePassword)
	assert.NoError(t, env.passwords.Verify(user.PasswordHash, DefaultFallbackTempPassword))
}

func TestResolveOrCreate_UsesSuppliedTempPassword(t *testing.T) {
	env := newTestEnv(t)

	user, _, err := env.identity.ResolveOrCreate(context.Background(), "ada@example.com", "my-temp-pass")
	require.NoError(t, err)
	assert.NoError(t, env.passwords.Verify(user.PasswordHash, "my-temp-pass"))
}

func TestResolveOrCreate_ConfiguredFallback(t *testing.T) {
	env := newTestEnv(t)
	identity := NewIdentityService(env.store, env.passwords, "site-wide-temp",
		metrics.New(prometheus.NewRegistry()), newTestLogger())

	user, _, err := identity.ResolveOrCreate(context.Background(), "ada@example.com", "")
	require.NoError(t, err)
	assert.NoError(t, env.passwords.Verify(user.PasswordHash, "site-wide-temp"))
}

// Calling twice with the same email never creates a second user, and the
// second call ignores the supplied password.
func TestResolveOrCreate_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, created, err := env.identity.ResolveOrCreate(ctx, "ada@example.com", "first-pass")
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := env.identity.ResolveOrCreate(ctx, "ADA@example.com", "second-pass")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, env.store.userCount())
	assert.NoError(t, env.passwords.Verify(second.PasswordHash, "first-pass"))
}

// Another request inserts the same email between our lookup and our insert.
func TestResolveOrCreate_LosesInsertRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var winner model.User
	env.store.beforeCreateUser = func() {
		winner = model.User{Username: "ada@example.com", PasswordHash: "x", MustChangePassword: true}
		require.NoError(t, env.store.CreateUser(ctx, &winner))
	}

	user, created, err := env.identity.ResolveOrCreate(ctx, "ada@example.com", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.ID, user.ID)
	assert.Equal(t, 1, env.store.userCount())
}

func TestResolveOrCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.identity.ResolveOrCreate(ctx, "not-an-email", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "email", apperror.FieldOf(err))

	_, _, err = env.identity.ResolveOrCreate(ctx, "ada@example.com", strings.Repeat("x", 73))
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "temp_password", apperror.FieldOf(err))

	assert.Equal(t, 0, env.store.userCount())
}

// =========================================================================
// REGISTER
// =========================================================================

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.identity.Register(context.Background(), "Ada@Example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Username)
	assert.False(t, user.MustChangePassword)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		wantField string
	}{
		{"empty email", "", "correct-horse", "email"},
		{"no at sign", "ada.example.com", "correct-horse", "email"},
		{"no dot", "ada@example", "correct-horse", "email"},
		{"empty password", "ada@example.com", "", "password"},
		{"short password", "ada@example.com", "seven77", "password"},
		{"long password", "ada@example.com", strings.Repeat("x", 73), "password"},
		{"long multibyte password", "ada@example.com", strings.Repeat("é", 40), "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.identity.Register(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.wantField, apperror.FieldOf(err))
			assert.Equal(t, 0, env.store.userCount())
		})
	}
}

func TestRegister_DuplicateIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.identity.Register(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = env.identity.Register(ctx, "ADA@Example.COM", "other-password")
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, "email", apperror.FieldOf(err))

	// The original account is untouched.
	stored, err := env.store.GetUserByID(ctx, first.ID)
	require.NoError(t, err)
	assert.NoError(t, env.passwords.Verify(stored.PasswordHash, "correct-horse"))
}

// =========================================================================
// AUTHENTICATE
// =========================================================================

func TestRegisterThenAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered, err := env.identity.Register(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	user, err := env.identity.Authenticate(ctx, " ADA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	token, _, err := env.gate.Establish(ctx, user)
	require.NoError(t, err)
	sess, err := env.gate.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, sess.UserID)
}

func TestAuthenticate_FailuresLookTheSame(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.identity.Register(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	_, wrongPassword := env.identity.Authenticate(ctx, "ada@example.com", "wrong-password")
	_, unknownEmail := env.identity.Authenticate(ctx, "nobody@example.com", "correct-horse")

	assert.ErrorIs(t, wrongPassword, apperror.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, apperror.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthenticate_UnknownEmailStillComparesHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.Empty(t, env.identity.dummyHash)

	_, err := env.identity.Authenticate(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	// The comparison ran against a real bcrypt hash that matches nothing the
	// caller could know.
	require.NotEmpty(t, env.identity.dummyHash)
	assert.ErrorIs(t, env.passwords.Verify(env.identity.dummyHash, "correct-horse"), auth.ErrPasswordMismatch)

	first := env.identity.dummyHash
	_, err = env.identity.Authenticate(ctx, "other@example.com", "x")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	assert.Equal(t, first, env.identity.dummyHash, "built once")
}

// =========================================================================
// SET PASSWORD
// =========================================================================

func TestSetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, _, err := env.identity.ResolveOrCreate(ctx, "ada@example.com", "")
	require.NoError(t, err)

	require.NoError(t, env.identity.SetPassword(ctx, user.ID, "brand-new-pass"))

	authed, err := env.identity.Authenticate(ctx, "ada@example.com", "brand-new-pass")
	require.NoError(t, err)
	assert.False(t, authed.MustChangePassword)
}

func TestSetPassword_TooShort(t *testing.T) {
	env := newTestEnv(t)
	err := env.identity.SetPassword(context.Background(), "user-1", "short")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "password", apperror.FieldOf(err))
}
