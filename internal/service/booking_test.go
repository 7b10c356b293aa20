package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/model"
)

// cleanSession returns a session for a freshly quoted account whose forced
// password change has already been done.
func cleanSession(t *testing.T, env *testEnv, email string) (*model.Session, string) {
	t.Helper()
	res := env.quote(t, email)
	require.NoError(t, env.accounts.ChangePassword(context.Background(), res.Session, "chosen-password"))
	return res.Session, res.Calculation.ID
}

func TestBookingSubmit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess, calcID := cleanSession(t, env, "ada@example.com")

	form := validBookingForm()
	form.FullName = "  Ada Lovelace  "
	form.Notes = "side gate"

	b, calc, err := env.bookings.Submit(ctx, sess, calcID, form)
	require.NoError(t, err)
	assert.Equal(t, calcID, b.CalculationID)
	assert.Equal(t, sess.UserID, b.UserID)
	assert.Equal(t, "Ada Lovelace", b.FullName)
	assert.Equal(t, "Solar Panels", calc.ProductName)

	list, err := env.store.ListBookingsByUser(ctx, sess.UserID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "side gate", list[0].Notes)
}

// A booking for A's calculation under B's session fails as not-found and
// leaves nothing behind.
func TestBookingSubmit_NotOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, aliceCalc := cleanSession(t, env, "alice@example.com")
	bob, _ := cleanSession(t, env, "bob@example.com")

	_, _, err := env.bookings.Submit(ctx, bob, aliceCalc, validBookingForm())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.bookings.Calculation(ctx, bob, aliceCalc)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.Empty(t, env.store.bookings)
}

func TestBookingSubmit_UnknownCalculation(t *testing.T) {
	env := newTestEnv(t)
	sess, _ := cleanSession(t, env, "ada@example.com")

	_, _, err := env.bookings.Submit(context.Background(), sess, "calc-does-not-exist", validBookingForm())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestBookingSubmit_ForcedChangeGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.quote(t, "ada@example.com")

	_, _, err := env.bookings.Submit(ctx, res.Session, res.Calculation.ID, validBookingForm())
	assert.ErrorIs(t, err, apperror.ErrPasswordChangeRequired)
	assert.Empty(t, env.store.bookings)

	require.NoError(t, env.accounts.ChangePassword(ctx, res.Session, "chosen-password"))

	_, _, err = env.bookings.Submit(ctx, res.Session, res.Calculation.ID, validBookingForm())
	assert.NoError(t, err)
}

func TestBookingSubmit_NoSession(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.bookings.Submit(context.Background(), nil, "calc-1", validBookingForm())
	assert.ErrorIs(t, err, apperror.ErrSessionRequired)
}

func TestBookingSubmit_Validation(t *testing.T) {
	tests := []struct {
		name      string
		edit      func(*BookingForm)
		wantField string
	}{
		{"missing name", func(f *BookingForm) { f.FullName = "" }, "full_name"},
		{"blank name", func(f *BookingForm) { f.FullName = "   " }, "full_name"},
		{"missing date", func(f *BookingForm) { f.PreferredDate = "" }, "preferred_date"},
		{"bad date", func(f *BookingForm) { f.PreferredDate = "02/11/2026" }, "preferred_date"},
		{"impossible date", func(f *BookingForm) { f.PreferredDate = "2026-02-30" }, "preferred_date"},
		{"missing time", func(f *BookingForm) { f.PreferredTime = "" }, "preferred_time"},
		{"bad time", func(f *BookingForm) { f.PreferredTime = "9am" }, "preferred_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			sess, calcID := cleanSession(t, env, "ada@example.com")

			form := validBookingForm()
			tt.edit(&form)

			_, calc, err := env.bookings.Submit(context.Background(), sess, calcID, form)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.wantField, apperror.FieldOf(err))
			assert.NotNil(t, calc, "form re-render needs the calculation")
			assert.Empty(t, env.store.bookings)
		})
	}
}

func TestBookingSubmit_OptionalFieldsMayBeEmpty(t *testing.T) {
	env := newTestEnv(t)
	sess, calcID := cleanSession(t, env, "ada@example.com")

	form := validBookingForm()
	form.Phone, form.Notes = "", ""

	_, _, err := env.bookings.Submit(context.Background(), sess, calcID, form)
	assert.NoError(t, err)
}
