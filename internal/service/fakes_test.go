package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/auth"
	"github.com/sakif/energy-advisor/internal/metrics"
	"github.com/sakif/energy-advisor/internal/model"
	"github.com/sakif/energy-advisor/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore implements every repository interface in memory, the same way
// sqlite.DB implements all of them on one type. Slices keep insertion order
// so the "newest first" lists can be checked.

type fakeStore struct {
	mu       sync.Mutex
	nextID   int
	users    []*model.User
	products map[string]*model.Product
	calcs    []*model.Calculation
	bookings []*model.Booking
	sessions map[string]*model.Session

	// beforeCreateUser runs (unlocked) at the start of CreateUser, to
	// simulate a concurrent request winning the insert race.
	beforeCreateUser func()
	failCreateCalc   error
}

var (
	_ repository.UserRepository        = (*fakeStore)(nil)
	_ repository.ProductRepository     = (*fakeStore)(nil)
	_ repository.CalculationRepository = (*fakeStore)(nil)
	_ repository.BookingRepository     = (*fakeStore)(nil)
	_ repository.SessionRepository     = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: make(map[string]*model.Product),
		sessions: make(map[string]*model.Session),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	if hook := f.beforeCreateUser; hook != nil {
		f.beforeCreateUser = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("user", user.Username)
		}
	}
	user.ID = f.id("user")
	stored := *user
	f.users = append(f.users, &stored)
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeStore) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			u.PasswordHash = hash
			u.MustChangePassword = false
			return nil
		}
	}
	return apperror.NotFound("user", id)
}

func (f *fakeStore) UpsertProduct(_ context.Context, p *model.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[p.Slug]; !ok {
		c := *p
		f.products[p.Slug] = &c
	}
	return nil
}

func (f *fakeStore) GetProduct(_ context.Context, slug string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[slug]
	if !ok {
		return nil, apperror.NotFound("product", slug)
	}
	c := *p
	return &c, nil
}

func (f *fakeStore) ListProducts(_ context.Context) ([]model.ProductSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ProductSummary, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, model.ProductSummary{Slug: p.Slug, Name: p.Name, ShortDesc: p.ShortDesc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) CreateCalculation(_ context.Context, calc *model.Calculation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateCalc != nil {
		return f.failCreateCalc
	}
	calc.ID = f.id("calc")
	c := *calc
	f.calcs = append(f.calcs, &c)
	return nil
}

func (f *fakeStore) calcView(c *model.Calculation) model.CalculationView {
	v := model.CalculationView{Calculation: *c}
	if p, ok := f.products[c.ProductSlug]; ok {
		v.ProductName = p.Name
	}
	return v
}

func (f *fakeStore) GetCalculationForUser(_ context.Context, id, userID string) (*model.CalculationView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calcs {
		if c.ID == id && c.UserID == userID {
			v := f.calcView(c)
			return &v, nil
		}
	}
	return nil, apperror.NotFound("calculation", id)
}

func (f *fakeStore) ListCalculationsByUser(_ context.Context, userID string) ([]model.CalculationView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.CalculationView, 0)
	for i := len(f.calcs) - 1; i >= 0; i-- {
		if f.calcs[i].UserID == userID {
			out = append(out, f.calcView(f.calcs[i]))
		}
	}
	return out, nil
}

func (f *fakeStore) CreateBooking(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calcs {
		if c.ID == b.CalculationID && c.UserID == b.UserID {
			b.ID = f.id("booking")
			stored := *b
			f.bookings = append(f.bookings, &stored)
			return nil
		}
	}
	return apperror.NotFound("calculation", b.CalculationID)
}

func (f *fakeStore) ListBookingsByUser(_ context.Context, userID string) ([]model.BookingView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.BookingView, 0)
	for i := len(f.bookings) - 1; i >= 0; i-- {
		b := f.bookings[i]
		if b.UserID != userID {
			continue
		}
		v := model.BookingView{Booking: *b}
		for _, c := range f.calcs {
			if c.ID == b.CalculationID {
				cv := f.calcView(c)
				v.ProductSlug, v.ProductName, v.CostSaved = c.ProductSlug, cv.ProductName, c.Savings.CostSaved
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeStore) CreateSession(_ context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *s
	f.sessions[s.ID] = &c
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	c := *s
	return &c, nil
}

func (f *fakeStore) TouchSession(_ context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stored, ok := f.sessions[s.ID]; ok {
		stored.LastSeenAt = s.LastSeenAt
	}
	return nil
}

func (f *fakeStore) ClearPasswordChange(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID {
			s.MustChangePassword = false
		}
	}
	return nil
}

func (f *fakeStore) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeStore) userCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// =========================================================================
// TEST ENVIRONMENT
// =========================================================================

const testSecret = "test-secret-at-least-16-bytes"

type testEnv struct {
	store     *fakeStore
	passwords *auth.PasswordService
	identity  *IdentityService
	gate      *SessionGate
	catalog   *CatalogService
	quotes    *QuoteService
	bookings  *BookingService
	accounts  *AccountService
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	logger := newTestLogger()
	m := metrics.New(prometheus.NewRegistry())
	passwords := auth.NewPasswordServiceForTest(4)

	gate, err := NewSessionGate(store, SessionConfig{Secret: testSecret}, logger)
	require.NoError(t, err)

	identity := NewIdentityService(store, passwords, "", m, logger)
	catalog := NewCatalogService(store, logger)
	require.NoError(t, catalog.Seed(context.Background(), DefaultProducts))

	return &testEnv{
		store:     store,
		passwords: passwords,
		identity:  identity,
		gate:      gate,
		catalog:   catalog,
		quotes:    NewQuoteService(store, store, identity, gate, m, logger),
		bookings:  NewBookingService(store, store, m, logger),
		accounts:  NewAccountService(store, store, identity, gate),
	}
}

// quote submits a solar quote for email with no current session.
func (e *testEnv) quote(t *testing.T, email string) *QuoteResult {
	t.Helper()
	res, err := e.quotes.SubmitQuote(context.Background(), "solar", QuoteForm{
		Email:          email,
		ElectricityKWh: "4000",
		GasKWh:         "10000",
	}, nil)
	require.NoError(t, err)
	return res
}

// login opens a session for an existing user.
func (e *testEnv) login(t *testing.T, user *model.User) *model.Session {
	t.Helper()
	_, sess, err := e.gate.Establish(context.Background(), user)
	require.NoError(t, err)
	return sess
}

func validBookingForm() BookingForm {
	return BookingForm{
		FullName:      "Ada Lovelace",
		PreferredDate: "2026-11-02",
		PreferredTime: "09:30",
	}
}
