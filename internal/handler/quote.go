package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/energy-advisor/internal/auth"
	"github.com/sakif/energy-advisor/internal/service"
	"github.com/sakif/energy-advisor/internal/view"
)

var quoteFields = []string{"email", "electricity_kwh", "gas_kwh", "home_size", "occupants"}

type QuoteHandler struct {
	*Responder
	quotes   *service.QuoteService
	catalog  *service.CatalogService
	sessions *service.SessionGate
	cookie   SessionCookie
}

func NewQuoteHandler(
	rs *Responder,
	quotes *service.QuoteService,
	catalog *service.CatalogService,
	sessions *service.SessionGate,
	cookie SessionCookie,
) *QuoteHandler {
	return &QuoteHandler{Responder: rs, quotes: quotes, catalog: catalog, sessions: sessions, cookie: cookie}
}

// HandleSubmit runs the quote workflow and sends the visitor on to booking.
//
// HTTP: POST /products/{slug}/quote
//
// On success the response may carry a new session cookie (the visitor is now
// logged in as the quoted email) and always redirects 303 to /bookings/{id}.
func (h *QuoteHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	slug := chi.URLParam(r, "slug")
	current, _ := auth.SessionFromContext(r.Context())

	res, err := h.quotes.SubmitQuote(r.Context(), slug, service.QuoteForm{
		Email:          r.PostFormValue("email"),
		TempPassword:   r.PostFormValue("temp_password"),
		ElectricityKWh: r.PostFormValue("electricity_kwh"),
		GasKWh:         r.PostFormValue("gas_kwh"),
		HomeSize:       r.PostFormValue("home_size"),
		Occupants:      r.PostFormValue("occupants"),
		EVCharging:     r.PostFormValue("ev_charging"),
		SmartHome:      r.PostFormValue("smart_home"),
	}, current)
	if err != nil {
		form := view.Page{}
		// The product page is only re-rendered if the product exists.
		if product, perr := h.catalog.Get(r.Context(), slug); perr == nil {
			form = view.Page{
				Name:  view.PageProduct,
				Title: product.Name,
				Data:  product,
				Form:  formValues(r, quoteFields...),
			}
		}
		h.fail(w, r, err, form)
		return
	}

	if res.Token != "" {
		// Replacing another account's session: end it rather than orphan it.
		if current != nil {
			if err := h.sessions.Destroy(r.Context(), h.cookie.value(r)); err != nil {
				h.logger.Warn("failed to destroy replaced session", slog.String("error", err.Error()))
			}
		}
		h.cookie.set(w, res.Token)
	}

	http.Redirect(w, r, "/bookings/"+res.Calculation.ID, http.StatusSeeOther)
}
