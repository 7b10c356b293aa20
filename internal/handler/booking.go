package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/energy-advisor/internal/auth"
	"github.com/sakif/energy-advisor/internal/service"
	"github.com/sakif/energy-advisor/internal/view"
)

var bookingFields = []string{"full_name", "phone", "preferred_date", "preferred_time", "notes"}

type BookingHandler struct {
	*Responder
	bookings *service.BookingService
}

func NewBookingHandler(rs *Responder, bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{Responder: rs, bookings: bookings}
}

// HandleForm shows the calculation result with the booking form.
//
// HTTP: GET /bookings/{calcID}
func (h *BookingHandler) HandleForm(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	calc, err := h.bookings.Calculation(r.Context(), sess, chi.URLParam(r, "calcID"))
	if err != nil {
		h.fail(w, r, err, view.Page{})
		return
	}
	h.render(w, r, http.StatusOK, view.Page{Name: view.PageBooking, Title: "Your estimate", Data: calc})
}

// HandleSubmit records the booking and shows the confirmation.
//
// HTTP: POST /bookings/{calcID}
func (h *BookingHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sess, _ := auth.SessionFromContext(r.Context())

	booking, calc, err := h.bookings.Submit(r.Context(), sess, chi.URLParam(r, "calcID"), service.BookingForm{
		FullName:      r.PostFormValue("full_name"),
		Phone:         r.PostFormValue("phone"),
		PreferredDate: r.PostFormValue("preferred_date"),
		PreferredTime: r.PostFormValue("preferred_time"),
		Notes:         r.PostFormValue("notes"),
	})
	if err != nil {
		form := view.Page{}
		if calc != nil {
			form = view.Page{
				Name:  view.PageBooking,
				Title: "Your estimate",
				Data:  calc,
				Form:  formValues(r, bookingFields...),
			}
		}
		h.fail(w, r, err, form)
		return
	}

	h.render(w, r, http.StatusOK, view.Page{
		Name:  view.PageBookingConfirmed,
		Title: "Booking received",
		Data:  view.Confirmation{Booking: booking, Calculation: calc},
	})
}
