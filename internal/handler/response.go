// Package handler contains the HTTP handlers. Each one parses a form, calls
// one service method and either renders a page or redirects.
//
// Handlers never decide business outcomes. They only translate apperror
// kinds into HTTP, in one place (Responder.fail):
//
//	ErrValidation, ErrConflict      → 422, form re-rendered with the field error
//	ErrInvalidCredentials           → 401, login form with a generic message
//	ErrNotFound                     → 404 page
//	ErrSessionRequired              → 303 /login?next=<this page>
//	ErrPasswordChangeRequired       → 303 /account/password
//	anything else                   → 500 page, details only in the log
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/auth"
	"github.com/sakif/energy-advisor/internal/view"
)

// Responder renders pages and maps errors. Every handler embeds one.
type Responder struct {
	view   view.Renderer
	logger *slog.Logger
}

func NewResponder(v view.Renderer, logger *slog.Logger) *Responder {
	return &Responder{view: v, logger: logger}
}

func (rs *Responder) render(w http.ResponseWriter, r *http.Request, status int, p view.Page) {
	if err := rs.view.Render(w, r, status, p); err != nil {
		rs.logger.Error("failed to render page",
			slog.String("page", p.Name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// fail handles err for a request. form is the page to re-render when err is
// a field-level error; pass a zero Page when the request has no form.
func (rs *Responder) fail(w http.ResponseWriter, r *http.Request, err error, form view.Page) {
	var appErr *apperror.AppError
	errors.As(err, &appErr)

	switch {
	case errors.Is(err, apperror.ErrSessionRequired):
		http.Redirect(w, r, auth.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)

	case errors.Is(err, apperror.ErrPasswordChangeRequired):
		http.Redirect(w, r, auth.ChangePasswordPath, http.StatusSeeOther)

	case errors.Is(err, apperror.ErrNotFound):
		rs.render(w, r, http.StatusNotFound, view.Page{Name: view.PageError, Title: "Page not found"})

	case errors.Is(err, apperror.ErrInvalidCredentials) && form.Name != "" && appErr != nil:
		form.Errors = map[string]string{"credentials": appErr.Message}
		rs.render(w, r, http.StatusUnauthorized, form)

	case (errors.Is(err, apperror.ErrValidation) || errors.Is(err, apperror.ErrConflict)) &&
		form.Name != "" && appErr != nil && appErr.Field != "":
		form.Errors = map[string]string{appErr.Field: appErr.Message}
		rs.render(w, r, http.StatusUnprocessableEntity, form)

	default:
		rs.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		rs.render(w, r, http.StatusInternalServerError, view.Page{Name: view.PageError, Title: "Something went wrong"})
	}
}

// HandleNotFound renders the 404 page for unmatched routes.
func (rs *Responder) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	rs.render(w, r, http.StatusNotFound, view.Page{Name: view.PageError, Title: "Page not found"})
}

// HandleForbidden is the CSRF failure handler.
func (rs *Responder) HandleForbidden(w http.ResponseWriter, r *http.Request) {
	reason := "unknown"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	rs.logger.Warn("csrf check failed", slog.String("path", r.URL.Path), slog.String("reason", reason))
	rs.render(w, r, http.StatusForbidden, view.Page{
		Name:    view.PageError,
		Title:   "Form expired",
		Message: "Your form has expired. Go back, reload the page and try again.",
	})
}

// formValues copies the named fields of a parsed form so a failed POST can
// put them back into the inputs. Passwords are never echoed.
func formValues(r *http.Request, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = r.PostFormValue(n)
	}
	return out
}

// writeJSON is used by the few machine-facing endpoints.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}
