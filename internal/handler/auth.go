package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/energy-advisor/internal/auth"
	"github.com/sakif/energy-advisor/internal/model"
	"github.com/sakif/energy-advisor/internal/service"
	"github.com/sakif/energy-advisor/internal/view"
)

// AuthHandler serves registration, login and logout.
type AuthHandler struct {
	*Responder
	identity *service.IdentityService
	sessions *service.SessionGate
	cookie   SessionCookie
}

func NewAuthHandler(
	rs *Responder,
	identity *service.IdentityService,
	sessions *service.SessionGate,
	cookie SessionCookie,
) *AuthHandler {
	return &AuthHandler{Responder: rs, identity: identity, sessions: sessions, cookie: cookie}
}

// HTTP: GET /register
func (h *AuthHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Page{Name: view.PageRegister, Title: "Register"})
}

// HandleRegister creates the account and logs it in.
//
// HTTP: POST /register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	user, err := h.identity.Register(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		h.fail(w, r, err, view.Page{Name: view.PageRegister, Title: "Register", Form: formValues(r, "email")})
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.fail(w, r, err, view.Page{})
		return
	}
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

// HTTP: GET /login?next=/path
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Page{
		Name:  view.PageLogin,
		Title: "Log in",
		Form:  map[string]string{"next": safeNext(r.URL.Query().Get("next"))},
	})
}

// HandleLogin authenticates and sends the user to next (or their account).
// A user still on a temporary password is caught by the forced-change gate
// on whatever page they land on.
//
// HTTP: POST /login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	next := safeNext(r.PostFormValue("next"))

	user, err := h.identity.Authenticate(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		h.fail(w, r, err, view.Page{
			Name:  view.PageLogin,
			Title: "Log in",
			Form:  map[string]string{"email": r.PostFormValue("email"), "next": next},
		})
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.fail(w, r, err, view.Page{})
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// HandleLogout ends the session unconditionally.
//
// HTTP: POST /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), h.cookie.value(r)); err != nil {
		h.logger.Error("failed to destroy session", slog.String("error", err.Error()))
	}
	h.cookie.clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// startSession rotates the session: whatever session the browser had is
// destroyed before the new one is issued.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) error {
	if old := h.cookie.value(r); old != "" {
		if err := h.sessions.Destroy(r.Context(), old); err != nil {
			h.logger.Warn("failed to destroy previous session", slog.String("error", err.Error()))
		}
	}

	token, _, err := h.sessions.Establish(r.Context(), user)
	if err != nil {
		return err
	}
	h.cookie.set(w, token)
	return nil
}

func safeNext(next string) string {
	if !auth.SafeRedirect(next) {
		return "/account"
	}
	return next
}
