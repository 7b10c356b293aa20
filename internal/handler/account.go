package handler

import (
	"net/http"

	"github.com/sakif/energy-advisor/internal/auth"
	"github.com/sakif/energy-advisor/internal/service"
	"github.com/sakif/energy-advisor/internal/view"
)

type AccountHandler struct {
	*Responder
	accounts *service.AccountService
}

func NewAccountHandler(rs *Responder, accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{Responder: rs, accounts: accounts}
}

// HTTP: GET /account
func (h *AccountHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	account, err := h.accounts.View(r.Context(), sess)
	if err != nil {
		h.fail(w, r, err, view.Page{})
		return
	}
	h.render(w, r, http.StatusOK, view.Page{Name: view.PageAccount, Title: "Your account", Data: account})
}

// HTTP: GET /account/password
func (h *AccountHandler) HandlePasswordForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Page{Name: view.PagePassword, Title: "Change password"})
}

// HandleChangePassword is reachable while a forced change is pending.
//
// HTTP: POST /account/password
func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sess, _ := auth.SessionFromContext(r.Context())

	if err := h.accounts.ChangePassword(r.Context(), sess, r.PostFormValue("password")); err != nil {
		h.fail(w, r, err, view.Page{Name: view.PagePassword, Title: "Change password"})
		return
	}
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}
