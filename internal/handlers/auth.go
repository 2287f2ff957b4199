package handlers

import (
	"net/http"

	"github.com/abrezinsky/consensus/internal/auth"
)

// handleRequestCode sends a one-time sign-in code to an email address
func (h *Handlers) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.Auth.RequestCode(r.Context(), req.Email); err != nil {
		h.respondError(w, err)
		return
	}
	respondSuccess(w, "Code sent")
}

// handleVerifyCode exchanges a code for a session
func (h *Handlers) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	session, err := h.Auth.VerifyCode(r.Context(), req.Email, req.Token)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, session)
}

// handleLogout ends the caller's session. Unknown tokens are not an error.
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.BearerToken(r); token != "" {
		if err := h.Auth.Logout(r.Context(), token); err != nil {
			h.respondError(w, err)
			return
		}
	}
	respondNoContent(w)
}

// handleAdminLogin starts an operator session
func (h *Handlers) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	token, ok := h.Admin.Login(req.Password)
	if !ok {
		h.Log.Warn("Operator login failed", "remote", r.RemoteAddr)
		h.respondError(w, Unauthorized("Invalid password"))
		return
	}
	auth.SetAdminCookie(w, token)
	respondSuccess(w, "Logged in")
}

// handleAdminLogout clears the operator session
func (h *Handlers) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.AdminCookieName); err == nil {
		h.Admin.Logout(cookie.Value)
	}
	auth.ClearAdminCookie(w)
	respondSuccess(w, "Logged out")
}
