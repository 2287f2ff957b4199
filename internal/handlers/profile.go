package handlers

import (
	"net/http"

	"github.com/abrezinsky/consensus/internal/auth"
)

func (h *Handlers) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	profile, err := h.Profile.GetProfile(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, profile)
}

func (h *Handlers) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	profile, err := h.Profile.UpdateProfile(r.Context(), userID, req.DisplayName, req.AvatarURL)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, profile)
}
