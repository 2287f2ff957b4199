package handlers

import "net/http"

// handleGetSettings returns the operator settings
func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	respondOK(w, SettingsResponse{
		InitialSubmissionStatus: h.Settings.InitialSubmissionStatus(r.Context()),
	})
}

// handleUpdateSettings changes the operator settings
func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.Settings.SetInitialSubmissionStatus(r.Context(), req.InitialSubmissionStatus); err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, SettingsResponse{InitialSubmissionStatus: req.InitialSubmissionStatus})
}

// handleGetStats returns table counts for the operator dashboard
func (h *Handlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Settings.GetStats(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, stats)
}

// handleHealth reports whether the server and its database are up
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			h.Log.Error("Health check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}
	respondOK(w, HealthResponse{Status: "ok"})
}
