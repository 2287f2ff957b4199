package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/services"
)

// handleListCategories lists categories, optionally filtered by ?status=.
// ?active=true returns the not-yet-closed categories oldest first.
func (h *Handlers) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var (
		categories []models.Category
		err        error
	)
	if r.URL.Query().Get("active") == "true" {
		categories, err = h.Category.ListActiveCategories(r.Context())
	} else {
		status := models.CategoryStatus(r.URL.Query().Get("status"))
		categories, err = h.Category.ListCategories(r.Context(), status)
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, categories)
}

// handleGetCategory returns one category
func (h *Handlers) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := h.Category.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, cat)
}

// handleCategoryQR serves a PNG QR code of the category's share link
func (h *Handlers) handleCategoryQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.Category.ShareQR(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(png)
}

// landingPageData is rendered by the landing template
type landingPageData struct {
	Category *models.Category
	Action   string
	Link     string
	Deadline string
	QRURL    string
}

// handleLanding serves the page a shared category link opens
func (h *Handlers) handleLanding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cat, err := h.Category.GetCategory(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := LandingResponse{
		Category: cat,
		Action:   landingAction(cat.Status),
		Link:     h.Category.DeepLink(cat.ID),
	}
	if h.templates == nil || !wantsHTML(r) {
		respondOK(w, resp)
		return
	}

	data := landingPageData{
		Category: cat,
		Action:   resp.Action,
		Link:     resp.Link,
		QRURL:    "/rest/v1/categories/" + cat.ID + "/qr",
	}
	switch cat.Status {
	case models.CategorySubmission:
		data.Deadline = cat.SubmissionEnd.UTC().Format(time.RFC1123)
	case models.CategoryVoting:
		data.Deadline = cat.VotingEnd.UTC().Format(time.RFC1123)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Landing.Execute(w, data); err != nil {
		h.Log.Error("Failed to render landing page", "error", err)
	}
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// handleCreateCategory creates a category (operator)
func (h *Handlers) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req services.CategoryInput
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	cat, err := h.Category.CreateCategory(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondCreated(w, cat)
}

// handleSetCategoryStatus overrides a category's status (operator)
func (h *Handlers) handleSetCategoryStatus(w http.ResponseWriter, r *http.Request) {
	var req CategoryStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	cat, err := h.Category.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, cat)
}
