package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/consensus/internal/auth"
	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/services"
	"github.com/abrezinsky/consensus/internal/storage"
)

// multipartOverhead allows for form fields and boundaries around the photo
const multipartOverhead = 64 << 10

// handleListEligible returns the approved entries of a category
func (h *Handlers) handleListEligible(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Submission.ListEligible(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, subs)
}

// handleSubmit accepts a multipart upload with a "photo" file and an
// optional "caption" field
func (h *Handlers) handleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	maxBytes := int64(storage.DefaultMaxBytes)
	if h.Store != nil {
		maxBytes = h.Store.MaxBytes()
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		h.respondError(w, multipartError(err))
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		h.respondError(w, services.ErrNoPhoto)
		return
	}
	defer file.Close()

	sub, err := h.Submission.Submit(r.Context(), services.SubmitInput{
		CategoryID:  chi.URLParam(r, "id"),
		UserID:      userID,
		ContentType: header.Header.Get("Content-Type"),
		Photo:       file,
		Caption:     r.FormValue("caption"),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondCreated(w, sub)
}

func multipartError(err error) error {
	if ToAPIError(nil, err).Status == http.StatusRequestEntityTooLarge {
		return err
	}
	return BadRequest("Invalid upload: " + err.Error())
}

// handleModerationQueue lists a category's entries for the operator,
// optionally filtered by ?status=
func (h *Handlers) handleModerationQueue(w http.ResponseWriter, r *http.Request) {
	status := models.SubmissionStatus(r.URL.Query().Get("status"))
	subs, err := h.Submission.ListForModeration(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, subs)
}

// handleModerate sets an entry's moderation status (operator)
func (h *Handlers) handleModerate(w http.ResponseWriter, r *http.Request) {
	var req SubmissionStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	sub, err := h.Submission.Moderate(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, sub)
}

// handlePublicObject serves a stored photo
func (h *Handlers) handlePublicObject(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil || chi.URLParam(r, "bucket") != h.Store.Bucket() {
		h.respondError(w, NotFound("object not found"))
		return
	}
	f, err := h.Store.Open(chi.URLParam(r, "*"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
