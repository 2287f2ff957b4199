package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/consensus/internal/auth"
)

// handleCastVote records the caller's judgment on a submission
func (h *Handlers) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	if req.SubmissionID == "" {
		h.respondError(w, BadRequest("submission_id is required"))
		return
	}

	voterID, _ := auth.UserIDFromContext(r.Context())
	vote, err := h.Voting.CastVote(r.Context(), voterID, req.SubmissionID, req.Value)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondCreated(w, vote)
}

// handleUpdateScore runs the update_submission_score procedure
func (h *Handlers) handleUpdateScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreDeltaRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	if req.SubmissionID == "" {
		h.respondError(w, BadRequest("p_submission_id is required"))
		return
	}

	update, err := h.Voting.UpdateSubmissionScore(r.Context(), req.SubmissionID, req.Delta)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, update)
}

// handleLeaderboard returns the ranked entries of a category (?limit=, max 50)
func (h *Handlers) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, "limit")
	if err != nil {
		h.respondError(w, err)
		return
	}
	rows, err := h.Leaderboard.Leaderboard(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, rows)
}
