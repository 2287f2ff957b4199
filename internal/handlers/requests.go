package handlers

import "github.com/abrezinsky/consensus/internal/models"

// OTPRequest asks for a one-time sign-in code
type OTPRequest struct {
	Email string `json:"email"`
}

// VerifyRequest exchanges a one-time code for a session
type VerifyRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// VoteRequest records a judgment on a submission
type VoteRequest struct {
	SubmissionID string           `json:"submission_id"`
	Value        models.VoteValue `json:"value"`
}

// ScoreDeltaRequest is the argument object of the update_submission_score procedure
type ScoreDeltaRequest struct {
	SubmissionID string `json:"p_submission_id"`
	Delta        int    `json:"p_delta"`
}

// ProfileUpdateRequest changes the signed-in user's profile. Omitted fields are kept.
type ProfileUpdateRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// AdminLoginRequest carries the operator password
type AdminLoginRequest struct {
	Password string `json:"password"`
}

// CategoryStatusRequest sets a category's lifecycle status
type CategoryStatusRequest struct {
	Status models.CategoryStatus `json:"status"`
}

// SubmissionStatusRequest sets a submission's moderation status
type SubmissionStatusRequest struct {
	Status models.SubmissionStatus `json:"status"`
}

// SettingsUpdateRequest changes operator settings
type SettingsUpdateRequest struct {
	InitialSubmissionStatus models.SubmissionStatus `json:"initial_submission_status"`
}
