package handlers

import "github.com/abrezinsky/consensus/internal/models"

// LandingResponse describes what a shared category link leads to
type LandingResponse struct {
	Category *models.Category `json:"category"`
	Action   string           `json:"action"`
	Link     string           `json:"link"`
}

// SettingsResponse is the response for operator settings
type SettingsResponse struct {
	InitialSubmissionStatus models.SubmissionStatus `json:"initial_submission_status"`
}

// HealthResponse reports server liveness
type HealthResponse struct {
	Status string `json:"status"`
}

// landingAction names what a visitor can do with a category in status s
func landingAction(s models.CategoryStatus) string {
	switch s {
	case models.CategorySubmission:
		return "submit"
	case models.CategoryVoting:
		return "vote"
	default:
		return "none"
	}
}
