package services

import "github.com/abrezinsky/consensus/internal/errors"

// Service errors
var (
	ErrSubmissionsClosed = &ServiceError{Kind: errors.ErrConflict, Code: "SUBMISSIONS_CLOSED", Message: "this category is not accepting submissions"}
	ErrVotingClosed      = &ServiceError{Kind: errors.ErrConflict, Code: "VOTING_CLOSED", Message: "voting is not open for this category"}
	ErrAlreadySubmitted  = &ServiceError{Kind: errors.ErrConflict, Code: "ALREADY_SUBMITTED", Message: "you already have an entry in this category"}
	ErrAlreadyVoted      = &ServiceError{Kind: errors.ErrConflict, Code: "ALREADY_VOTED", Message: "you have already voted on this submission"}
	ErrNotEligible       = &ServiceError{Kind: errors.ErrConflict, Code: "NOT_ELIGIBLE", Message: "submission is not eligible for voting"}
	ErrInvalidVoteValue  = &ServiceError{Kind: errors.ErrValidation, Code: "INVALID_VOTE", Message: "vote value must be 1 or -1"}
	ErrInvalidDelta      = &ServiceError{Kind: errors.ErrValidation, Code: "INVALID_DELTA", Message: "score delta must be 1 or -1"}
	ErrCaptionTooLong    = &ServiceError{Kind: errors.ErrValidation, Code: "CAPTION_TOO_LONG", Message: "caption must be at most 100 characters"}
	ErrNoPhoto           = &ServiceError{Kind: errors.ErrValidation, Code: "NO_PHOTO", Message: "a photo is required"}
	ErrInvalidStatus     = &ServiceError{Kind: errors.ErrValidation, Code: "INVALID_STATUS", Message: "invalid status"}
	ErrNameRequired      = &ServiceError{Kind: errors.ErrValidation, Code: "NAME_REQUIRED", Message: "name is required"}
	ErrInvalidWindows    = &ServiceError{Kind: errors.ErrValidation, Code: "INVALID_WINDOWS", Message: "windows must be ordered submission_start <= submission_end <= voting_start <= voting_end"}
	ErrDisplayNameLength = &ServiceError{Kind: errors.ErrValidation, Code: "DISPLAY_NAME_TOO_LONG", Message: "display name must be at most 50 characters"}
)

// ServiceError represents a service-level error with a stable code for clients
type ServiceError struct {
	Kind    errors.Kind
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}
