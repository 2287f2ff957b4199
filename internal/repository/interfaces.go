package repository

import (
	"context"
	"time"

	"github.com/abrezinsky/consensus/internal/models"
)

// SubmissionOrder selects the ordering of a submission listing
type SubmissionOrder int

const (
	// OrderCreated orders by creation time, oldest first
	OrderCreated SubmissionOrder = iota
	// OrderScore orders by score descending, then creation time, then id
	OrderScore
)

// SubmissionFilter narrows a submission listing. Zero values mean "any".
type SubmissionFilter struct {
	CategoryID string
	UserID     string
	Status     models.SubmissionStatus
	OrderBy    SubmissionOrder
	Limit      int
}

// ScoreUpdate is the result of an atomic score adjustment
type ScoreUpdate struct {
	SubmissionID string `json:"id"`
	CategoryID   string `json:"category_id"`
	Score        int    `json:"score"`
}

// OTPRecord is a pending one-time code for an email address
type OTPRecord struct {
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
}

// SessionRecord is an authenticated user session
type SessionRecord struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}

// Stats summarizes table sizes for the operator
type Stats struct {
	Categories  int `json:"categories"`
	Submissions int `json:"submissions"`
	Votes       int `json:"votes"`
	Profiles    int `json:"profiles"`
}

// CategoryRepository defines category data operations
type CategoryRepository interface {
	ListCategories(ctx context.Context, status models.CategoryStatus) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, cat *models.Category) error
	UpdateCategoryStatus(ctx context.Context, id string, status models.CategoryStatus) error
	ListCategoriesDueForTransition(ctx context.Context, now time.Time) ([]models.Category, error)
}

// SubmissionRepository defines submission data operations
type SubmissionRepository interface {
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetSubmission(ctx context.Context, id string) (*models.Submission, error)
	CreateSubmission(ctx context.Context, sub *models.Submission) error
	SetSubmissionStatus(ctx context.Context, id string, status models.SubmissionStatus) error
	ListLeaderboard(ctx context.Context, categoryID string, limit int) ([]models.Submission, error)
	ApplyScoreDelta(ctx context.Context, id string, delta int) (*ScoreUpdate, error)
}

// VoteRepository defines vote data operations
type VoteRepository interface {
	InsertVote(ctx context.Context, vote *models.Vote) error
	CountVotes(ctx context.Context, submissionID string) (int, error)
	SumVotes(ctx context.Context, submissionID string) (int, error)
}

// ProfileRepository defines profile data operations
type ProfileRepository interface {
	UpsertProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id string, displayName, avatarURL *string) error
}

// AuthRepository defines one-time code and session storage
type AuthRepository interface {
	SaveOTP(ctx context.Context, rec OTPRecord) error
	GetOTP(ctx context.Context, email string) (*OTPRecord, error)
	IncrementOTPAttempts(ctx context.Context, email string) error
	DeleteOTP(ctx context.Context, email string) error
	CreateSession(ctx context.Context, rec SessionRecord) error
	GetSession(ctx context.Context, tokenHash string) (*SessionRecord, error)
	DeleteSession(ctx context.Context, tokenHash string) error
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetStats(ctx context.Context) (*Stats, error)
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	CategoryRepository
	SubmissionRepository
	VoteRepository
	ProfileRepository
	AuthRepository
	SettingsRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
