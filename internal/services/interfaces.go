package services

import (
	"context"
	"io"
	"time"

	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/repository"
)

// Publisher defines the interface for pushing change events to subscribers
type Publisher interface {
	Publish(topic string, event models.ChangeEvent)
}

// CategoryServicer defines the interface for category operations
type CategoryServicer interface {
	ListCategories(ctx context.Context, status models.CategoryStatus) ([]models.Category, error)
	ListActiveCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error)
	SetStatus(ctx context.Context, id string, status models.CategoryStatus) (*models.Category, error)
	AdvanceStatuses(ctx context.Context, now time.Time) ([]models.Category, error)
	ShareQR(ctx context.Context, id string) ([]byte, error)
	DeepLink(id string) string
	SetPublisher(p Publisher)
}

// SubmissionServicer defines the interface for submission operations
type SubmissionServicer interface {
	ListEligible(ctx context.Context, categoryID string) ([]models.Submission, error)
	ListForModeration(ctx context.Context, categoryID string, status models.SubmissionStatus) ([]models.Submission, error)
	Submit(ctx context.Context, in SubmitInput) (*models.Submission, error)
	Moderate(ctx context.Context, id string, status models.SubmissionStatus) (*models.Submission, error)
	SetPublisher(p Publisher)
}

// VotingServicer defines the interface for voting operations
type VotingServicer interface {
	CastVote(ctx context.Context, voterID, submissionID string, value models.VoteValue) (*models.Vote, error)
	UpdateSubmissionScore(ctx context.Context, submissionID string, delta int) (*repository.ScoreUpdate, error)
	SetPublisher(p Publisher)
}

// LeaderboardServicer defines the interface for ranking operations
type LeaderboardServicer interface {
	Leaderboard(ctx context.Context, categoryID string, limit int) ([]models.Submission, error)
}

// ProfileServicer defines the interface for profile operations
type ProfileServicer interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id string, displayName, avatarURL *string) (*models.Profile, error)
}

// SettingsServicer defines the interface for operator settings
type SettingsServicer interface {
	InitialSubmissionStatus(ctx context.Context) models.SubmissionStatus
	SetInitialSubmissionStatus(ctx context.Context, status models.SubmissionStatus) error
	GetStats(ctx context.Context) (*repository.Stats, error)
}

// SubmitInput carries a new photo entry
type SubmitInput struct {
	CategoryID  string
	UserID      string
	ContentType string
	Photo       io.Reader
	Caption     string
}

// Ensure concrete types implement interfaces
var (
	_ CategoryServicer    = (*CategoryService)(nil)
	_ SubmissionServicer  = (*SubmissionService)(nil)
	_ VotingServicer      = (*VotingService)(nil)
	_ LeaderboardServicer = (*LeaderboardService)(nil)
	_ ProfileServicer     = (*ProfileService)(nil)
	_ SettingsServicer    = (*SettingsService)(nil)
)
