package mock

import (
	"context"
	"sync"
	"time"

	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.InsertVoteError = errors.New("database error")
//	svc := services.NewVotingService(log, mockRepo)
//	_, err := svc.CastVote(ctx, voterID, submissionID, models.VoteYes)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	mu              sync.Mutex
	scoreDeltaCalls int
	insertVoteCalls int

	// ===== Category Errors =====
	ListCategoriesError       error
	GetCategoryError          error
	CreateCategoryError       error
	UpdateCategoryStatusError error
	ListDueError              error

	// ===== Submission Errors =====
	ListSubmissionsError     error
	GetSubmissionError       error
	CreateSubmissionError    error
	SetSubmissionStatusError error
	ApplyScoreDeltaError     error
	ListLeaderboardError     error

	// ===== Vote Errors =====
	InsertVoteError error
	CountVotesError error
	SumVotesError   error

	// ===== Profile Errors =====
	UpsertProfileByEmailError error
	GetProfileError           error
	UpdateProfileError        error

	// ===== Auth Errors =====
	SaveOTPError              error
	GetOTPError               error
	IncrementOTPAttemptsError error
	DeleteOTPError            error
	CreateSessionError        error
	GetSessionError           error
	DeleteSessionError        error

	// ===== Settings Errors =====
	GetSettingError error
	SetSettingError error
	GetStatsError   error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ScoreDeltaCalls returns how many times ApplyScoreDelta was invoked
func (m *Repository) ScoreDeltaCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scoreDeltaCalls
}

// InsertVoteCalls returns how many times InsertVote was invoked
func (m *Repository) InsertVoteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertVoteCalls
}

// ===== Category Methods =====

func (m *Repository) ListCategories(ctx context.Context, status models.CategoryStatus) ([]models.Category, error) {
	if m.ListCategoriesError != nil {
		return nil, m.ListCategoriesError
	}
	return m.FullRepository.ListCategories(ctx, status)
}

func (m *Repository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	if m.GetCategoryError != nil {
		return nil, m.GetCategoryError
	}
	return m.FullRepository.GetCategory(ctx, id)
}

func (m *Repository) CreateCategory(ctx context.Context, cat *models.Category) error {
	if m.CreateCategoryError != nil {
		return m.CreateCategoryError
	}
	return m.FullRepository.CreateCategory(ctx, cat)
}

func (m *Repository) UpdateCategoryStatus(ctx context.Context, id string, status models.CategoryStatus) error {
	if m.UpdateCategoryStatusError != nil {
		return m.UpdateCategoryStatusError
	}
	return m.FullRepository.UpdateCategoryStatus(ctx, id, status)
}

func (m *Repository) ListCategoriesDueForTransition(ctx context.Context, now time.Time) ([]models.Category, error) {
	if m.ListDueError != nil {
		return nil, m.ListDueError
	}
	return m.FullRepository.ListCategoriesDueForTransition(ctx, now)
}

// ===== Submission Methods =====

func (m *Repository) ListSubmissions(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	if m.ListSubmissionsError != nil {
		return nil, m.ListSubmissionsError
	}
	return m.FullRepository.ListSubmissions(ctx, filter)
}

func (m *Repository) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	if m.GetSubmissionError != nil {
		return nil, m.GetSubmissionError
	}
	return m.FullRepository.GetSubmission(ctx, id)
}

func (m *Repository) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	if m.CreateSubmissionError != nil {
		return m.CreateSubmissionError
	}
	return m.FullRepository.CreateSubmission(ctx, sub)
}

func (m *Repository) SetSubmissionStatus(ctx context.Context, id string, status models.SubmissionStatus) error {
	if m.SetSubmissionStatusError != nil {
		return m.SetSubmissionStatusError
	}
	return m.FullRepository.SetSubmissionStatus(ctx, id, status)
}

func (m *Repository) ListLeaderboard(ctx context.Context, categoryID string, limit int) ([]models.Submission, error) {
	if m.ListLeaderboardError != nil {
		return nil, m.ListLeaderboardError
	}
	return m.FullRepository.ListLeaderboard(ctx, categoryID, limit)
}

func (m *Repository) ApplyScoreDelta(ctx context.Context, id string, delta int) (*repository.ScoreUpdate, error) {
	m.mu.Lock()
	m.scoreDeltaCalls++
	m.mu.Unlock()
	if m.ApplyScoreDeltaError != nil {
		return nil, m.ApplyScoreDeltaError
	}
	return m.FullRepository.ApplyScoreDelta(ctx, id, delta)
}

// ===== Vote Methods =====

func (m *Repository) InsertVote(ctx context.Context, vote *models.Vote) error {
	m.mu.Lock()
	m.insertVoteCalls++
	m.mu.Unlock()
	if m.InsertVoteError != nil {
		return m.InsertVoteError
	}
	return m.FullRepository.InsertVote(ctx, vote)
}

func (m *Repository) CountVotes(ctx context.Context, submissionID string) (int, error) {
	if m.CountVotesError != nil {
		return 0, m.CountVotesError
	}
	return m.FullRepository.CountVotes(ctx, submissionID)
}

func (m *Repository) SumVotes(ctx context.Context, submissionID string) (int, error) {
	if m.SumVotesError != nil {
		return 0, m.SumVotesError
	}
	return m.FullRepository.SumVotes(ctx, submissionID)
}

// ===== Profile Methods =====

func (m *Repository) UpsertProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	if m.UpsertProfileByEmailError != nil {
		return nil, m.UpsertProfileByEmailError
	}
	return m.FullRepository.UpsertProfileByEmail(ctx, email)
}

func (m *Repository) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	if m.GetProfileError != nil {
		return nil, m.GetProfileError
	}
	return m.FullRepository.GetProfile(ctx, id)
}

func (m *Repository) UpdateProfile(ctx context.Context, id string, displayName, avatarURL *string) error {
	if m.UpdateProfileError != nil {
		return m.UpdateProfileError
	}
	return m.FullRepository.UpdateProfile(ctx, id, displayName, avatarURL)
}

// ===== Auth Methods =====

func (m *Repository) SaveOTP(ctx context.Context, rec repository.OTPRecord) error {
	if m.SaveOTPError != nil {
		return m.SaveOTPError
	}
	return m.FullRepository.SaveOTP(ctx, rec)
}

func (m *Repository) GetOTP(ctx context.Context, email string) (*repository.OTPRecord, error) {
	if m.GetOTPError != nil {
		return nil, m.GetOTPError
	}
	return m.FullRepository.GetOTP(ctx, email)
}

func (m *Repository) IncrementOTPAttempts(ctx context.Context, email string) error {
	if m.IncrementOTPAttemptsError != nil {
		return m.IncrementOTPAttemptsError
	}
	return m.FullRepository.IncrementOTPAttempts(ctx, email)
}

func (m *Repository) DeleteOTP(ctx context.Context, email string) error {
	if m.DeleteOTPError != nil {
		return m.DeleteOTPError
	}
	return m.FullRepository.DeleteOTP(ctx, email)
}

func (m *Repository) CreateSession(ctx context.Context, rec repository.SessionRecord) error {
	if m.CreateSessionError != nil {
		return m.CreateSessionError
	}
	return m.FullRepository.CreateSession(ctx, rec)
}

func (m *Repository) GetSession(ctx context.Context, tokenHash string) (*repository.SessionRecord, error) {
	if m.GetSessionError != nil {
		return nil, m.GetSessionError
	}
	return m.FullRepository.GetSession(ctx, tokenHash)
}

func (m *Repository) DeleteSession(ctx context.Context, tokenHash string) error {
	if m.DeleteSessionError != nil {
		return m.DeleteSessionError
	}
	return m.FullRepository.DeleteSession(ctx, tokenHash)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}

func (m *Repository) GetStats(ctx context.Context) (*repository.Stats, error) {
	if m.GetStatsError != nil {
		return nil, m.GetStatsError
	}
	return m.FullRepository.GetStats(ctx)
}
