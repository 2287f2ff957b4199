package services

import (
	"context"

	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
)

// MaxLeaderboardSize caps the number of ranked entries returned
const MaxLeaderboardSize = 50

// LeaderboardServiceRepository defines the repository methods needed by LeaderboardService
type LeaderboardServiceRepository interface {
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListLeaderboard(ctx context.Context, categoryID string, limit int) ([]models.Submission, error)
}

// LeaderboardService ranks the entries of a category
type LeaderboardService struct {
	log  logger.Logger
	repo LeaderboardServiceRepository
}

// NewLeaderboardService creates a new LeaderboardService
func NewLeaderboardService(log logger.Logger, repo LeaderboardServiceRepository) *LeaderboardService {
	return &LeaderboardService{log: log, repo: repo}
}

// Leaderboard returns up to limit approved entries ordered by score
// descending; equal scores keep the earlier entry first
func (s *LeaderboardService) Leaderboard(ctx context.Context, categoryID string, limit int) ([]models.Submission, error) {
	if limit <= 0 || limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.repo.ListLeaderboard(ctx, categoryID, limit)
}
