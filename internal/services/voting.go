package services

import (
	"context"

	"github.com/abrezinsky/consensus/internal/errors"
	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/repository"
)

// VotingServiceRepository defines the repository methods needed by VotingService
type VotingServiceRepository interface {
	repository.CategoryRepository
	repository.SubmissionRepository
	repository.VoteRepository
}

// VotingService handles vote-related business logic
type VotingService struct {
	log       logger.Logger
	repo      VotingServiceRepository
	publisher Publisher
}

// NewVotingService creates a new VotingService
func NewVotingService(log logger.Logger, repo VotingServiceRepository) *VotingService {
	return &VotingService{log: log, repo: repo}
}

// SetPublisher sets the publisher for score changes
func (s *VotingService) SetPublisher(p Publisher) {
	s.publisher = p
}

// CastVote records one judgment by voterID on a submission. Each voter
// judges each submission at most once.
func (s *VotingService) CastVote(ctx context.Context, voterID, submissionID string, value models.VoteValue) (*models.Vote, error) {
	if !value.Valid() {
		return nil, ErrInvalidVoteValue
	}

	sub, err := s.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionApproved {
		return nil, ErrNotEligible
	}

	cat, err := s.repo.GetCategory(ctx, sub.CategoryID)
	if err != nil {
		return nil, err
	}
	if cat.Status != models.CategoryVoting {
		return nil, ErrVotingClosed
	}

	vote := &models.Vote{
		SubmissionID: submissionID,
		VoterID:      voterID,
		Value:        value,
	}
	if err := s.repo.InsertVote(ctx, vote); err != nil {
		if errors.IsKind(err, errors.ErrConflict) {
			return nil, ErrAlreadyVoted
		}
		return nil, err
	}

	s.log.Debug("Vote recorded", "submission_id", submissionID, "voter_id", voterID, "value", value)
	return vote, nil
}

// UpdateSubmissionScore atomically adds delta (+1 or -1) to a submission's
// score and notifies leaderboard subscribers
func (s *VotingService) UpdateSubmissionScore(ctx context.Context, submissionID string, delta int) (*repository.ScoreUpdate, error) {
	if delta != 1 && delta != -1 {
		return nil, ErrInvalidDelta
	}

	update, err := s.repo.ApplyScoreDelta(ctx, submissionID, delta)
	if err != nil {
		return nil, err
	}

	s.log.Debug("Score updated", "submission_id", submissionID, "delta", delta, "score", update.Score)
	if s.publisher != nil {
		s.publisher.Publish(models.LeaderboardTopic(update.CategoryID), models.ChangeEvent{
			Type:       models.EventUpdate,
			Table:      "submissions",
			CategoryID: update.CategoryID,
			Record:     update,
		})
	}
	return update, nil
}
