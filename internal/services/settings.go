package services

import (
	"context"

	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/repository"
)

// SettingInitialSubmissionStatus is the moderation status new entries start in
const SettingInitialSubmissionStatus = "initial_submission_status"

// SettingsService handles settings-related business logic
type SettingsService struct {
	log  logger.Logger
	repo repository.SettingsRepository
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{log: log, repo: repo}
}

// InitialSubmissionStatus returns the configured status for new entries,
// falling back to approved when unset or unreadable
func (s *SettingsService) InitialSubmissionStatus(ctx context.Context) models.SubmissionStatus {
	value, err := s.repo.GetSetting(ctx, SettingInitialSubmissionStatus)
	if err != nil {
		s.log.Warn("Failed to read initial submission status", "error", err)
		return models.SubmissionApproved
	}
	status := models.SubmissionStatus(value)
	if !status.Valid() {
		return models.SubmissionApproved
	}
	return status
}

// SetInitialSubmissionStatus changes the status new entries start in
func (s *SettingsService) SetInitialSubmissionStatus(ctx context.Context, status models.SubmissionStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if err := s.repo.SetSetting(ctx, SettingInitialSubmissionStatus, string(status)); err != nil {
		return err
	}
	s.log.Info("Initial submission status changed", "status", status)
	return nil
}

// GetStats returns table counts for the operator
func (s *SettingsService) GetStats(ctx context.Context) (*repository.Stats, error) {
	return s.repo.GetStats(ctx)
}
