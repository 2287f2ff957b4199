package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/repository"
)

// MaxDisplayNameLength is the display name limit in characters
const MaxDisplayNameLength = 50

// ProfileService handles the signed-in user's public profile
type ProfileService struct {
	log  logger.Logger
	repo repository.ProfileRepository
}

// NewProfileService creates a new ProfileService
func NewProfileService(log logger.Logger, repo repository.ProfileRepository) *ProfileService {
	return &ProfileService{log: log, repo: repo}
}

// GetProfile returns a profile by ID
func (s *ProfileService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	return s.repo.GetProfile(ctx, id)
}

// UpdateProfile changes display name and avatar. Nil fields are left as they are.
func (s *ProfileService) UpdateProfile(ctx context.Context, id string, displayName, avatarURL *string) (*models.Profile, error) {
	if displayName != nil {
		name := norm.NFC.String(strings.TrimSpace(*displayName))
		if utf8.RuneCountInString(name) > MaxDisplayNameLength {
			return nil, ErrDisplayNameLength
		}
		displayName = &name
	}
	if avatarURL != nil {
		u := strings.TrimSpace(*avatarURL)
		avatarURL = &u
	}
	if err := s.repo.UpdateProfile(ctx, id, displayName, avatarURL); err != nil {
		return nil, err
	}
	return s.repo.GetProfile(ctx, id)
}
