package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/abrezinsky/consensus/internal/errors"
	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/repository"
	"github.com/abrezinsky/consensus/internal/storage"
)

// MaxCaptionLength is the caption limit in characters
const MaxCaptionLength = 100

// SubmissionServiceRepository defines the repository methods needed by SubmissionService
type SubmissionServiceRepository interface {
	repository.CategoryRepository
	repository.SubmissionRepository
}

// SubmissionService handles photo entries
type SubmissionService struct {
	log       logger.Logger
	repo      SubmissionServiceRepository
	store     storage.Store
	settings  SettingsServicer
	publisher Publisher
	now       func() time.Time
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(log logger.Logger, repo SubmissionServiceRepository, store storage.Store, settings SettingsServicer) *SubmissionService {
	return &SubmissionService{
		log:      log,
		repo:     repo,
		store:    store,
		settings: settings,
		now:      time.Now,
	}
}

// SetPublisher sets the publisher for new and moderated entries
func (s *SubmissionService) SetPublisher(p Publisher) {
	s.publisher = p
}

// ListEligible returns the approved entries of a category in creation order,
// the source set for a voting session
func (s *SubmissionService) ListEligible(ctx context.Context, categoryID string) ([]models.Submission, error) {
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.repo.ListSubmissions(ctx, repository.SubmissionFilter{
		CategoryID: categoryID,
		Status:     models.SubmissionApproved,
		OrderBy:    repository.OrderCreated,
	})
}

// ListForModeration returns every entry of a category, optionally narrowed
// to one moderation status, oldest first
func (s *SubmissionService) ListForModeration(ctx context.Context, categoryID string, status models.SubmissionStatus) ([]models.Submission, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.repo.ListSubmissions(ctx, repository.SubmissionFilter{
		CategoryID: categoryID,
		Status:     status,
		OrderBy:    repository.OrderCreated,
	})
}

// Submit uploads a photo and records the entry. The category must be
// accepting submissions and each user gets one entry per category.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (*models.Submission, error) {
	if in.Photo == nil {
		return nil, ErrNoPhoto
	}
	caption, err := NormalizeCaption(in.Caption)
	if err != nil {
		return nil, err
	}

	cat, err := s.repo.GetCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if cat.Status != models.CategorySubmission {
		return nil, ErrSubmissionsClosed
	}

	existing, err := s.repo.ListSubmissions(ctx, repository.SubmissionFilter{
		CategoryID: in.CategoryID,
		UserID:     in.UserID,
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrAlreadySubmitted
	}

	objectPath := storage.SubmissionPath(in.CategoryID, in.UserID, in.ContentType, s.now())
	photoURL, err := s.store.Put(ctx, objectPath, in.ContentType, in.Photo)
	if err != nil {
		return nil, err
	}

	sub := &models.Submission{
		CategoryID: in.CategoryID,
		UserID:     in.UserID,
		PhotoURL:   photoURL,
		Caption:    caption,
		Score:      0,
		Status:     s.settings.InitialSubmissionStatus(ctx),
	}
	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		if errors.IsKind(err, errors.ErrConflict) {
			return nil, ErrAlreadySubmitted
		}
		return nil, err
	}

	s.log.Info("Submission created", "id", sub.ID, "category_id", sub.CategoryID, "status", sub.Status)
	if sub.Status == models.SubmissionApproved {
		s.publish(models.EventInsert, sub)
	}
	return sub, nil
}

// Moderate sets the moderation status of an entry
func (s *SubmissionService) Moderate(ctx context.Context, id string, status models.SubmissionStatus) (*models.Submission, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.repo.SetSubmissionStatus(ctx, id, status); err != nil {
		return nil, err
	}
	sub, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("Submission moderated", "id", id, "status", status)
	s.publish(models.EventUpdate, sub)
	return sub, nil
}

func (s *SubmissionService) publish(eventType string, sub *models.Submission) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(models.LeaderboardTopic(sub.CategoryID), models.ChangeEvent{
		Type:       eventType,
		Table:      "submissions",
		CategoryID: sub.CategoryID,
		Record:     sub,
	})
}

// NormalizeCaption trims and NFC-normalizes a caption. Blank captions
// become nil.
func NormalizeCaption(caption string) (*string, error) {
	c := norm.NFC.String(strings.TrimSpace(caption))
	if c == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(c) > MaxCaptionLength {
		return nil, ErrCaptionTooLong
	}
	return &c, nil
}
