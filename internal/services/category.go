package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/repository"
)

// DefaultEmoji is used for categories created without one
const DefaultEmoji = "📸"

// CategoryService handles category-related business logic
type CategoryService struct {
	log       logger.Logger
	repo      repository.CategoryRepository
	baseURL   string
	publisher Publisher
	now       func() time.Time
}

// NewCategoryService creates a new CategoryService. baseURL is the public
// origin used for share links.
func NewCategoryService(log logger.Logger, repo repository.CategoryRepository, baseURL string) *CategoryService {
	return &CategoryService{
		log:     log,
		repo:    repo,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// SetPublisher sets the publisher for category status changes
func (s *CategoryService) SetPublisher(p Publisher) {
	s.publisher = p
}

// CategoryInput represents a category for create operations
type CategoryInput struct {
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Emoji           string                `json:"emoji"`
	Status          models.CategoryStatus `json:"status"`
	SubmissionStart time.Time             `json:"submission_start"`
	SubmissionEnd   time.Time             `json:"submission_end"`
	VotingStart     time.Time             `json:"voting_start"`
	VotingEnd       time.Time             `json:"voting_end"`
}

// ListCategories returns categories, newest first, optionally filtered by status
func (s *CategoryService) ListCategories(ctx context.Context, status models.CategoryStatus) ([]models.Category, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListCategories(ctx, status)
}

// ListActiveCategories returns the categories that are not closed, oldest
// first, as shown on the landing screen
func (s *CategoryService) ListActiveCategories(ctx context.Context) ([]models.Category, error) {
	all, err := s.repo.ListCategories(ctx, "")
	if err != nil {
		return nil, err
	}
	active := make([]models.Category, 0, len(all))
	for _, c := range all {
		if c.Status != models.CategoryClosed {
			active = append(active, c)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active, nil
}

// GetCategory returns a category by ID
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return s.repo.GetCategory(ctx, id)
}

// CreateCategory validates and stores a new category. Without an explicit
// status the category starts in the status its windows imply right now.
func (s *CategoryService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if in.SubmissionStart.IsZero() || in.VotingEnd.IsZero() ||
		in.SubmissionEnd.Before(in.SubmissionStart) ||
		in.VotingStart.Before(in.SubmissionEnd) ||
		in.VotingEnd.Before(in.VotingStart) {
		return nil, ErrInvalidWindows
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	emoji := strings.TrimSpace(in.Emoji)
	if emoji == "" {
		emoji = DefaultEmoji
	}

	cat := &models.Category{
		Name:            name,
		Description:     strings.TrimSpace(in.Description),
		Emoji:           emoji,
		Status:          in.Status,
		SubmissionStart: in.SubmissionStart.UTC(),
		SubmissionEnd:   in.SubmissionEnd.UTC(),
		VotingStart:     in.VotingStart.UTC(),
		VotingEnd:       in.VotingEnd.UTC(),
	}
	if cat.Status == "" {
		cat.Status = StatusAt(cat, s.now())
	}

	if err := s.repo.CreateCategory(ctx, cat); err != nil {
		return nil, err
	}
	s.log.Info("Category created", "id", cat.ID, "name", cat.Name, "status", cat.Status)
	s.publish(cat)
	return cat, nil
}

// SetStatus overrides a category's status
func (s *CategoryService) SetStatus(ctx context.Context, id string, status models.CategoryStatus) (*models.Category, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.repo.UpdateCategoryStatus(ctx, id, status); err != nil {
		return nil, err
	}
	cat, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("Category status set", "id", id, "status", status)
	s.publish(cat)
	return cat, nil
}

// AdvanceStatuses moves categories forward through
// upcoming → submission → voting → closed as their windows pass.
// Statuses never move backwards. Returns the categories that changed.
func (s *CategoryService) AdvanceStatuses(ctx context.Context, now time.Time) ([]models.Category, error) {
	due, err := s.repo.ListCategoriesDueForTransition(ctx, now)
	if err != nil {
		return nil, err
	}

	var changed []models.Category
	for _, cat := range due {
		target := StatusAt(&cat, now)
		if statusRank(target) <= statusRank(cat.Status) {
			continue
		}
		if err := s.repo.UpdateCategoryStatus(ctx, cat.ID, target); err != nil {
			s.log.Error("Failed to advance category status", "id", cat.ID, "error", err)
			continue
		}
		s.log.Info("Category status advanced", "id", cat.ID, "from", cat.Status, "to", target)
		cat.Status = target
		s.publish(&cat)
		changed = append(changed, cat)
	}
	return changed, nil
}

// DeepLink returns the shareable landing URL for a category
func (s *CategoryService) DeepLink(id string) string {
	return s.baseURL + "/c/" + id
}

// ShareQR returns a PNG QR code for the category's landing link
func (s *CategoryService) ShareQR(ctx context.Context, id string) ([]byte, error) {
	if _, err := s.repo.GetCategory(ctx, id); err != nil {
		return nil, err
	}
	return qrcode.Encode(s.DeepLink(id), qrcode.Medium, 256)
}

func (s *CategoryService) publish(cat *models.Category) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(models.CategoriesTopic, models.ChangeEvent{
		Type:       models.EventUpdate,
		Table:      "categories",
		CategoryID: cat.ID,
		Record:     cat,
	})
}

// StatusAt returns the status a category's windows imply at now
func StatusAt(cat *models.Category, now time.Time) models.CategoryStatus {
	switch {
	case !now.Before(cat.VotingEnd):
		return models.CategoryClosed
	case !now.Before(cat.VotingStart):
		return models.CategoryVoting
	case !now.Before(cat.SubmissionStart):
		return models.CategorySubmission
	default:
		return models.CategoryUpcoming
	}
}

func statusRank(s models.CategoryStatus) int {
	switch s {
	case models.CategorySubmission:
		return 1
	case models.CategoryVoting:
		return 2
	case models.CategoryClosed:
		return 3
	default:
		return 0
	}
}
