package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// SeedProfile creates a profile for email and returns it
func SeedProfile(t *testing.T, repo repository.ProfileRepository, email string) *models.Profile {
	t.Helper()
	p, err := repo.UpsertProfileByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("failed to seed profile %s: %v", email, err)
	}
	return p
}

// SeedCategory creates a category in the given status with windows around now
func SeedCategory(t *testing.T, repo repository.CategoryRepository, name string, status models.CategoryStatus) *models.Category {
	t.Helper()
	now := time.Now().UTC()
	cat := &models.Category{
		Name:            name,
		Emoji:           "📷",
		Status:          status,
		SubmissionStart: now.Add(-48 * time.Hour),
		SubmissionEnd:   now.Add(-24 * time.Hour),
		VotingStart:     now.Add(-24 * time.Hour),
		VotingEnd:       now.Add(24 * time.Hour),
	}
	if err := repo.CreateCategory(context.Background(), cat); err != nil {
		t.Fatalf("failed to seed category %s: %v", name, err)
	}
	return cat
}

// SeedSubmission creates an approved submission owned by userID
func SeedSubmission(t *testing.T, repo repository.SubmissionRepository, categoryID, userID string) *models.Submission {
	t.Helper()
	sub := &models.Submission{
		CategoryID: categoryID,
		UserID:     userID,
		PhotoURL:   "http://localhost/storage/v1/object/public/photos/submissions/" + categoryID + "/" + userID + ".jpg",
		Status:     models.SubmissionApproved,
	}
	if err := repo.CreateSubmission(context.Background(), sub); err != nil {
		t.Fatalf("failed to seed submission: %v", err)
	}
	return sub
}
