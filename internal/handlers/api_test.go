package handlers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/abrezinsky/consensus/internal/handlers"
	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/repository"
	"github.com/abrezinsky/consensus/internal/testutil"
)

// uploadRequest builds a multipart photo upload
func uploadRequest(t *testing.T, path, token, contentType string, photo []byte, caption string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if photo != nil {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="photo"; filename="photo.jpg"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("CreatePart failed: %v", err)
		}
		part.Write(photo)
	}
	if caption != "" {
		mw.WriteField("caption", caption)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func (e *testEnv) upload(path, token, contentType string, photo []byte, caption string) *httptest.ResponseRecorder {
	e.t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, uploadRequest(e.t, path, token, contentType, photo, caption))
	return w
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp handlers.HealthResponse
	decode(t, w, &resp)
	if resp.Status != "ok" {
		t.Errorf("expected ok, got %q", resp.Status)
	}
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(http.MethodPost, "/auth/v1/otp", "", map[string]string{"email": "not-an-email"})
	expectError(t, w, http.StatusBadRequest, handlers.ErrCodeValidation)

	w = env.request(http.MethodPost, "/auth/v1/otp", "", "")
	expectError(t, w, http.StatusBadRequest, handlers.ErrCodeBadRequest)

	w = env.request(http.MethodPost, "/auth/v1/otp", "", map[string]string{"email": "ada@example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.request(http.MethodPost, "/auth/v1/verify", "", map[string]string{"email": "ada@example.com", "token": "00000000"})
	expectError(t, w, http.StatusUnauthorized, handlers.ErrCodeUnauthorized)

	token, userID := env.signIn("ada@example.com")
	if token == "" || userID == "" {
		t.Fatal("expected a session")
	}

	w = env.request(http.MethodGet, "/rest/v1/profile", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var profile models.Profile
	decode(t, w, &profile)
	if profile.ID != userID {
		t.Errorf("expected profile %s, got %s", userID, profile.ID)
	}

	if w := env.request(http.MethodPost, "/auth/v1/logout", token, nil); w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	w = env.request(http.MethodGet, "/rest/v1/profile", token, nil)
	expectError(t, w, http.StatusUnauthorized, handlers.ErrCodeUnauthorized)
}

func TestUserRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)
	paths := []struct{ method, path string }{
		{http.MethodGet, "/rest/v1/categories"},
		{http.MethodGet, "/rest/v1/categories/x/leaderboard"},
		{http.MethodPost, "/rest/v1/votes"},
		{http.MethodPost, "/rest/v1/rpc/update_submission_score"},
		{http.MethodPatch, "/rest/v1/profile"},
	}
	for _, p := range paths {
		w := env.request(p.method, p.path, "bogus-token", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, w.Code)
		}
	}
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signIn("ada@example.com")
	voting := testutil.SeedCategory(t, env.repo, "Voting", models.CategoryVoting)
	testutil.SeedCategory(t, env.repo, "Closed", models.CategoryClosed)

	w := env.request(http.MethodGet, "/rest/v1/categories", token, nil)
	var all []models.Category
	decode(t, w, &all)
	if len(all) != 2 {
		t.Errorf("expected 2 categories, got %d", len(all))
	}

	w = env.request(http.MethodGet, "/rest/v1/categories?status=voting", token, nil)
	var filtered []models.Category
	decode(t, w, &filtered)
	if len(filtered) != 1 || filtered[0].ID != voting.ID {
		t.Errorf("unexpected filtered categories %+v", filtered)
	}

	w = env.request(http.MethodGet, "/rest/v1/categories?active=true", token, nil)
	var active []models.Category
	decode(t, w, &active)
	if len(active) != 1 {
		t.Errorf("expected 1 active category, got %d", len(active))
	}

	w = env.request(http.MethodGet, "/rest/v1/categories?status=archived", token, nil)
	expectError(t, w, http.StatusBadRequest, "INVALID_STATUS")

	w = env.request(http.MethodGet, "/rest/v1/categories/"+voting.ID, token, nil)
	var got models.Category
	decode(t, w, &got)
	if got.Status != models.CategoryVoting {
		t.Errorf("expected stored status, got %s", got.Status)
	}

	w = env.request(http.MethodGet, "/rest/v1/categories/missing", token, nil)
	expectError(t, w, http.StatusNotFound, handlers.ErrCodeNotFound)

	w = env.request(http.MethodGet, "/rest/v1/categories/"+voting.ID+"/qr", token, nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("expected PNG, got %d %s", w.Code, w.Header().Get("Content-Type"))
	}
}

func TestLanding(t *testing.T) {
	env := newTestEnv(t)
	cat := testutil.SeedCategory(t, env.repo, "Golden Hour", models.CategorySubmission)

	w := env.request(http.MethodGet, "/c/"+cat.ID, "", nil)
	var resp handlers.LandingResponse
	decode(t, w, &resp)
	if resp.Action != "submit" || resp.Link != "http://localhost:8080/c/"+cat.ID {
		t.Errorf("unexpected landing %+v", resp)
	}

	req := httptest.NewRequest(http.MethodGet, "/c/"+cat.ID, nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "<h1>Golden Hour</h1>") {
		t.Errorf("expected rendered page, got %q", rec.Body.String())
	}

	w = env.request(http.MethodGet, "/c/missing", "", nil)
	expectError(t, w, http.StatusNotFound, handlers.ErrCodeNotFound)

	w = env.request(http.MethodGet, "/static/css/landing.css", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected static file, got %d", w.Code)
	}
}

func TestSubmitAndServePhoto(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.signIn("ada@example.com")
	cat := testutil.SeedCategory(t, env.repo, "A", models.CategorySubmission)
	path := "/rest/v1/categories/" + cat.ID + "/submissions"
	photo := []byte("\xff\xd8\xff\xe0 fake jpeg")

	w := env.upload(path, token, "image/jpeg", photo, "  Sunset  ")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var sub models.Submission
	decode(t, w, &sub)
	if sub.UserID != userID || sub.Score != 0 || sub.Caption == nil || *sub.Caption != "Sunset" {
		t.Errorf("unexpected submission %+v", sub)
	}

	// One entry per user per category
	w = env.upload(path, token, "image/jpeg", photo, "")
	expectError(t, w, http.StatusConflict, "ALREADY_SUBMITTED")

	// The stored photo is publicly served
	served := strings.TrimPrefix(sub.PhotoURL, "http://localhost:8080")
	w = env.request(http.MethodGet, served, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected photo, got %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	if !bytes.Equal(body, photo) {
		t.Error("served photo differs from upload")
	}

	w = env.request(http.MethodGet, "/storage/v1/object/public/other/"+strings.TrimPrefix(served, "/storage/v1/object/public/photos/"), "", nil)
	expectError(t, w, http.StatusNotFound, handlers.ErrCodeNotFound)
}

func TestSubmit_Errors(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signIn("ada@example.com")
	open := testutil.SeedCategory(t, env.repo, "Open", models.CategorySubmission)
	voting := testutil.SeedCategory(t, env.repo, "Voting", models.CategoryVoting)
	path := "/rest/v1/categories/" + open.ID + "/submissions"

	w := env.upload(path, token, "image/png", nil, "caption only")
	expectError(t, w, http.StatusBadRequest, "NO_PHOTO")

	w = env.upload(path, token, "text/plain", []byte("hello"), "")
	expectError(t, w, http.StatusBadRequest, handlers.ErrCodeValidation)

	w = env.upload(path, token, "image/png", []byte("png"), strings.Repeat("x", 101))
	expectError(t, w, http.StatusBadRequest, "CAPTION_TOO_LONG")

	w = env.upload(path, token, "image/png", bytes.Repeat([]byte("x"), 2048), "")
	if w.Code != http.StatusBadRequest && w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected oversize upload to be rejected, got %d", w.Code)
	}

	w = env.upload("/rest/v1/categories/"+voting.ID+"/submissions", token, "image/png", []byte("png"), "")
	expectError(t, w, http.StatusConflict, "SUBMISSIONS_CLOSED")

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("not multipart"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-multipart body, got %d", rec.Code)
	}
}

func TestVotingAndLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signIn("voter@example.com")
	cat := testutil.SeedCategory(t, env.repo, "A", models.CategoryVoting)
	alice := testutil.SeedProfile(t, env.repo, "alice@example.com")
	bob := testutil.SeedProfile(t, env.repo, "bob@example.com")
	first := testutil.SeedSubmission(t, env.repo, cat.ID, alice.ID)
	second := testutil.SeedSubmission(t, env.repo, cat.ID, bob.ID)

	w := env.request(http.MethodGet, "/rest/v1/categories/"+cat.ID+"/submissions", token, nil)
	var eligible []models.Submission
	decode(t, w, &eligible)
	if len(eligible) != 2 {
		t.Fatalf("expected 2 eligible entries, got %d", len(eligible))
	}

	w = env.request(http.MethodPost, "/rest/v1/votes", token, handlers.VoteRequest{SubmissionID: second.ID, Value: models.VoteYes})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	w = env.request(http.MethodPost, "/rest/v1/rpc/update_submission_score", token, handlers.ScoreDeltaRequest{SubmissionID: second.ID, Delta: 1})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var update repository.ScoreUpdate
	decode(t, w, &update)
	if update.Score != 1 || update.SubmissionID != second.ID {
		t.Errorf("unexpected score update %+v", update)
	}

	w = env.request(http.MethodPost, "/rest/v1/votes", token, handlers.VoteRequest{SubmissionID: second.ID, Value: models.VoteNo})
	expectError(t, w, http.StatusConflict, "ALREADY_VOTED")

	w = env.request(http.MethodPost, "/rest/v1/votes", token, handlers.VoteRequest{SubmissionID: first.ID, Value: 3})
	expectError(t, w, http.StatusBadRequest, "INVALID_VOTE")

	w = env.request(http.MethodPost, "/rest/v1/votes", token, handlers.VoteRequest{})
	expectError(t, w, http.StatusBadRequest, handlers.ErrCodeBadRequest)

	w = env.request(http.MethodPost, "/rest/v1/rpc/update_submission_score", token, handlers.ScoreDeltaRequest{SubmissionID: first.ID, Delta: 5})
	expectError(t, w, http.StatusBadRequest, "INVALID_DELTA")

	w = env.request(http.MethodPost, "/rest/v1/rpc/update_submission_score", token, handlers.ScoreDeltaRequest{SubmissionID: "missing", Delta: 1})
	expectError(t, w, http.StatusNotFound, handlers.ErrCodeNotFound)

	w = env.request(http.MethodGet, "/rest/v1/categories/"+cat.ID+"/leaderboard", token, nil)
	var board []models.Submission
	decode(t, w, &board)
	if len(board) != 2 || board[0].ID != second.ID || board[1].ID != first.ID {
		t.Errorf("unexpected leaderboard order %+v", board)
	}

	w = env.request(http.MethodGet, "/rest/v1/categories/"+cat.ID+"/leaderboard?limit=1", token, nil)
	var top []models.Submission
	decode(t, w, &top)
	if len(top) != 1 {
		t.Errorf("expected 1 row, got %d", len(top))
	}

	w = env.request(http.MethodGet, "/rest/v1/categories/"+cat.ID+"/leaderboard?limit=abc", token, nil)
	expectError(t, w, http.StatusBadRequest, handlers.ErrCodeBadRequest)
}

func TestVote_ClosedCategory(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signIn("voter@example.com")
	cat := testutil.SeedCategory(t, env.repo, "A", models.CategoryClosed)
	owner := testutil.SeedProfile(t, env.repo, "owner@example.com")
	sub := testutil.SeedSubmission(t, env.repo, cat.ID, owner.ID)

	w := env.request(http.MethodPost, "/rest/v1/votes", token, handlers.VoteRequest{SubmissionID: sub.ID, Value: models.VoteYes})
	expectError(t, w, http.StatusConflict, "VOTING_CLOSED")
}

func TestProfileUpdate(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signIn("ada@example.com")

	w := env.request(http.MethodPatch, "/rest/v1/profile", token, map[string]string{"display_name": " Ada "})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var profile models.Profile
	decode(t, w, &profile)
	if profile.Name() != "Ada" {
		t.Errorf("expected Ada, got %q", profile.Name())
	}

	w = env.request(http.MethodPatch, "/rest/v1/profile", token, map[string]string{"display_name": strings.Repeat("n", 51)})
	expectError(t, w, http.StatusBadRequest, "DISPLAY_NAME_TOO_LONG")

	w = env.request(http.MethodPatch, "/rest/v1/profile", token, "{bad json")
	expectError(t, w, http.StatusBadRequest, handlers.ErrCodeBadRequest)
}

func TestAdmin(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(http.MethodPost, "/rest/v1/admin/categories", "", map[string]string{"name": "x"})
	expectError(t, w, http.StatusUnauthorized, handlers.ErrCodeUnauthorized)

	w = env.request(http.MethodPost, "/admin/login", "", map[string]string{"password": "wrong"})
	expectError(t, w, http.StatusUnauthorized, handlers.ErrCodeUnauthorized)

	cookie := env.adminLogin()

	start := time.Now().Add(-time.Hour).UTC()
	w = env.request(http.MethodPost, "/rest/v1/admin/categories", "", map[string]interface{}{
		"name":             "Golden Hour",
		"submission_start": start,
		"submission_end":   start.Add(24 * time.Hour),
		"voting_start":     start.Add(24 * time.Hour),
		"voting_end":       start.Add(48 * time.Hour),
	}, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var cat models.Category
	decode(t, w, &cat)
	if cat.Status != models.CategorySubmission {
		t.Errorf("expected submission status, got %s", cat.Status)
	}

	w = env.request(http.MethodPut, "/rest/v1/admin/categories/"+cat.ID+"/status", "", map[string]string{"status": "voting"}, cookie)
	decode(t, w, &cat)
	if cat.Status != models.CategoryVoting {
		t.Errorf("expected voting, got %s", cat.Status)
	}

	w = env.request(http.MethodPut, "/rest/v1/admin/settings", "", map[string]string{"initial_submission_status": "pending"}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = env.request(http.MethodGet, "/rest/v1/admin/settings", "", nil, cookie)
	var settings handlers.SettingsResponse
	decode(t, w, &settings)
	if settings.InitialSubmissionStatus != models.SubmissionPending {
		t.Errorf("expected pending, got %s", settings.InitialSubmissionStatus)
	}
	w = env.request(http.MethodPut, "/rest/v1/admin/settings", "", map[string]string{"initial_submission_status": "maybe"}, cookie)
	expectError(t, w, http.StatusBadRequest, "INVALID_STATUS")

	w = env.request(http.MethodGet, "/rest/v1/admin/stats", "", nil, cookie)
	var stats repository.Stats
	decode(t, w, &stats)
	if stats.Categories != 1 {
		t.Errorf("expected 1 category, got %d", stats.Categories)
	}

	if w := env.request(http.MethodPost, "/admin/logout", "", nil, cookie); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	w = env.request(http.MethodGet, "/rest/v1/admin/stats", "", nil, cookie)
	expectError(t, w, http.StatusUnauthorized, handlers.ErrCodeUnauthorized)
}

func TestAdmin_Moderation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.adminLogin()
	ctx := context.Background()

	cat := testutil.SeedCategory(t, env.repo, "A", models.CategorySubmission)
	owner := testutil.SeedProfile(t, env.repo, "owner@example.com")
	sub := testutil.SeedSubmission(t, env.repo, cat.ID, owner.ID)
	env.repo.SetSubmissionStatus(ctx, sub.ID, models.SubmissionPending)

	w := env.request(http.MethodGet, "/rest/v1/admin/categories/"+cat.ID+"/submissions?status=pending", "", nil, cookie)
	var queue []models.Submission
	decode(t, w, &queue)
	if len(queue) != 1 || queue[0].ID != sub.ID {
		t.Fatalf("unexpected queue %+v", queue)
	}

	w = env.request(http.MethodPut, "/rest/v1/admin/submissions/"+sub.ID+"/status", "", map[string]string{"status": "approved"}, cookie)
	var moderated models.Submission
	decode(t, w, &moderated)
	if moderated.Status != models.SubmissionApproved {
		t.Errorf("expected approved, got %s", moderated.Status)
	}

	w = env.request(http.MethodPut, "/rest/v1/admin/submissions/missing/status", "", map[string]string{"status": "approved"}, cookie)
	expectError(t, w, http.StatusNotFound, handlers.ErrCodeNotFound)
}
