package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"golang.org/x/crypto/bcrypt"

	"github.com/abrezinsky/consensus/internal/auth"
	"github.com/abrezinsky/consensus/internal/handlers"
	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/repository"
	"github.com/abrezinsky/consensus/internal/services"
	"github.com/abrezinsky/consensus/internal/storage"
	"github.com/abrezinsky/consensus/internal/testutil"
)

const (
	testCode          = "12345678"
	testAdminPassword = "test-password"
)

// testEnv is a fully wired API over an in-memory database
type testEnv struct {
	t      *testing.T
	repo   *repository.Repository
	store  *storage.LocalStore
	h      *handlers.Handlers
	router http.Handler
}

func testTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"landing.html": &fstest.MapFile{Data: []byte(`<h1>{{.Category.Name}}</h1><p>{{.Action}}</p>`)},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Nop()
	repo := testutil.NewTestRepository(t)
	store, err := storage.NewLocalStore(t.TempDir(), "photos", "http://localhost:8080", 1024)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	settings := services.NewSettingsService(log, repo)
	otp := auth.NewService(log, repo, auth.LogMailer{Log: log},
		auth.WithCodeGenerator(func() (string, error) { return testCode, nil }),
		auth.WithBcryptCost(bcrypt.MinCost),
	)

	h, err := handlers.New(handlers.Deps{
		Category:    services.NewCategoryService(log, repo, "http://localhost:8080"),
		Submission:  services.NewSubmissionService(log, repo, store, settings),
		Voting:      services.NewVotingService(log, repo),
		Leaderboard: services.NewLeaderboardService(log, repo),
		Profile:     services.NewProfileService(log, repo),
		Settings:    settings,
		Auth:        otp,
		Admin:       auth.NewAdmin(testAdminPassword),
		Store:       store,
		DB:          repo,
		Log:         log,
	}, testTemplatesFS(), handlers.NewStaticServer(fstest.MapFS{
		"css/landing.css": &fstest.MapFile{Data: []byte("body{}")},
	}))
	if err != nil {
		t.Fatalf("handlers.New failed: %v", err)
	}
	return &testEnv{t: t, repo: repo, store: store, h: h, router: h.Router()}
}

// request sends a JSON request with an optional bearer token
func (e *testEnv) request(method, path, token string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signIn runs the two-step code flow and returns the access token and user ID
func (e *testEnv) signIn(email string) (string, string) {
	e.t.Helper()
	if w := e.request(http.MethodPost, "/auth/v1/otp", "", map[string]string{"email": email}); w.Code != http.StatusOK {
		e.t.Fatalf("otp request failed: %d %s", w.Code, w.Body.String())
	}
	w := e.request(http.MethodPost, "/auth/v1/verify", "", map[string]string{"email": email, "token": testCode})
	if w.Code != http.StatusOK {
		e.t.Fatalf("verify failed: %d %s", w.Code, w.Body.String())
	}
	var session auth.Session
	decode(e.t, w, &session)
	return session.AccessToken, session.User.ID
}

// adminLogin returns an operator session cookie
func (e *testEnv) adminLogin() *http.Cookie {
	e.t.Helper()
	w := e.request(http.MethodPost, "/admin/login", "", map[string]string{"password": testAdminPassword})
	if w.Code != http.StatusOK {
		e.t.Fatalf("admin login failed: %d %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.AdminCookieName {
			return c
		}
	}
	e.t.Fatal("admin cookie not set")
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(target); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

// expectError checks status and error code of an error response
func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
		return
	}
	var apiErr handlers.APIError
	decode(t, w, &apiErr)
	if apiErr.Code != code {
		t.Errorf("expected code %s, got %s (%s)", code, apiErr.Code, apiErr.Message)
	}
}
