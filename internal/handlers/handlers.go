package handlers

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"

	"github.com/abrezinsky/consensus/internal/auth"
	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/services"
)

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// AuthServicer issues one-time codes and resolves user sessions
type AuthServicer interface {
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (*auth.Session, error)
	ValidateSession(ctx context.Context, token string) (string, error)
	Logout(ctx context.Context, token string) error
}

// ObjectStore serves stored photos
type ObjectStore interface {
	Open(objectPath string) (*os.File, error)
	Bucket() string
	MaxBytes() int64
}

// RealtimeHub upgrades realtime connections
type RealtimeHub interface {
	ServeWs(w http.ResponseWriter, r *http.Request)
}

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Templates holds all parsed HTML templates
type Templates struct {
	Landing *template.Template
}

// Deps are the collaborators the HTTP layer dispatches to
type Deps struct {
	Category    services.CategoryServicer
	Submission  services.SubmissionServicer
	Voting      services.VotingServicer
	Leaderboard services.LeaderboardServicer
	Profile     services.ProfileServicer
	Settings    services.SettingsServicer
	Auth        AuthServicer
	Admin       *auth.Admin
	Store       ObjectStore
	Hub         RealtimeHub
	DB          Pinger
	Log         logger.Logger
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Deps
	templates    *Templates
	staticServer http.Handler
}

// New creates a new Handlers instance with all dependencies
func New(deps Deps, templatesFS fs.FS, staticServer http.Handler) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	h := NewForTesting(deps)
	h.templates = templates
	h.staticServer = staticServer
	return h, nil
}

// NewForTesting creates a Handlers instance without templates. The
// landing page then answers with JSON only.
func NewForTesting(deps Deps) *Handlers {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Admin == nil {
		deps.Admin = auth.NewAdmin("test-password")
	}
	return &Handlers{Deps: deps}
}

// loadTemplates parses all templates once at startup
func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{}
	var err error

	if t.Landing, err = template.ParseFS(templatesFS, "landing.html"); err != nil {
		return nil, fmt.Errorf("landing template: %w", err)
	}
	return t, nil
}
