package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abrezinsky/consensus/internal/auth"
	"github.com/abrezinsky/consensus/internal/storage"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	// Realtime connections are long-lived and must not be cut by the timeout
	if h.Hub != nil {
		r.Get("/realtime/v1", h.Hub.ServeWs)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		if h.staticServer != nil {
			r.Handle("/static/*", http.StripPrefix("/static/", h.staticServer))
		}

		r.Get("/healthz", h.handleHealth)
		r.Get("/c/{id}", h.handleLanding)
		r.Get(storage.PublicPrefix+"{bucket}/*", h.handlePublicObject)

		// Sign-in (public)
		r.Post("/auth/v1/otp", h.handleRequestCode)
		r.Post("/auth/v1/verify", h.handleVerifyCode)
		r.Post("/auth/v1/logout", h.handleLogout)

		// Operator session
		r.Post("/admin/login", h.handleAdminLogin)
		r.Post("/admin/logout", h.handleAdminLogout)

		// Signed-in users
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(h.Auth))

			r.Get("/rest/v1/categories", h.handleListCategories)
			r.Get("/rest/v1/categories/{id}", h.handleGetCategory)
			r.Get("/rest/v1/categories/{id}/qr", h.handleCategoryQR)
			r.Get("/rest/v1/categories/{id}/submissions", h.handleListEligible)
			r.Post("/rest/v1/categories/{id}/submissions", h.handleSubmit)
			r.Get("/rest/v1/categories/{id}/leaderboard", h.handleLeaderboard)

			r.Post("/rest/v1/votes", h.handleCastVote)
			r.Post("/rest/v1/rpc/update_submission_score", h.handleUpdateScore)

			r.Get("/rest/v1/profile", h.handleGetProfile)
			r.Patch("/rest/v1/profile", h.handleUpdateProfile)
		})

		// Operator API
		r.Group(func(r chi.Router) {
			r.Use(h.Admin.RequireAdmin)

			r.Post("/rest/v1/admin/categories", h.handleCreateCategory)
			r.Put("/rest/v1/admin/categories/{id}/status", h.handleSetCategoryStatus)
			r.Get("/rest/v1/admin/categories/{id}/submissions", h.handleModerationQueue)
			r.Put("/rest/v1/admin/submissions/{id}/status", h.handleModerate)

			r.Get("/rest/v1/admin/settings", h.handleGetSettings)
			r.Put("/rest/v1/admin/settings", h.handleUpdateSettings)
			r.Get("/rest/v1/admin/stats", h.handleGetStats)
		})
	})

	return r
}
