package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/consensus/internal/auth"
	"github.com/abrezinsky/consensus/internal/config"
	"github.com/abrezinsky/consensus/internal/handlers"
	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/realtime"
	"github.com/abrezinsky/consensus/internal/repository"
	"github.com/abrezinsky/consensus/internal/services"
	"github.com/abrezinsky/consensus/internal/storage"
)

const (
	baseURLSetting  = "base_url"
	shutdownTimeout = 5 * time.Second
)

// App holds all application dependencies
type App struct {
	log          logger.Logger
	cfg          config.Config
	handlers     *handlers.Handlers
	repo         *repository.Repository
	hub          *realtime.Hub
	categories   *services.CategoryService
	baseURL      string
	cancelHub context.CancelFunc
	closeOnce    sync.Once
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg config.Config, templatesFS, staticFS fs.FS, admin *auth.Admin) (*App, error) {
	repo, err := repository.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	detected := fmt.Sprintf("http://%s:%d", getPreferredIP(realNetworkProvider{}), cfg.Port)
	baseURL := resolveBaseURL(ctx, log, repo, cfg.BaseURL, detected)

	store, err := storage.NewLocalStore(cfg.StorageDir, cfg.Bucket, baseURL, cfg.MaxUploadBytes)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize services
	settingsService := services.NewSettingsService(log, repo)
	if cfg.InitialSubmissionStatus != "" {
		status := models.SubmissionStatus(cfg.InitialSubmissionStatus)
		if err := settingsService.SetInitialSubmissionStatus(ctx, status); err != nil {
			repo.Close()
			return nil, err
		}
	}
	categoryService := services.NewCategoryService(log, repo, baseURL)
	submissionService := services.NewSubmissionService(log, repo, store, settingsService)
	votingService := services.NewVotingService(log, repo)

	otp := auth.NewService(log, repo, auth.LogMailer{Log: log},
		auth.WithCodeTTL(cfg.CodeTTL),
		auth.WithSessionTTL(cfg.SessionTTL),
	)

	// Realtime hub fans out every service change
	hubCtx, cancel := context.WithCancel(context.Background())
	hub := realtime.New(log, categoryService)
	hub.Start(hubCtx)
	categoryService.SetPublisher(hub)
	submissionService.SetPublisher(hub)
	votingService.SetPublisher(hub)

	go hub.StartStatusTicker(hubCtx)

	h, err := handlers.New(handlers.Deps{
		Category:    categoryService,
		Submission:  submissionService,
		Voting:      votingService,
		Leaderboard: services.NewLeaderboardService(log, repo),
		Profile:     services.NewProfileService(log, repo),
		Settings:    settingsService,
		Auth:        otp,
		Admin:       admin,
		Store:       store,
		Hub:         hub,
		DB:          repo,
		Log:         log,
	}, templatesFS, handlers.NewStaticServer(staticFS))
	if err != nil {
		cancel()
		repo.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		log:          log,
		cfg:          cfg,
		handlers:     h,
		repo:         repo,
		hub:          hub,
		categories:   categoryService,
		baseURL:      baseURL,
		cancelHub: cancel,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// BaseURL returns the public URL used in share links
func (a *App) BaseURL() string {
	return a.baseURL
}

// LandingURLs returns the share links of every category that is not closed
func (a *App) LandingURLs(ctx context.Context) ([]string, error) {
	cats, err := a.categories.ListActiveCategories(ctx)
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(cats))
	for i, c := range cats {
		urls[i] = a.categories.DeepLink(c.ID)
	}
	return urls, nil
}

// Close stops the status ticker and releases the database
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.cancelHub != nil {
			a.cancelHub()
		}
		if err := a.repo.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	})
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context) error {
	return a.serve(ctx, a.cfg.Addr())
}

func (a *App) serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.log.Info("Server starting", "url", a.baseURL, "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// resolveBaseURL picks the public base URL. An explicit value always wins.
// Otherwise a stored value is reused unless it points at localhost, which
// is no use in QR codes scanned from phones.
func resolveBaseURL(ctx context.Context, log logger.Logger, repo repository.SettingsRepository, configured, detected string) string {
	if configured != "" {
		saveBaseURL(ctx, log, repo, configured)
		return configured
	}

	existing, err := repo.GetSetting(ctx, baseURLSetting)
	if err != nil {
		log.Warn("Failed to read base_url", "error", err)
	}
	if existing != "" && !strings.Contains(existing, "localhost") {
		return existing
	}

	saveBaseURL(ctx, log, repo, detected)
	return detected
}

func saveBaseURL(ctx context.Context, log logger.Logger, repo repository.SettingsRepository, url string) {
	if err := repo.SetSetting(ctx, baseURLSetting, url); err != nil {
		log.Warn("Failed to store base_url", "error", err)
		return
	}
	log.Info("Base URL set", "url", url)
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider lists network interfaces
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IPv4 address for LAN access, preferring
// private ranges and falling back to localhost.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		s := ip.String()
		if strings.HasPrefix(s, "192.168.") || strings.HasPrefix(s, "10.") || isPrivate172(ip) {
			return s
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}

// isPrivate172 checks if IP is in 172.16.0.0/12 range
func isPrivate172(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
	}
	return false
}
