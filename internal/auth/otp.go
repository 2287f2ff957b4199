package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/abrezinsky/consensus/internal/errors"
	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/repository"
)

const (
	CodeLength         = 8
	DefaultCodeTTL     = 10 * time.Minute
	DefaultSessionTTL  = 24 * time.Hour
	DefaultMaxAttempts = 5
)

var (
	ErrInvalidEmail = errors.Validation("a valid email address is required")
	ErrInvalidCode  = errors.Unauthorized("invalid or expired code")
	ErrNoSession    = errors.Unauthorized("not signed in")
)

// Store is the persistence the OTP service needs
type Store interface {
	repository.AuthRepository
	UpsertProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
}

// Mailer delivers one-time codes
type Mailer interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogMailer writes codes to the log instead of sending mail
type LogMailer struct {
	Log logger.Logger
}

// SendCode logs the code at info level
func (m LogMailer) SendCode(ctx context.Context, email, code string) error {
	m.Log.Info("Sign-in code issued", "email", email, "code", code)
	return nil
}

// Session is the result of a successful verification
type Session struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	User        *models.Profile `json:"user"`
}

// Service issues and verifies email one-time codes and tracks user sessions
type Service struct {
	log         logger.Logger
	store       Store
	mailer      Mailer
	codeTTL     time.Duration
	sessionTTL  time.Duration
	maxAttempts int
	bcryptCost  int
	now         func() time.Time
	newCode     func() (string, error)
}

// Option configures a Service
type Option func(*Service)

// WithCodeTTL sets how long a code remains valid
func WithCodeTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.codeTTL = d
		}
	}
}

// WithSessionTTL sets how long a session remains valid
func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCodeGenerator overrides code generation
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newCode = gen }
}

// WithBcryptCost sets the hashing cost for stored codes
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// NewService creates a new OTP Service
func NewService(log logger.Logger, store Store, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		log:         log,
		store:       store,
		mailer:      mailer,
		codeTTL:     DefaultCodeTTL,
		sessionTTL:  DefaultSessionTTL,
		maxAttempts: DefaultMaxAttempts,
		bcryptCost:  bcrypt.DefaultCost,
		now:         time.Now,
		newCode:     generateCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequestCode issues a fresh code for email, replacing any previous one
func (s *Service) RequestCode(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return ErrInvalidEmail
	}

	code, err := s.newCode()
	if err != nil {
		return errors.Internal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.bcryptCost)
	if err != nil {
		return errors.Internal(err)
	}

	if err := s.store.SaveOTP(ctx, repository.OTPRecord{
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: s.now().Add(s.codeTTL),
	}); err != nil {
		return err
	}

	if err := s.mailer.SendCode(ctx, email, code); err != nil {
		s.log.Error("Failed to deliver sign-in code", "email", email, "error", err)
		return errors.Internal(err)
	}
	return nil
}

// VerifyCode checks a code and, on success, opens a session for the
// profile belonging to email
func (s *Service) VerifyCode(ctx context.Context, email, code string) (*Session, error) {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if !validCodeFormat(code) {
		return nil, ErrInvalidCode
	}

	rec, err := s.store.GetOTP(ctx, email)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}

	if !s.now().Before(rec.ExpiresAt) || rec.Attempts >= s.maxAttempts {
		if err := s.store.DeleteOTP(ctx, email); err != nil {
			s.log.Warn("Failed to discard spent code", "email", email, "error", err)
		}
		return nil, ErrInvalidCode
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)) != nil {
		if err := s.store.IncrementOTPAttempts(ctx, email); err != nil {
			return nil, err
		}
		s.log.Debug("Sign-in code mismatch", "email", email, "attempts", rec.Attempts+1)
		return nil, ErrInvalidCode
	}

	profile, err := s.store.UpsertProfileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteOTP(ctx, email); err != nil {
		return nil, err
	}

	token := generateToken()
	expires := s.now().Add(s.sessionTTL)
	if err := s.store.CreateSession(ctx, repository.SessionRecord{
		TokenHash: hashToken(token),
		UserID:    profile.ID,
		ExpiresAt: expires,
	}); err != nil {
		return nil, err
	}

	s.log.Info("User signed in", "user_id", profile.ID)
	return &Session{AccessToken: token, ExpiresAt: expires, User: profile}, nil
}

// ValidateSession resolves a bearer token to a user ID
func (s *Service) ValidateSession(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNoSession
	}
	rec, err := s.store.GetSession(ctx, hashToken(token))
	if stderrors.Is(err, repository.ErrNotFound) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	if !s.now().Before(rec.ExpiresAt) {
		if err := s.store.DeleteSession(ctx, rec.TokenHash); err != nil {
			s.log.Warn("Failed to discard expired session", "error", err)
		}
		return "", ErrNoSession
	}
	return rec.UserID, nil
}

// Logout ends the session for token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, hashToken(token))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func validCodeFormat(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// generateCode returns a uniformly random zero-padded 8-digit code
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
