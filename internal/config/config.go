package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/abrezinsky/consensus/internal/auth"
	"github.com/abrezinsky/consensus/internal/errors"
	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/storage"
)

// Config holds server settings
type Config struct {
	Port                    int
	DatabasePath            string
	StorageDir              string
	Bucket                  string
	BaseURL                 string
	AdminPassword           string
	LogLevel                string
	LogFormat               string
	HTTPLogging             bool
	InitialSubmissionStatus string
	CodeTTL                 time.Duration
	SessionTTL              time.Duration
	MaxUploadBytes          int64
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		Port:           8081,
		DatabasePath:   "consensus.db",
		StorageDir:     "storage",
		Bucket:         "photos",
		LogLevel:       "info",
		LogFormat:      string(logger.FormatText),
		CodeTTL:        auth.DefaultCodeTTL,
		SessionTTL:     auth.DefaultSessionTTL,
		MaxUploadBytes: storage.DefaultMaxBytes,
	}
}

// binding ties a flag to its environment variable fallbacks
type binding struct {
	flag string
	env  []string
}

var bindings = []binding{
	{"port", []string{"CONSENSUS_PORT", "PORT"}},
	{"db", []string{"CONSENSUS_DB", "DATABASE_PATH"}},
	{"storage-dir", []string{"CONSENSUS_STORAGE_DIR"}},
	{"bucket", []string{"CONSENSUS_BUCKET"}},
	{"base-url", []string{"CONSENSUS_BASE_URL"}},
	{"adminpw", []string{"CONSENSUS_ADMIN_PASSWORD"}},
	{"loglevel", []string{"CONSENSUS_LOG_LEVEL"}},
	{"logformat", []string{"CONSENSUS_LOG_FORMAT"}},
	{"http-logging", []string{"CONSENSUS_HTTP_LOGGING"}},
	{"initial-status", []string{"CONSENSUS_INITIAL_SUBMISSION_STATUS"}},
	{"code-ttl", []string{"CONSENSUS_CODE_TTL"}},
	{"session-ttl", []string{"CONSENSUS_SESSION_TTL"}},
	{"max-upload", []string{"CONSENSUS_MAX_UPLOAD_BYTES"}},
}

// BindFlags registers the server flags on fs, writing into c
func BindFlags(fs *pflag.FlagSet, c *Config) {
	fs.IntVar(&c.Port, "port", c.Port, "HTTP server port")
	fs.StringVar(&c.DatabasePath, "db", c.DatabasePath, "SQLite database path")
	fs.StringVar(&c.StorageDir, "storage-dir", c.StorageDir, "Directory for uploaded photos")
	fs.StringVar(&c.Bucket, "bucket", c.Bucket, "Storage bucket name")
	fs.StringVar(&c.BaseURL, "base-url", c.BaseURL, "Public base URL used in links and QR codes (detected if empty)")
	fs.StringVar(&c.AdminPassword, "adminpw", c.AdminPassword, "Operator password (auto-generated if not set)")
	fs.StringVar(&c.LogLevel, "loglevel", c.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.LogFormat, "logformat", c.LogFormat, "Log format (text, json)")
	fs.BoolVar(&c.HTTPLogging, "http-logging", c.HTTPLogging, "Log every HTTP request")
	fs.StringVar(&c.InitialSubmissionStatus, "initial-status", c.InitialSubmissionStatus, "Moderation status of new entries (approved, pending)")
	fs.DurationVar(&c.CodeTTL, "code-ttl", c.CodeTTL, "Lifetime of one-time sign-in codes")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "Lifetime of user sessions")
	fs.Int64Var(&c.MaxUploadBytes, "max-upload", c.MaxUploadBytes, "Maximum photo size in bytes")
}

// Load reads envFile (if present) into the environment, then fills every
// flag the user did not set from its environment variable
func Load(fs *pflag.FlagSet, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	return applyEnv(fs, os.LookupEnv)
}

func applyEnv(fs *pflag.FlagSet, lookup func(string) (string, bool)) error {
	for _, b := range bindings {
		f := fs.Lookup(b.flag)
		if f == nil || f.Changed {
			continue
		}
		for _, key := range b.env {
			value, ok := lookup(key)
			if !ok || value == "" {
				continue
			}
			if err := fs.Set(b.flag, value); err != nil {
				return errors.Validationf("invalid %s=%q: %v", key, value, err)
			}
			break
		}
	}
	return nil
}

// Validate checks the settings for consistency
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Validationf("port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return errors.Validation("database path is required")
	}
	if strings.TrimSpace(c.StorageDir) == "" {
		return errors.Validation("storage directory is required")
	}
	if c.Bucket == "" || strings.ContainsAny(c.Bucket, "/\\.") {
		return errors.Validationf("invalid bucket name %q", c.Bucket)
	}
	if c.InitialSubmissionStatus != "" && !models.SubmissionStatus(c.InitialSubmissionStatus).Valid() {
		return errors.Validationf("invalid initial submission status %q", c.InitialSubmissionStatus)
	}
	if c.LogFormat != string(logger.FormatText) && c.LogFormat != string(logger.FormatJSON) {
		return errors.Validationf("invalid log format %q", c.LogFormat)
	}
	if c.CodeTTL <= 0 || c.SessionTTL <= 0 {
		return errors.Validation("code and session lifetimes must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.Validation("max upload size must be positive")
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}
