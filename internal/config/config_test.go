package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/abrezinsky/consensus/internal/errors"
)

func newFlagSet(c *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs, c)
	return fs
}

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.Addr() != ":8081" {
		t.Errorf("expected :8081, got %s", c.Addr())
	}
}

func TestApplyEnv_FillsUnsetFlags(t *testing.T) {
	c := Default()
	fs := newFlagSet(&c)

	err := applyEnv(fs, mapLookup(map[string]string{
		"PORT":                                "9000",
		"DATABASE_PATH":                       "/tmp/x.db",
		"CONSENSUS_HTTP_LOGGING":              "true",
		"CONSENSUS_SESSION_TTL":               "2h",
		"CONSENSUS_INITIAL_SUBMISSION_STATUS": "pending",
	}))
	if err != nil {
		t.Fatalf("applyEnv failed: %v", err)
	}
	if c.Port != 9000 {
		t.Errorf("expected port 9000, got %d", c.Port)
	}
	if c.DatabasePath != "/tmp/x.db" {
		t.Errorf("expected db path from env, got %s", c.DatabasePath)
	}
	if !c.HTTPLogging {
		t.Error("expected http logging enabled")
	}
	if c.SessionTTL != 2*time.Hour {
		t.Errorf("expected 2h session ttl, got %s", c.SessionTTL)
	}
	if c.InitialSubmissionStatus != "pending" {
		t.Errorf("expected pending, got %s", c.InitialSubmissionStatus)
	}
}

func TestApplyEnv_PrefixedVariableWins(t *testing.T) {
	c := Default()
	fs := newFlagSet(&c)

	err := applyEnv(fs, mapLookup(map[string]string{
		"CONSENSUS_PORT": "7000",
		"PORT":           "9000",
	}))
	if err != nil {
		t.Fatalf("applyEnv failed: %v", err)
	}
	if c.Port != 7000 {
		t.Errorf("expected 7000, got %d", c.Port)
	}
}

func TestApplyEnv_FlagOverridesEnv(t *testing.T) {
	c := Default()
	fs := newFlagSet(&c)
	if err := fs.Parse([]string{"--port", "6000"}); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if err := applyEnv(fs, mapLookup(map[string]string{"PORT": "9000"})); err != nil {
		t.Fatalf("applyEnv failed: %v", err)
	}
	if c.Port != 6000 {
		t.Errorf("expected flag value 6000, got %d", c.Port)
	}
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	c := Default()
	fs := newFlagSet(&c)

	err := applyEnv(fs, mapLookup(map[string]string{"PORT": "not-a-number"}))
	if !errors.IsKind(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CONSENSUS_BUCKET=entries\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CONSENSUS_BUCKET", "")
	os.Unsetenv("CONSENSUS_BUCKET")

	c := Default()
	fs := newFlagSet(&c)
	if err := Load(fs, path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Bucket != "entries" {
		t.Errorf("expected bucket from env file, got %s", c.Bucket)
	}
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	c := Default()
	fs := newFlagSet(&c)
	if err := Load(fs, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("expected missing env file to be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"empty db", func(c *Config) { c.DatabasePath = " " }},
		{"empty storage", func(c *Config) { c.StorageDir = "" }},
		{"bucket with slash", func(c *Config) { c.Bucket = "a/b" }},
		{"bucket with dots", func(c *Config) { c.Bucket = ".." }},
		{"bad initial status", func(c *Config) { c.InitialSubmissionStatus = "maybe" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"zero code ttl", func(c *Config) { c.CodeTTL = 0 }},
		{"negative upload", func(c *Config) { c.MaxUploadBytes = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			if err := c.Validate(); !errors.IsKind(err, errors.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestValidate_TrimsBaseURL(t *testing.T) {
	c := Default()
	c.BaseURL = "http://example.com/"
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c.BaseURL != "http://example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", c.BaseURL)
	}
}
