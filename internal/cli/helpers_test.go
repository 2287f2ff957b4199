package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abrezinsky/consensus/internal/client"
	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/pkg/consensus"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// harness runs commands against a mock API with a fixed clock
type harness struct {
	opts        *RootOptions
	mock        *consensus.MockClient
	sessionFile string
	server      string
	opened      []string
}

func newHarness(t *testing.T, mockOpts ...consensus.MockOption) *harness {
	t.Helper()
	h := &harness{
		mock:        consensus.NewMockClient(mockOpts...),
		sessionFile: filepath.Join(t.TempDir(), "session.yaml"),
	}
	h.opts = &RootOptions{
		NewClient: func(server string, log logger.Logger) consensus.Client {
			h.server = server
			return h.mock
		},
		Now: func() time.Time { return testNow },
		OpenURL: func(url string) error {
			h.opened = append(h.opened, url)
			return nil
		},
	}
	return h
}

// run executes the CLI with args and stdin, returning stdout
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(h.opts)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--session-file", h.sessionFile}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// signIn saves a session valid for an hour past testNow
func (h *harness) signIn(t *testing.T) {
	t.Helper()
	h.saveSession(t, &client.Session{
		Email:       "ada@example.com",
		UserID:      "user-1",
		AccessToken: "token-ada",
		ExpiresAt:   testNow.Add(time.Hour),
	})
}

func (h *harness) saveSession(t *testing.T, s *client.Session) {
	t.Helper()
	require.NoError(t, client.FileSessionStore{Path: h.sessionFile}.Save(s))
}

func (h *harness) savedSession(t *testing.T) *client.Session {
	t.Helper()
	s, err := client.FileSessionStore{Path: h.sessionFile}.Load()
	require.NoError(t, err)
	return s
}

// instantFrames removes animation delays for the test
func instantFrames(t *testing.T) {
	t.Helper()
	prevFrame, prevBanner := frameDelay, bannerFrameDelay
	frameDelay, bannerFrameDelay = 0, 0
	t.Cleanup(func() {
		frameDelay, bannerFrameDelay = prevFrame, prevBanner
	})
}
