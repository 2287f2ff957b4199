// Package cli implements the consensus command line: the server and a
// terminal client for signing in, submitting photos, swiping votes and
// following leaderboards.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abrezinsky/consensus/internal/browser"
	"github.com/abrezinsky/consensus/internal/client"
	"github.com/abrezinsky/consensus/internal/errors"
	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/pkg/consensus"
)

// DefaultServer is used when neither --server nor a saved session names one
const DefaultServer = "http://localhost:8081"

// Version is set at build time with -ldflags
var Version = "dev"

var (
	errNotSignedIn    = errors.Unauthorized("not signed in, run `consensus login` first")
	errSessionExpired = errors.Unauthorized("session expired, run `consensus login` again")
)

// RootOptions holds global flags and the seams tests replace.
type RootOptions struct {
	Server      string
	SessionFile string
	Verbose     bool

	// NewClient builds the API client for a server URL
	NewClient func(server string, log logger.Logger) consensus.Client
	// Now is the clock used for countdowns and session expiry
	Now func() time.Time
	// OpenURL opens a link in the default browser
	OpenURL func(url string) error
}

// NewRootCommand creates the root command for the consensus CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{
		NewClient: func(server string, log logger.Logger) consensus.Client {
			return consensus.NewHTTPClient(server, log)
		},
		Now:     time.Now,
		OpenURL: browser.Open,
	})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consensus",
		Short: "Consensus - the world decides",
		Long: `Consensus runs time-boxed photo competitions. Entrants submit one photo per
category, then everyone swipes through the entries to vote them up or down.

Run "consensus serve" to host a competition, then use the other commands
from any terminal to take part.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", os.Getenv("CONSENSUS_SERVER"), "Consensus server URL")
	cmd.PersistentFlags().StringVar(&opts.SessionFile, "session-file", "", "session file (default ~/.config/consensus/session.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose client logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewCategoriesCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewVoteCommand(opts))
	cmd.AddCommand(NewLeaderboardCommand(opts))

	return cmd
}

// clientEnv is what every client command works with
type clientEnv struct {
	log      *logger.SlogLogger
	sessions *client.SessionStore
	api      consensus.Client
	server   string
}

// connect restores the saved session and builds an API client for the
// chosen server. The saved token is only reused against the server it
// was issued by.
func (o *RootOptions) connect(cmd *cobra.Command) (*clientEnv, error) {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	log := logger.NewWithOptions(cmd.ErrOrStderr(), level, logger.FormatText)

	path := o.SessionFile
	if path == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			return nil, fmt.Errorf("locating session file: %w", err)
		}
		path = p
	}
	sessions := client.NewSessionStore(log, client.FileSessionStore{Path: path})

	current := sessions.Current()
	server := o.Server
	if server == "" && current != nil {
		server = current.Server
	}
	if server == "" {
		server = DefaultServer
	}

	api := o.NewClient(server, log)
	if current != nil && (current.Server == "" || current.Server == server) {
		api.SetAccessToken(current.AccessToken)
	}

	return &clientEnv{log: log, sessions: sessions, api: api, server: server}, nil
}

// requireSession returns the signed-in session, dropping it once expired
func (e *clientEnv) requireSession(now time.Time) (*client.Session, error) {
	s := e.sessions.Current()
	if client.Gate(s) == client.ScreenAuth {
		return nil, errNotSignedIn
	}
	if s.Expired(now) {
		e.sessions.Clear()
		e.api.SetAccessToken("")
		return nil, errSessionExpired
	}
	return s, nil
}
