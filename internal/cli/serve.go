package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abrezinsky/consensus/internal/app"
	"github.com/abrezinsky/consensus/internal/auth"
	"github.com/abrezinsky/consensus/internal/config"
	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/web"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	cfg := config.Default()
	var envFile string
	var noAnimate, noKeyboard bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Consensus server",
		Long: `Run the Consensus API, realtime feed and category landing pages.

Every flag can also be set from the environment (CONSENSUS_PORT,
CONSENSUS_DB, CONSENSUS_BASE_URL, ...) or from a .env file. Flags win
over the environment.

Keyboard Shortcuts (when enabled):
  o              Open active category pages in browser
  h              Toggle HTTP request logging
  l              Cycle log level (debug → info → warn → error)
  q              Quit server
  ?              Show keyboard help`,
		Example: `  consensus serve                            # Run on port 8081 with consensus.db
  consensus serve --port 8080                # Run on port 8080
  consensus serve --db /data/consensus.db    # Use custom database path
  consensus serve --initial-status pending   # Hold new entries for review
  consensus serve --nokeyboard               # Disable keyboard shortcuts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(cmd.Flags(), envFile); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			out := newLineWriter(cmd.OutOrStdout())
			showBanner(out, noAnimate)

			password := cfg.AdminPassword
			if password == "" {
				password = auth.GeneratePassword()
			}

			appLog := logger.NewWithOptions(out, logger.ParseLevel(cfg.LogLevel), logger.ParseFormat(cfg.LogFormat))
			if cfg.HTTPLogging {
				appLog.EnableHTTPLogging()
			}

			a, err := app.New(appLog, cfg, web.GetTemplatesFS(), web.GetStaticFS(), auth.NewAdmin(password))
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer a.Close()

			appLog.Info("Operator password", "password", password)
			appLog.Info("Serving", "url", a.BaseURL())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !noKeyboard {
				printKeyboardHelp(out)
				raw, restore := makeRaw(cmd.InOrStdin())
				defer restore()
				out.SetRaw(raw)

				keys := &serverKeys{
					out:     out,
					log:     appLog,
					open:    opts.OpenURL,
					landing: a.LandingURLs,
					stop:    stop,
				}
				go keys.listen(ctx, cmd.InOrStdin())
			} else {
				fmt.Fprintf(out, "\n%sKeyboard shortcuts disabled (use --nokeyboard=false to enable)%s\n\n", yellow, reset)
			}

			return a.Run(ctx)
		},
	}

	config.BindFlags(cmd.Flags(), &cfg)
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Environment file to load if present")
	cmd.Flags().BoolVar(&noAnimate, "noanimate", false, "Show logo only, skip the swipe animation")
	cmd.Flags().BoolVar(&noKeyboard, "nokeyboard", false, "Disable keyboard shortcuts")

	return cmd
}

// serverKeys performs the keyboard shortcuts of a running server
type serverKeys struct {
	out     io.Writer
	log     *logger.SlogLogger
	open    func(url string) error
	landing func(ctx context.Context) ([]string, error)
	stop    context.CancelFunc
}

// listen handles keys from in until it is exhausted or a quit key is pressed
func (k *serverKeys) listen(ctx context.Context, in io.Reader) {
	r := bufio.NewReader(in)
	for {
		key, err := readKey(r)
		if err != nil {
			return
		}
		if k.handle(ctx, key) {
			return
		}
	}
}

// handle performs the action bound to key and reports whether the server
// is shutting down
func (k *serverKeys) handle(ctx context.Context, key rune) bool {
	switch key {
	case 'o':
		urls, err := k.landing(ctx)
		if err != nil {
			fmt.Fprintf(k.out, "%sError listing categories: %v%s\n", red, err, reset)
			return false
		}
		if len(urls) == 0 {
			fmt.Fprintf(k.out, "%sNo active categories to open%s\n", yellow, reset)
			return false
		}
		for _, url := range urls {
			fmt.Fprintf(k.out, "%sOpening %s in browser...%s\n", cyan, url, reset)
			if err := k.open(url); err != nil {
				fmt.Fprintf(k.out, "%sError opening browser: %v%s\n", red, err, reset)
			}
		}
	case 'h':
		if k.log.IsHTTPLoggingEnabled() {
			k.log.DisableHTTPLogging()
			fmt.Fprintf(k.out, "%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			k.log.EnableHTTPLogging()
			fmt.Fprintf(k.out, "%sHTTP logging enabled%s\n", green, reset)
		}
	case 'l':
		next := logger.NextLevel(k.log.GetLevel())
		k.log.SetLevel(next)
		fmt.Fprintf(k.out, "%sLog level: %s%s%s\n", green, yellow, strings.ToLower(next.String()), reset)
	case 'q', keyCtrlC:
		fmt.Fprintf(k.out, "%sShutting down server...%s\n", yellow, reset)
		k.stop()
		return true
	case '?':
		printKeyboardHelp(k.out)
	}
	return false
}

// printKeyboardHelp displays all available keyboard shortcuts
func printKeyboardHelp(w io.Writer) {
	fmt.Fprintf(w, "\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	fmt.Fprintf(w, "    %so%s      - Open active category pages in browser\n", cyan, reset)
	fmt.Fprintf(w, "    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Fprintf(w, "    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Fprintf(w, "    %sq%s      - Quit server\n", cyan, reset)
	fmt.Fprintf(w, "    %s?%s      - Show this help\n\n", cyan, reset)
}
