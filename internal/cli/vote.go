package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/abrezinsky/consensus/internal/client"
	"github.com/abrezinsky/consensus/internal/errors"
	"github.com/abrezinsky/consensus/internal/models"
)

// frameStep is the animation time advanced per frame
const frameStep = 25 * time.Millisecond

// frameDelay is the wall time between frames
var frameDelay = frameStep

// NewVoteCommand creates the vote command.
func NewVoteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <category-id>",
		Short: "Swipe through the entries of a competition",
		Long: `Swipe through every entry of a competition in a random order.

  → l y    vote yes
  ← h n    vote no
  o        open the photo in your browser
  q        stop voting`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			if _, err := env.requireSession(opts.Now()); err != nil {
				return err
			}

			ctx := cmd.Context()
			cat, err := env.api.GetCategory(ctx, args[0])
			if err != nil {
				return fmt.Errorf("loading category: %w", err)
			}
			if client.RouteFor(cat) != client.RouteVote {
				return errors.Validationf("%s is not open for voting (%s)", cat.Name, client.StatusLabel(cat))
			}

			width := trackWidth(terminalWidth(cmd.OutOrStdout()))
			rng := rand.New(rand.NewSource(opts.Now().UnixNano()))
			session := client.NewVoteSession(env.api, env.log, cat.ID, float64(width), rng)
			if err := session.Load(ctx); err != nil {
				return fmt.Errorf("loading entries: %w", err)
			}

			out := newLineWriter(cmd.OutOrStdout())
			raw, restore := makeRaw(cmd.InOrStdin())
			defer restore()
			out.SetRaw(raw)

			fmt.Fprintf(out, "%s %s  %s %s\n", icon(cat), cat.Name, client.StatusLabel(cat), client.Countdown(client.Deadline(cat), opts.Now()))
			return runVote(ctx, out, cmd.InOrStdin(), session, width, opts.OpenURL)
		},
	}
}

// runVote presents entries and reads keys until the entries run out, the
// input ends or the user quits. It waits for in-flight votes before
// returning.
func runVote(ctx context.Context, out io.Writer, in io.Reader, session *client.VoteSession, width int, open func(string) error) error {
	if len(session.Order()) == 0 {
		fmt.Fprintln(out, "No entries to vote on yet. Check back soon!")
		return nil
	}
	fmt.Fprintln(out, "→ y: yes   ← n: no   o: open photo   q: quit")

	keys := bufio.NewReader(in)
	var current models.Submission
	shown := ""
	for session.State() == client.VotePresenting {
		if ctx.Err() != nil {
			break
		}
		sub, _ := session.Current()
		if sub.ID != shown {
			pos, total := session.Position()
			renderEntry(out, sub, pos, total)
			fmt.Fprint(out, swipeTrack(session.Card(), width))
			shown = sub.ID
			current = sub
		}

		key, err := readKey(keys)
		if err != nil {
			break
		}
		quit := false
		switch key {
		case 'y', 'l', keyRight:
			session.Accept()
		case 'n', 'h', keyLeft:
			session.Reject()
		case 'o':
			if err := open(current.PhotoURL); err != nil {
				fmt.Fprintf(out, "\r%s%sError opening browser: %v%s\n", clearLine, red, err, reset)
				shown = ""
			}
		case 'q', keyCtrlC, keyEsc:
			quit = true
		}
		if quit {
			break
		}

		for session.Card().State() != client.CardIdle {
			time.Sleep(frameDelay)
			session.Advance(frameStep)
			if session.Card().State() != client.CardIdle {
				fmt.Fprintf(out, "\r%s%s", clearLine, swipeTrack(session.Card(), width))
			}
		}
	}
	fmt.Fprintln(out)

	session.Wait()
	if session.State() == client.VoteExhausted {
		fmt.Fprintln(out, "🎉 You've seen them all!")
	}
	n := session.VoteCount()
	noun := "votes"
	if n == 1 {
		noun = "vote"
	}
	fmt.Fprintf(out, "You cast %d %s\n", n, noun)
	return nil
}
