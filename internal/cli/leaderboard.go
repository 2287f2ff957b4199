package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abrezinsky/consensus/internal/client"
)

// NewLeaderboardCommand creates the leaderboard command.
func NewLeaderboardCommand(opts *RootOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "leaderboard <category-id>",
		Short: "Show the top entries of a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			if _, err := env.requireSession(opts.Now()); err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			cat, err := env.api.GetCategory(ctx, args[0])
			if err != nil {
				return fmt.Errorf("loading category: %w", err)
			}

			view := client.NewLeaderboardView(env.api, env.log, cat.ID)
			if err := view.Refresh(ctx); err != nil {
				return fmt.Errorf("loading leaderboard: %w", err)
			}
			renderLeaderboard(out, cat, view.Rows(), opts.Now())
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			done, err := view.Watch(ctx, func(rows []client.Row) {
				fmt.Fprint(out, clearScreen)
				renderLeaderboard(out, cat, rows, opts.Now())
			})
			if err != nil {
				return fmt.Errorf("following leaderboard: %w", err)
			}
			<-done
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep the ranking live until interrupted")

	return cmd
}
