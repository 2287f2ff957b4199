package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand(opts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"ls"},
		Short:   "List competitions and what you can do in each",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			if _, err := env.requireSession(opts.Now()); err != nil {
				return err
			}
			cats, err := env.api.ListCategories(cmd.Context(), !all)
			if err != nil {
				return fmt.Errorf("loading categories: %w", err)
			}
			renderCategories(cmd.OutOrStdout(), cats, opts.Now())
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include closed competitions")

	return cmd
}
