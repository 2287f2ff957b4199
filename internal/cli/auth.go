package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abrezinsky/consensus/internal/client"
)

// NewLoginCommand creates the login command.
func NewLoginCommand(opts *RootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a one-time code sent by email",
		Long: `Sign in with a one-time code sent by email. No password needed.

At the code prompt, enter "r" to resend the code or "e" to use a
different email address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			return runLogin(cmd, env, email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address to sign in with")

	return cmd
}

func runLogin(cmd *cobra.Command, env *clientEnv, email string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())
	flow := client.NewAuthFlow(env.api, env.sessions)

	for {
		if flow.Step() == client.StepEmail {
			if email == "" {
				fmt.Fprint(out, "Email: ")
				line, err := readLine(in)
				if err != nil {
					return err
				}
				email = line
			}
			err := flow.SendCode(ctx, email)
			email = ""
			if err != nil {
				return fmt.Errorf("sending code: %w", err)
			}
			if flow.Step() == client.StepCode {
				fmt.Fprintf(out, "We sent an 8-digit code to %s\n", flow.Email())
			}
			continue
		}

		fmt.Fprint(out, "Code (r to resend, e to change email): ")
		line, err := readLine(in)
		if err != nil {
			return err
		}
		switch line {
		case "":
			continue
		case "r":
			if err := flow.Resend(ctx); err != nil {
				return fmt.Errorf("resending code: %w", err)
			}
			fmt.Fprintf(out, "Code resent to %s\n", flow.Email())
			continue
		case "e":
			flow.ChangeEmail()
			continue
		}

		if err := flow.Verify(ctx, line); err != nil {
			env.log.Debug("Code rejected", "error", err)
			fmt.Fprintln(out, "Invalid code. Please check the code and try again.")
			continue
		}

		session := env.sessions.Current()
		name := session.Email
		if session.DisplayName != "" {
			name = session.DisplayName
		}
		fmt.Fprintf(out, "Signed in as %s\n", name)
		return nil
	}
}

// readLine reads a trimmed line. Input that ends without a newline still
// counts as a line.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err == io.EOF {
		return "", fmt.Errorf("unexpected end of input")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			if env.sessions.Current() == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			if err := env.api.Logout(cmd.Context()); err != nil {
				env.log.Warn("Server logout failed", "error", err)
			}
			env.sessions.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
