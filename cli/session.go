package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpupo63/showcase-backend/auth"
	"github.com/rpupo63/showcase-backend/identity"
)

// readPassword returns flagValue or, when empty, the first line of in.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printUser(w io.Writer, u *identity.User) {
	fmt.Fprintf(w, "%s (%s)\n", u.Username, u.ID)
	if u.Email != "" {
		fmt.Fprintf(w, "  email:    %s\n", u.Email)
	}
	if u.Bio != "" {
		fmt.Fprintf(w, "  bio:      %s\n", u.Bio)
	}
	if len(u.Skills) > 0 {
		fmt.Fprintf(w, "  skills:   %s\n", strings.Join(u.Skills, ", "))
	}
}

func newRegisterCmd(open commandOpener) *cobra.Command {
	var password, email string

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			user, err := auth.NewManager(a.provider, a.tokens).Register(cmd.Context(), args[0], pw, email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and signed in as %s\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when omitted)")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}

func newLoginCmd(open commandOpener) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			user, err := auth.NewManager(a.provider, a.tokens).Login(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when omitted)")
	return cmd
}

func newLogoutCmd(open commandOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			err = auth.NewManager(a.provider, a.tokens).Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return err
		},
	}
}

func newWhoamiCmd(open commandOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, m, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			printUser(cmd.OutOrStdout(), identity.UserFromContext(ctx))
			return nil
		},
	}
}
