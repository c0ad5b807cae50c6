package cli

import (
	"bufio"
	"fmt"

	"github.com/akarpov/taskdeck/internal/common"
	"github.com/spf13/cobra"
)

func (a *App) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [email]",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			reader := bufio.NewReader(cmd.InOrStdin())

			name, err := GetSimpleText(reader, "Your name", out)
			if err != nil {
				return err
			}
			pw, err := GetPassword(out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.Register(cmd.Context(), name, args[0], string(pw)); err != nil {
				return err
			}

			fmt.Fprintln(out, "Registered. Run `taskctl login` to obtain an access token.")
			return nil
		},
	}
}

func (a *App) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [email]",
		Short: "Authenticate and print a new access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			pw, err := GetPassword(out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			client, err := a.client()
			if err != nil {
				return err
			}
			token, err := client.Login(cmd.Context(), args[0], string(pw))
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "Access token (shown once, store it in TASKDECK_TOKEN):")
			fmt.Fprintln(out, token)
			return nil
		},
	}
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the current access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token revoked.")
			return nil
		},
	}
}

func (a *App) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			user, err := client.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.Name, user.Email)
			return nil
		},
	}
}
