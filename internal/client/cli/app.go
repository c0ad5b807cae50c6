// Package cli implements the taskctl command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/akarpov/taskdeck/internal/client/api"
	"github.com/spf13/cobra"
)

var Version = "dev"

type App struct {
	serverURL string
	token     string
}

// NewRootCmd builds the taskctl command tree. The server address and token
// come from flags, falling back to TASKDECK_SERVER and TASKDECK_TOKEN.
func NewRootCmd() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:     "taskctl",
		Short:   "taskctl - TaskDeck command-line client",
		Version: Version,
	}

	rootCmd.PersistentFlags().StringVarP(&app.serverURL, "server", "s", envOr("TASKDECK_SERVER", "http://localhost:8080"), "server base URL")
	rootCmd.PersistentFlags().StringVarP(&app.token, "token", "t", os.Getenv("TASKDECK_TOKEN"), "access token")

	rootCmd.AddCommand(app.registerCmd())
	rootCmd.AddCommand(app.loginCmd())
	rootCmd.AddCommand(app.logoutCmd())
	rootCmd.AddCommand(app.whoamiCmd())
	rootCmd.AddCommand(app.listCmd())
	rootCmd.AddCommand(app.createCmd())
	rootCmd.AddCommand(app.getCmd())
	rootCmd.AddCommand(app.doneCmd())
	rootCmd.AddCommand(app.statusCmd())
	rootCmd.AddCommand(app.deleteCmd())

	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *App) client() (*api.Client, error) {
	return api.New(a.serverURL, a.token)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
