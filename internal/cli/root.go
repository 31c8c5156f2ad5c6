// Package cli implements the inf-perl command tree. The serve command runs
// the daemon; every other command talks to it over REST or WebSocket.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "inf-perl",
	Short: "Manage inferior Perl REPL sessions",
	Long: `inf-perl keeps named Perl REPL sessions running under a local daemon.

Sessions are created on first use and addressed by name: running the same
name twice reuses the live process instead of spawning another. Each
session records the lines submitted to it and writes them to a history
file when the REPL exits.

Start the daemon with "inf-perl serve", then:

  inf-perl run scratch            start (or rejoin) a session and attach
  inf-perl send scratch '2 + 2'   submit a line without attaching
  inf-perl list                   show live and exited sessions`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/inf-perl/config)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
