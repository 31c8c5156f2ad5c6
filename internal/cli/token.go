package cli

import (
	"fmt"

	"github.com/nverno/inf-perl/internal/config"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the API token",
	Long: `Print the API token from the config file, generating one first if
none exists. Useful for connecting other clients to the daemon.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Overrides{ConfigPath: configPath})
		if err != nil {
			return err
		}
		fmt.Println(cfg.Token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
