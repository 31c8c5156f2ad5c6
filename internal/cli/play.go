package cli

import (
	"fmt"
	"net/http"

	"github.com/nverno/inf-perl/internal/script"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <name> <script-id>",
	Short: "Replay an input script against a session",
	Long: `Replay an input script against a session. The session is created
from the script's profile if it does not exist yet. The command returns
when the last step has finished.

Use "inf-perl scripts" to see what is available.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var result struct {
			Status  string `json:"status"`
			Session string `json:"session"`
		}
		err = client.do(http.MethodPost, "/api/scripts/"+args[1]+"/run",
			map[string]string{"session": args[0]}, &result)
		if err != nil {
			return err
		}
		fmt.Printf("script %s %s on %s\n", args[1], result.Status, result.Session)
		return nil
	},
}

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "List available input scripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var scripts []script.Script
		if err := client.do(http.MethodGet, "/api/scripts", nil, &scripts); err != nil {
			return err
		}
		if len(scripts) == 0 {
			fmt.Println(dimStyle.Render("no scripts"))
			return nil
		}
		for _, sc := range scripts {
			profilePart := ""
			if sc.Profile != "" {
				profilePart = " (" + sc.Profile + ")"
			}
			fmt.Printf("%-16s %s%s\n", sc.ID, sc.Name, dimStyle.Render(profilePart))
			if sc.Description != "" {
				fmt.Printf("%-16s %s\n", "", dimStyle.Render(sc.Description))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(scriptsCmd)
}
