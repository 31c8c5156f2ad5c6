package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var saveHistoryCmd = &cobra.Command{
	Use:   "save-history <name>",
	Short: "Write a session's input history file now",
	Long: `Write a live session's input history to its history file without
waiting for the REPL to exit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		err = client.do(http.MethodPost, "/api/sessions/"+args[0]+"/history/save", nil, nil)
		if err != nil {
			return err
		}
		fmt.Printf("history saved for %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(saveHistoryCmd)
}
