package cli

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <name> <line...>",
	Short: "Submit a line to a session without attaching",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		line := strings.Join(args[1:], " ")
		err = client.do(http.MethodPost, "/api/sessions/"+args[0]+"/input", map[string]string{"line": line}, nil)
		if err != nil {
			return err
		}
		fmt.Printf("sent to %s: %s\n", args[0], dimStyle.Render(line))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
