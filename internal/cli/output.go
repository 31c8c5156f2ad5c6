package cli

import (
	"fmt"
	"net/http"

	"github.com/nverno/inf-perl/internal/session"
	"github.com/spf13/cobra"
)

var outputSince uint64

var outputCmd = &cobra.Command{
	Use:   "output <name>",
	Short: "Print a session's scrollback",
	Long: `Print a session's classified scrollback entries. With --since only
entries after that sequence number are shown, so repeated calls can tail
a session incrementally.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var snap session.OutputSnapshot
		path := fmt.Sprintf("/api/sessions/%s/output?since=%d", args[0], outputSince)
		if err := client.do(http.MethodGet, path, nil, &snap); err != nil {
			return err
		}
		for _, e := range snap.Entries {
			printOutputLine(e.Text, string(e.Class))
		}
		if snap.AtPrompt && snap.Pending != "" {
			fmt.Println(promptStyle.Render(snap.Pending))
		}
		return nil
	},
}

func init() {
	outputCmd.Flags().Uint64Var(&outputSince, "since", 0, "only entries after this sequence number")
	rootCmd.AddCommand(outputCmd)
}
