package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var stopDestroy bool

var stopCmd = &cobra.Command{
	Use:   "stop <name>",
	Short: "Stop a session",
	Long: `Stop a session. The default path terminates the process and lets the
exit hook write the session's input history. With --destroy the display
surface is torn down first and no history is written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		path := "/api/sessions/" + args[0]
		if stopDestroy {
			path += "?destroy=1"
		}
		if err := client.do(http.MethodDelete, path, nil, nil); err != nil {
			return err
		}
		fmt.Printf("stopped %s\n", args[0])
		return nil
	},
}

func init() {
	stopCmd.Flags().BoolVar(&stopDestroy, "destroy", false, "tear down without writing history")
	rootCmd.AddCommand(stopCmd)
}
