package cli

import (
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/nverno/inf-perl/internal/db"
	"github.com/nverno/inf-perl/internal/session"
	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List live and recently exited sessions",
	RunE:    runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "number of exited sessions to show")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	var resp struct {
		Live   []session.Snapshot `json:"live"`
		Exited []db.Session       `json:"exited"`
	}
	if err := client.do(http.MethodGet, fmt.Sprintf("/api/sessions?limit=%d", listLimit), nil, &resp); err != nil {
		return err
	}

	if len(resp.Live) == 0 && len(resp.Exited) == 0 {
		fmt.Println(dimStyle.Render("no sessions"))
		return nil
	}

	fmt.Printf("%-18s %-14s %-10s %-18s %s\n", "NAME", "PROFILE", "STATUS", "AGE", "COMMAND")
	for _, s := range resp.Live {
		status := "running"
		if s.AtPrompt {
			status = "ready"
		}
		fmt.Printf("%-18s %-14s %s %-18s %s\n",
			s.Name, s.Profile,
			runningStyle.Render(fmt.Sprintf("%-10s", status)),
			humanize.Time(s.CreatedAt),
			dimStyle.Render(s.Command))
	}
	for _, s := range resp.Exited {
		age := s.ExitedAt
		if age.IsZero() {
			age = s.CreatedAt
		}
		fmt.Printf("%-18s %-14s %s %-18s %s\n",
			s.Name, s.Profile,
			exitedStyle.Render(fmt.Sprintf("%-10s", "exited")),
			humanize.Time(age),
			dimStyle.Render(s.Command))
	}
	return nil
}
