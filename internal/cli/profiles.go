package cli

import (
	"fmt"
	"net/http"

	"github.com/nverno/inf-perl/internal/profile"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect REPL profiles",
	RunE:  runProfilesList,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE:  runProfilesList,
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one profile in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var prof profile.Profile
		if err := client.do(http.MethodGet, "/api/profiles/"+args[0], nil, &prof); err != nil {
			return err
		}
		out, err := yaml.Marshal(&prof)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	var profiles []profile.Profile
	if err := client.do(http.MethodGet, "/api/profiles", nil, &profiles); err != nil {
		return err
	}
	for _, p := range profiles {
		program := p.Program
		if program == "" {
			program = "$(" + p.ProgramCommand + ")"
		}
		fmt.Printf("%-16s %-24s %s\n", p.ID, p.Name, dimStyle.Render(program))
	}
	return nil
}

func init() {
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	rootCmd.AddCommand(profilesCmd)
}
