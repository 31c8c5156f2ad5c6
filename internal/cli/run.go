package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/nverno/inf-perl/internal/command"
	"github.com/nverno/inf-perl/internal/profile"
	"github.com/nverno/inf-perl/internal/session"
	"github.com/spf13/cobra"
)

// Flags for the run command.
var (
	runProfile   string
	runCommand   string
	runStartfile string
	runEdit      bool
	runNoAttach  bool
)

var runCmd = &cobra.Command{
	Use:   "run [name]",
	Short: "Ensure a session exists and attach to it",
	Long: `Ensure a named session exists and attach to it. If the session is
already running the existing process is reused; otherwise one is spawned
from the profile. Without a name the session is named after its profile.

While attached, each stdin line is submitted to the REPL and its output
streams back. Ctrl-C is forwarded to the REPL; Ctrl-D detaches and leaves
the session running.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runProfile, "profile", "p", "", "profile to launch with")
	runCmd.Flags().StringVarP(&runCommand, "command", "c", "", "launch command used verbatim instead of the profile's")
	runCmd.Flags().StringVar(&runStartfile, "startfile", "", "file whose contents are sent as the first input")
	runCmd.Flags().BoolVar(&runEdit, "edit", false, "confirm or edit the launch command before spawning")
	runCmd.Flags().BoolVar(&runNoAttach, "no-attach", false, "create the session without attaching")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	// The edit prompt needs a terminal on stdin; otherwise the assembled
	// command is used as-is.
	cmdline := runCommand
	if runEdit && cmdline == "" && isatty.IsTerminal(os.Stdin.Fd()) {
		cmdline, err = editLaunchCommand(client, runProfile)
		if err != nil {
			return err
		}
	}

	var snap session.Snapshot
	err = client.do(http.MethodPost, "/api/sessions", map[string]string{
		"name":      name,
		"profile":   runProfile,
		"command":   cmdline,
		"startfile": runStartfile,
	}, &snap)
	if err != nil {
		return err
	}

	fmt.Printf("%s  %s\n", snap.Name, dimStyle.Render(snap.Command))
	if runNoAttach {
		return nil
	}
	return attach(client, snap.Name)
}

// editLaunchCommand assembles the profile's launch line client-side and
// offers it for editing. Whatever the user confirms is sent to the daemon
// as a verbatim command override.
func editLaunchCommand(client *apiClient, profileID string) (string, error) {
	if profileID == "" {
		var settings struct {
			DefaultProfile string `json:"default_profile"`
		}
		if err := client.do(http.MethodGet, "/api/settings", nil, &settings); err != nil {
			return "", err
		}
		profileID = settings.DefaultProfile
	}

	var prof profile.Profile
	if err := client.do(http.MethodGet, "/api/profiles/"+profileID, nil, &prof); err != nil {
		return "", err
	}
	return command.Build(prof.Source(), prof.Args, command.TerminalEdit(os.Stdin, os.Stdout), "")
}
