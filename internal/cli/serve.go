package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nverno/inf-perl/internal/api"
	"github.com/nverno/inf-perl/internal/config"
	"github.com/nverno/inf-perl/internal/db"
	"github.com/nverno/inf-perl/internal/hub"
	"github.com/nverno/inf-perl/internal/profile"
	"github.com/nverno/inf-perl/internal/script"
	"github.com/nverno/inf-perl/internal/server"
	"github.com/nverno/inf-perl/internal/session"
	"github.com/spf13/cobra"
)

// Flags for the serve command.
var (
	servePort           int
	serveToken          string
	serveDataDir        string
	serveProfileDir     string
	serveScriptDir      string
	serveDefaultProfile string
	servePrintToken     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the inf-perl daemon",
	Long: `Run the daemon that owns the REPL processes and serves the REST and
WebSocket API. SIGINT or SIGTERM stops every session gracefully, which
writes each session's input history before the process goes away.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default 7678)")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "authentication token (auto-generated if empty)")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "data directory (default ~/.local/share/inf-perl)")
	serveCmd.Flags().StringVar(&serveProfileDir, "profile-dir", "", "profile directory (default ~/.config/inf-perl/profiles)")
	serveCmd.Flags().StringVar(&serveScriptDir, "script-dir", "", "script directory (default ~/.config/inf-perl/scripts)")
	serveCmd.Flags().StringVar(&serveDefaultProfile, "default-profile", "", "profile used when none is named (default reply)")
	serveCmd.Flags().BoolVar(&servePrintToken, "print-token", false, "print token to stdout (for local debugging)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.Overrides{
		Port:           servePort,
		Token:          serveToken,
		DataDir:        serveDataDir,
		ProfileDir:     serveProfileDir,
		ScriptDir:      serveScriptDir,
		DefaultProfile: serveDefaultProfile,
		ConfigPath:     configPath,
		PrintToken:     servePrintToken,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	profiles, err := profile.NewRegistry(cfg.ProfileDir)
	if err != nil {
		return fmt.Errorf("profile registry: %w", err)
	}
	scripts, err := script.NewRegistry(cfg.ScriptDir)
	if err != nil {
		return fmt.Errorf("script registry: %w", err)
	}

	// A default profile set through the settings API survives restarts.
	// An explicit --default-profile flag still wins.
	if serveDefaultProfile == "" {
		settings := db.NewSettingsRepo(database.SQL())
		if stored, err := settings.Get(ctx, "default_profile"); err == nil && stored != "" && profiles.Get(stored) != nil {
			cfg.DefaultProfile = stored
		}
	}

	var mgr *session.Manager
	h := hub.New(cfg.Token, func(name, line string) {
		if err := mgr.SendInput(context.Background(), name, line); err != nil {
			slog.Warn("input dropped", "session", name, "error", err)
		}
	})
	mgr = session.NewManager(database.SQL(), profiles, h, cfg.DefaultProfile)
	h.SetOnKey(func(name, key string) {
		if err := mgr.SendKey(name, key); err != nil {
			slog.Warn("key dropped", "session", name, "key", key, "error", err)
		}
	})
	h.SetOnResize(func(name string, cols, rows int) {
		if err := mgr.Resize(name, cols, rows); err != nil {
			slog.Warn("resize dropped", "session", name, "error", err)
		}
	})
	go h.Run(ctx)

	srv := server.New(cfg, h, api.NewRouter(database.SQL(), mgr, profiles, scripts, cfg.Token))

	if cfg.PrintToken {
		fmt.Printf("\ninf-perl running at http://%s  token=%s\n\n", srv.Addr(), cfg.Token)
	}

	serveErr := srv.Start(ctx)
	mgr.Close()
	return serveErr
}
