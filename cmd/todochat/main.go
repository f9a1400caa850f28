package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tgienger/todochat/internal/api"
	"github.com/tgienger/todochat/internal/config"
	"github.com/tgienger/todochat/internal/db"
	"github.com/tgienger/todochat/internal/logging"
	"github.com/tgienger/todochat/internal/session"
	"github.com/tgienger/todochat/internal/ui"
	"github.com/tgienger/todochat/internal/ui/views"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	// Global flags
	apiURL     string
	configPath string
	verbose    bool
)

var errNotSignedIn = errors.New("not signed in: run todochat to sign in")

// rootCmd runs the TUI
var rootCmd = &cobra.Command{
	Use:     "todochat",
	Short:   "Terminal client for the todo service and its chat assistant",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Long: `todochat manages your tasks on a todo backend and lets you talk to its
task assistant.

Run without arguments to start the interactive interface.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup()
		if err != nil {
			return err
		}
		defer env.Close()

		env.session.Clear()
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "todochat %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (or set "+config.EnvAPIURL+")")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.SetVersionTemplate("todochat {{.Version}}\n")

	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(mockServerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is everything a command needs to talk to the backend
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *db.DB
	session *session.Session
	client  *api.Client
}

func (e *env) Close() {
	_ = e.db.Close()
	_ = e.logger.Sync()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = strings.TrimRight(apiURL, "/")
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setup() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	sess := session.New(database, logger)
	client := api.New(cfg.APIURL, sess, api.WithLogger(logger))

	logger.Debug("client configured",
		zap.String("api_url", cfg.APIURL),
		zap.String("db", cfg.DBPath),
	)
	return &env{cfg: cfg, logger: logger, db: database, session: sess, client: client}, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app := ui.NewApp(ctx, env.client, env.session)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	// A 401 anywhere sends the user back to the login screen
	env.client.SetUnauthorizedHandler(func() {
		go p.Send(views.SessionExpiredMsg{})
	})

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running application: %w", err)
	}
	return nil
}
