// Package cli implements the workflowdesk command-line interface.
//
// Commands are built with cobra around an [App], which carries the loaded
// configuration and the collaborators every command needs. Tests construct an
// App directly, point it at a fake API server and run [NewRootCommand] with
// SetArgs; [RunWithConfig] and [Execute] are the production entry points.
//
// Key types:
//   - [App] holds configuration, the printer, the logger and the confirmer
//   - [ExitError] carries a process exit code out of a RunE function
//   - [ExecuteResult] is the outcome of one CLI invocation
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"workflowdesk/internal/api"
	"workflowdesk/internal/config"
	"workflowdesk/internal/logging"
	"workflowdesk/internal/output"
	"workflowdesk/internal/snapshot"
	"workflowdesk/internal/transition"
	"workflowdesk/internal/workflow"
)

// Build information, set with -ldflags at release time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// ErrSnapshotReadOnly is returned by commands that change data while a
// snapshot file is the data source.
var ErrSnapshotReadOnly = errors.New("snapshot mode is read-only; drop --snapshot to use the API")

// App is the dependency container shared by all commands.
type App struct {
	Config  *config.Config
	Printer *output.Printer

	// Logger defaults to one built from Config.Logging.
	Logger *slog.Logger

	// Confirmer approves deletes. When nil, commands prompt on the
	// command's stdin.
	Confirmer transition.Confirmer

	flags globalFlags
}

type globalFlags struct {
	configPath   string
	apiURL       string
	snapshotPath string
	logLevel     string
	json         bool
}

// ExecuteResult is the outcome of [RunWithConfig].
type ExecuteResult struct {
	ExitCode int
	Err      error
}

// NewRootCommand builds the command tree for app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "workflowdesk",
		Short: "Track tax workflows through their template stages",
		Long: `workflowdesk is a terminal client for the workflow API of a tax
practice management platform.

It renders the stage pipeline of a workflow template, moves tax cases
between stages and manages the templates themselves.

Examples:
  workflowdesk board --template tpl-1040
  workflowdesk advance inst-42
  workflowdesk templates create --name "Individual 1040" --stages stages.csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default is the user config dir)")
	pf.StringVar(&app.flags.apiURL, "api-url", "", "workflow API base URL")
	pf.StringVar(&app.flags.snapshotPath, "snapshot", "", "read data from a snapshot file instead of the API")
	pf.StringVar(&app.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&app.flags.json, "json", false, "print JSON instead of formatted output")

	rootCmd.AddCommand(
		newBoardCommand(app),
		newTemplatesCommand(app),
		newInstancesCommand(app),
		newAdvanceCommand(app),
		newCompleteCommand(app),
		newDeleteCommand(app),
		newStartCommand(app),
		newStatsCommand(app),
		newConfigCommand(app),
		newVersionCommand(),
	)
	return rootCmd
}

// setup applies the global flags on top of the loaded configuration.
func (app *App) setup() error {
	if app.Config == nil {
		app.Config = config.DefaultConfig()
	}
	if app.flags.configPath != "" {
		cfg, err := config.NewLoader().LoadFromFile(app.flags.configPath)
		if err != nil {
			return app.fail(err)
		}
		app.Config = cfg
	}
	if app.flags.apiURL != "" {
		app.Config.API.BaseURL = app.flags.apiURL
	}
	if app.flags.snapshotPath != "" {
		app.Config.SnapshotPath = app.flags.snapshotPath
	}
	app.Config.Logging.Merge(&logging.Config{Level: logging.Level(app.flags.logLevel)})
	if err := app.Config.Logging.Finalize(); err != nil {
		return app.fail(err)
	}

	app.setupOutput()
	return nil
}

// setupOutput fills in the printer and logger from the current config.
func (app *App) setupOutput() {
	if app.Config == nil {
		app.Config = config.DefaultConfig()
	}
	if app.Printer == nil {
		app.Printer = output.NewPrinter()
	}
	app.Printer.SetCardWidth(app.Config.Board.CardWidth)
	if app.Logger == nil {
		app.Logger = logging.New(&app.Config.Logging)
	}
}

// snapshotPath returns the snapshot file in use, or "" for API mode.
func (app *App) snapshotPath() string {
	return snapshot.ResolvePath(".", app.Config.SnapshotPath)
}

// client builds an API client from the configuration.
func (app *App) client() (*api.Client, error) {
	if app.snapshotPath() != "" {
		return nil, ErrSnapshotReadOnly
	}
	cfg, err := app.Config.ClientConfig()
	if err != nil {
		return nil, err
	}
	c := api.New(cfg)
	c.SetLogger(app.Logger)
	return c, nil
}

// source returns the data source: the snapshot file when one is configured,
// the API otherwise.
func (app *App) source() (workflow.Source, error) {
	if path := app.snapshotPath(); path != "" {
		app.Logger.Debug("using snapshot", "path", path)
		return snapshot.NewReader(path), nil
	}
	c, err := app.client()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// manager creates a workflow manager over the configured source.
func (app *App) manager() (*workflow.Manager, error) {
	src, err := app.source()
	if err != nil {
		return nil, err
	}
	m := workflow.NewManager(src, app.Printer)
	m.SetLogger(app.Logger)
	return m, nil
}

// controller creates a transition controller that refreshes m after each
// successful transition.
func (app *App) controller(cmd *cobra.Command, m *workflow.Manager, confirmer transition.Confirmer) (*transition.Controller, error) {
	c, err := app.client()
	if err != nil {
		return nil, err
	}
	ctrl := transition.NewController(c, app.Printer, m)
	ctrl.SetLogger(app.Logger)
	if confirmer == nil {
		confirmer = app.confirmer(cmd)
	}
	ctrl.SetConfirmer(confirmer)
	return ctrl, nil
}

func (app *App) confirmer(cmd *cobra.Command) transition.Confirmer {
	if app.Confirmer != nil {
		return app.Confirmer
	}
	return newPromptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
}

// fail shows err and converts it into an exit code.
func (app *App) fail(err error) error {
	if app.Printer == nil {
		app.Printer = output.NewPrinter()
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		app.Printer.Error(api.UserMessage(err))
	} else {
		app.Printer.Error(err.Error())
	}
	if app.Logger != nil {
		app.Logger.Debug("command failed", "error", err)
	}
	return NewExitError(1)
}

// exit converts an error returned by the manager or the transition
// controller. API failures were already shown by them.
func (app *App) exit(err error) error {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		app.Logger.Debug("command failed", "error", err)
		return NewExitError(1)
	}
	return app.fail(err)
}

// RunWithConfig runs the CLI with cfg and returns the exit code instead of
// exiting.
func RunWithConfig(cfg *config.Config) ExecuteResult {
	app := &App{
		Config:  cfg,
		Printer: output.NewPrinter(),
	}

	rootCmd := NewRootCommand(app)
	if err := rootCmd.Execute(); err != nil {
		if code, ok := IsExitError(err); ok {
			return ExecuteResult{ExitCode: code, Err: err}
		}
		// Flag and argument errors from cobra itself.
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExecuteResult{ExitCode: 1, Err: err}
	}
	return ExecuteResult{ExitCode: 0}
}

// Execute loads the configuration, runs the CLI and exits the process.
func Execute() {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}
	os.Exit(RunWithConfig(cfg).ExitCode)
}
