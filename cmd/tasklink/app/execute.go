package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/tasklink/internal/cmd/output"
	"github.com/agentstation/tasklink/pkg/logging"
)

// Execute runs the CLI with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.createRootCommand()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	return root.ExecuteContext(ctx)
}

func (a *App) createRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "tasklink",
		Short:   "Link and watch tasks across two task systems",
		Version: a.version,
		Long: `tasklink keeps a tracker and a planner loosely in sync.

It proposes links between records that describe the same piece of work,
stores the accepted pairs, and reports what changed on either side since
each pair's last snapshot.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "management", Title: "Management Commands:"},
	)

	f := a.flags
	root.PersistentFlags().StringVar(&f.ConfigFile, "config", "", "config file (default is $HOME/.tasklink.yaml)")
	root.PersistentFlags().BoolVarP(&f.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	root.PersistentFlags().BoolVarP(&f.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	root.PersistentFlags().BoolVar(&f.NoColor, "no-color", f.NoColor, "disable colored output")
	root.PersistentFlags().StringVarP(&f.Format, "format", "o", "", "output format: table, wide, json, yaml")
	root.PersistentFlags().StringVar(&f.LogLevel, "log-level", f.LogLevel, "log level: trace, debug, info, warn, error (overrides -v/-q)")

	root.SetVersionTemplate("tasklink {{.Version}}\n")

	a.registerCommands(root)
	return root
}

// setupCommand rebuilds the logger from the parsed flags and attaches it
// to the command context.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if _, err := output.ParseFormat(a.flags.Format); err != nil {
		return err
	}

	logger := NewLogger(a.flags, a.stderr)
	a.logger = &logger

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.WithLogger(ctx, a.logger))
	return nil
}

func (a *App) registerCommands(root *cobra.Command) {
	root.AddCommand(a.newMatchCommand())
	root.AddCommand(a.newLinkCommand())
	root.AddCommand(a.newUnlinkCommand())
	root.AddCommand(a.newSnapshotCommand())
	root.AddCommand(a.newDetectCommand())
	root.AddCommand(a.newChangesCommand())

	root.AddCommand(a.newPairsCommand())
	root.AddCommand(a.newServeCommand())
	root.AddCommand(a.newVersionCommand())
}

// render writes a command result in the requested format.
func (a *App) render(data any, table output.TableFunc) error {
	format, err := a.flags.OutputFormat()
	if err != nil {
		return err
	}
	return output.Render(a.stdout, format, data, table)
}

// ExitOnError prints err and exits with status 1. A nil err is a no-op.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
