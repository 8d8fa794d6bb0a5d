package app

import (
	"fmt"

	"github.com/agentstation/utc"
	"github.com/spf13/cobra"

	"github.com/agentstation/tasklink"
	"github.com/agentstation/tasklink/internal/cmd/output"
	"github.com/agentstation/tasklink/internal/store/yamlfile"
	"github.com/agentstation/tasklink/pkg/constants"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/matcher"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/store"
)

// ErrDriftDetected is returned by detect --exit-code when any pair drifted.
var ErrDriftDetected = errors.New("drift detected")

func (a *App) newMatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "match",
		GroupID: "core",
		Short:   "Propose links between unlinked records",
	}
	cmd.AddCommand(a.newSuggestCommand(), a.newAutoCommand())
	return cmd
}

func addMatchFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("min", 0, "minimum confidence (default from match.min_confidence)")
	cmd.Flags().String("strategy", "", "processing order: ordered or size-biased")
}

func matchOptions(cmd *cobra.Command) (tasklink.MatchOptions, error) {
	minConf, _ := cmd.Flags().GetFloat64("min")
	if minConf < 0 || minConf > 1 {
		return tasklink.MatchOptions{}, errors.NewValidationError("min", minConf, "must be within [0,1]")
	}
	opts := tasklink.MatchOptions{MinConfidence: minConf}

	if s, _ := cmd.Flags().GetString("strategy"); s != "" {
		strategy, err := matcher.ParseStrategy(s)
		if err != nil {
			return opts, errors.NewValidationError("strategy", s, err.Error())
		}
		opts.Strategy = strategy
	}
	return opts, nil
}

func (a *App) newSuggestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <source-id>",
		Short: "Score one tracker record against unlinked planner records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := matchOptions(cmd)
			if err != nil {
				return err
			}
			c, err := a.Client()
			if err != nil {
				return err
			}

			res, err := c.Suggest(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			if accept, _ := cmd.Flags().GetBool("accept"); accept {
				if len(res.Candidates) == 0 {
					return errors.NewNotFoundError("candidate", args[0])
				}
				pair, err := c.Accept(cmd.Context(), records.SuggestedMatch{
					SourceID:   res.Source.ID,
					SourceName: res.Source.Name,
					Candidate:  res.Candidates[0],
				})
				if err != nil {
					return err
				}
				pairs := []*records.LinkedPair{pair}
				return a.render(pairs, output.Pairs(pairs))
			}
			return a.render(res, output.Suggestions(res))
		},
	}
	addMatchFlags(cmd)
	cmd.Flags().Bool("accept", false, "accept the best candidate")
	return cmd
}

func (a *App) newAutoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Propose one-to-one links across both systems",
		Long: `Auto-match scores every unlinked tracker record against the unlinked
planner records and assigns each planner record at most once, best
candidates first. With --apply the suggestions are accepted; conflicts are
reported per suggestion.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := matchOptions(cmd)
			if err != nil {
				return err
			}
			apply, _ := cmd.Flags().GetBool("apply")

			c, err := a.Client()
			if err != nil {
				return err
			}
			res, err := c.AutoMatchAll(cmd.Context(), tasklink.AutoMatchOptions{MatchOptions: opts, Apply: apply})
			if err != nil {
				return err
			}
			return a.render(res, output.AutoMatch(res))
		},
	}
	addMatchFlags(cmd)
	cmd.Flags().Bool("apply", false, "accept all suggestions")
	return cmd
}

func (a *App) newLinkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "link <source-id> [target-id]",
		GroupID: "core",
		Short:   "Link two records manually",
		Long: `Link binds a tracker record to a planner record with confidence 1.0.

With --side and a single id, a one-sided pair is created to be completed
later by a match or another link.`,
		Example: `  tasklink link r-12 t-88
  tasklink link --side b t-90 --name "Write release notes"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.Client()
			if err != nil {
				return err
			}

			var pair *records.LinkedPair
			sideFlag, _ := cmd.Flags().GetString("side")
			switch {
			case len(args) == 2:
				pair, err = c.Link(cmd.Context(), args[0], args[1])
			case sideFlag != "":
				side, perr := records.ParseSide(sideFlag)
				if perr != nil {
					return perr
				}
				name, _ := cmd.Flags().GetString("name")
				pair, err = c.LinkOneSided(cmd.Context(), side, args[0], name)
			default:
				return errors.NewValidationError("target-id", "", "required unless --side is set")
			}
			if err != nil {
				return err
			}
			pairs := []*records.LinkedPair{pair}
			return a.render(pairs, output.Pairs(pairs))
		},
	}
	cmd.Flags().String("side", "", "create a one-sided pair on side a or b")
	cmd.Flags().String("name", "", "record name for a one-sided pair")
	return cmd
}

func (a *App) newUnlinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "unlink <pair-id>",
		GroupID: "core",
		Short:   "Remove a pair and its snapshot",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.Client()
			if err != nil {
				return err
			}
			if err := c.Unlink(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Unlinked %s\n", args[0])
			return nil
		},
	}
}

func (a *App) newSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshot [pair-id]",
		GroupID: "core",
		Short:   "Record the current state of linked pairs as the diff baseline",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if all == (len(args) == 1) {
				return errors.NewValidationError("pair-id", args, "give a pair id or --all")
			}

			c, err := a.Client()
			if err != nil {
				return err
			}
			if all {
				res, err := c.SnapshotAll(cmd.Context())
				if err != nil {
					return err
				}
				return a.render(res, output.Snapshots(res))
			}

			snap, err := c.TakeSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(snap, output.Snapshot(snap))
		},
	}
	cmd.Flags().Bool("all", false, "snapshot every linked pair")
	return cmd
}

func (a *App) newDetectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "detect",
		GroupID: "core",
		Short:   "Report drift since each pair's last snapshot",
		Long: `Detect compares every linked pair against its snapshot, appends the
differences to the change log and refreshes the snapshots. Pairs without a
snapshot are reported as new; with --baseline-new they get one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			baseline, _ := cmd.Flags().GetBool("baseline-new")
			exitCode, _ := cmd.Flags().GetBool("exit-code")

			c, err := a.Client()
			if err != nil {
				return err
			}
			report, err := c.DetectChanges(cmd.Context(), tasklink.DetectOptions{BaselineNew: baseline})
			if err != nil {
				return err
			}
			if err := a.render(report, output.Report(report)); err != nil {
				return err
			}
			if exitCode && report.HasDrift() {
				return ErrDriftDetected
			}
			return nil
		},
	}
	cmd.Flags().Bool("baseline-new", false, "snapshot pairs that have none yet")
	cmd.Flags().Bool("exit-code", false, "exit non-zero when drift is found")
	return cmd
}

func (a *App) newChangesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "changes",
		GroupID: "core",
		Short:   "List recorded changes, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pairID, _ := cmd.Flags().GetString("pair")
			limit, _ := cmd.Flags().GetInt("limit")
			if limit < 0 {
				return errors.NewValidationError("limit", limit, "cannot be negative")
			}

			c, err := a.Client()
			if err != nil {
				return err
			}
			changes, err := c.Changes(cmd.Context(), store.ChangeFilter{PairID: pairID, Limit: limit})
			if err != nil {
				return err
			}
			return a.render(changes, output.Changes(changes))
		},
	}
	cmd.Flags().String("pair", "", "only changes of this pair")
	cmd.Flags().Int("limit", constants.DefaultChangeLimit, "maximum number of changes, 0 for all")
	return cmd
}

func (a *App) newPairsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pairs",
		GroupID: "management",
		Short:   "List, import and export linked pairs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.Client()
			if err != nil {
				return err
			}
			pairs, err := c.Pairs(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(pairs, output.Pairs(pairs))
		},
	}

	show := &cobra.Command{
		Use:   "show <pair-id>",
		Short: "Show one pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.Client()
			if err != nil {
				return err
			}
			pair, err := c.Pair(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pairs := []*records.LinkedPair{pair}
			return a.render(pair, output.Pairs(pairs))
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import pairs from a YAML file",
		Long: `Import runs every entry of a pairs file through the same acceptance
rules as a match. Entries holding one id become one-sided pairs. Conflicts
are reported per entry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := yamlfile.ReadFile(args[0])
			if err != nil {
				return err
			}
			c, err := a.Client()
			if err != nil {
				return err
			}
			res, err := c.Import(cmd.Context(), entries)
			if err != nil {
				return err
			}
			return a.render(res, output.Bulk(res))
		},
	}

	export := &cobra.Command{
		Use:   "export [file]",
		Short: "Export pairs as YAML to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.Client()
			if err != nil {
				return err
			}
			pairs, err := c.Pairs(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 0 || args[0] == "-" {
				return yamlfile.Encode(a.stdout, pairs, utc.Now())
			}
			if err := yamlfile.WriteFile(args[0], pairs, utc.Now()); err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "Exported %d pairs to %s\n", len(pairs), args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, importCmd, export)
	return cmd
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		GroupID: "management",
		Short:   "Print version information",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			info := map[string]string{
				"version":  a.version,
				"commit":   a.commit,
				"date":     a.date,
				"built_by": a.builtBy,
			}
			if a.flags.Format == "" {
				fmt.Fprintf(a.stdout, "tasklink %s (commit %s, built %s by %s)\n", a.version, a.commit, a.date, a.builtBy)
				return nil
			}
			return a.render(info, nil)
		},
	}
}
