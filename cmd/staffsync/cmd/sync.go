package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"staffsync/pkg/logging"
	"staffsync/pkg/resolve"
	syncpkg "staffsync/pkg/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile a source export into the store",
	Long: `Sync analyzes the source export against the store, captures a snapshot,
resolves conflicts under the chosen strategy and commits the result.
A failed commit rolls the store back to the snapshot automatically.

Conflicts the strategy cannot resolve are reported as pending and left
untouched in the store; supply --decisions with a JSON file of manual
decisions to settle them on a follow-up run.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringP("input", "i", "", "path to the source export file (required)")
	syncCmd.Flags().StringP("entity", "e", "", "entity type: person or site (required)")
	syncCmd.Flags().String("format", "", "input format: json or yaml (default: from extension)")
	syncCmd.Flags().StringP("strategy", "s", "source_wins",
		"resolution strategy: source_wins, store_wins, newest_wins, manual, merge")
	syncCmd.Flags().Bool("dry-run", false, "analyze only; no snapshot, no mutation")
	syncCmd.Flags().String("decisions", "", "path to a JSON file of manual decisions keyed by entity key")
	syncCmd.Flags().Bool("escalate-critical", false,
		"route undecided conflicts on critical fields to pending regardless of strategy")
	syncCmd.Flags().StringSlice("field-strategy", nil,
		"per-field strategy override as field=strategy (repeatable)")
	_ = syncCmd.MarkFlagRequired("input")
	_ = syncCmd.MarkFlagRequired("entity")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("input")
	entity, _ := cmd.Flags().GetString("entity")
	format, _ := cmd.Flags().GetString("format")
	strategyName, _ := cmd.Flags().GetString("strategy")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	decisionsPath, _ := cmd.Flags().GetString("decisions")
	escalate, _ := cmd.Flags().GetBool("escalate-critical")

	entityType, err := parseEntityType(entity)
	if err != nil {
		return err
	}
	adapter, err := newAdapter(input, format, entityType)
	if err != nil {
		return err
	}
	strategy, err := resolve.ParseStrategy(strategyName)
	if err != nil {
		return err
	}
	decisions, err := loadDecisions(decisionsPath)
	if err != nil {
		return err
	}
	fieldStrategies, _ := cmd.Flags().GetStringSlice("field-strategy")
	overrides, err := parseFieldOverrides(fieldStrategies)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	var opts []syncpkg.SyncOption
	if dryRun {
		opts = append(opts, syncpkg.WithDryRun())
	}
	if len(decisions) > 0 {
		opts = append(opts, syncpkg.WithDecisions(decisions))
	}
	if escalate {
		opts = append(opts, syncpkg.WithEscalateCritical())
	}
	if len(overrides) > 0 {
		opts = append(opts, syncpkg.WithFieldOverrides(overrides))
	}

	report, err := a.orchestrator.Sync(cmd.Context(), adapter, strategy, opts...)
	if report != nil && report.Run.Pending > 0 {
		logging.Warn().
			Strs("pending_keys", report.Run.PendingKeys).
			Msg("conflicts await manual decisions; re-run with --decisions")
	}
	if report != nil {
		if printErr := printJSON(report); printErr != nil && err == nil {
			err = printErr
		}
		fmt.Fprintln(cmd.ErrOrStderr(), report.Summary())
	}
	return err
}
