package cmd

import (
	"github.com/spf13/cobra"

	"staffsync/pkg/logging"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <snapshot-id>",
	Short: "Restore the store to a previously captured snapshot",
	Long: `Rollback replaces the store's state for the snapshot's entity type with
the snapshot's records. The restore is atomic: it either completes or
leaves the store untouched. Restoring the same snapshot twice yields
the same store state.`,
	Args: cobra.ExactArgs(1),
	RunE: runRollback,
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.orchestrator.Rollback(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	logging.Info().
		Str("snapshot_id", result.SnapshotID).
		Int("records_restored", result.RecordsRestored).
		Msg("rollback complete")
	return printJSON(result)
}
