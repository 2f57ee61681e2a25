package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect and maintain captured snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots for an entity type, newest first",
	RunE:  runSnapshotsList,
}

var snapshotsVerifyCmd = &cobra.Command{
	Use:   "verify <snapshot-id>",
	Short: "Recompute a snapshot's checksum and compare it to the recorded one",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsVerify,
}

var snapshotsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete snapshots older than the retention window",
	RunE:  runSnapshotsPrune,
}

func init() {
	snapshotsListCmd.Flags().StringP("entity", "e", "", "entity type: person or site (required)")
	_ = snapshotsListCmd.MarkFlagRequired("entity")

	snapshotsPruneCmd.Flags().Duration("older-than", 30*24*time.Hour,
		"delete snapshots captured more than this long ago")

	snapshotsCmd.AddCommand(snapshotsListCmd, snapshotsVerifyCmd, snapshotsPruneCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

func runSnapshotsList(cmd *cobra.Command, _ []string) error {
	entity, _ := cmd.Flags().GetString("entity")
	entityType, err := parseEntityType(entity)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	metas, err := a.snapshots.List(cmd.Context(), entityType)
	if err != nil {
		return err
	}
	return printJSON(metas)
}

func runSnapshotsVerify(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.snapshots.Verify(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s verified\n", args[0])
	return nil
}

func runSnapshotsPrune(cmd *cobra.Command, _ []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	cutoff := time.Now().UTC().Add(-olderThan)
	n, err := a.snapshots.Prune(cmd.Context(), cutoff)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pruned %d snapshot(s) older than %s\n", n, cutoff.Format(time.RFC3339))
	return nil
}
