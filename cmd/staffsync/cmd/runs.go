package cmd

import (
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the audit journal of sync runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sync runs for an entity type, newest first",
	RunE:  runRunsList,
}

var runsGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Show one sync run in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsGet,
}

func init() {
	runsListCmd.Flags().StringP("entity", "e", "", "entity type: person or site (required)")
	runsListCmd.Flags().IntP("limit", "n", 20, "maximum number of runs to show")
	_ = runsListCmd.MarkFlagRequired("entity")

	runsCmd.AddCommand(runsListCmd, runsGetCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	entity, _ := cmd.Flags().GetString("entity")
	limit, _ := cmd.Flags().GetInt("limit")
	entityType, err := parseEntityType(entity)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	runs, err := a.journal.List(cmd.Context(), entityType, limit)
	if err != nil {
		return err
	}
	return printJSON(runs)
}

func runRunsGet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	run, err := a.journal.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(run)
}
