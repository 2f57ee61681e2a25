package cmd

import (
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compare a source export against the store without mutating anything",
	Long: `Analyze loads the source export and the current store state, classifies
every record as to-create, conflicting or unchanged, and prints the
result. The store is never modified and no lease is taken, so analyze
can run at any time, including while a sync is in progress.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringP("input", "i", "", "path to the source export file (required)")
	analyzeCmd.Flags().StringP("entity", "e", "", "entity type: person or site (required)")
	analyzeCmd.Flags().String("format", "", "input format: json or yaml (default: from extension)")
	_ = analyzeCmd.MarkFlagRequired("input")
	_ = analyzeCmd.MarkFlagRequired("entity")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("input")
	entity, _ := cmd.Flags().GetString("entity")
	format, _ := cmd.Flags().GetString("format")

	entityType, err := parseEntityType(entity)
	if err != nil {
		return err
	}
	adapter, err := newAdapter(input, format, entityType)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	analysis, err := a.orchestrator.Analyze(cmd.Context(), adapter)
	if err != nil {
		return err
	}
	return printJSON(analysis)
}
