// Package cmd implements the staffsync command-line interface.
package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"staffsync/internal/config"
	"staffsync/pkg/audit"
	"staffsync/pkg/logging"
	"staffsync/pkg/snapshot"
	"staffsync/pkg/store"
	"staffsync/pkg/sync"
)

var rootCmd = &cobra.Command{
	Use:   "staffsync",
	Short: "Reconcile external staffing data against the record store",
	Long: `staffsync ingests periodic snapshots of authoritative external data
(JSON or YAML exports) and reconciles them against the persistent record
store, producing a deterministic, auditable, reversible set of changes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logging.Error().Err(err).Msg("command failed")
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().String("data-dir", "", "data directory (default ~/.staffsync)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "emit JSON logs instead of console output")
}

// app bundles the wired components behind every subcommand.
type app struct {
	cfg          *config.Config
	store        *store.SQLite
	snapshots    *snapshot.Manager
	journal      *audit.Journal
	orchestrator *sync.Orchestrator
}

// newApp loads config and opens the databases.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.SetDataDir(dir)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}

	setupLogging(cmd, cfg)
	logging.Debug().Str("data_dir", cfg.DataDir).Msg("configuration loaded")

	st, err := store.OpenSQLite(cfg.StoreDB)
	if err != nil {
		return nil, err
	}
	snaps, err := snapshot.Open(cfg.SnapshotDB,
		snapshot.WithRetry(cfg.RestoreMaxRetries, cfg.RestoreBaseDelay))
	if err != nil {
		st.Close()
		return nil, err
	}
	journal, err := audit.Open(cfg.AuditDB)
	if err != nil {
		st.Close()
		snaps.Close()
		return nil, err
	}

	orch, err := sync.New(
		sync.WithStore(st),
		sync.WithSnapshots(snaps),
		sync.WithJournal(journal),
	)
	if err != nil {
		st.Close()
		snaps.Close()
		journal.Close()
		return nil, err
	}

	return &app{
		cfg:          cfg,
		store:        st,
		snapshots:    snaps,
		journal:      journal,
		orchestrator: orch,
	}, nil
}

// close releases the app's database handles.
func (a *app) close() {
	a.journal.Close()
	a.snapshots.Close()
	a.store.Close()
}

// setupLogging applies flag and config logging choices to the global
// logger.
func setupLogging(cmd *cobra.Command, cfg *config.Config) {
	level := cfg.LogLevel
	if flagLevel, _ := cmd.Flags().GetString("log-level"); flagLevel != "" {
		level = flagLevel
	}
	if parsed, err := zerolog.ParseLevel(level); err == nil {
		zerolog.SetGlobalLevel(parsed)
	}

	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	if jsonLogs || cfg.LogFormat == "json" {
		logging.SetDefault(logging.NewJSON(os.Stderr))
	} else {
		logging.SetDefault(logging.NewConsole())
	}

	// Downstream components pick the logger up from the context.
	cmd.SetContext(logging.WithLogger(cmd.Context(), logging.Default()))
}
