package sync

import (
	"fmt"

	"staffsync/pkg/audit"
	"staffsync/pkg/compare"
	"staffsync/pkg/resolve"
	"staffsync/pkg/snapshot"
)

// State names the orchestrator's position in its pipeline.
type State string

const (
	// StateAnalyzing runs the comparator over freshly loaded inputs.
	StateAnalyzing State = "analyzing"
	// StateSnapshotting captures pre-sync store state.
	StateSnapshotting State = "snapshotting"
	// StateResolving applies the resolution strategy.
	StateResolving State = "resolving"
	// StateCommitting applies the mutation to the store.
	StateCommitting State = "committing"
	// StateRollingBack restores the run's snapshot after a failed commit.
	StateRollingBack State = "rolling_back"
	// StateDone is the successful terminal state.
	StateDone State = "done"
	// StateRolledBack is the terminal state after a successful rollback.
	StateRolledBack State = "rolled_back"
	// StateFailed is the terminal state for unrecoverable errors.
	StateFailed State = "failed"
)

// Report is the structured result of every orchestrator invocation.
// Callers always receive counts, the conflict list, the pending list and
// the final status — never a bare success/failure boolean.
type Report struct {
	Run        audit.SyncRun           `json:"run"`
	Analysis   *compare.Analysis       `json:"analysis,omitempty"`
	Resolution *resolve.Result         `json:"resolution,omitempty"`
	Restore    *snapshot.RestoreResult `json:"restore,omitempty"`
	State      State                   `json:"state"`
}

// Summary returns a human-readable one-line summary.
func (r *Report) Summary() string {
	base := fmt.Sprintf("[%s] %s", r.Run.Status, r.Run.EntityType)
	if r.Analysis != nil {
		base += " " + r.Analysis.Summary()
	}
	if r.Resolution != nil {
		base += " " + r.Resolution.Summary()
	}
	if r.Run.SnapshotID != "" {
		base += fmt.Sprintf(" snapshot=%s", r.Run.SnapshotID)
	}
	return base
}
