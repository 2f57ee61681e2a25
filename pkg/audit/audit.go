// Package audit persists one SyncRun record per orchestrator invocation.
// The journal is append-only: entries are never updated or deleted, so
// every sync — including dry runs and failures — stays traceable.
package audit

import (
	"time"

	"staffsync/pkg/records"
)

// Status is the final outcome of a sync run.
type Status string

const (
	// StatusCommitted means the mutation was applied in full.
	StatusCommitted Status = "committed"
	// StatusPartial means creations and resolved updates committed but
	// pending conflicts were left untouched.
	StatusPartial Status = "partial"
	// StatusRolledBack means the commit failed and the snapshot was
	// restored; the sync had no net effect.
	StatusRolledBack Status = "rolled_back"
	// StatusAnalyzedOnly means the run stopped after analysis with no
	// store mutation.
	StatusAnalyzedOnly Status = "analyzed_only"
	// StatusFailed means an unrecoverable error occurred.
	StatusFailed Status = "failed"
)

// SyncRun is the audit record binding one analysis, the chosen strategy,
// the snapshot taken (if mutating), the resolution counts and the final
// outcome.
type SyncRun struct {
	ID         string             `json:"id"`
	EntityType records.EntityType `json:"entity_type"`
	Strategy   string             `json:"strategy"`
	DryRun     bool               `json:"dry_run"`
	SnapshotID string             `json:"snapshot_id,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`

	// Analysis counts
	ToCreate  int `json:"to_create"`
	Conflicts int `json:"conflicts"`
	Unchanged int `json:"unchanged"`
	StoreOnly int `json:"store_only"`

	// Resolution counts
	ResolvedSource int `json:"resolved_source"`
	ResolvedStore  int `json:"resolved_store"`
	ResolvedManual int `json:"resolved_manual"`
	Pending        int `json:"pending"`

	// PendingKeys lists the keys awaiting decisions.
	PendingKeys []string `json:"pending_keys,omitempty"`

	// DecidedBy maps manually decided keys to who supplied the
	// decision.
	DecidedBy map[string]string `json:"decided_by,omitempty"`

	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}
