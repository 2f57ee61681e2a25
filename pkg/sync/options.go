package sync

import (
	"time"

	"github.com/rs/zerolog"

	"staffsync/pkg/audit"
	"staffsync/pkg/records"
	"staffsync/pkg/resolve"
	"staffsync/pkg/snapshot"
	"staffsync/pkg/store"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore sets the persistent store the orchestrator reads and writes.
func WithStore(s store.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithSnapshots sets the snapshot manager.
func WithSnapshots(m *snapshot.Manager) Option {
	return func(o *Orchestrator) { o.snapshots = m }
}

// WithJournal sets the audit journal. Without one, runs are not
// persisted for traceability (tests only).
func WithJournal(j *audit.Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

// WithRules overrides the per-entity-type field rules provider.
func WithRules(provider func(records.EntityType) *records.FieldRules) Option {
	return func(o *Orchestrator) { o.rules = provider }
}

// WithLookup injects the canonical-value lookup applied to source values.
func WithLookup(lookup records.Lookup) Option {
	return func(o *Orchestrator) { o.lookup = lookup }
}

// WithLogger sets the orchestrator's logger. Without one, each call
// uses the logger carried by its context.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithClock overrides the run timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// syncConfig carries the per-invocation knobs of Sync.
type syncConfig struct {
	dryRun           bool
	decisions        map[string]records.Decision
	fieldOverrides   map[string]resolve.Strategy
	escalateCritical bool
}

// SyncOption configures one Sync invocation.
type SyncOption func(*syncConfig)

// WithDryRun stops the run after analysis: no snapshot, no mutation.
func WithDryRun() SyncOption {
	return func(c *syncConfig) { c.dryRun = true }
}

// WithDecisions supplies manual decisions keyed by entity key.
func WithDecisions(decisions map[string]records.Decision) SyncOption {
	return func(c *syncConfig) { c.decisions = decisions }
}

// WithFieldOverrides selects a different strategy for specific fields.
func WithFieldOverrides(overrides map[string]resolve.Strategy) SyncOption {
	return func(c *syncConfig) { c.fieldOverrides = overrides }
}

// WithEscalateCritical routes conflicts on critical fields to pending
// unless a decision covers them, regardless of strategy.
func WithEscalateCritical() SyncOption {
	return func(c *syncConfig) { c.escalateCritical = true }
}
