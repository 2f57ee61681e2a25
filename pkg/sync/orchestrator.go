// Package sync sequences dry-run analysis, snapshot capture, conflict
// resolution, commit and rollback-on-failure for one entity type at a
// time. Side effects are confined to the snapshotting and committing
// states; analysis and resolution are pure computations over
// already-loaded data.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"staffsync/pkg/audit"
	"staffsync/pkg/compare"
	"staffsync/pkg/errors"
	"staffsync/pkg/logging"
	"staffsync/pkg/records"
	"staffsync/pkg/resolve"
	"staffsync/pkg/snapshot"
	"staffsync/pkg/source"
	"staffsync/pkg/store"
)

// Orchestrator exposes the externally visible sync operations:
// Analyze (never mutates), Sync (snapshots first when it will mutate)
// and Rollback.
type Orchestrator struct {
	store     store.Store
	snapshots *snapshot.Manager
	journal   *audit.Journal
	rules     func(records.EntityType) *records.FieldRules
	lookup    records.Lookup
	leases    *leaseTable
	logger    *zerolog.Logger
	clock     func() time.Time
}

// New creates an Orchestrator. A store and a snapshot manager are
// required; everything else has defaults.
func New(opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		rules:  records.DefaultRules,
		lookup: records.NoLookup{},
		leases: newLeaseTable(),
		clock:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		return nil, errors.NewValidationError("store", nil, "orchestrator requires a store")
	}
	if o.snapshots == nil {
		return nil, errors.NewValidationError("snapshots", nil, "orchestrator requires a snapshot manager")
	}
	return o, nil
}

// Analyze loads source and store state and reports the difference. It
// never mutates, takes no lease, and may run concurrently with any other
// operation.
func (o *Orchestrator) Analyze(ctx context.Context, adapter source.Adapter) (*compare.Analysis, error) {
	entityType := adapter.EntityType()
	started := o.clock()

	analysis, err := o.analyze(ctx, adapter)
	if err != nil {
		return nil, err
	}

	o.appendRun(ctx, audit.SyncRun{
		ID:         newRunID(),
		EntityType: entityType,
		DryRun:     true,
		StartedAt:  started,
		FinishedAt: o.clock(),
		ToCreate:   len(analysis.ToCreate),
		Conflicts:  len(analysis.Conflicts),
		Unchanged:  len(analysis.Unchanged),
		StoreOnly:  len(analysis.StoreOnly),
		Status:     audit.StatusAnalyzedOnly,
	})
	return analysis, nil
}

// Sync reconciles the adapter's records into the store under the given
// strategy. A mutating run always captures a snapshot first and rolls
// back to it if the commit fails. The returned report is populated for
// every outcome, including failures.
func (o *Orchestrator) Sync(ctx context.Context, adapter source.Adapter, strategy resolve.Strategy, opts ...SyncOption) (*Report, error) {
	cfg := &syncConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	entityType := adapter.EntityType()
	report := &Report{State: StateAnalyzing}
	run := audit.SyncRun{
		ID:         newRunID(),
		EntityType: entityType,
		Strategy:   string(strategy),
		DryRun:     cfg.dryRun,
		StartedAt:  o.clock(),
	}

	log := o.log(ctx).With().
		Str("run_id", run.ID).
		Str("entity_type", string(entityType)).
		Str("strategy", string(strategy)).
		Logger()

	// ANALYZING: pure computation over concurrently loaded inputs.
	analysis, err := o.analyze(ctx, adapter)
	if err != nil {
		return o.finish(ctx, report, run, StateFailed, audit.StatusFailed, err)
	}
	report.Analysis = analysis
	run.ToCreate = len(analysis.ToCreate)
	run.Conflicts = len(analysis.Conflicts)
	run.Unchanged = len(analysis.Unchanged)
	run.StoreOnly = len(analysis.StoreOnly)

	if cfg.dryRun {
		log.Info().Msg("dry run complete")
		return o.finish(ctx, report, run, StateDone, audit.StatusAnalyzedOnly, nil)
	}

	// Cancellation is honored before any store mutation.
	if err := ctx.Err(); err != nil {
		return o.finish(ctx, report, run, StateFailed, audit.StatusFailed, err)
	}

	// The lease guards the store against a second mutating sync of the
	// same entity type.
	if !o.leases.acquire(entityType) {
		return o.finish(ctx, report, run, StateFailed, audit.StatusFailed,
			errors.NewLeaseError(string(entityType)))
	}
	defer o.leases.release(entityType)

	// SNAPSHOTTING: a failure here aborts before the store is touched.
	report.State = StateSnapshotting
	snapshotID, err := o.snapshots.Capture(ctx, entityType, o.store)
	if err != nil {
		log.Error().Err(err).Msg("snapshot capture failed, aborting")
		return o.finish(ctx, report, run, StateFailed, audit.StatusFailed, err)
	}
	run.SnapshotID = snapshotID
	log.Info().Str("snapshot_id", snapshotID).Msg("snapshot captured")

	// RESOLVING: pure computation; still cancellable.
	report.State = StateResolving
	rules := o.rules(entityType)
	resolution, err := resolve.Resolve(analysis.Conflicts, strategy, resolve.Options{
		Decisions:        cfg.decisions,
		FieldOverrides:   cfg.fieldOverrides,
		Rules:            rules,
		EscalateCritical: cfg.escalateCritical,
	})
	if err != nil {
		return o.finish(ctx, report, run, StateFailed, audit.StatusFailed, err)
	}
	report.Resolution = resolution
	run.ResolvedSource, run.ResolvedStore, run.ResolvedManual, run.Pending = resolution.Counts()
	run.PendingKeys = resolution.PendingKeys()
	run.DecidedBy = resolution.Attribution()

	if err := ctx.Err(); err != nil {
		return o.finish(ctx, report, run, StateFailed, audit.StatusFailed, err)
	}

	// COMMITTING: creations and resolved updates apply as one logical
	// transaction. Pending conflicts are left untouched in the store
	// and reported for a follow-up run. Cancellation is no longer
	// honored: the commit runs to completion so the store is never left
	// in an unobserved intermediate state.
	report.State = StateCommitting
	mutation := buildMutation(analysis, resolution)
	commitCtx := context.WithoutCancel(ctx)
	if err := o.store.Apply(commitCtx, entityType, mutation); err != nil {
		commitErr := errors.NewCommitError(string(entityType), snapshotID, err)
		log.Error().Err(err).Str("snapshot_id", snapshotID).Msg("commit failed, rolling back")

		// ROLLING_BACK: restore the snapshot captured in this run.
		report.State = StateRollingBack
		restore, restoreErr := o.snapshots.Restore(commitCtx, snapshotID, o.store)
		if restoreErr != nil {
			// The one fatal condition: rollback failed. The
			// snapshot id stays surfaced for the operator.
			log.Error().Err(restoreErr).Str("snapshot_id", snapshotID).
				Msg("rollback failed, operator intervention required")
			return o.finish(ctx, report, run, StateFailed, audit.StatusFailed, restoreErr)
		}
		report.Restore = restore
		return o.finish(ctx, report, run, StateRolledBack, audit.StatusRolledBack, commitErr)
	}

	status := audit.StatusCommitted
	if resolution.HasPending() {
		status = audit.StatusPartial
	}
	log.Info().
		Int("created", len(mutation.Inserts)).
		Int("updated", len(mutation.Updates)).
		Int("pending", run.Pending).
		Str("status", string(status)).
		Msg("sync committed")
	return o.finish(ctx, report, run, StateDone, status, nil)
}

// Rollback restores a snapshot by id, taking the entity type's lease for
// the duration of the restore.
func (o *Orchestrator) Rollback(ctx context.Context, snapshotID string) (*snapshot.RestoreResult, error) {
	meta, err := o.snapshots.Meta(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	if !o.leases.acquire(meta.EntityType) {
		return nil, errors.NewLeaseError(string(meta.EntityType))
	}
	defer o.leases.release(meta.EntityType)

	result, err := o.snapshots.Restore(ctx, snapshotID, o.store)
	if err != nil {
		return nil, err
	}
	o.appendRun(ctx, audit.SyncRun{
		ID:         newRunID(),
		EntityType: meta.EntityType,
		SnapshotID: snapshotID,
		StartedAt:  o.clock(),
		FinishedAt: o.clock(),
		Status:     audit.StatusRolledBack,
	})
	return result, nil
}

// analyze loads source and store records concurrently — they are
// independent I/O — then runs the comparator once both are available.
func (o *Orchestrator) analyze(ctx context.Context, adapter source.Adapter) (*compare.Analysis, error) {
	entityType := adapter.EntityType()

	var (
		wg         gosync.WaitGroup
		sourceRecs []records.NormalizedRecord
		storeRecs  []records.NormalizedRecord
		sourceErr  error
		storeErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		sourceRecs, sourceErr = adapter.Fetch(ctx)
	}()
	go func() {
		defer wg.Done()
		storeRecs, storeErr = o.store.Load(ctx, entityType)
	}()
	wg.Wait()
	if sourceErr != nil {
		return nil, sourceErr
	}
	if storeErr != nil {
		return nil, storeErr
	}

	comparator := compare.New(
		compare.WithRules(o.rules(entityType)),
		compare.WithLookup(o.lookup),
		compare.WithClock(o.clock),
	)
	analysis, err := comparator.Compare(sourceRecs, storeRecs)
	if err != nil {
		return nil, err
	}
	if analysis.EntityType == "" {
		// Both sides empty; keep the adapter's type for reporting.
		analysis.EntityType = entityType
	}
	return analysis, nil
}

// finish stamps the run, appends it to the journal and returns the
// report together with the run's error, if any.
func (o *Orchestrator) finish(ctx context.Context, report *Report, run audit.SyncRun, state State, status audit.Status, err error) (*Report, error) {
	run.FinishedAt = o.clock()
	run.Status = status
	if err != nil {
		run.Error = err.Error()
	}
	report.Run = run
	report.State = state
	o.appendRun(ctx, run)
	return report, err
}

// appendRun journals a run. Journal failures are logged, not surfaced:
// the sync outcome must reach the caller regardless.
func (o *Orchestrator) appendRun(ctx context.Context, run audit.SyncRun) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Append(context.WithoutCancel(ctx), run); err != nil {
		o.log(ctx).Warn().Err(err).Str("run_id", run.ID).Msg("failed to append sync run to journal")
	}
}

// log returns the explicitly configured logger, or the one carried by
// the caller's context.
func (o *Orchestrator) log(ctx context.Context) *zerolog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return logging.FromContext(ctx)
}

// buildMutation assembles the commit batch: every record to create plus
// the field updates the resolution produced.
func buildMutation(analysis *compare.Analysis, resolution *resolve.Result) store.Mutation {
	mutation := store.Mutation{}
	for _, rec := range analysis.ToCreate {
		mutation.Inserts = append(mutation.Inserts, rec.Clone())
	}
	updates := resolution.Updates()
	for _, conflict := range analysis.Conflicts {
		if fields, ok := updates[conflict.Key]; ok {
			mutation.Updates = append(mutation.Updates, store.FieldUpdate{
				Key:    conflict.Key,
				Fields: fields,
			})
		}
	}
	return mutation
}

// newRunID returns a unique sync run identifier.
func newRunID() string {
	return uuid.NewString()
}
