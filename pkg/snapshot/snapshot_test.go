package snapshot

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffsync/pkg/errors"
	"staffsync/pkg/logging"
	"staffsync/pkg/records"
	"staffsync/pkg/store"
)

func openTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithLogger(&logging.Nop)}, opts...)
	m, err := Open(filepath.Join(t.TempDir(), "snapshots.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func seedStore(recs ...records.NormalizedRecord) *store.Memory {
	m := store.NewMemory()
	m.Seed(recs...)
	return m
}

// flakyWriter fails the first failures ReplaceAll calls, then delegates.
type flakyWriter struct {
	*store.Memory
	failures int
	calls    int
}

func (w *flakyWriter) ReplaceAll(ctx context.Context, entityType records.EntityType, recs []records.NormalizedRecord) error {
	w.calls++
	if w.calls <= w.failures {
		return assert.AnError
	}
	return w.Memory.ReplaceAll(ctx, entityType, recs)
}

func TestCaptureRestoreRoundtrip(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()
	src := seedStore(
		records.NormalizedRecord{EntityType: records.EntityPerson, Key: "EMP001", Fields: map[string]string{"status": "active"}},
		records.NormalizedRecord{EntityType: records.EntityPerson, Key: "EMP002", Fields: map[string]string{"status": "inactive"}},
	)

	id, err := m.Capture(ctx, records.EntityPerson, src)
	require.NoError(t, err)
	assert.Contains(t, id, "sync_person_")

	dst := store.NewMemory()
	result, err := m.Restore(ctx, id, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RecordsRestored)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, records.EntityPerson, result.EntityType)

	got, err := dst.Load(ctx, records.EntityPerson)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "active", got[0].Fields["status"])
}

func TestRestoreIsIdempotent(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()
	src := seedStore(records.NormalizedRecord{
		EntityType: records.EntityPerson, Key: "EMP001", Fields: map[string]string{"status": "active"},
	})

	id, err := m.Capture(ctx, records.EntityPerson, src)
	require.NoError(t, err)

	dst := store.NewMemory()
	_, err = m.Restore(ctx, id, dst)
	require.NoError(t, err)

	// Drift the store, then restore again: same end state.
	require.NoError(t, dst.Apply(ctx, records.EntityPerson, store.Mutation{
		Updates: []store.FieldUpdate{{Key: "EMP001", Fields: map[string]string{"status": "drifted"}}},
	}))
	_, err = m.Restore(ctx, id, dst)
	require.NoError(t, err)

	rec, ok := dst.Get(records.EntityPerson, "EMP001")
	require.True(t, ok)
	assert.Equal(t, "active", rec.Fields["status"])
}

func TestCaptureEmptyStore(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()

	id, err := m.Capture(ctx, records.EntityPerson, store.NewMemory())
	require.NoError(t, err)

	meta, err := m.Meta(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, meta.RecordCount)

	// Restoring an empty snapshot clears the target.
	dst := seedStore(records.NormalizedRecord{
		EntityType: records.EntityPerson, Key: "EMP001", Fields: map[string]string{},
	})
	_, err = m.Restore(ctx, id, dst)
	require.NoError(t, err)
	assert.Zero(t, dst.Count(records.EntityPerson))
}

func TestCaptureFailsWhenLoadFails(t *testing.T) {
	m := openTestManager(t)
	src := store.NewMemory()
	src.FailLoad = assert.AnError

	_, err := m.Capture(context.Background(), records.EntityPerson, src)
	require.Error(t, err)
	var capErr *errors.CaptureError
	assert.True(t, errors.As(err, &capErr))
}

func TestRestoreRetriesTransientFailures(t *testing.T) {
	m := openTestManager(t, WithRetry(3, time.Millisecond))
	ctx := context.Background()
	src := seedStore(records.NormalizedRecord{
		EntityType: records.EntityPerson, Key: "EMP001", Fields: map[string]string{},
	})

	id, err := m.Capture(ctx, records.EntityPerson, src)
	require.NoError(t, err)

	dst := &flakyWriter{Memory: store.NewMemory(), failures: 2}
	result, err := m.Restore(ctx, id, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 1, dst.Count(records.EntityPerson))
}

func TestRestoreExhaustsRetries(t *testing.T) {
	m := openTestManager(t, WithRetry(2, time.Millisecond))
	ctx := context.Background()
	src := seedStore(records.NormalizedRecord{
		EntityType: records.EntityPerson, Key: "EMP001", Fields: map[string]string{},
	})

	id, err := m.Capture(ctx, records.EntityPerson, src)
	require.NoError(t, err)

	dst := store.NewMemory()
	dst.FailReplace = assert.AnError
	_, err = m.Restore(ctx, id, dst)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	var restoreErr *errors.RestoreFailedError
	require.True(t, errors.As(err, &restoreErr))
	assert.Equal(t, 3, restoreErr.Attempts)
	assert.Equal(t, id, restoreErr.SnapshotID)
}

func TestRestoreUnknownSnapshot(t *testing.T) {
	m := openTestManager(t)
	_, err := m.Restore(context.Background(), "sync_person_missing", store.NewMemory())
	assert.True(t, errors.IsNotFound(err))
}

func TestVerify(t *testing.T) {
	m := openTestManager(t)
	ctx := context.Background()
	src := seedStore(records.NormalizedRecord{
		EntityType: records.EntityPerson, Key: "EMP001", Fields: map[string]string{"status": "active"},
	})

	id, err := m.Capture(ctx, records.EntityPerson, src)
	require.NoError(t, err)
	assert.NoError(t, m.Verify(ctx, id))

	// Tamper with the stored payload; verification must fail.
	_, err = m.db.Exec(`UPDATE snapshots SET records = ? WHERE id = ?`, `[]`, id)
	require.NoError(t, err)
	err = m.Verify(ctx, id)
	var chkErr *errors.ChecksumError
	assert.True(t, errors.As(err, &chkErr))

	// A tampered snapshot must refuse to restore.
	_, err = m.Restore(ctx, id, store.NewMemory())
	assert.True(t, errors.As(err, &chkErr))
}

func TestChecksumIndependentOfRecordOrder(t *testing.T) {
	a := []records.NormalizedRecord{
		{EntityType: records.EntityPerson, Key: "EMP001", Fields: map[string]string{"s": "1"}, Origin: records.OriginStore},
		{EntityType: records.EntityPerson, Key: "EMP002", Fields: map[string]string{"s": "2"}, Origin: records.OriginStore},
	}
	b := []records.NormalizedRecord{a[1], a[0]}

	_, sumA, err := encodeRecords(a)
	require.NoError(t, err)
	_, sumB, err := encodeRecords(b)
	require.NoError(t, err)
	assert.Equal(t, sumA, sumB)
}

func TestCaptureLogsThroughContextLogger(t *testing.T) {
	// No WithLogger: the manager must use the context's logger.
	m, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	var buf bytes.Buffer
	logger := logging.New(&buf)
	ctx := logging.WithLogger(context.Background(), &logger)

	_, err = m.Capture(ctx, records.EntityPerson, store.NewMemory())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "snapshot captured")
}

func TestListNewestFirst(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	m := openTestManager(t, WithClock(clock))
	ctx := context.Background()
	src := store.NewMemory()

	first, err := m.Capture(ctx, records.EntityPerson, src)
	require.NoError(t, err)
	second, err := m.Capture(ctx, records.EntityPerson, src)
	require.NoError(t, err)
	_, err = m.Capture(ctx, records.EntitySite, src)
	require.NoError(t, err)

	metas, err := m.List(ctx, records.EntityPerson)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, second, metas[0].ID)
	assert.Equal(t, first, metas[1].ID)
}

// Captures within the same second must still order and prune
// chronologically: the stored timestamp text is fixed-width, so a whole
// second never sorts after a fractional one.
func TestOrderingWithinOneSecond(t *testing.T) {
	times := []time.Time{
		time.Date(2026, 4, 1, 12, 0, 5, 0, time.UTC),
		time.Date(2026, 4, 1, 12, 0, 5, 500_000_000, time.UTC),
	}
	i := 0
	clock := func() time.Time { t := times[i]; i++; return t }
	m := openTestManager(t, WithClock(clock))
	ctx := context.Background()
	src := store.NewMemory()

	whole, err := m.Capture(ctx, records.EntityPerson, src)
	require.NoError(t, err)
	frac, err := m.Capture(ctx, records.EntityPerson, src)
	require.NoError(t, err)

	metas, err := m.List(ctx, records.EntityPerson)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, frac, metas[0].ID)
	assert.Equal(t, whole, metas[1].ID)

	// A cutoff between the two removes only the earlier capture.
	n, err := m.Prune(ctx, time.Date(2026, 4, 1, 12, 0, 5, 250_000_000, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = m.Meta(ctx, whole)
	assert.True(t, errors.IsNotFound(err))
	_, err = m.Meta(ctx, frac)
	assert.NoError(t, err)
}

func TestPrune(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Hour)
		return now
	}
	m := openTestManager(t, WithClock(clock))
	ctx := context.Background()
	src := store.NewMemory()

	old, err := m.Capture(ctx, records.EntityPerson, src)
	require.NoError(t, err)
	recent, err := m.Capture(ctx, records.EntityPerson, src)
	require.NoError(t, err)

	n, err := m.Prune(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = m.Meta(ctx, old)
	assert.True(t, errors.IsNotFound(err))
	_, err = m.Meta(ctx, recent)
	assert.NoError(t, err)
}
