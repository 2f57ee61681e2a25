package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffsync/pkg/errors"
	"staffsync/pkg/records"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func sampleRun(id string, startedAt time.Time) SyncRun {
	return SyncRun{
		ID:         id,
		EntityType: records.EntityPerson,
		Strategy:   "source_wins",
		SnapshotID: "sync_person_20260401_120000_abcd1234",
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(2 * time.Second),
		ToCreate:   3,
		Conflicts:  2,
		Unchanged:  10,
		Status:     StatusCommitted,
	}
}

func TestJournalAppendAndGet(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	started := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	run := sampleRun("run-1", started)
	run.PendingKeys = []string{"EMP007"}
	run.DecidedBy = map[string]string{"EMP003": "ops@example.com"}
	require.NoError(t, j.Append(ctx, run))

	got, err := j.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Strategy, got.Strategy)
	assert.Equal(t, run.SnapshotID, got.SnapshotID)
	assert.Equal(t, []string{"EMP007"}, got.PendingKeys)
	assert.Equal(t, "ops@example.com", got.DecidedBy["EMP003"])
	assert.True(t, got.StartedAt.Equal(started))
}

func TestJournalGetUnknownRun(t *testing.T) {
	j := openTestJournal(t)
	_, err := j.Get(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestJournalListNewestFirstWithLimit(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, j.Append(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Minute))))
	}
	siteRun := sampleRun("run-site", base)
	siteRun.EntityType = records.EntitySite
	require.NoError(t, j.Append(ctx, siteRun))

	runs, err := j.List(ctx, records.EntityPerson, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)

	all, err := j.List(ctx, records.EntityPerson, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// Runs started within the same second must still list newest first: the
// stored timestamp text is fixed-width, so a whole second never sorts
// after a fractional one.
func TestJournalListOrdersWithinOneSecond(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 12, 0, 5, 0, time.UTC)

	require.NoError(t, j.Append(ctx, sampleRun("run-whole", base)))
	require.NoError(t, j.Append(ctx, sampleRun("run-frac", base.Add(500*time.Millisecond))))

	runs, err := j.List(ctx, records.EntityPerson, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-frac", runs[0].ID)
	assert.Equal(t, "run-whole", runs[1].ID)
}

func TestJournalRunsAreImmutable(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	run := sampleRun("run-1", time.Now().UTC())

	require.NoError(t, j.Append(ctx, run))
	// A second append under the same id must fail, not overwrite.
	assert.Error(t, j.Append(ctx, run))
}
