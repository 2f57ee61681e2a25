package store

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

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteApplyAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)

	mut := Mutation{Inserts: []records.NormalizedRecord{
		{
			EntityType:      records.EntityPerson,
			Key:             "EMP002",
			Fields:          map[string]string{"status": "active", "department": "assembly"},
			SourceUpdatedAt: &ts,
		},
		{
			EntityType: records.EntityPerson,
			Key:        "EMP001",
			Fields:     map[string]string{"status": "inactive"},
		},
	}}
	require.NoError(t, s.Apply(ctx, records.EntityPerson, mut))

	got, err := s.Load(ctx, records.EntityPerson)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Loads come back key-ordered with store provenance.
	assert.Equal(t, "EMP001", got[0].Key)
	assert.Equal(t, records.OriginStore, got[0].Origin)
	assert.Equal(t, "assembly", got[1].Fields["department"])
	require.NotNil(t, got[1].SourceUpdatedAt)
	assert.True(t, got[1].SourceUpdatedAt.Equal(ts))
}

func TestSQLiteUpdateMergesFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, records.EntityPerson, Mutation{
		Inserts: []records.NormalizedRecord{{
			Key:    "EMP001",
			Fields: map[string]string{"status": "active", "department": "paint"},
		}},
	}))
	require.NoError(t, s.Apply(ctx, records.EntityPerson, Mutation{
		Updates: []FieldUpdate{{
			Key:    "EMP001",
			Fields: map[string]string{"status": "inactive"},
		}},
	}))

	got, err := s.Load(ctx, records.EntityPerson)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "inactive", got[0].Fields["status"])
	// Untouched fields survive the update.
	assert.Equal(t, "paint", got[0].Fields["department"])
}

func TestSQLiteApplyIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// One valid insert plus one update of a missing record: the whole
	// batch must roll back.
	err := s.Apply(ctx, records.EntityPerson, Mutation{
		Inserts: []records.NormalizedRecord{{Key: "EMP001", Fields: map[string]string{"status": "active"}}},
		Updates: []FieldUpdate{{Key: "MISSING", Fields: map[string]string{"status": "x"}}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	got, err := s.Load(ctx, records.EntityPerson)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteReplaceAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, records.EntityPerson, Mutation{
		Inserts: []records.NormalizedRecord{
			{Key: "EMP001", Fields: map[string]string{"status": "active"}},
			{Key: "EMP002", Fields: map[string]string{"status": "active"}},
		},
	}))
	require.NoError(t, s.ReplaceAll(ctx, records.EntityPerson, []records.NormalizedRecord{
		{Key: "EMP003", Fields: map[string]string{"status": "restored"}},
	}))

	got, err := s.Load(ctx, records.EntityPerson)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "EMP003", got[0].Key)
}

func TestSQLiteEntityTypesAreIsolated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, records.EntityPerson, Mutation{
		Inserts: []records.NormalizedRecord{{Key: "EMP001", Fields: map[string]string{}}},
	}))
	require.NoError(t, s.Apply(ctx, records.EntitySite, Mutation{
		Inserts: []records.NormalizedRecord{{Key: "SITE01", Fields: map[string]string{}}},
	}))

	people, err := s.Load(ctx, records.EntityPerson)
	require.NoError(t, err)
	sites, err := s.Load(ctx, records.EntitySite)
	require.NoError(t, err)
	assert.Len(t, people, 1)
	assert.Len(t, sites, 1)

	// Replacing one entity type leaves the other untouched.
	require.NoError(t, s.ReplaceAll(ctx, records.EntityPerson, nil))
	people, err = s.Load(ctx, records.EntityPerson)
	require.NoError(t, err)
	sites, err = s.Load(ctx, records.EntitySite)
	require.NoError(t, err)
	assert.Empty(t, people)
	assert.Len(t, sites, 1)
}
