package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffsync/pkg/records"
)

func TestMemoryApplyValidatesBeforeMutating(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Seed(records.NormalizedRecord{
		EntityType: records.EntityPerson,
		Key:        "EMP001",
		Fields:     map[string]string{"status": "active"},
	})

	// Insert of an existing key fails and must not apply the rest.
	err := m.Apply(ctx, records.EntityPerson, Mutation{
		Inserts: []records.NormalizedRecord{{Key: "EMP001", Fields: map[string]string{}}},
		Updates: []FieldUpdate{{Key: "EMP001", Fields: map[string]string{"status": "inactive"}}},
	})
	require.Error(t, err)

	rec, ok := m.Get(records.EntityPerson, "EMP001")
	require.True(t, ok)
	assert.Equal(t, "active", rec.Fields["status"])
}

func TestMemoryLoadReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Seed(records.NormalizedRecord{
		EntityType: records.EntityPerson,
		Key:        "EMP001",
		Fields:     map[string]string{"status": "active"},
	})

	got, err := m.Load(ctx, records.EntityPerson)
	require.NoError(t, err)
	got[0].Fields["status"] = "mutated"

	rec, _ := m.Get(records.EntityPerson, "EMP001")
	assert.Equal(t, "active", rec.Fields["status"])
}

func TestMemoryFailureInjection(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.FailApply = assert.AnError

	err := m.Apply(ctx, records.EntityPerson, Mutation{
		Inserts: []records.NormalizedRecord{{Key: "EMP001", Fields: map[string]string{}}},
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, m.Count(records.EntityPerson))
}
