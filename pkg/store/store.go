// Package store defines the persistent store contract the reconciliation
// core writes through, plus a SQLite-backed implementation and an
// in-memory implementation for tests.
package store

import (
	"context"

	"staffsync/pkg/records"
)

// Reader loads the current normalized records for an entity type.
type Reader interface {
	Load(ctx context.Context, entityType records.EntityType) ([]records.NormalizedRecord, error)
}

// FieldUpdate applies new field values to the record with the given key.
// Fields not named keep their stored value.
type FieldUpdate struct {
	Key    string            `json:"key"`
	Fields map[string]string `json:"fields"`
}

// Mutation is one atomic batch of changes: inserts of new records plus
// keyed field updates. The store applies it all-or-nothing.
type Mutation struct {
	Inserts []records.NormalizedRecord `json:"inserts"`
	Updates []FieldUpdate              `json:"updates"`
}

// Empty reports whether the mutation changes nothing.
func (m Mutation) Empty() bool {
	return len(m.Inserts) == 0 && len(m.Updates) == 0
}

// Writer applies approved mutations to the store.
type Writer interface {
	// Apply commits the mutation as one transaction. Partial
	// application is never observable: on error the store is unchanged.
	Apply(ctx context.Context, entityType records.EntityType, m Mutation) error

	// ReplaceAll atomically swaps the full record set for an entity
	// type. Used by snapshot restore.
	ReplaceAll(ctx context.Context, entityType records.EntityType, recs []records.NormalizedRecord) error
}

// Store combines read and write access.
type Store interface {
	Reader
	Writer
}
