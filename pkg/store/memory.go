package store

import (
	"context"
	"sync"

	"staffsync/pkg/errors"
	"staffsync/pkg/records"
)

// Memory is an in-memory Store used in tests and examples. It is safe
// for concurrent use and supports failure injection so orchestrator
// error paths can be exercised.
type Memory struct {
	mu   sync.RWMutex
	data map[records.EntityType]map[string]records.NormalizedRecord

	// FailLoad, FailApply and FailReplace, when set, are returned by
	// the corresponding operation instead of touching state.
	FailLoad    error
	FailApply   error
	FailReplace error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[records.EntityType]map[string]records.NormalizedRecord)}
}

// Seed inserts records directly, bypassing Apply. Test setup helper.
func (m *Memory) Seed(recs ...records.NormalizedRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range recs {
		bucket := m.data[rec.EntityType]
		if bucket == nil {
			bucket = make(map[string]records.NormalizedRecord)
			m.data[rec.EntityType] = bucket
		}
		rec.Origin = records.OriginStore
		bucket[rec.Key] = rec.Clone()
	}
}

// Load implements Reader.
func (m *Memory) Load(_ context.Context, entityType records.EntityType) ([]records.NormalizedRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailLoad != nil {
		return nil, m.FailLoad
	}
	var out []records.NormalizedRecord
	for _, rec := range m.data[entityType] {
		out = append(out, rec.Clone())
	}
	records.SortByKey(out)
	return out, nil
}

// Apply implements Writer. The mutation is validated fully before any
// state changes, so a failed batch leaves the store untouched.
func (m *Memory) Apply(_ context.Context, entityType records.EntityType, mut Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailApply != nil {
		return m.FailApply
	}

	bucket := m.data[entityType]
	if bucket == nil {
		bucket = make(map[string]records.NormalizedRecord)
		m.data[entityType] = bucket
	}
	for _, rec := range mut.Inserts {
		if _, exists := bucket[rec.Key]; exists {
			return errors.NewValidationError("key", rec.Key, "insert of existing key")
		}
	}
	for _, upd := range mut.Updates {
		if _, exists := bucket[upd.Key]; !exists {
			return errors.NewValidationError("key", upd.Key, "update targets missing record")
		}
	}

	for _, rec := range mut.Inserts {
		stored := rec.Clone()
		stored.EntityType = entityType
		stored.Origin = records.OriginStore
		bucket[rec.Key] = stored
	}
	for _, upd := range mut.Updates {
		rec := bucket[upd.Key].Clone()
		for k, v := range upd.Fields {
			rec.Fields[k] = v
		}
		bucket[upd.Key] = rec
	}
	return nil
}

// ReplaceAll implements Writer.
func (m *Memory) ReplaceAll(_ context.Context, entityType records.EntityType, recs []records.NormalizedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReplace != nil {
		return m.FailReplace
	}
	bucket := make(map[string]records.NormalizedRecord, len(recs))
	for _, rec := range recs {
		stored := rec.Clone()
		stored.EntityType = entityType
		stored.Origin = records.OriginStore
		bucket[rec.Key] = stored
	}
	m.data[entityType] = bucket
	return nil
}

// Count returns the number of records held for an entity type.
func (m *Memory) Count(entityType records.EntityType) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[entityType])
}

// Get returns a stored record by key.
func (m *Memory) Get(entityType records.EntityType, key string) (records.NormalizedRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.data[entityType][key]
	if !ok {
		return records.NormalizedRecord{}, false
	}
	return rec.Clone(), true
}
