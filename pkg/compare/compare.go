// Package compare computes the difference between what an external
// source says and what the store holds for one entity type. The output
// partitions the union of source and store keys into create / conflict /
// unchanged / store-only buckets; nothing is ever dropped.
package compare

import (
	"sort"
	"time"

	"staffsync/pkg/errors"
	"staffsync/pkg/records"
)

// Comparator handles change detection between source and store records.
// It is pure: no network or store access happens inside Compare, and
// identical input produces identical output regardless of input ordering.
type Comparator struct {
	rules  *records.FieldRules
	lookup records.Lookup
	clock  func() time.Time
}

// Option configures a Comparator.
type Option func(*Comparator)

// WithRules sets the field comparison rules.
func WithRules(rules *records.FieldRules) Option {
	return func(c *Comparator) { c.rules = rules }
}

// WithLookup injects a canonical-value lookup applied to source values
// before normalization.
func WithLookup(lookup records.Lookup) Option {
	return func(c *Comparator) { c.lookup = lookup }
}

// WithClock overrides the analysis timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(c *Comparator) { c.clock = clock }
}

// New creates a Comparator with default settings.
func New(opts ...Option) *Comparator {
	c := &Comparator{
		rules:  records.NewFieldRules(nil),
		lookup: records.NoLookup{},
		clock:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compare classifies every source and store record into exactly one
// bucket. It fails with a SchemaMismatchError when the inputs mix entity
// types or repeat a key within one origin.
func (c *Comparator) Compare(source, store []records.NormalizedRecord) (*Analysis, error) {
	entityType, err := resolveEntityType(source, store)
	if err != nil {
		return nil, err
	}

	sourceMap, err := buildKeyMap(source, entityType)
	if err != nil {
		return nil, err
	}
	storeMap, err := buildKeyMap(store, entityType)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		EntityType:  entityType,
		SourceCount: len(sourceMap),
		StoreCount:  len(storeMap),
		AnalyzedAt:  c.clock(),
	}

	// Iteration is by sorted key so output is deterministic.
	for _, key := range sortedKeys(sourceMap) {
		srcRec := sourceMap[key]
		storeRec, exists := storeMap[key]
		if !exists {
			analysis.ToCreate = append(analysis.ToCreate, srcRec.Clone())
			continue
		}

		diffs, warnings := c.compareRecords(key, srcRec, storeRec)
		analysis.Warnings = append(analysis.Warnings, warnings...)
		if len(diffs) > 0 {
			analysis.Conflicts = append(analysis.Conflicts, Conflict{
				Key:         key,
				Source:      srcRec.Clone(),
				Store:       storeRec.Clone(),
				Differences: diffs,
			})
		} else {
			analysis.Unchanged = append(analysis.Unchanged, key)
		}
	}

	// Store-only records are reported, never deleted: they represent
	// records created directly in the store.
	for _, key := range sortedKeys(storeMap) {
		if _, exists := sourceMap[key]; !exists {
			analysis.StoreOnly = append(analysis.StoreOnly, storeMap[key].Clone())
		}
	}

	return analysis, nil
}

// compareRecords diffs one source/store pair over the comparable field
// set. Every differing field is recorded, not just the first. Fields
// known to only one side become warnings, not conflicts.
func (c *Comparator) compareRecords(key string, src, store records.NormalizedRecord) ([]FieldConflict, []Warning) {
	var diffs []FieldConflict
	var warnings []Warning

	for _, field := range src.FieldNames() {
		srcVal := c.canonical(field, src.Fields[field])
		storeVal, exists := store.Fields[field]
		if !exists {
			warnings = append(warnings, Warning{
				Key:     key,
				Field:   field,
				Origin:  records.OriginSource,
				Message: "field present in source but unknown to store",
			})
			continue
		}
		if c.rules.Equal(field, srcVal, storeVal) {
			continue
		}
		diffs = append(diffs, FieldConflict{
			Key:             key,
			Field:           field,
			SourceValue:     srcVal,
			StoreValue:      storeVal,
			SourceUpdatedAt: src.SourceUpdatedAt,
			StoreUpdatedAt:  store.SourceUpdatedAt,
			Severity:        c.rules.Severity(field),
		})
	}

	for _, field := range store.FieldNames() {
		if _, exists := src.Fields[field]; !exists {
			warnings = append(warnings, Warning{
				Key:     key,
				Field:   field,
				Origin:  records.OriginStore,
				Message: "field present in store but absent from source",
			})
		}
	}

	return diffs, warnings
}

// canonical maps a raw source value through the injected lookup table.
func (c *Comparator) canonical(field, value string) string {
	if mapped, ok := c.lookup.Canonical(field, value); ok {
		return mapped
	}
	return value
}

func resolveEntityType(source, store []records.NormalizedRecord) (records.EntityType, error) {
	var entityType records.EntityType
	for _, rec := range source {
		entityType = rec.EntityType
		break
	}
	if entityType == "" {
		for _, rec := range store {
			entityType = rec.EntityType
			break
		}
	}
	return entityType, nil
}

func buildKeyMap(recs []records.NormalizedRecord, entityType records.EntityType) (map[string]records.NormalizedRecord, error) {
	out := make(map[string]records.NormalizedRecord, len(recs))
	for _, rec := range recs {
		if rec.EntityType != entityType {
			return nil, errors.NewSchemaMismatchError(string(entityType), string(rec.EntityType), rec.Key)
		}
		if rec.Key == "" {
			return nil, errors.NewValidationError("key", rec.Key, "record has empty key")
		}
		if _, dup := out[rec.Key]; dup {
			return nil, errors.NewValidationError("key", rec.Key, "duplicate key within one origin")
		}
		out[rec.Key] = rec
	}
	return out, nil
}

func sortedKeys(m map[string]records.NormalizedRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
