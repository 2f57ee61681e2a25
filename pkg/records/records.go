// Package records defines the normalized record model shared by every
// source adapter and store implementation. All reconciliation happens on
// this shape; format-specific quirks stay inside the adapters.
package records

import (
	"sort"
	"time"
)

// EntityType is a category of business record synchronized as a unit.
type EntityType string

const (
	// EntityPerson is a dispatched employee record.
	EntityPerson EntityType = "person"

	// EntitySite is a factory/site definition record.
	EntitySite EntityType = "site"
)

// ParseEntityType converts a string into a known EntityType.
func ParseEntityType(s string) (EntityType, bool) {
	switch EntityType(s) {
	case EntityPerson, EntitySite:
		return EntityType(s), true
	}
	return "", false
}

// EntityTypes lists every known entity type.
func EntityTypes() []EntityType {
	return []EntityType{EntityPerson, EntitySite}
}

// Origin identifies which side of a sync a record came from.
type Origin string

const (
	// OriginSource marks records produced by an external source adapter.
	OriginSource Origin = "source"

	// OriginStore marks records loaded from the persistent store.
	OriginStore Origin = "store"
)

// NormalizedRecord is the shared representation of one business record.
// Within one entity type the Key is unique per origin; two records from
// different origins with the same key are the same logical entity.
type NormalizedRecord struct {
	EntityType      EntityType        `json:"entity_type" yaml:"entity_type"`
	Key             string            `json:"key" yaml:"key"`
	Fields          map[string]string `json:"fields" yaml:"fields"`
	SourceUpdatedAt *time.Time        `json:"source_updated_at,omitempty" yaml:"source_updated_at,omitempty"`
	Origin          Origin            `json:"origin" yaml:"origin"`
}

// Clone returns a deep copy of the record.
func (r NormalizedRecord) Clone() NormalizedRecord {
	out := r
	out.Fields = make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	if r.SourceUpdatedAt != nil {
		t := *r.SourceUpdatedAt
		out.SourceUpdatedAt = &t
	}
	return out
}

// FieldNames returns the record's field names in sorted order.
func (r NormalizedRecord) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortByKey sorts records in place by key. Used wherever deterministic
// output ordering is required.
func SortByKey(recs []NormalizedRecord) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Key < recs[j].Key
	})
}

// Keys returns the sorted set of keys present in recs.
func Keys(recs []NormalizedRecord) []string {
	keys := make([]string, 0, len(recs))
	for _, r := range recs {
		keys = append(keys, r.Key)
	}
	sort.Strings(keys)
	return keys
}
