package compare

import (
	"fmt"
	"strings"
	"time"

	"staffsync/pkg/records"
)

// FieldConflict is a field-level value mismatch between source and store
// for the same key, produced only when the normalized values differ under
// the field's equality rule.
type FieldConflict struct {
	Key             string           `json:"key"`
	Field           string           `json:"field"`
	SourceValue     string           `json:"source_value"`
	StoreValue      string           `json:"store_value"`
	SourceUpdatedAt *time.Time       `json:"source_updated_at,omitempty"`
	StoreUpdatedAt  *time.Time       `json:"store_updated_at,omitempty"`
	Severity        records.Severity `json:"severity"`
}

// Conflict groups every differing field for one key, with both full
// records attached for resolution and reporting.
type Conflict struct {
	Key         string                   `json:"key"`
	Source      records.NormalizedRecord `json:"source"`
	Store       records.NormalizedRecord `json:"store"`
	Differences []FieldConflict          `json:"differences"`
}

// MaxSeverity returns the highest severity among the conflict's fields.
func (c Conflict) MaxSeverity() records.Severity {
	max := records.SeverityLow
	for _, d := range c.Differences {
		max = records.MaxSeverity(max, d.Severity)
	}
	return max
}

// Warning reports a field known to only one side. These are never
// conflicts: a field one side has no notion of cannot disagree.
type Warning struct {
	Key     string         `json:"key"`
	Field   string         `json:"field"`
	Origin  records.Origin `json:"origin"`
	Message string         `json:"message"`
}

// Analysis is the immutable result of comparing one entity type.
// ToCreate, Conflicts (by key), Unchanged and StoreOnly partition the
// union of source and store keys.
type Analysis struct {
	EntityType  records.EntityType         `json:"entity_type"`
	SourceCount int                        `json:"source_count"`
	StoreCount  int                        `json:"store_count"`
	ToCreate    []records.NormalizedRecord `json:"to_create"`
	Conflicts   []Conflict                 `json:"conflicts"`
	Unchanged   []string                   `json:"unchanged"`
	StoreOnly   []records.NormalizedRecord `json:"store_only"`
	Warnings    []Warning                  `json:"warnings,omitempty"`
	AnalyzedAt  time.Time                  `json:"analyzed_at"`
}

// HasChanges reports whether the analysis found anything to create or
// resolve.
func (a *Analysis) HasChanges() bool {
	return len(a.ToCreate) > 0 || len(a.Conflicts) > 0
}

// ConflictKeys returns the keys with conflicts, in analysis order.
func (a *Analysis) ConflictKeys() []string {
	keys := make([]string, 0, len(a.Conflicts))
	for _, c := range a.Conflicts {
		keys = append(keys, c.Key)
	}
	return keys
}

// Summary returns a human-readable one-line summary.
func (a *Analysis) Summary() string {
	if !a.HasChanges() {
		return fmt.Sprintf("%s: no changes (%d unchanged, %d store-only)",
			a.EntityType, len(a.Unchanged), len(a.StoreOnly))
	}
	parts := []string{
		fmt.Sprintf("%d to create", len(a.ToCreate)),
		fmt.Sprintf("%d conflicting", len(a.Conflicts)),
		fmt.Sprintf("%d unchanged", len(a.Unchanged)),
		fmt.Sprintf("%d store-only", len(a.StoreOnly)),
	}
	return fmt.Sprintf("%s: %s", a.EntityType, strings.Join(parts, ", "))
}
