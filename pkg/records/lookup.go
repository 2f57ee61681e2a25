package records

// Lookup maps raw source field values to their canonical store spelling.
// The original system hard-coded per-domain mapping tables (a fixed
// site-name lookup, for one); modeling the table as an injected
// collaborator keeps the reconciliation core domain-agnostic.
type Lookup interface {
	// Canonical returns the canonical value for a raw field value and
	// whether a mapping exists.
	Canonical(field, value string) (string, bool)
}

// TableLookup is a static field -> raw value -> canonical value table.
type TableLookup map[string]map[string]string

// Canonical implements Lookup.
func (t TableLookup) Canonical(field, value string) (string, bool) {
	m, ok := t[field]
	if !ok {
		return "", false
	}
	v, ok := m[value]
	return v, ok
}

// NoLookup is a Lookup with no mappings.
type NoLookup struct{}

// Canonical implements Lookup.
func (NoLookup) Canonical(string, string) (string, bool) { return "", false }
