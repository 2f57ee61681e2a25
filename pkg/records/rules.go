package records

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// Severity ranks how much a field conflict matters. The rank feeds the
// resolver: critical fields can be escalated to manual review regardless of
// the run's strategy.
type Severity string

const (
	// SeverityCritical conflicts should block automatic resolution.
	SeverityCritical Severity = "critical"
	// SeverityHigh conflicts need review but can auto-resolve.
	SeverityHigh Severity = "high"
	// SeverityMedium conflicts can auto-resolve.
	SeverityMedium Severity = "medium"
	// SeverityLow conflicts are informational.
	SeverityLow Severity = "low"
)

// rank orders severities for max comparisons.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// MaxSeverity returns the higher-ranked of a and b.
func MaxSeverity(a, b Severity) Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// FieldRule controls how one field is normalized and compared.
type FieldRule struct {
	// CaseInsensitive folds letter case before comparison.
	CaseInsensitive bool

	// NumericTolerance treats two numeric values as equal when their
	// absolute difference is within this bound. Zero means exact.
	NumericTolerance float64

	// MultiValued declares the field a separator-delimited collection,
	// eligible for MERGE resolution.
	MultiValued bool

	// Separator splits multi-valued fields. Defaults to ",".
	Separator string

	// Severity of a conflict on this field. Defaults to medium.
	Severity Severity
}

// FieldRules holds per-field comparison rules for one entity type.
// Values are normalized (trim, full/half-width fold, optional case fold)
// before any equality check so formatting-only differences never surface
// as conflicts.
type FieldRules struct {
	rules    map[string]FieldRule
	fallback FieldRule
}

// NewFieldRules builds a rule set from an explicit per-field map.
func NewFieldRules(rules map[string]FieldRule) *FieldRules {
	if rules == nil {
		rules = map[string]FieldRule{}
	}
	return &FieldRules{
		rules:    rules,
		fallback: FieldRule{Severity: SeverityMedium},
	}
}

// DefaultPersonRules returns the comparison rules for employee records as
// exported from the staffing spreadsheets.
func DefaultPersonRules() *FieldRules {
	return NewFieldRules(map[string]FieldRule{
		"full_name_kanji": {Severity: SeverityHigh},
		"full_name_kana":  {Severity: SeverityMedium},
		"company_name":    {Severity: SeverityHigh},
		"department":      {Severity: SeverityMedium},
		"line_name":       {Severity: SeverityMedium},
		"hourly_rate":     {Severity: SeverityHigh, NumericTolerance: 0.001},
		"billing_rate":    {Severity: SeverityHigh, NumericTolerance: 0.001},
		"status":          {Severity: SeverityCritical},
		"qualifications":  {Severity: SeverityLow, MultiValued: true},
	})
}

// DefaultSiteRules returns the comparison rules for factory/site records.
func DefaultSiteRules() *FieldRules {
	return NewFieldRules(map[string]FieldRule{
		"company_name":            {Severity: SeverityHigh},
		"plant_name":              {Severity: SeverityHigh},
		"company_address":         {Severity: SeverityMedium},
		"plant_address":           {Severity: SeverityMedium},
		"client_responsible_name": {Severity: SeverityHigh},
		"conflict_date":           {Severity: SeverityHigh},
		"lines":                   {Severity: SeverityMedium, MultiValued: true},
	})
}

// DefaultRules returns the built-in rule set for an entity type, or an
// empty rule set for unknown types.
func DefaultRules(entityType EntityType) *FieldRules {
	switch entityType {
	case EntityPerson:
		return DefaultPersonRules()
	case EntitySite:
		return DefaultSiteRules()
	default:
		return NewFieldRules(nil)
	}
}

// Rule returns the rule for a field, falling back to defaults.
func (fr *FieldRules) Rule(field string) FieldRule {
	rule, ok := fr.rules[field]
	if !ok {
		rule = fr.fallback
	}
	if rule.Separator == "" {
		rule.Separator = ","
	}
	if rule.Severity == "" {
		rule.Severity = SeverityMedium
	}
	return rule
}

// Severity returns the conflict severity for a field.
func (fr *FieldRules) Severity(field string) Severity {
	return fr.Rule(field).Severity
}

// MultiValued reports whether a field is declared as a collection.
func (fr *FieldRules) MultiValued(field string) bool {
	return fr.Rule(field).MultiValued
}

// Normalize canonicalizes a value for comparison: whitespace trimmed,
// full-width/half-width variants folded, case folded when the field rule
// asks for it. The stored value keeps its original formatting; only
// comparisons see the normalized form.
func (fr *FieldRules) Normalize(field, value string) string {
	v := strings.TrimSpace(value)
	v = width.Fold.String(v)
	v = strings.Join(strings.Fields(v), " ")
	if fr.Rule(field).CaseInsensitive {
		v = strings.ToLower(v)
	}
	return v
}

// Equal reports whether two raw values are equal for a field under its
// normalization and tolerance rules.
func (fr *FieldRules) Equal(field, a, b string) bool {
	rule := fr.Rule(field)
	na, nb := fr.Normalize(field, a), fr.Normalize(field, b)
	if na == nb {
		return true
	}
	if rule.NumericTolerance > 0 {
		fa, errA := strconv.ParseFloat(na, 64)
		fb, errB := strconv.ParseFloat(nb, 64)
		if errA == nil && errB == nil {
			diff := fa - fb
			if diff < 0 {
				diff = -diff
			}
			return diff <= rule.NumericTolerance
		}
	}
	if rule.MultiValued {
		return equalStringSets(fr.splitMulti(field, a), fr.splitMulti(field, b))
	}
	return false
}

// Merge unions two multi-valued field values into a duplicate-free,
// deterministically ordered sequence: store elements keep their order,
// unseen source elements are appended in source order. Returns false for
// fields not declared multi-valued.
func (fr *FieldRules) Merge(field, sourceValue, storeValue string) (string, bool) {
	rule := fr.Rule(field)
	if !rule.MultiValued {
		return "", false
	}
	seen := make(map[string]bool)
	var merged []string
	for _, v := range fr.splitMulti(field, storeValue) {
		if !seen[v] {
			seen[v] = true
			merged = append(merged, v)
		}
	}
	for _, v := range fr.splitMulti(field, sourceValue) {
		if !seen[v] {
			seen[v] = true
			merged = append(merged, v)
		}
	}
	return strings.Join(merged, rule.Separator), true
}

// splitMulti splits and normalizes the elements of a multi-valued field,
// dropping empties.
func (fr *FieldRules) splitMulti(field, value string) []string {
	rule := fr.Rule(field)
	var out []string
	for _, part := range strings.Split(value, rule.Separator) {
		p := strings.TrimSpace(width.Fold.String(part))
		if rule.CaseInsensitive {
			p = strings.ToLower(p)
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
