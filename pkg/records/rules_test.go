package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFoldsWidthAndWhitespace(t *testing.T) {
	fr := NewFieldRules(nil)

	// Full-width digits and letters fold to their half-width forms.
	assert.Equal(t, "ABC123", fr.Normalize("code", "ＡＢＣ１２３"))
	// Leading/trailing and internal whitespace collapse.
	assert.Equal(t, "Tanaka Taro", fr.Normalize("full_name_kanji", "  Tanaka   Taro  "))
}

func TestNormalizeCaseFold(t *testing.T) {
	fr := NewFieldRules(map[string]FieldRule{
		"email": {CaseInsensitive: true},
	})
	assert.Equal(t, "tanaka@example.com", fr.Normalize("email", "Tanaka@Example.COM"))
	// Fields without the rule keep their case.
	assert.Equal(t, "Tanaka", fr.Normalize("full_name_kanji", "Tanaka"))
}

func TestEqualNumericTolerance(t *testing.T) {
	fr := DefaultPersonRules()

	assert.True(t, fr.Equal("hourly_rate", "1500.00", "1500"))
	assert.True(t, fr.Equal("hourly_rate", "1500.0005", "1500"))
	assert.False(t, fr.Equal("hourly_rate", "1500", "1550"))
	// Non-numeric values fall back to string comparison.
	assert.False(t, fr.Equal("hourly_rate", "n/a", "1500"))
}

func TestEqualMultiValuedIgnoresOrder(t *testing.T) {
	fr := DefaultPersonRules()

	assert.True(t, fr.Equal("qualifications", "forklift, welding", "welding,forklift"))
	assert.False(t, fr.Equal("qualifications", "forklift", "forklift,welding"))
}

func TestMergeMultiValued(t *testing.T) {
	fr := DefaultPersonRules()

	merged, ok := fr.Merge("qualifications", "welding,crane", "forklift,welding")
	assert.True(t, ok)
	// Store order first, unseen source elements appended.
	assert.Equal(t, "forklift,welding,crane", merged)

	_, ok = fr.Merge("full_name_kanji", "a", "b")
	assert.False(t, ok, "merge is undefined for single-valued fields")
}

func TestMergeIsDeterministic(t *testing.T) {
	fr := DefaultSiteRules()
	for i := 0; i < 10; i++ {
		merged, ok := fr.Merge("lines", "L3,L1", "L1,L2")
		assert.True(t, ok)
		assert.Equal(t, "L1,L2,L3", merged)
	}
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, SeverityCritical, MaxSeverity(SeverityLow, SeverityCritical))
	assert.Equal(t, SeverityHigh, MaxSeverity(SeverityHigh, SeverityMedium))
	assert.Equal(t, SeverityLow, MaxSeverity(SeverityLow, SeverityLow))
}

func TestDefaultRulesByEntityType(t *testing.T) {
	assert.Equal(t, SeverityCritical, DefaultRules(EntityPerson).Severity("status"))
	assert.True(t, DefaultRules(EntitySite).MultiValued("lines"))
	// Unknown entity types get an empty rule set with medium fallback.
	assert.Equal(t, SeverityMedium, DefaultRules(EntityType("unknown")).Severity("anything"))
}

func TestParseEntityType(t *testing.T) {
	got, ok := ParseEntityType("person")
	assert.True(t, ok)
	assert.Equal(t, EntityPerson, got)

	_, ok = ParseEntityType("invoice")
	assert.False(t, ok)
}
