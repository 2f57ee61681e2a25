package records

// FieldChoice selects which side of a conflict a manual decision keeps.
type FieldChoice string

const (
	// ChooseSource takes the external source's value.
	ChooseSource FieldChoice = "source"
	// ChooseStore keeps the store's value.
	ChooseStore FieldChoice = "store"
)

// Decision is a manual resolution supplied for one conflicting key.
// Either Replacement carries a full field map to write verbatim, or
// Choices picks a side per conflicting field. Replacement wins when both
// are set.
type Decision struct {
	Replacement map[string]string      `json:"replacement,omitempty"`
	Choices     map[string]FieldChoice `json:"choices,omitempty"`

	// DecidedBy records who or what supplied the decision, for the
	// audit trail.
	DecidedBy string `json:"decided_by,omitempty"`
}

// Empty reports whether the decision carries no resolution at all.
func (d Decision) Empty() bool {
	return len(d.Replacement) == 0 && len(d.Choices) == 0
}
