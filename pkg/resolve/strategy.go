// Package resolve applies a resolution policy to the field-level
// conflicts found by the comparator. Every input conflict ends in exactly
// one outcome bucket or in the pending list; nothing is silently dropped.
package resolve

import (
	"fmt"
	"strings"
)

// Strategy selects how conflicts are resolved for one sync invocation.
type Strategy string

const (
	// SourceWins takes the source's values for every conflicting field.
	SourceWins Strategy = "source_wins"

	// StoreWins keeps the store's values. No mutation, but the
	// conflict is still recorded for audit.
	StoreWins Strategy = "store_wins"

	// NewestWins compares source and store timestamps per field; the
	// younger side's value is kept. A missing timestamp never wins;
	// when both are missing the conflict falls back to manual.
	NewestWins Strategy = "newest_wins"

	// Manual requires a supplied decision per conflicting key; keys
	// without one go to pending.
	Manual Strategy = "manual"

	// Merge unions multi-valued fields; fields not declared
	// multi-valued fall back to manual.
	Merge Strategy = "merge"
)

// ParseStrategy converts a string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case SourceWins:
		return SourceWins, nil
	case StoreWins:
		return StoreWins, nil
	case NewestWins:
		return NewestWins, nil
	case Manual:
		return Manual, nil
	case Merge:
		return Merge, nil
	default:
		return "", fmt.Errorf("unknown resolution strategy %q", s)
	}
}

// Strategies lists every valid strategy name.
func Strategies() []Strategy {
	return []Strategy{SourceWins, StoreWins, NewestWins, Manual, Merge}
}
