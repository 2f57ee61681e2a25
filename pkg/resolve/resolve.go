package resolve

import (
	"fmt"
	"strings"

	"staffsync/pkg/compare"
	"staffsync/pkg/records"
)

// Options carries the per-invocation inputs of a resolution pass.
type Options struct {
	// Decisions maps entity keys to manual decisions. A decision
	// always takes precedence over the run's strategy for its key.
	Decisions map[string]records.Decision

	// FieldOverrides selects a different strategy for specific fields.
	FieldOverrides map[string]Strategy

	// Rules supplies multi-valued declarations and merge behavior.
	// Defaults to an empty rule set.
	Rules *records.FieldRules

	// EscalateCritical forces conflicts containing a critical-severity
	// field to pending unless a decision covers the key, regardless of
	// strategy.
	EscalateCritical bool
}

// Resolve applies the strategy to every conflict. Each conflict yields
// exactly one Resolution or one Pending entry; the order of resolution is
// key-independent, so the result does not depend on input ordering beyond
// preserving it.
func Resolve(conflicts []compare.Conflict, strategy Strategy, opts Options) (*Result, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if opts.Rules == nil {
		opts.Rules = records.NewFieldRules(nil)
	}

	result := &Result{Strategy: strategy}
	for _, conflict := range conflicts {
		resolveOne(result, conflict, strategy, opts)
	}
	return result, nil
}

// resolveOne places one conflict into its bucket.
func resolveOne(result *Result, conflict compare.Conflict, strategy Strategy, opts Options) {
	if decision, ok := opts.Decisions[conflict.Key]; ok && !decision.Empty() {
		applyDecision(result, conflict, decision)
		return
	}

	if opts.EscalateCritical && conflict.MaxSeverity() == records.SeverityCritical {
		result.Pending = append(result.Pending, Pending{
			Conflict: conflict,
			Reason:   "conflict touches a critical field and no decision was supplied",
		})
		return
	}

	fields := make(map[string]string)
	var unresolved []string

	for _, diff := range conflict.Differences {
		effective := strategy
		if override, ok := opts.FieldOverrides[diff.Field]; ok {
			effective = override
		}

		switch effective {
		case SourceWins:
			fields[diff.Field] = diff.SourceValue

		case StoreWins:
			// Keep the store value; informational only.

		case NewestWins:
			switch {
			case diff.SourceUpdatedAt == nil && diff.StoreUpdatedAt == nil:
				unresolved = append(unresolved,
					fmt.Sprintf("field %s has no timestamp on either side", diff.Field))
			case diff.StoreUpdatedAt == nil:
				fields[diff.Field] = diff.SourceValue
			case diff.SourceUpdatedAt == nil:
				// Missing source timestamp never wins.
			case diff.SourceUpdatedAt.After(*diff.StoreUpdatedAt):
				fields[diff.Field] = diff.SourceValue
			default:
				// Ties resolve to the store: the conservative default.
			}

		case Manual:
			unresolved = append(unresolved,
				fmt.Sprintf("field %s awaits a manual decision", diff.Field))

		case Merge:
			merged, ok := opts.Rules.Merge(diff.Field, diff.SourceValue, diff.StoreValue)
			if !ok {
				unresolved = append(unresolved,
					fmt.Sprintf("merge is undefined for single-valued field %s", diff.Field))
				continue
			}
			if !opts.Rules.Equal(diff.Field, merged, diff.StoreValue) {
				fields[diff.Field] = merged
			}
		}
	}

	if len(unresolved) > 0 {
		result.Pending = append(result.Pending, Pending{
			Conflict: conflict,
			Reason:   strings.Join(unresolved, "; "),
		})
		return
	}

	if len(fields) > 0 {
		result.ResolvedSource = append(result.ResolvedSource, Resolution{
			Key:     conflict.Key,
			Outcome: OutcomeSource,
			Fields:  fields,
			Reason:  fmt.Sprintf("resolved by %s", effectiveName(strategy, opts)),
		})
		return
	}

	result.ResolvedStore = append(result.ResolvedStore, Resolution{
		Key:     conflict.Key,
		Outcome: OutcomeStore,
		Reason:  fmt.Sprintf("store values kept by %s", effectiveName(strategy, opts)),
	})
}

// applyDecision resolves a conflict from a supplied decision. A full
// replacement map is written verbatim; per-field choices must cover every
// conflicting field or the conflict stays pending.
func applyDecision(result *Result, conflict compare.Conflict, decision records.Decision) {
	if len(decision.Replacement) > 0 {
		result.ResolvedManual = append(result.ResolvedManual, Resolution{
			Key:       conflict.Key,
			Outcome:   OutcomeManual,
			Fields:    decision.Replacement,
			Reason:    "full replacement supplied",
			DecidedBy: decision.DecidedBy,
		})
		return
	}

	fields := make(map[string]string)
	var uncovered []string
	for _, diff := range conflict.Differences {
		choice, ok := decision.Choices[diff.Field]
		if !ok {
			uncovered = append(uncovered, diff.Field)
			continue
		}
		if choice == records.ChooseSource {
			fields[diff.Field] = diff.SourceValue
		}
	}

	if len(uncovered) > 0 {
		result.Pending = append(result.Pending, Pending{
			Conflict: conflict,
			Reason:   fmt.Sprintf("decision does not cover fields: %s", strings.Join(uncovered, ", ")),
		})
		return
	}

	result.ResolvedManual = append(result.ResolvedManual, Resolution{
		Key:       conflict.Key,
		Outcome:   OutcomeManual,
		Fields:    fields,
		Reason:    "per-field choices supplied",
		DecidedBy: decision.DecidedBy,
	})
}

func effectiveName(strategy Strategy, opts Options) string {
	if len(opts.FieldOverrides) > 0 {
		return fmt.Sprintf("%s strategy with %d field overrides", strategy, len(opts.FieldOverrides))
	}
	return fmt.Sprintf("%s strategy", strategy)
}
