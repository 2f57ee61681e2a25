package resolve

import (
	"fmt"

	"staffsync/pkg/compare"
)

// Outcome names the bucket a resolved conflict landed in.
type Outcome string

const (
	// OutcomeSource means the source's values were applied.
	OutcomeSource Outcome = "resolved_source"
	// OutcomeStore means the store's values were kept.
	OutcomeStore Outcome = "resolved_store"
	// OutcomeManual means a supplied decision was applied.
	OutcomeManual Outcome = "resolved_manual"
)

// Resolution is the decided outcome for one conflicting key. Fields
// holds the values to write; it is empty when the store side won every
// field.
type Resolution struct {
	Key       string            `json:"key"`
	Outcome   Outcome           `json:"outcome"`
	Fields    map[string]string `json:"fields,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	DecidedBy string            `json:"decided_by,omitempty"`
}

// Changed reports whether the resolution mutates the store.
func (r Resolution) Changed() bool {
	return len(r.Fields) > 0
}

// Pending is a conflict the run could not resolve. It is a normal,
// reported outcome — never an error — and carries the reason so a
// follow-up run with supplied decisions can address it.
type Pending struct {
	Conflict compare.Conflict `json:"conflict"`
	Reason   string           `json:"reason"`
}

// Result aggregates resolution outcomes for one sync invocation. The
// union of the three buckets plus Pending equals the full input conflict
// set.
type Result struct {
	Strategy       Strategy     `json:"strategy"`
	ResolvedSource []Resolution `json:"resolved_source"`
	ResolvedStore  []Resolution `json:"resolved_store"`
	ResolvedManual []Resolution `json:"resolved_manual"`
	Pending        []Pending    `json:"pending"`
}

// Counts returns the bucket sizes: source, store, manual, pending.
func (r *Result) Counts() (int, int, int, int) {
	return len(r.ResolvedSource), len(r.ResolvedStore), len(r.ResolvedManual), len(r.Pending)
}

// Total returns the number of input conflicts accounted for.
func (r *Result) Total() int {
	return len(r.ResolvedSource) + len(r.ResolvedStore) + len(r.ResolvedManual) + len(r.Pending)
}

// HasPending reports whether any conflict is awaiting a decision.
func (r *Result) HasPending() bool {
	return len(r.Pending) > 0
}

// PendingKeys returns the keys left pending, in result order.
func (r *Result) PendingKeys() []string {
	keys := make([]string, 0, len(r.Pending))
	for _, p := range r.Pending {
		keys = append(keys, p.Conflict.Key)
	}
	return keys
}

// Updates returns the field updates to commit, keyed by record key.
// Only resolutions that change the store contribute.
func (r *Result) Updates() map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, bucket := range [][]Resolution{r.ResolvedSource, r.ResolvedManual} {
		for _, res := range bucket {
			if res.Changed() {
				out[res.Key] = res.Fields
			}
		}
	}
	return out
}

// Attribution maps each manually decided key to who supplied the
// decision, for the audit log.
func (r *Result) Attribution() map[string]string {
	out := make(map[string]string)
	for _, res := range r.ResolvedManual {
		if res.DecidedBy != "" {
			out[res.Key] = res.DecidedBy
		}
	}
	return out
}

// Summary returns a human-readable one-line summary.
func (r *Result) Summary() string {
	src, st, man, pend := r.Counts()
	return fmt.Sprintf("strategy=%s resolved_source=%d resolved_store=%d resolved_manual=%d pending=%d",
		r.Strategy, src, st, man, pend)
}
