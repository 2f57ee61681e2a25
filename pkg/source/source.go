// Package source defines the source adapter contract and file-based
// adapters for the JSON and YAML exports the staffing system produces.
// Adapters convert a domain-specific external artifact into normalized
// records with per-record provenance; the reconciliation core never sees
// the raw artifact.
package source

import (
	"context"
	"time"

	"staffsync/pkg/errors"
	"staffsync/pkg/records"
)

// Adapter yields normalized records for one entity type. Keys must be
// unique and non-empty; SourceUpdatedAt is set where the artifact carries
// a last-modified timestamp.
type Adapter interface {
	// EntityType returns the entity type this adapter produces.
	EntityType() records.EntityType

	// Fetch reads the external artifact and returns normalized records
	// with Origin set to source.
	Fetch(ctx context.Context) ([]records.NormalizedRecord, error)
}

// recordDoc is the on-disk shape shared by the JSON and YAML adapters.
type recordDoc struct {
	Key       string            `json:"key" yaml:"key"`
	Fields    map[string]string `json:"fields" yaml:"fields"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// normalize converts decoded documents into normalized records, enforcing
// unique non-empty keys.
func normalize(docs []recordDoc, entityType records.EntityType) ([]records.NormalizedRecord, error) {
	seen := make(map[string]bool, len(docs))
	out := make([]records.NormalizedRecord, 0, len(docs))
	for _, doc := range docs {
		if doc.Key == "" {
			return nil, errors.NewValidationError("key", doc.Key, "source record has empty key")
		}
		if seen[doc.Key] {
			return nil, errors.NewValidationError("key", doc.Key, "duplicate key in source artifact")
		}
		seen[doc.Key] = true
		fields := doc.Fields
		if fields == nil {
			fields = map[string]string{}
		}
		out = append(out, records.NormalizedRecord{
			EntityType:      entityType,
			Key:             doc.Key,
			Fields:          fields,
			SourceUpdatedAt: doc.UpdatedAt,
			Origin:          records.OriginSource,
		})
	}
	return out, nil
}

// Static is an Adapter over a fixed record slice. Test helper.
type Static struct {
	Type    records.EntityType
	Records []records.NormalizedRecord
	Err     error
}

// EntityType implements Adapter.
func (s *Static) EntityType() records.EntityType { return s.Type }

// Fetch implements Adapter.
func (s *Static) Fetch(context.Context) ([]records.NormalizedRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]records.NormalizedRecord, len(s.Records))
	for i, rec := range s.Records {
		out[i] = rec.Clone()
		out[i].EntityType = s.Type
		out[i].Origin = records.OriginSource
	}
	return out, nil
}
