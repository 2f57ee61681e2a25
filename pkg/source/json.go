package source

import (
	"context"
	"encoding/json"
	"os"

	"staffsync/pkg/errors"
	"staffsync/pkg/records"
)

// JSONFile reads normalized records from a JSON export: a top-level
// array of {key, fields, updated_at} documents.
type JSONFile struct {
	path       string
	entityType records.EntityType
}

// NewJSONFile creates a JSON file adapter for the given entity type.
func NewJSONFile(path string, entityType records.EntityType) *JSONFile {
	return &JSONFile{path: path, entityType: entityType}
}

// EntityType implements Adapter.
func (a *JSONFile) EntityType() records.EntityType { return a.entityType }

// Fetch implements Adapter.
func (a *JSONFile) Fetch(ctx context.Context) ([]records.NormalizedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(a.path)
	if err != nil {
		return nil, errors.WrapIO("read", a.path, err)
	}
	var docs []recordDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, errors.WrapParse("json", a.path, err)
	}
	return normalize(docs, a.entityType)
}
