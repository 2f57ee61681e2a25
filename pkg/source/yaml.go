package source

import (
	"context"
	"os"

	"github.com/goccy/go-yaml"

	"staffsync/pkg/errors"
	"staffsync/pkg/records"
)

// YAMLFile reads normalized records from a YAML export with the same
// document shape as the JSON adapter.
type YAMLFile struct {
	path       string
	entityType records.EntityType
}

// NewYAMLFile creates a YAML file adapter for the given entity type.
func NewYAMLFile(path string, entityType records.EntityType) *YAMLFile {
	return &YAMLFile{path: path, entityType: entityType}
}

// EntityType implements Adapter.
func (a *YAMLFile) EntityType() records.EntityType { return a.entityType }

// Fetch implements Adapter.
func (a *YAMLFile) Fetch(ctx context.Context) ([]records.NormalizedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(a.path)
	if err != nil {
		return nil, errors.WrapIO("read", a.path, err)
	}
	var docs []recordDoc
	if err := yaml.Unmarshal(raw, &docs); err != nil {
		return nil, errors.WrapParse("yaml", a.path, err)
	}
	return normalize(docs, a.entityType)
}
