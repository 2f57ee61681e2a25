package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"staffsync/pkg/records"
	"staffsync/pkg/resolve"
	"staffsync/pkg/source"
)

// parseEntityType validates the --entity flag.
func parseEntityType(s string) (records.EntityType, error) {
	entityType, ok := records.ParseEntityType(s)
	if !ok {
		names := make([]string, 0, 2)
		for _, t := range records.EntityTypes() {
			names = append(names, string(t))
		}
		return "", fmt.Errorf("unknown entity type %q (valid: %s)", s, strings.Join(names, ", "))
	}
	return entityType, nil
}

// newAdapter picks a file adapter from the input path's extension, or
// from an explicit --format override.
func newAdapter(path, format string, entityType records.EntityType) (source.Adapter, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "json"
		}
	}
	switch strings.ToLower(format) {
	case "json":
		return source.NewJSONFile(path, entityType), nil
	case "yaml", "yml":
		return source.NewYAMLFile(path, entityType), nil
	default:
		return nil, fmt.Errorf("unknown input format %q (valid: json, yaml)", format)
	}
}

// parseFieldOverrides parses repeated field=strategy pairs.
func parseFieldOverrides(pairs []string) (map[string]resolve.Strategy, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]resolve.Strategy, len(pairs))
	for _, pair := range pairs {
		field, name, ok := strings.Cut(pair, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid field strategy %q, want field=strategy", pair)
		}
		strategy, err := resolve.ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		out[field] = strategy
	}
	return out, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadDecisions reads a manual decision file: a JSON object mapping
// entity keys to decisions.
func loadDecisions(path string) (map[string]records.Decision, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read decisions file: %w", err)
	}
	var decisions map[string]records.Decision
	if err := json.Unmarshal(raw, &decisions); err != nil {
		return nil, fmt.Errorf("parse decisions file %s: %w", path, err)
	}
	return decisions, nil
}
