package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// isYAML reports whether path should be read as YAML rather than JSON.
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// toJSON converts a YAML settings file to JSON so both formats go through
// the same strict decoder. JSON input is returned unchanged.
func toJSON(path string, data []byte) ([]byte, error) {
	if !isYAML(path) {
		return data, nil
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if v == nil {
		// Empty document: same as "{}".
		return []byte("{}"), nil
	}
	j, err := json.Marshal(stringKeys(v))
	if err != nil {
		return nil, fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, nil
}

// stringKeys rewrites map keys to strings so the value can be JSON-marshaled.
func stringKeys(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = stringKeys(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = stringKeys(v)
		}
		return x
	case []any:
		for i := range x {
			x[i] = stringKeys(x[i])
		}
		return x
	default:
		return in
	}
}
