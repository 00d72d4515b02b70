package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// yamlToJSON rewrites .yaml/.yml config bytes as JSON so Load can run a
// single strict decoder over both formats. Other extensions pass through
// untouched. The config is a flat struct of strings and bools, and
// yaml/v3 already decodes mappings with string keys, so no key coercion
// is needed before the JSON round trip.
func yamlToJSON(path string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	j, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode yaml as json: %w", err)
	}
	return j, nil
}
