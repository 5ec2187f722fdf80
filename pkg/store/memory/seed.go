package memory

import (
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/entity"
)

// ParseSeed decodes a YAML fixture keyed by entity type:
//
//	categories:
//	  - id: cat-1
//	    name: Elder Care
//	services:
//	  - name: Elder Transport
//	    category: cat-1
//
// Rows go through entity.FromRow, so alternate column names are accepted.
func ParseSeed(data []byte) ([]entity.Record, error) {
	var doc map[string][]map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("memory: parse seed: %w", err)
	}

	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []entity.Record
	for _, key := range keys {
		t, err := entity.ParseType(key)
		if err != nil {
			return nil, fmt.Errorf("memory: seed section %q: %w", key, err)
		}
		for _, row := range doc[key] {
			out = append(out, entity.FromRow(t, row))
		}
	}
	return out, nil
}

// LoadSeed reads and parses a seed file from fsys.
func LoadSeed(fsys fs.FS, path string) ([]entity.Record, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("memory: read seed %s: %w", path, err)
	}
	return ParseSeed(data)
}
