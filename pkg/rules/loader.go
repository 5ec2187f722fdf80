package rules

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/entity"
)

// LoadFS walks fsys and parses JSON/YAML rule documents into a catalog.
// A nil filesystem yields an empty catalog.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	catalog := NewCatalog()
	if fsys == nil {
		return catalog, nil
	}

	seen := make(map[entity.Type]string)
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !isRulesFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("rules: read %s: %w", path, err)
		}
		sets, err := Parse(data, path)
		if err != nil {
			return err
		}
		for _, set := range sets {
			if prev, exists := seen[set.Entity()]; exists {
				return fmt.Errorf("rules: entity %q defined in both %s and %s", set.Entity(), prev, path)
			}
			seen[set.Entity()] = path
			catalog.Set(set)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

// Parse decodes a single rules document. JSON is attempted first, then YAML.
func Parse(data []byte, source string) ([]*RuleSet, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("rules: file %s is empty", source)
	}

	var doc documentFile
	if err := json.Unmarshal(data, &doc); err != nil {
		doc = documentFile{}
		if yerr := yaml.Unmarshal(data, &doc); yerr != nil {
			return nil, fmt.Errorf("rules: parse %s: invalid JSON or YAML", source)
		}
	}

	out := make([]*RuleSet, 0, len(doc.Entities))
	for rawType, raw := range doc.Entities {
		t, err := entity.ParseType(rawType)
		if err != nil {
			return nil, fmt.Errorf("rules: file %s: %w", source, err)
		}
		set, err := raw.build(t)
		if err != nil {
			return nil, fmt.Errorf("rules: file %s entity %q: %w", source, rawType, err)
		}
		out = append(out, set)
	}
	return out, nil
}

// Marshal encodes a rule set into the YAML document layout accepted by Parse.
func Marshal(sets ...*RuleSet) ([]byte, error) {
	doc := documentFile{Entities: make(map[string]entityFile, len(sets))}
	for _, set := range sets {
		if set == nil {
			continue
		}
		file := entityFile{DebounceMS: int(set.Debounce() / time.Millisecond)}
		for _, spec := range set.Specs() {
			field := fieldFile{
				Name:    spec.Name,
				Label:   spec.Label,
				Default: spec.Default,
				Rules:   spec.Rules,
			}
			if unique, ok := set.Unique(spec.Name); ok {
				u := unique
				field.Unique = &u
			}
			file.Fields = append(file.Fields, field)
		}
		doc.Entities[string(set.Entity())] = file
	}
	return yaml.Marshal(doc)
}

type documentFile struct {
	Entities map[string]entityFile `json:"entities" yaml:"entities"`
}

type entityFile struct {
	DebounceMS int         `json:"debounceMs,omitempty" yaml:"debounceMs,omitempty"`
	Fields     []fieldFile `json:"fields" yaml:"fields"`
}

type fieldFile struct {
	Name    string      `json:"name" yaml:"name"`
	Label   string      `json:"label,omitempty" yaml:"label,omitempty"`
	Default string      `json:"default,omitempty" yaml:"default,omitempty"`
	Rules   []FieldRule `json:"rules,omitempty" yaml:"rules,omitempty"`
	Unique  *UniqueRule `json:"unique,omitempty" yaml:"unique,omitempty"`
}

func (f entityFile) build(t entity.Type) (*RuleSet, error) {
	specs := make([]FieldSpec, 0, len(f.Fields))
	var unique []UniqueRule
	for _, field := range f.Fields {
		specs = append(specs, FieldSpec{
			Name:    field.Name,
			Label:   field.Label,
			Default: field.Default,
			Rules:   append([]FieldRule(nil), field.Rules...),
		})
		if field.Unique != nil {
			rule := *field.Unique
			rule.Field = field.Name
			unique = append(unique, rule)
		}
	}
	return NewRuleSet(t, time.Duration(f.DebounceMS)*time.Millisecond, specs, unique)
}

func isRulesFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
