package table

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAML table schemas. The format mirrors Definition so table layouts can live
// in config files next to the service that owns them:
//
//	tables:
//	  - name: customers
//	    attributes:
//	      - { name: customer_id, kind: S, hashKey: true }
//	      - { name: tenant_id, kind: S, rangeKey: true }
//	      - { name: email, kind: S }
//	    globalIndexes:
//	      - name: email-index
//	        attributes:
//	          - { name: email, kind: S, hashKey: true }

type schemaFile struct {
	Tables []tableSchema `yaml:"tables"`
}

type tableSchema struct {
	Name          string            `yaml:"name"`
	Attributes    []attributeSchema `yaml:"attributes"`
	GlobalIndexes []indexSchema     `yaml:"globalIndexes,omitempty"`
	LocalIndexes  []indexSchema     `yaml:"localIndexes,omitempty"`
}

type attributeSchema struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	HashKey  bool   `yaml:"hashKey,omitempty"`
	RangeKey bool   `yaml:"rangeKey,omitempty"`
}

type indexSchema struct {
	Name       string            `yaml:"name"`
	Attributes []attributeSchema `yaml:"attributes"`
}

// ParseSchema parses a YAML schema document into table definitions.
func ParseSchema(data []byte) ([]Definition, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	defs := make([]Definition, 0, len(file.Tables))
	for _, t := range file.Tables {
		if t.Name == "" {
			return nil, fmt.Errorf("table with empty name in schema")
		}
		def := Definition{TableName: t.Name}
		attrs, err := parseAttributes(t.Name, t.Attributes)
		if err != nil {
			return nil, err
		}
		def.Attributes = attrs
		for _, idx := range t.GlobalIndexes {
			attrs, err := parseAttributes(t.Name+"/"+idx.Name, idx.Attributes)
			if err != nil {
				return nil, err
			}
			def.GlobalIndexes = append(def.GlobalIndexes, IndexDefinition{Name: idx.Name, Attributes: attrs})
		}
		for _, idx := range t.LocalIndexes {
			attrs, err := parseAttributes(t.Name+"/"+idx.Name, idx.Attributes)
			if err != nil {
				return nil, err
			}
			def.LocalIndexes = append(def.LocalIndexes, IndexDefinition{Name: idx.Name, Attributes: attrs})
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadSchema reads and parses a YAML schema file.
func LoadSchema(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return ParseSchema(data)
}

func parseAttributes(scope string, attrs []attributeSchema) ([]AttributeDefinition, error) {
	out := make([]AttributeDefinition, 0, len(attrs))
	for _, a := range attrs {
		kind := KeyKind(a.Kind)
		switch kind {
		case KeyKindS, KeyKindN, KeyKindB:
		case "":
			kind = KeyKindS
		default:
			return nil, fmt.Errorf("%s: attribute %q has unsupported kind %q", scope, a.Name, a.Kind)
		}
		out = append(out, AttributeDefinition{
			Name:     a.Name,
			Kind:     kind,
			HashKey:  a.HashKey,
			RangeKey: a.RangeKey,
		})
	}
	return out, nil
}
