// Package config loads entity declarations from a YAML file for the CLI.
// The file mirrors the registration API: a list of entities, each with an
// ordered field list of (possibly nested) shapes plus unique-key and index
// declarations.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/relstore/internal/shape"
)

// Config is the top-level YAML document.
type Config struct {
	Entities []EntitySpec `yaml:"entities"`
}

// EntitySpec declares one entity type.
type EntitySpec struct {
	Name       string      `yaml:"name"`
	Fields     []FieldSpec `yaml:"fields"`
	UniqueKeys [][]string  `yaml:"unique_keys"`
	Indexes    [][]string  `yaml:"indexes"`
}

// FieldSpec is a named shape.
type FieldSpec struct {
	Name      string    `yaml:"name"`
	ShapeSpec ShapeSpec `yaml:",inline"`
}

// ShapeSpec is the recursive YAML form of a shape.
type ShapeSpec struct {
	Type      string      `yaml:"type"`
	Length    int         `yaml:"length"`
	Precision int         `yaml:"precision"`
	Scale     int         `yaml:"scale"`
	Values    []string    `yaml:"values"`
	Fields    []FieldSpec `yaml:"fields"`
	Key       *ShapeSpec  `yaml:"key"`
	Elem      *ShapeSpec  `yaml:"elem"`
	Entity    string      `yaml:"entity"`
}

var kindsByName = map[string]shape.Kind{
	"text":      shape.Text,
	"varchar":   shape.Varchar,
	"int":       shape.Int,
	"bigint":    shape.BigInt,
	"smallint":  shape.SmallInt,
	"tinyint":   shape.TinyInt,
	"float":     shape.Float,
	"double":    shape.Double,
	"decimal":   shape.Decimal,
	"bool":      shape.Bool,
	"date":      shape.Date,
	"time":      shape.Time,
	"timestamp": shape.Timestamp,
	"enum":      shape.Enum,
	"struct":    shape.Struct,
	"seq":       shape.Seq,
	"map":       shape.Map,
	"option":    shape.Option,
	"ref":       shape.Ref,
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML config bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if len(cfg.Entities) == 0 {
		return nil, fmt.Errorf("invalid config: no entities declared")
	}
	return &cfg, nil
}

// EntityDefs converts the parsed document into registration-time entity
// definitions. Shape-level validation happens at registration, not here.
func (c *Config) EntityDefs() ([]shape.EntityDef, error) {
	defs := make([]shape.EntityDef, 0, len(c.Entities))
	for _, e := range c.Entities {
		fields, err := convertFields(e.Name, e.Fields)
		if err != nil {
			return nil, err
		}
		defs = append(defs, shape.EntityDef{
			Name:   e.Name,
			Fields: fields,
			Settings: shape.Settings{
				UniqueKeys: e.UniqueKeys,
				Indexes:    e.Indexes,
			},
		})
	}
	return defs, nil
}

func convertFields(entity string, specs []FieldSpec) ([]shape.Field, error) {
	fields := make([]shape.Field, 0, len(specs))
	for _, f := range specs {
		s, err := convertShape(entity, f.Name, f.ShapeSpec)
		if err != nil {
			return nil, err
		}
		fields = append(fields, shape.Field{Name: f.Name, Shape: s})
	}
	return fields, nil
}

func convertShape(entity, field string, spec ShapeSpec) (shape.Shape, error) {
	kind, ok := kindsByName[spec.Type]
	if !ok {
		return shape.Shape{}, fmt.Errorf("entity %s, field %s: unknown type %q", entity, field, spec.Type)
	}

	s := shape.Shape{
		Kind:      kind,
		Length:    spec.Length,
		Precision: spec.Precision,
		Scale:     spec.Scale,
		Values:    spec.Values,
		Entity:    spec.Entity,
	}

	if len(spec.Fields) > 0 {
		fields, err := convertFields(entity, spec.Fields)
		if err != nil {
			return shape.Shape{}, err
		}
		s.Fields = fields
	}
	if spec.Key != nil {
		key, err := convertShape(entity, field, *spec.Key)
		if err != nil {
			return shape.Shape{}, err
		}
		s.Key = &key
	}
	if spec.Elem != nil {
		elem, err := convertShape(entity, field, *spec.Elem)
		if err != nil {
			return shape.Shape{}, err
		}
		s.Elem = &elem
	}
	return s, nil
}
