package model

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// Schema is the YAML form of a model:
//
//	dialect: postgres
//	enums:
//	  Status: int32
//	interfaces: [INamed]
//	entities:
//	  - name: Customer
//	    table: customers
//	    implements: [INamed]
//	    properties:
//	      - {name: ID, type: int32, column: id}
//	      - {name: Status, type: Status}
//	      - {name: Email, type: string, nullable: true}
type Schema struct {
	Dialect    string            `yaml:"dialect"`
	Enums      map[string]string `yaml:"enums"`
	Interfaces []string          `yaml:"interfaces"`
	Entities   []EntitySchema    `yaml:"entities"`
}

// EntitySchema declares one entity in a Schema.
type EntitySchema struct {
	Name       string           `yaml:"name"`
	Table      string           `yaml:"table"`
	Implements []string         `yaml:"implements"`
	Properties []PropertySchema `yaml:"properties"`
}

// PropertySchema declares one property in a Schema.
type PropertySchema struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Column    string `yaml:"column"`
	StoreType string `yaml:"store_type"`
	Nullable  bool   `yaml:"nullable"`
}

// ParseSchema decodes a YAML schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parse schema")
	}
	if len(s.Entities) == 0 {
		return nil, errors.New("parse schema: no entities declared")
	}
	return &s, nil
}

// LoadSchemaFile reads and decodes a YAML schema file.
func LoadSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read schema")
	}
	return ParseSchema(data)
}

// Build resolves the schema against source. When source is nil the
// schema's own dialect selects one.
func (s *Schema) Build(source storage.TypeMappingSource) (*Model, error) {
	if source == nil {
		d, err := storage.ParseDialect(s.Dialect)
		if err != nil {
			return nil, err
		}
		if source, err = storage.ForDialect(d); err != nil {
			return nil, err
		}
	}

	enums := make(map[string]types.Type, len(s.Enums))
	for name, under := range s.Enums {
		k, ok := types.Parse(under)
		if !ok || !k.IsInteger() {
			return nil, errors.Newf("enum %s: underlying type %q is not an integer type", name, under)
		}
		enums[name] = types.NewEnum(name, k.Kind())
	}
	ifaces := make(map[string]types.Type, len(s.Interfaces))
	for _, name := range s.Interfaces {
		ifaces[name] = types.NewInterface(name)
	}

	b := NewBuilder(source)
	for _, es := range s.Entities {
		eb := b.Entity(es.Name, es.Table)
		for _, name := range es.Implements {
			iface, ok := ifaces[name]
			if !ok {
				return nil, errors.Newf("entity %s: undeclared interface %q", es.Name, name)
			}
			eb.Implements(iface)
		}
		for _, ps := range es.Properties {
			t, err := resolveType(ps.Type, enums)
			if err != nil && ps.StoreType == "" {
				return nil, errors.Wrapf(err, "entity %s property %s", es.Name, ps.Name)
			}
			var opts []PropertyOption
			if ps.Column != "" {
				opts = append(opts, Column(ps.Column))
			}
			if ps.StoreType != "" {
				opts = append(opts, StoreType(ps.StoreType))
			}
			if ps.Nullable {
				opts = append(opts, Nullable())
			}
			eb.Property(ps.Name, t, opts...)
		}
	}
	return b.Build()
}

func resolveType(name string, enums map[string]types.Type) (types.Type, error) {
	if name == "" {
		return types.Type{}, errors.New("missing type")
	}
	if t, ok := types.Parse(strings.ToLower(name)); ok {
		return t, nil
	}
	base, nullable := strings.CutSuffix(name, "?")
	if t, ok := enums[base]; ok {
		if nullable {
			t = t.AsNullable()
		}
		return t, nil
	}
	return types.Type{}, errors.Newf("unknown type %q", name)
}
