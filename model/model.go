// Package model holds the entity metadata the translator queries by name:
// entity types, their properties, the tables and columns they live in and
// the type mapping of every property.
package model

import (
	"sort"

	"golang.org/x/text/cases"

	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// Model is an immutable set of entity types.
type Model struct {
	entities []*EntityType
	byName   map[string]*EntityType
	folded   map[string]*EntityType
}

// EntityType describes one queryable entity.
type EntityType struct {
	Name  string
	Table string
	Type  types.Type

	properties []*Property
	byName     map[string]*Property
	folded     map[string]*Property
}

// Property is one mapped member of an entity.
type Property struct {
	Name    string
	Column  string
	Type    types.Type
	Mapping *storage.TypeMapping
	Entity  *EntityType
}

var fold = cases.Fold()

// EntityTypes returns all entity types sorted by name.
func (m *Model) EntityTypes() []*EntityType {
	out := make([]*EntityType, len(m.entities))
	copy(out, m.entities)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FindEntityType looks an entity up by exact name, then case-insensitively.
func (m *Model) FindEntityType(name string) (*EntityType, bool) {
	if e, ok := m.byName[name]; ok {
		return e, true
	}
	e, ok := m.folded[fold.String(name)]
	return e, ok
}

// FindEntityTypeFor returns the entity type declared by t.
func (m *Model) FindEntityTypeFor(t types.Type) (*EntityType, bool) {
	t = t.Unwrap()
	for _, e := range m.entities {
		if e.Type == t {
			return e, true
		}
	}
	return nil, false
}

// Properties returns the entity's properties in declaration order.
func (e *EntityType) Properties() []*Property {
	out := make([]*Property, len(e.properties))
	copy(out, e.properties)
	return out
}

// FindProperty looks a property up by exact name, then case-insensitively.
func (e *EntityType) FindProperty(name string) (*Property, bool) {
	if p, ok := e.byName[name]; ok {
		return p, true
	}
	p, ok := e.folded[fold.String(name)]
	return p, ok
}
