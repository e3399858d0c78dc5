package model

import (
	"github.com/cockroachdb/errors"

	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// Builder assembles a Model. Type mappings are resolved against the source
// when Build is called.
type Builder struct {
	source   storage.TypeMappingSource
	entities []*EntityBuilder
}

// EntityBuilder declares the properties of one entity.
type EntityBuilder struct {
	name       string
	table      string
	interfaces []types.Type
	props      []propertyDecl
}

type propertyDecl struct {
	name      string
	column    string
	typ       types.Type
	storeType string
	nullable  bool
}

// PropertyOption customises a property declaration.
type PropertyOption func(*propertyDecl)

// Column overrides the column name, which defaults to the property name.
func Column(name string) PropertyOption {
	return func(p *propertyDecl) { p.column = name }
}

// StoreType forces the store type instead of the dialect default.
func StoreType(storeType string) PropertyOption {
	return func(p *propertyDecl) { p.storeType = storeType }
}

// Nullable marks the property as admitting null.
func Nullable() PropertyOption {
	return func(p *propertyDecl) { p.nullable = true }
}

// NewBuilder creates a Builder resolving mappings from source.
func NewBuilder(source storage.TypeMappingSource) *Builder {
	return &Builder{source: source}
}

// Entity declares an entity stored in table. Repeated calls with the same
// name return the existing declaration.
func (b *Builder) Entity(name, table string) *EntityBuilder {
	for _, e := range b.entities {
		if e.name == name {
			return e
		}
	}
	if table == "" {
		table = name
	}
	e := &EntityBuilder{name: name, table: table}
	b.entities = append(b.entities, e)
	return e
}

// Implements records interfaces the entity type implements.
func (e *EntityBuilder) Implements(ifaces ...types.Type) *EntityBuilder {
	e.interfaces = append(e.interfaces, ifaces...)
	return e
}

// Property declares a property of type t.
func (e *EntityBuilder) Property(name string, t types.Type, opts ...PropertyOption) *EntityBuilder {
	p := propertyDecl{name: name, column: name, typ: t}
	for _, o := range opts {
		o(&p)
	}
	e.props = append(e.props, p)
	return e
}

// Build resolves every property's mapping and returns the Model.
func (b *Builder) Build() (*Model, error) {
	m := &Model{
		byName: make(map[string]*EntityType, len(b.entities)),
		folded: make(map[string]*EntityType, len(b.entities)),
	}
	for _, eb := range b.entities {
		et := &EntityType{
			Name:   eb.name,
			Table:  eb.table,
			Type:   types.NewEntity(eb.name, eb.interfaces...),
			byName: make(map[string]*Property, len(eb.props)),
			folded: make(map[string]*Property, len(eb.props)),
		}
		for _, ps := range eb.props {
			if _, dup := et.byName[ps.name]; dup {
				return nil, errors.Newf("entity %s: duplicate property %q", eb.name, ps.name)
			}
			mapping, err := b.resolve(ps)
			if err != nil {
				return nil, errors.Wrapf(err, "entity %s", eb.name)
			}
			typ := ps.typ
			if !typ.IsValid() {
				typ = mapping.Type
			}
			if ps.nullable {
				typ = typ.AsNullable()
			}
			p := &Property{Name: ps.name, Column: ps.column, Type: typ, Mapping: mapping, Entity: et}
			et.properties = append(et.properties, p)
			et.byName[p.Name] = p
			et.folded[fold.String(p.Name)] = p
		}
		if _, dup := m.byName[et.Name]; dup {
			return nil, errors.Newf("duplicate entity %q", et.Name)
		}
		m.entities = append(m.entities, et)
		m.byName[et.Name] = et
		m.folded[fold.String(et.Name)] = et
	}
	return m, nil
}

func (b *Builder) resolve(ps propertyDecl) (*storage.TypeMapping, error) {
	if ps.storeType != "" {
		m := b.source.FindMappingForStoreType(ps.storeType)
		if m == nil {
			return nil, errors.Newf("property %s: unknown store type %q", ps.name, ps.storeType)
		}
		if ps.typ.IsValid() && ps.typ.Kind() == types.KindEnum {
			return &storage.TypeMapping{StoreType: m.StoreType, Type: ps.typ.Unwrap()}, nil
		}
		return m, nil
	}
	m := b.source.FindMapping(ps.typ)
	if m == nil {
		return nil, errors.Newf("property %s: no mapping for type %s", ps.name, ps.typ)
	}
	return m, nil
}
