package nodes

import (
	"strings"

	"github.com/bawdo/relq/model"
)

// SelectID addresses a select inside an arena.
type SelectID int

// ProjectionMember names a projection slot as a path of member names from
// the result shape root. The zero value is the root.
type ProjectionMember struct {
	path string
}

// Member builds a ProjectionMember from a path of member names.
func Member(names ...string) ProjectionMember {
	return ProjectionMember{path: strings.Join(names, ".")}
}

// Append returns the member one level below m.
func (m ProjectionMember) Append(name string) ProjectionMember {
	if m.path == "" {
		return ProjectionMember{path: name}
	}
	return ProjectionMember{path: m.path + "." + name}
}

// IsRoot reports whether m is the shape root.
func (m ProjectionMember) IsRoot() bool { return m.path == "" }

// Last returns the final member name, or "" for the root.
func (m ProjectionMember) Last() string {
	if i := strings.LastIndexByte(m.path, '.'); i >= 0 {
		return m.path[i+1:]
	}
	return m.path
}

func (m ProjectionMember) String() string {
	if m.path == "" {
		return "<root>"
	}
	return m.path
}

// SelectExpr is one SELECT: sources, predicate, projection, ordering, paging
// and the distinct flag. The fluent mutators live in the managers package;
// a SelectExpr reached through a TableRef or a subquery node is frozen.
type SelectExpr struct {
	ID         SelectID
	Tables     []*TableRef
	Predicate  Node
	Projection []*Projection
	Orderings  []*Ordering
	Limit      Node
	Offset     Node
	Distinct   bool
}

// IsPaged reports whether a limit or offset applies.
func (s *SelectExpr) IsPaged() bool {
	return s.Limit != nil || s.Offset != nil
}

// FindProjection returns the visible projection bound to member.
func (s *SelectExpr) FindProjection(member ProjectionMember) (*Projection, bool) {
	for _, p := range s.Projection {
		if !p.Hidden && p.Member == member {
			return p, true
		}
	}
	return nil, false
}

// Projection is one slot of a select's projection. Exactly one of Scalar
// and Entity is set. Hidden slots exist only so an outer select can order
// by a value the inner select does not expose.
type Projection struct {
	Member ProjectionMember
	Alias  string
	Scalar Node
	Entity *EntityProjection
	Hidden bool
}

// EntityProjection projects every mapped property of an entity. Aliases
// holds the output name of each column; a nil slice or an empty entry
// keeps the column's own name.
type EntityProjection struct {
	Entity  *model.EntityType
	Columns []*Column // in property order
	Aliases []string
}

// Alias returns the output name of the i-th column.
func (p *EntityProjection) Alias(i int) string {
	if i < len(p.Aliases) && p.Aliases[i] != "" {
		return p.Aliases[i]
	}
	return p.Columns[i].Name
}

// WithAliases returns a copy of p whose columns are exposed as aliases.
func (p *EntityProjection) WithAliases(aliases []string) *EntityProjection {
	cp := *p
	cp.Aliases = aliases
	return &cp
}

// NewEntityProjection projects entity's properties from table.
func NewEntityProjection(entity *model.EntityType, table *TableRef) *EntityProjection {
	props := entity.Properties()
	cols := make([]*Column, len(props))
	for i, p := range props {
		cols[i] = NewColumn(table, p.Column, p.Type, p.Mapping)
	}
	return &EntityProjection{Entity: entity, Columns: cols}
}

// BindProperty returns the column projected for prop.
func (p *EntityProjection) BindProperty(prop *model.Property) (*Column, bool) {
	if prop == nil || prop.Entity != p.Entity {
		return nil, false
	}
	for i, q := range p.Entity.Properties() {
		if q == prop {
			return p.Columns[i], true
		}
	}
	return nil, false
}

// Remap returns the projection as seen through table, a subquery source
// wrapping the select that owns p.
func (p *EntityProjection) Remap(table *TableRef) *EntityProjection {
	cols := make([]*Column, len(p.Columns))
	for i, c := range p.Columns {
		cols[i] = NewColumn(table, p.Alias(i), c.typ, c.mapping)
	}
	return &EntityProjection{Entity: p.Entity, Columns: cols}
}
