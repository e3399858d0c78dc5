package shaper

import (
	"github.com/cockroachdb/errors"

	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/nodes"
)

// Row is one result row of a compiled query's active select.
type Row interface {
	// Scalar returns the value of the scalar slot bound to member.
	Scalar(member nodes.ProjectionMember) (any, error)
	// Property returns prop's value in the entity slot bound to member.
	Property(member nodes.ProjectionMember, prop *model.Property) (any, error)
}

// Layout maps projection slots to positions in a positional result row,
// in the order the select prints its projection.
type Layout struct {
	scalars  map[nodes.ProjectionMember]int
	entities map[nodes.ProjectionMember]entitySlot
	width    int
}

type entitySlot struct {
	start  int
	entity *model.EntityType
}

// NewLayout computes the row layout of s. A select without projection
// still yields one column.
func NewLayout(s *nodes.SelectExpr) *Layout {
	l := &Layout{
		scalars:  make(map[nodes.ProjectionMember]int),
		entities: make(map[nodes.ProjectionMember]entitySlot),
	}
	for _, p := range s.Projection {
		if p.Entity != nil {
			if !p.Hidden {
				l.entities[p.Member] = entitySlot{start: l.width, entity: p.Entity.Entity}
			}
			l.width += len(p.Entity.Columns)
			continue
		}
		if !p.Hidden {
			l.scalars[p.Member] = l.width
		}
		l.width++
	}
	if l.width == 0 {
		l.width = 1
	}
	return l
}

// Width returns the number of values a row must carry.
func (l *Layout) Width() int { return l.width }

// Row wraps positional values read from a database row.
func (l *Layout) Row(values []any) (Row, error) {
	if len(values) != l.width {
		return nil, errors.Newf("row has %d values, want %d", len(values), l.width)
	}
	return &sliceRow{layout: l, values: values}, nil
}

type sliceRow struct {
	layout *Layout
	values []any
}

func (r *sliceRow) Scalar(member nodes.ProjectionMember) (any, error) {
	i, ok := r.layout.scalars[member]
	if !ok {
		return nil, errors.Newf("no scalar slot %s", member)
	}
	return r.values[i], nil
}

func (r *sliceRow) Property(member nodes.ProjectionMember, prop *model.Property) (any, error) {
	slot, ok := r.layout.entities[member]
	if !ok || slot.entity != prop.Entity {
		return nil, errors.Newf("no %s entity slot %s", prop.Entity.Name, member)
	}
	for i, p := range slot.entity.Properties() {
		if p == prop {
			return r.values[slot.start+i], nil
		}
	}
	return nil, errors.AssertionFailedf("property %s not in entity %s", prop.Name, slot.entity.Name)
}

// MapRow is a Row keyed by member path. Scalars use the member path
// ("" for the root); entity properties use the member path joined with
// the property name by a dot, or the bare property name at the root.
type MapRow map[string]any

func (r MapRow) Scalar(member nodes.ProjectionMember) (any, error) {
	return r.lookup(memberKey(member, ""))
}

func (r MapRow) Property(member nodes.ProjectionMember, prop *model.Property) (any, error) {
	return r.lookup(memberKey(member, prop.Name))
}

func (r MapRow) lookup(key string) (any, error) {
	v, ok := r[key]
	if !ok {
		return nil, errors.Newf("row has no value %q", key)
	}
	return v, nil
}

func memberKey(member nodes.ProjectionMember, name string) string {
	if member.IsRoot() {
		return name
	}
	if name == "" {
		return member.String()
	}
	return member.String() + "." + name
}
