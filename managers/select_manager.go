// Package managers owns the select-tree arena and the fluent mutators the
// operator translator applies to it.
package managers

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/typemap"
)

// SelectManager provides the structural mutators of one select in an
// arena. It is a cheap handle: two managers for the same id see and mutate
// the same select.
type SelectManager struct {
	arena *Arena
	id    nodes.SelectID
}

// ID returns the select's arena id.
func (m *SelectManager) ID() nodes.SelectID { return m.id }

// Arena returns the owning arena.
func (m *SelectManager) Arena() *Arena { return m.arena }

// Core returns the select. Callers must not mutate it directly.
func (m *SelectManager) Core() *nodes.SelectExpr { return m.arena.Get(m.id) }

// Factory returns the arena's scalar factory.
func (m *SelectManager) Factory() *typemap.Factory { return m.arena.factory }

// Table returns the first table source, or nil for a select without one.
func (m *SelectManager) Table() *nodes.TableRef {
	if s := m.Core(); len(s.Tables) > 0 {
		return s.Tables[0]
	}
	return nil
}

// Entity returns the entity read by the first table source, or nil.
func (m *SelectManager) Entity() *model.EntityType {
	if t := m.Table(); t != nil {
		return t.Entity
	}
	return nil
}

func (m *SelectManager) mutable() *nodes.SelectExpr {
	if m.arena.IsFrozen(m.id) {
		panic(errors.AssertionFailedf("select#%d is frozen", m.id))
	}
	return m.Core()
}

// ApplyPredicate ANDs pred into the select's predicate. A constant true
// predicate is dropped.
func (m *SelectManager) ApplyPredicate(pred nodes.Node) {
	s := m.mutable()
	if c, ok := pred.(*nodes.Constant); ok && c.Value == true {
		return
	}
	if s.Predicate == nil {
		s.Predicate = pred
		return
	}
	s.Predicate = m.Factory().And(s.Predicate, pred)
}

// ApplyProjection replaces the projection. Every output column receives a
// name unique within the select. Entity columns claim their own names
// first; a repeated entity gets aliases. Scalar slots then take the last
// member name, else the column name, else "c".
func (m *SelectManager) ApplyProjection(projs ...*nodes.Projection) {
	s := m.mutable()
	out := make([]*nodes.Projection, len(projs))
	used := make(map[string]bool)
	for i, p := range projs {
		cp := *p
		out[i] = &cp
		if cp.Entity == nil {
			continue
		}
		var aliases []string
		for j, c := range cp.Entity.Columns {
			name := uniqueName(used, cp.Entity.Alias(j))
			if name != c.Name && aliases == nil {
				aliases = make([]string, len(cp.Entity.Columns))
			}
			if aliases != nil {
				aliases[j] = name
			}
		}
		if aliases != nil || cp.Entity.Aliases != nil {
			cp.Entity = cp.Entity.WithAliases(aliases)
		}
	}
	for _, cp := range out {
		if cp.Scalar != nil {
			cp.Alias = uniqueName(used, projectionAlias(cp))
		}
	}
	s.Projection = out
}

func projectionAlias(p *nodes.Projection) string {
	if p.Alias != "" {
		return p.Alias
	}
	if name := p.Member.Last(); name != "" {
		return name
	}
	if c, ok := p.Scalar.(*nodes.Column); ok {
		return c.Name
	}
	return "c"
}

// GetProjection returns the visible projection slot bound to member.
func (m *SelectManager) GetProjection(member nodes.ProjectionMember) (*nodes.Projection, bool) {
	return m.Core().FindProjection(member)
}

// BindProperty resolves prop against the entity projected at member.
func (m *SelectManager) BindProperty(member nodes.ProjectionMember, prop *model.Property) (*nodes.Column, bool) {
	p, ok := m.GetProjection(member)
	if !ok || p.Entity == nil {
		return nil, false
	}
	return p.Entity.BindProperty(prop)
}

// ApplyOrderBy replaces the ordering with o.
func (m *SelectManager) ApplyOrderBy(o *nodes.Ordering) {
	m.mutable().Orderings = []*nodes.Ordering{o}
}

// ApplyThenBy appends o unless an ordering on the same expression exists.
func (m *SelectManager) ApplyThenBy(o *nodes.Ordering) {
	s := m.mutable()
	for _, e := range s.Orderings {
		if nodes.Equal(e.Expr, o.Expr) {
			return
		}
	}
	s.Orderings = append(s.Orderings, o)
}

// ClearOrdering drops every ordering.
func (m *SelectManager) ClearOrdering() {
	m.mutable().Orderings = nil
}

// Reverse flips the direction of every ordering. It reports false when the
// select has no ordering to reverse.
func (m *SelectManager) Reverse() bool {
	s := m.mutable()
	if len(s.Orderings) == 0 {
		return false
	}
	for i, o := range s.Orderings {
		s.Orderings[i] = o.Reversed()
	}
	return true
}

// ApplyLimit sets the row limit, pushing down first when a limit already
// applies.
func (m *SelectManager) ApplyLimit(n nodes.Node) {
	if m.mutable().Limit != nil {
		m.Pushdown()
	}
	m.Core().Limit = n
}

// ApplyOffset sets the row offset, pushing down first when the select is
// already paged.
func (m *SelectManager) ApplyOffset(n nodes.Node) {
	if m.mutable().IsPaged() {
		m.Pushdown()
	}
	m.Core().Offset = n
}

// ApplyDistinct marks the select distinct. A paged select is pushed down
// first. Ordering does not survive deduplication.
func (m *SelectManager) ApplyDistinct() {
	if m.mutable().IsPaged() {
		m.Pushdown()
	}
	s := m.Core()
	s.Distinct = true
	s.Orderings = nil
}

// Freeze marks the select immutable. It is called when the select becomes
// the subquery of an existence or membership test.
func (m *SelectManager) Freeze() {
	m.arena.freeze(m.id)
}

// Pushdown moves the select's content into a new frozen select and makes
// that select the only table source of this one. The outer select keeps
// its id and projects the inner projection slot for slot, so shape
// bindings stay valid. Orderings move to the outer select; the inner
// select keeps them only while paging depends on them.
func (m *SelectManager) Pushdown() *nodes.TableRef {
	outer := m.mutable()
	inner := m.arena.allocate()
	inner.Tables = outer.Tables
	inner.Predicate = outer.Predicate
	inner.Projection = outer.Projection
	inner.Orderings = outer.Orderings
	inner.Limit = outer.Limit
	inner.Offset = outer.Offset
	inner.Distinct = outer.Distinct

	table := nodes.NewSubqueryTable(inner, m.arena.uniqueAlias("t"))

	var orderings []*nodes.Ordering
	for _, o := range inner.Orderings {
		orderings = append(orderings, &nodes.Ordering{
			Expr:      liftOrdering(inner, table, o.Expr),
			Ascending: o.Ascending,
		})
	}
	if !inner.IsPaged() {
		inner.Orderings = nil
	}

	projection := make([]*nodes.Projection, 0, len(inner.Projection))
	for _, p := range inner.Projection {
		if p.Hidden {
			continue
		}
		switch {
		case p.Entity != nil:
			projection = append(projection, &nodes.Projection{
				Member: p.Member,
				Entity: p.Entity.Remap(table),
			})
		default:
			projection = append(projection, &nodes.Projection{
				Member: p.Member,
				Alias:  p.Alias,
				Scalar: nodes.NewColumn(table, p.Alias, p.Scalar.Type(), p.Scalar.Mapping()),
			})
		}
	}

	outer.Tables = []*nodes.TableRef{table}
	outer.Predicate = nil
	outer.Projection = projection
	outer.Orderings = orderings
	outer.Limit = nil
	outer.Offset = nil
	outer.Distinct = false

	m.arena.freeze(inner.ID)
	return table
}

// liftOrdering returns the column of table that exposes expr, adding a
// hidden projection to inner when no slot already does.
func liftOrdering(inner *nodes.SelectExpr, table *nodes.TableRef, expr nodes.Node) nodes.Node {
	for _, p := range inner.Projection {
		if p.Scalar != nil && nodes.Equal(p.Scalar, expr) {
			return nodes.NewColumn(table, p.Alias, expr.Type(), expr.Mapping())
		}
		if p.Entity == nil {
			continue
		}
		for i, c := range p.Entity.Columns {
			if nodes.Equal(c, expr) {
				return nodes.NewColumn(table, p.Entity.Alias(i), c.Type(), c.Mapping())
			}
		}
	}
	used := make(map[string]bool, len(inner.Projection))
	for _, p := range inner.Projection {
		if p.Entity == nil {
			used[strings.ToLower(p.Alias)] = true
			continue
		}
		for i := range p.Entity.Columns {
			used[strings.ToLower(p.Entity.Alias(i))] = true
		}
	}
	alias := uniqueName(used, "c")
	inner.Projection = append(inner.Projection, &nodes.Projection{
		Alias:  alias,
		Scalar: expr,
		Hidden: true,
	})
	return nodes.NewColumn(table, alias, expr.Type(), expr.Mapping())
}
