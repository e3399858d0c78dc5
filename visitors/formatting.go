// Package visitors renders compiled select trees for people: a multi-line
// formatter and a Graphviz DOT renderer.
package visitors

import (
	"strings"

	"github.com/bawdo/relq/nodes"
)

// Option configures a renderer at construction time.
type Option func(*formatter)

// WithIndent sets the string used for one level of subquery nesting.
// The default is a tab.
func WithIndent(indent string) Option {
	return func(f *formatter) {
		f.indent = indent
	}
}

// WithStoreTypes annotates every scalar projection with its store type.
func WithStoreTypes() Option {
	return func(f *formatter) {
		f.storeTypes = true
	}
}

type formatter struct {
	indent     string
	storeTypes bool
}

// Format renders s in multi-line style. Every major clause begins on a new
// line; projections and orderings use leading-comma continuation and
// predicate conjuncts each get their own AND line. Subqueries in FROM,
// EXISTS and IN are rendered the same way one level deeper.
func Format(s *nodes.SelectExpr, opts ...Option) string {
	f := &formatter{indent: "\t"}
	for _, o := range opts {
		o(f)
	}
	var sb strings.Builder
	f.selectExpr(&sb, s, 0)
	return sb.String()
}

func (f *formatter) newline(sb *strings.Builder, depth int) {
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat(f.indent, depth))
}

func (f *formatter) selectExpr(sb *strings.Builder, s *nodes.SelectExpr, depth int) {
	sb.WriteString("SELECT")
	if s.Distinct {
		sb.WriteString(" DISTINCT")
	}

	// Projections: leading-comma style
	items := f.projection(s, depth)
	sb.WriteByte(' ')
	sb.WriteString(items[0])
	for _, item := range items[1:] {
		f.newline(sb, depth+1)
		sb.WriteByte(',')
		sb.WriteString(item)
	}

	for i, t := range s.Tables {
		if i == 0 {
			f.newline(sb, depth)
			sb.WriteString("FROM ")
		} else {
			f.newline(sb, depth+1)
			sb.WriteByte(',')
		}
		f.table(sb, t, depth)
	}

	if s.Predicate != nil {
		conjuncts := splitAnd(s.Predicate)
		f.newline(sb, depth)
		sb.WriteString("WHERE ")
		sb.WriteString(f.scalar(conjuncts[0], depth))
		for _, c := range conjuncts[1:] {
			f.newline(sb, depth+1)
			sb.WriteString("AND ")
			sb.WriteString(f.scalar(c, depth+1))
		}
	}

	// ORDER BY: leading-comma style
	for i, o := range s.Orderings {
		if i == 0 {
			f.newline(sb, depth)
			sb.WriteString("ORDER BY ")
		} else {
			f.newline(sb, depth+1)
			sb.WriteByte(',')
		}
		sb.WriteString(o.String())
	}

	if s.Limit != nil {
		f.newline(sb, depth)
		sb.WriteString("LIMIT ")
		sb.WriteString(s.Limit.String())
	}
	if s.Offset != nil {
		f.newline(sb, depth)
		sb.WriteString("OFFSET ")
		sb.WriteString(s.Offset.String())
	}
}

// projection returns the rendered projection items of s.
func (f *formatter) projection(s *nodes.SelectExpr, depth int) []string {
	if len(s.Projection) == 0 {
		return []string{"1"}
	}
	var items []string
	for _, p := range s.Projection {
		if p.Entity != nil {
			for i, c := range p.Entity.Columns {
				item := c.String()
				if alias := p.Entity.Alias(i); alias != c.Name {
					item += " AS " + alias
				}
				items = append(items, item)
			}
			continue
		}
		item := f.scalar(p.Scalar, depth+1)
		if c, ok := p.Scalar.(*nodes.Column); !ok || c.Name != p.Alias {
			item += " AS " + p.Alias
		}
		if f.storeTypes && p.Scalar.Mapping() != nil {
			item += " /* " + p.Scalar.Mapping().StoreType + " */"
		}
		items = append(items, item)
	}
	return items
}

func (f *formatter) table(sb *strings.Builder, t *nodes.TableRef, depth int) {
	if t.Subquery == nil {
		sb.WriteString(t.String())
		return
	}
	sb.WriteByte('(')
	f.newline(sb, depth+1)
	f.selectExpr(sb, t.Subquery, depth+1)
	f.newline(sb, depth)
	sb.WriteString(") AS ")
	sb.WriteString(t.Alias)
}

// scalar renders n, breaking subqueries onto their own lines.
func (f *formatter) scalar(n nodes.Node, depth int) string {
	var sub *nodes.SelectExpr
	var prefix string
	switch n := n.(type) {
	case *nodes.Exists:
		sub, prefix = n.Subquery, "EXISTS ("
		if n.Negated {
			prefix = "NOT EXISTS ("
		}
	case *nodes.In:
		if n.Subquery == nil {
			return n.String()
		}
		sub, prefix = n.Subquery, n.Item.String()+" IN ("
		if n.Negated {
			prefix = n.Item.String() + " NOT IN ("
		}
	default:
		return n.String()
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	f.newline(&sb, depth+1)
	f.selectExpr(&sb, sub, depth+1)
	f.newline(&sb, depth)
	sb.WriteByte(')')
	return sb.String()
}

// splitAnd flattens a tree of ANDs into its conjuncts, left to right.
func splitAnd(n nodes.Node) []nodes.Node {
	b, ok := n.(*nodes.Binary)
	if !ok || b.Op != nodes.OpAnd {
		return []nodes.Node{n}
	}
	return append(splitAnd(b.Left), splitAnd(b.Right)...)
}
