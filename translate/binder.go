package translate

import (
	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/managers"
	"github.com/bawdo/relq/nodes"
)

// projectionBinder rebuilds a selector body as a shape plan. Every scalar
// leaf becomes a projection slot of the select and is replaced by a
// ProjectionBinding; entities keep their whole projection under the new
// member path.
type projectionBinder struct {
	op     Operator
	sql    *SQLTranslator
	sel    *managers.SelectManager
	member nodes.ProjectionMember
	projs  []*nodes.Projection
}

// bindProjection replaces sel's projection with the slots body needs and
// returns the new shaper.
func bindProjection(op Operator, sql *SQLTranslator, sel *managers.SelectManager, body expr.Expr) (expr.Expr, error) {
	b := &projectionBinder{op: op, sql: sql, sel: sel}
	shaper, err := b.bind(body)
	if err != nil {
		return nil, err
	}
	sel.ApplyProjection(b.projs...)
	return shaper, nil
}

func (b *projectionBinder) bind(e expr.Expr) (expr.Expr, error) {
	e = reduceMember(e)
	switch e := e.(type) {
	case *expr.New:
		args := make([]expr.Expr, len(e.Args))
		outer := b.member
		for i, a := range e.Args {
			b.member = outer.Append(e.Members[i])
			bound, err := b.bind(a)
			if err != nil {
				return nil, err
			}
			args[i] = bound
		}
		b.member = outer
		return &expr.New{T: e.T, Members: e.Members, Args: args}, nil
	case *expr.EntityShaper:
		p, ok := b.sql.arena.Manager(e.Select).GetProjection(e.Member)
		if !ok || p.Entity == nil {
			return nil, invalidOperation(b.op, e)
		}
		b.projs = append(b.projs, &nodes.Projection{Member: b.member, Entity: p.Entity})
		return e.WithMember(b.sel.ID(), b.member), nil
	}
	n, ok := b.sql.Translate(e)
	if !ok {
		return nil, invalidOperation(b.op, e)
	}
	b.projs = append(b.projs, &nodes.Projection{Member: b.member, Scalar: n})
	return &expr.ProjectionBinding{Select: b.sel.ID(), Member: b.member, T: e.Type()}, nil
}

// reduceMember resolves member reads on constructed values to the bound
// argument: new { A = x }.A is x.
func reduceMember(e expr.Expr) expr.Expr {
	m, ok := e.(*expr.Member)
	if !ok {
		return e
	}
	n, ok := reduceMember(m.Operand).(*expr.New)
	if !ok {
		return e
	}
	if arg, ok := memberOfNew(n, m.Name); ok {
		return reduceMember(arg)
	}
	return e
}
