// Package shaper evaluates the shape plan of a compiled query against the
// rows its select returns.
package shaper

import (
	"github.com/cockroachdb/errors"

	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/translate"
	"github.com/bawdo/relq/types"
)

// ErrNoElements is returned when a query that needs at least one element
// reads an empty result.
var ErrNoElements = errors.New("sequence contains no elements")

// Materialize evaluates plan against one row. Entities materialize as
// map[string]any keyed by property name and constructed values as
// map[string]any keyed by member name.
func Materialize(plan expr.Expr, row Row) (any, error) {
	switch e := plan.(type) {
	case *expr.ProjectionBinding:
		v, err := row.Scalar(e.Member)
		if err != nil {
			return nil, err
		}
		return Convert(v, e.T)
	case *expr.EntityShaper:
		return materializeEntity(e, row)
	case *expr.New:
		out := make(map[string]any, len(e.Members))
		for i, name := range e.Members {
			v, err := Materialize(e.Args[i], row)
			if err != nil {
				return nil, errors.Wrapf(err, "member %s", name)
			}
			out[name] = v
		}
		return out, nil
	case *expr.AggregateGuard:
		v, err := materializeOperand(e.Inner, e.T, row)
		if err != nil {
			return nil, err
		}
		if e.ThrowOnDefault && isDefault(v, e.Inner.Type()) {
			return nil, ErrNoElements
		}
		return Convert(v, e.T)
	case *expr.Unary:
		if e.Op != expr.Convert {
			break
		}
		v, err := materializeOperand(e.Operand, e.T, row)
		if err != nil {
			return nil, err
		}
		return Convert(v, e.T)
	case *expr.Constant:
		return e.Value, nil
	case *expr.Conditional:
		test, err := Materialize(e.Test, row)
		if err != nil {
			return nil, err
		}
		if b, _ := test.(bool); b {
			return Materialize(e.IfTrue, row)
		}
		return Materialize(e.IfFalse, row)
	}
	return nil, errors.AssertionFailedf("cannot materialize %s", expr.Print(plan))
}

// materializeOperand evaluates the operand of a conversion to t. When t is
// nullable a null slot stays null instead of becoming the slot type's zero.
func materializeOperand(e expr.Expr, t types.Type, row Row) (any, error) {
	if !t.IsNullable() {
		return Materialize(e, row)
	}
	switch e := e.(type) {
	case *expr.ProjectionBinding:
		v, err := row.Scalar(e.Member)
		if err != nil || v == nil {
			return nil, err
		}
		return Convert(v, e.T)
	case *expr.Unary:
		if e.Op == expr.Convert {
			v, err := materializeOperand(e.Operand, e.T.AsNullable(), row)
			if err != nil || v == nil {
				return nil, err
			}
			return Convert(v, e.T)
		}
	}
	return Materialize(e, row)
}

func materializeEntity(e *expr.EntityShaper, row Row) (any, error) {
	props := e.Entity.Properties()
	out := make(map[string]any, len(props))
	allNull := true
	for _, p := range props {
		v, err := row.Property(e.Member, p)
		if err != nil {
			return nil, err
		}
		if v != nil {
			allNull = false
		}
		if v, err = Convert(v, p.Type); err != nil {
			return nil, errors.Wrapf(err, "%s.%s", e.Entity.Name, p.Name)
		}
		out[p.Name] = v
	}
	if e.Nullable && allNull {
		return nil, nil
	}
	return out, nil
}

// Collect materializes every row and applies the query's cardinality: a
// sequence yields []any, One the first element or ErrNoElements, and
// OneOrDefault the first element or nil.
func Collect(plan expr.Expr, card translate.Cardinality, rows []Row) (any, error) {
	if card != translate.Sequence {
		if len(rows) == 0 {
			if card == translate.One {
				return nil, ErrNoElements
			}
			return plan.Type().Zero(), nil
		}
		return Materialize(plan, rows[0])
	}
	out := make([]any, 0, len(rows))
	for i, r := range rows {
		v, err := Materialize(plan, r)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		out = append(out, v)
	}
	return out, nil
}
