package expr

import "github.com/cockroachdb/errors"

// Replace returns e with every occurrence of the parameter from replaced
// by to. Subtrees without from are shared, not copied.
func Replace(e Expr, from *Parameter, to Expr) Expr {
	if e == nil {
		return nil
	}
	switch e := e.(type) {
	case *Parameter:
		if e == from {
			return to
		}
		return e
	case *Constant, *EntityShaper, *ProjectionBinding:
		return e
	case *Lambda:
		body := Replace(e.Body, from, to)
		if body == e.Body {
			return e
		}
		return &Lambda{Params: e.Params, Body: body}
	case *Member:
		op := Replace(e.Operand, from, to)
		if op == e.Operand {
			return e
		}
		return &Member{Operand: op, Name: e.Name, T: e.T}
	case *Call:
		obj := Replace(e.Object, from, to)
		args, changed := replaceList(e.Args, from, to)
		if obj == e.Object && !changed {
			return e
		}
		return &Call{Object: obj, Method: e.Method, Args: args, T: e.T}
	case *Binary:
		l, r := Replace(e.Left, from, to), Replace(e.Right, from, to)
		if l == e.Left && r == e.Right {
			return e
		}
		return &Binary{Op: e.Op, Left: l, Right: r, T: e.T}
	case *Unary:
		op := Replace(e.Operand, from, to)
		if op == e.Operand {
			return e
		}
		return &Unary{Op: e.Op, Operand: op, T: e.T}
	case *Conditional:
		t, a, b := Replace(e.Test, from, to), Replace(e.IfTrue, from, to), Replace(e.IfFalse, from, to)
		if t == e.Test && a == e.IfTrue && b == e.IfFalse {
			return e
		}
		return &Conditional{Test: t, IfTrue: a, IfFalse: b, T: e.T}
	case *New:
		args, changed := replaceList(e.Args, from, to)
		if !changed {
			return e
		}
		return &New{T: e.T, Members: e.Members, Args: args}
	case *AggregateGuard:
		inner := Replace(e.Inner, from, to)
		if inner == e.Inner {
			return e
		}
		return &AggregateGuard{Inner: inner, ThrowOnDefault: e.ThrowOnDefault, T: e.T}
	default:
		panic(errors.AssertionFailedf("unhandled expression %T", e))
	}
}

func replaceList(list []Expr, from *Parameter, to Expr) ([]Expr, bool) {
	var out []Expr
	for i, a := range list {
		r := Replace(a, from, to)
		if r != a && out == nil {
			out = make([]Expr, len(list))
			copy(out, list)
		}
		if out != nil {
			out[i] = r
		}
	}
	if out == nil {
		return list, false
	}
	return out, true
}
