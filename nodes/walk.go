package nodes

import "github.com/cockroachdb/errors"

// Children returns the scalar operands of n in evaluation order. Subqueries
// are not scalar operands and are not returned.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Constant, *Parameter, *Column, *Fragment, *Exists:
		return nil
	case *Function:
		return n.Args
	case *Binary:
		return []Node{n.Left, n.Right}
	case *Unary:
		return []Node{n.Operand}
	case *Case:
		out := make([]Node, 0, 2*len(n.Whens)+1)
		for _, w := range n.Whens {
			out = append(out, w.Test, w.Result)
		}
		if n.Else != nil {
			out = append(out, n.Else)
		}
		return out
	case *In:
		return append([]Node{n.Item}, n.Values...)
	case *Like:
		if n.Escape != nil {
			return []Node{n.Match, n.Pattern, n.Escape}
		}
		return []Node{n.Match, n.Pattern}
	default:
		panic(errors.AssertionFailedf("unhandled scalar node %T", n))
	}
}

// Inspect walks n depth first, calling f for every node. Children of a node
// are skipped when f returns false.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

// Verify checks that every node except fragments carries a type mapping.
// A violation is an internal invariant failure, never a user error.
func Verify(n Node) error {
	var err error
	Inspect(n, func(n Node) bool {
		if err != nil {
			return false
		}
		if _, ok := n.(*Fragment); ok {
			return true
		}
		if n.Mapping() == nil {
			err = errors.AssertionFailedf("scalar node %s of type %s has no type mapping", n, n.Type())
			return false
		}
		return true
	})
	return err
}
