// Package translate lowers query chains into select trees. SQLTranslator
// lowers scalar expressions; QueryableTranslator applies query operators to
// the select tree and the shape plan.
package translate

import (
	"github.com/cockroachdb/errors"

	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/managers"
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/plugins"
	"github.com/bawdo/relq/typemap"
	"github.com/bawdo/relq/types"
)

// SQLTranslator lowers expressions bound to the shape of a query into
// scalar nodes. Shaper nodes in the input carry the select they read, so
// one translator serves every select of an arena.
type SQLTranslator struct {
	arena   *managers.Arena
	factory *typemap.Factory
	methods *plugins.MethodCallProvider
	members *plugins.MemberProvider
}

// NewSQLTranslator creates a translator over arena.
func NewSQLTranslator(arena *managers.Arena, methods *plugins.MethodCallProvider, members *plugins.MemberProvider) *SQLTranslator {
	return &SQLTranslator{arena: arena, factory: arena.Factory(), methods: methods, members: members}
}

// Translate lowers e to a fully mapped scalar node. It reports false when
// any part of e cannot be lowered; the caller decides whether that is an
// error. Misuse of Property panics with an ErrInvalidOperation error and a
// missing mapping with an assertion failure.
func (t *SQLTranslator) Translate(e expr.Expr) (nodes.Node, bool) {
	r, ok := t.visit(e)
	if !ok || r.node == nil {
		return nil, false
	}
	n := t.factory.ApplyDefaultTypeMapping(r.node)
	if err := nodes.Verify(n); err != nil {
		panic(err)
	}
	return n, true
}

// translation is the intermediate result of visiting one expression: a
// scalar node, or an entity shaper passed through for member binding.
type translation struct {
	node   nodes.Node
	shaper *expr.EntityShaper
}

func scalar(n nodes.Node) (translation, bool) { return translation{node: n}, true }

var failed = translation{}

func (t *SQLTranslator) visit(e expr.Expr) (translation, bool) {
	switch e := e.(type) {
	case *expr.Constant:
		return scalar(t.factory.Constant(e.Value, e.T))
	case *expr.Parameter:
		return scalar(nodes.NewParameter(e.Name, e.T, nil))
	case *expr.EntityShaper:
		return translation{shaper: e}, true
	case *expr.ProjectionBinding:
		p, ok := t.arena.Manager(e.Select).GetProjection(e.Member)
		if !ok || p.Scalar == nil {
			return failed, false
		}
		return scalar(p.Scalar)
	case *expr.Member:
		return t.visitMember(e)
	case *expr.Call:
		return t.visitCall(e)
	case *expr.Binary:
		return t.visitBinary(e)
	case *expr.Unary:
		return t.visitUnary(e)
	case *expr.Conditional:
		test, ok1 := t.visitScalar(e.Test)
		ifTrue, ok2 := t.visitScalar(e.IfTrue)
		ifFalse, ok3 := t.visitScalar(e.IfFalse)
		if !ok1 || !ok2 || !ok3 {
			return failed, false
		}
		return scalar(t.factory.Case([]nodes.CaseWhen{{Test: test, Result: ifTrue}}, ifFalse))
	case *expr.Lambda, *expr.New, *expr.AggregateGuard:
		return failed, false
	default:
		panic(errors.AssertionFailedf("unhandled expression %T", e))
	}
}

// visitScalar visits e and requires a scalar result.
func (t *SQLTranslator) visitScalar(e expr.Expr) (nodes.Node, bool) {
	r, ok := t.visit(e)
	if !ok || r.node == nil {
		return nil, false
	}
	return r.node, true
}

func (t *SQLTranslator) visitMember(e *expr.Member) (translation, bool) {
	if r := reduceMember(e); r != expr.Expr(e) {
		return t.visit(r)
	}
	if e.Name == "Value" && e.Operand.Type().IsNullable() && e.T == e.Operand.Type().Unwrap() {
		return t.visit(e.Operand)
	}
	inner, ok := t.visit(e.Operand)
	if !ok {
		return failed, false
	}
	if inner.shaper != nil {
		return t.bindProperty(inner.shaper, e.Name)
	}
	n, ok := t.members.Translate(t.factory, inner.node, e.Name, e.T)
	if !ok {
		return failed, false
	}
	return scalar(n)
}

func (t *SQLTranslator) bindProperty(s *expr.EntityShaper, name string) (translation, bool) {
	prop, ok := s.Entity.FindProperty(name)
	if !ok {
		return failed, false
	}
	col, ok := t.arena.Manager(s.Select).BindProperty(s.Member, prop)
	if !ok {
		return failed, false
	}
	return scalar(col)
}

func (t *SQLTranslator) visitCall(e *expr.Call) (translation, bool) {
	if e.Method == expr.PropertyMethod {
		if len(e.Args) != 2 {
			panic(invalidOperationf("%s takes an entity and a property name", expr.PropertyMethod))
		}
		r, ok := t.visit(e.Args[0])
		if !ok || r.shaper == nil {
			panic(invalidOperationf("%s: %s is not an entity", expr.PropertyMethod, expr.Print(e.Args[0])))
		}
		name, ok := e.Args[1].(*expr.Constant)
		if !ok {
			panic(invalidOperationf("%s: property name must be a constant", expr.PropertyMethod))
		}
		s, ok := name.Value.(string)
		if !ok {
			panic(invalidOperationf("%s: property name must be a string", expr.PropertyMethod))
		}
		return t.bindProperty(r.shaper, s)
	}

	ok := true
	var instance nodes.Node
	if e.Object != nil {
		instance, ok = t.visitScalar(e.Object)
	}
	args := make([]nodes.Node, len(e.Args))
	for i, a := range e.Args {
		n, argOK := t.visitScalar(a)
		args[i] = n
		ok = ok && argOK
	}
	if !ok {
		return failed, false
	}
	n, ok := t.methods.Translate(t.factory, instance, e.Method, args, e.T)
	if !ok {
		return failed, false
	}
	return scalar(n)
}

var binaryOps = map[expr.BinaryOp]nodes.BinaryOp{
	expr.Equal:              nodes.OpEqual,
	expr.NotEqual:           nodes.OpNotEqual,
	expr.LessThan:           nodes.OpLessThan,
	expr.LessThanOrEqual:    nodes.OpLessThanOrEqual,
	expr.GreaterThan:        nodes.OpGreaterThan,
	expr.GreaterThanOrEqual: nodes.OpGreaterThanOrEqual,
	expr.AndAlso:            nodes.OpAnd,
	expr.OrElse:             nodes.OpOr,
	expr.Add:                nodes.OpAdd,
	expr.Subtract:           nodes.OpSubtract,
	expr.Multiply:           nodes.OpMultiply,
	expr.Divide:             nodes.OpDivide,
	expr.Modulo:             nodes.OpModulo,
}

func (t *SQLTranslator) visitBinary(e *expr.Binary) (translation, bool) {
	if r, ok, matched := t.translateCompare(e); matched {
		return r, ok
	}
	left, ok1 := t.visitScalar(e.Left)
	right, ok2 := t.visitScalar(e.Right)
	if !ok1 || !ok2 {
		return failed, false
	}
	op, ok := binaryOps[e.Op]
	if !ok {
		return failed, false
	}
	if op == nodes.OpEqual || op == nodes.OpNotEqual {
		if n, ok := t.nullComparison(op, left, right); ok {
			return scalar(n)
		}
	}
	return scalar(t.factory.MakeBinary(op, left, right, nil))
}

// nullComparison turns x = NULL into x IS NULL and x <> NULL into x IS NOT
// NULL.
func (t *SQLTranslator) nullComparison(op nodes.BinaryOp, left, right nodes.Node) (nodes.Node, bool) {
	operand := left
	switch {
	case isNullConstant(right):
	case isNullConstant(left):
		operand = right
	default:
		return nil, false
	}
	if isNullConstant(operand) {
		return t.factory.Constant(op == nodes.OpEqual, types.Bool), true
	}
	if op == nodes.OpEqual {
		return t.factory.IsNull(operand), true
	}
	return t.factory.IsNotNull(operand), true
}

func isNullConstant(n nodes.Node) bool {
	c, ok := n.(*nodes.Constant)
	return ok && c.Value == nil
}

// compareRule rewrites compare(a, b) op c to a op' b, or to a constant
// when the comparison always or never holds.
type compareRule struct {
	op       expr.BinaryOp
	constant *bool
}

func boolPtr(b bool) *bool { return &b }

var compareTable = map[int32]map[expr.BinaryOp]compareRule{
	1: {
		expr.Equal:              {op: expr.GreaterThan},
		expr.GreaterThanOrEqual: {op: expr.GreaterThan},
		expr.NotEqual:           {op: expr.LessThanOrEqual},
		expr.LessThan:           {op: expr.LessThanOrEqual},
		expr.GreaterThan:        {constant: boolPtr(false)},
		expr.LessThanOrEqual:    {constant: boolPtr(true)},
	},
	-1: {
		expr.Equal:              {op: expr.LessThan},
		expr.LessThanOrEqual:    {op: expr.LessThan},
		expr.NotEqual:           {op: expr.GreaterThanOrEqual},
		expr.GreaterThan:        {op: expr.GreaterThanOrEqual},
		expr.LessThan:           {constant: boolPtr(false)},
		expr.GreaterThanOrEqual: {constant: boolPtr(true)},
	},
}

var mirrored = map[expr.BinaryOp]expr.BinaryOp{
	expr.Equal:              expr.Equal,
	expr.NotEqual:           expr.NotEqual,
	expr.LessThan:           expr.GreaterThan,
	expr.LessThanOrEqual:    expr.GreaterThanOrEqual,
	expr.GreaterThan:        expr.LessThan,
	expr.GreaterThanOrEqual: expr.LessThanOrEqual,
}

// translateCompare normalizes a three-way compare against an int32
// constant into a direct comparison of the compared operands. matched is
// false when e is not such a comparison.
func (t *SQLTranslator) translateCompare(e *expr.Binary) (r translation, ok, matched bool) {
	if !e.Op.IsComparison() {
		return failed, false, false
	}
	op := e.Op
	var c *expr.Constant
	var a, b expr.Expr
	if k, isConst := e.Right.(*expr.Constant); isConst && k.T == types.Int32 {
		a, b = matchCompare(e.Left)
		c = k
	} else if k, isConst := e.Left.(*expr.Constant); isConst && k.T == types.Int32 {
		// c op compare(a, b) is compare(a, b) mirror(op) c.
		a, b = matchCompare(e.Right)
		c, op = k, mirrored[op]
	}
	if a == nil {
		return failed, false, false
	}

	left, ok1 := t.visitScalar(a)
	right, ok2 := t.visitScalar(b)
	if !ok1 || !ok2 {
		return failed, false, true
	}
	v, isInt := c.Value.(int32)
	if !isInt {
		return failed, false, true
	}
	if v != 0 {
		rules, known := compareTable[v]
		if !known {
			return failed, false, true
		}
		rule := rules[op]
		if rule.constant != nil {
			r, ok = scalar(t.factory.Constant(*rule.constant, types.Bool))
			return r, ok, true
		}
		op = rule.op
	}
	r, ok = scalar(t.factory.MakeBinary(binaryOps[op], left, right, nil))
	return r, ok, true
}

// matchCompare recognizes compare(a, b) and a.CompareTo(b) over operands
// of one type, returning a and b.
func matchCompare(e expr.Expr) (a, b expr.Expr) {
	call, ok := e.(*expr.Call)
	if !ok || call.T != types.Int32 {
		return nil, nil
	}
	switch {
	case call.Method.Name == "Compare" && call.Object == nil && len(call.Args) == 2 &&
		call.Args[0].Type() == call.Args[1].Type():
		return call.Args[0], call.Args[1]
	case call.Method.Name == "CompareTo" && call.Object != nil && len(call.Args) == 1 &&
		call.Object.Type() == call.Args[0].Type():
		return call.Object, call.Args[0]
	}
	return nil, nil
}

func (t *SQLTranslator) visitUnary(e *expr.Unary) (translation, bool) {
	r, ok := t.visit(e.Operand)
	if !ok {
		return failed, false
	}
	if r.shaper != nil {
		target := e.T.Unwrap()
		if e.Op == expr.Convert &&
			(target == types.Object || target == r.shaper.Entity.Type || r.shaper.Entity.Type.Implements(target)) {
			return r, true
		}
		return failed, false
	}
	operand := r.node
	switch e.Op {
	case expr.Convert:
		if convertIsNoop(operand.Type(), e.T) {
			return r, true
		}
		return scalar(t.factory.Convert(operand, e.T, nil))
	case expr.Not:
		return scalar(t.factory.Not(operand))
	case expr.Negate:
		return scalar(t.factory.Negate(operand))
	}
	return failed, false
}

// convertIsNoop reports whether converting from to to changes nothing in
// the store: nullability changes, enums read as their storage kind, and
// values viewed through an interface they implement.
func convertIsNoop(from, to types.Type) bool {
	target := to.Unwrap()
	switch {
	case target == from.Unwrap():
		return true
	case target.Kind() == types.KindEnum && target.Underlying() == from.Unwrap().Underlying():
		return true
	case from.Kind() == types.KindInterface && target.Implements(from):
		return true
	}
	return false
}

// memberOfNew returns the argument n binds to member.
func memberOfNew(n *expr.New, member string) (expr.Expr, bool) {
	for i, m := range n.Members {
		if m == member {
			return n.Args[i], true
		}
	}
	return nil, false
}
