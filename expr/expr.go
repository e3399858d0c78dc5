// Package expr is the input expression tree handed to the translator: the
// lambdas of a query chain and the values they close over. It also holds the
// shaper nodes that make up a compiled query's shape plan.
//
// Expr is sealed; a type switch over the variants is exhaustive.
package expr

import (
	"github.com/bawdo/relq/types"
)

// Expr is a typed expression node.
type Expr interface {
	Type() types.Type
	String() string
	exprNode()
}

// Parameter is a lambda parameter or a captured variable.
type Parameter struct {
	Name string
	T    types.Type
}

// Constant is a literal value.
type Constant struct {
	Value any
	T     types.Type
}

// Lambda is a single-body function. Query operators take lambdas with one
// parameter.
type Lambda struct {
	Params []*Parameter
	Body   Expr
}

// Member reads a member of Operand: an entity property, a string's Length
// or the Value of a nullable.
type Member struct {
	Operand Expr
	Name    string
	T       types.Type
}

// Method identifies a callable by its declaring type and name.
type Method struct {
	Owner string
	Name  string
}

func (m Method) String() string { return m.Owner + "." + m.Name }

// Methods with translator or translator-level meaning.
var (
	// PropertyMethod reads an entity property by name: Property(e, "Name").
	PropertyMethod = Method{Owner: "relq", Name: "Property"}
)

// Call invokes Method on Object (nil for static methods) with Args.
type Call struct {
	Object Expr
	Method Method
	Args   []Expr
	T      types.Type
}

// BinaryOp is the operator of a Binary expression.
type BinaryOp int

const (
	Equal BinaryOp = iota
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	AndAlso
	OrElse
	Add
	Subtract
	Multiply
	Divide
	Modulo
)

var binaryOpSymbols = [...]string{
	Equal:              "==",
	NotEqual:           "!=",
	LessThan:           "<",
	LessThanOrEqual:    "<=",
	GreaterThan:        ">",
	GreaterThanOrEqual: ">=",
	AndAlso:            "&&",
	OrElse:             "||",
	Add:                "+",
	Subtract:           "-",
	Multiply:           "*",
	Divide:             "/",
	Modulo:             "%",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpSymbols) {
		return binaryOpSymbols[op]
	}
	return "?"
}

// IsComparison reports whether op compares its operands.
func (op BinaryOp) IsComparison() bool {
	return op >= Equal && op <= GreaterThanOrEqual
}

// Binary applies a binary operator.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	T     types.Type
}

// UnaryOp is the operator of a Unary expression.
type UnaryOp int

const (
	Not UnaryOp = iota
	Negate
	Convert
)

// Unary applies a unary operator. For Convert, T is the target type.
type Unary struct {
	Op      UnaryOp
	Operand Expr
	T       types.Type
}

// Conditional is test ? IfTrue : IfFalse.
type Conditional struct {
	Test    Expr
	IfTrue  Expr
	IfFalse Expr
	T       types.Type
}

// New constructs a value with named members, the result of a projection
// such as new { c.Name, Total = c.Orders }.
type New struct {
	T       types.Type
	Members []string
	Args    []Expr
}

func (e *Parameter) Type() types.Type   { return e.T }
func (e *Constant) Type() types.Type    { return e.T }
func (e *Lambda) Type() types.Type      { return e.Body.Type() }
func (e *Member) Type() types.Type      { return e.T }
func (e *Call) Type() types.Type        { return e.T }
func (e *Binary) Type() types.Type      { return e.T }
func (e *Unary) Type() types.Type       { return e.T }
func (e *Conditional) Type() types.Type { return e.T }
func (e *New) Type() types.Type         { return e.T }

func (*Parameter) exprNode()   {}
func (*Constant) exprNode()    {}
func (*Lambda) exprNode()      {}
func (*Member) exprNode()      {}
func (*Call) exprNode()        {}
func (*Binary) exprNode()      {}
func (*Unary) exprNode()       {}
func (*Conditional) exprNode() {}
func (*New) exprNode()         {}

// Param creates a parameter.
func Param(name string, t types.Type) *Parameter {
	return &Parameter{Name: name, T: t}
}

// Const creates a constant typed from its Go value.
func Const(v any) *Constant {
	return &Constant{Value: v, T: types.Of(v)}
}

// TypedConst creates a constant of an explicit type, for nulls and enums.
func TypedConst(v any, t types.Type) *Constant {
	return &Constant{Value: v, T: t}
}

// Lambda1 creates a lambda of one parameter.
func Lambda1(p *Parameter, body Expr) *Lambda {
	return &Lambda{Params: []*Parameter{p}, Body: body}
}

// Prop reads a member of operand.
func Prop(operand Expr, name string, t types.Type) *Member {
	return &Member{Operand: operand, Name: name, T: t}
}

// Property reads an entity property by name through PropertyMethod.
func Property(entity Expr, name string, t types.Type) *Call {
	return &Call{Method: PropertyMethod, Args: []Expr{entity, Const(name)}, T: t}
}

// Bin creates a binary expression. Comparisons and logical operators are
// bool; arithmetic takes the left operand's type.
func Bin(op BinaryOp, left, right Expr) *Binary {
	t := types.Bool
	if op >= Add {
		t = left.Type()
	}
	return &Binary{Op: op, Left: left, Right: right, T: t}
}

// NotOf negates a boolean expression.
func NotOf(operand Expr) *Unary {
	return &Unary{Op: Not, Operand: operand, T: types.Bool}
}

// ConvertTo converts operand to t.
func ConvertTo(operand Expr, t types.Type) *Unary {
	return &Unary{Op: Convert, Operand: operand, T: t}
}

// Cond creates a conditional; its type is the IfTrue branch's type.
func Cond(test, ifTrue, ifFalse Expr) *Conditional {
	return &Conditional{Test: test, IfTrue: ifTrue, IfFalse: ifFalse, T: ifTrue.Type()}
}
