// Package nodes defines the scalar expression tree and the select tree built
// by query translation.
//
// Scalar nodes are immutable once constructed. Rewrites (type-mapping
// application, remapping after pushdown) always build new nodes. Node is a
// sealed interface: only types in this package implement it, so a type
// switch over the variants below is exhaustive.
package nodes

import (
	"fmt"

	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// Node is a scalar expression: a value computed per row.
type Node interface {
	// Type is the value type the node produces.
	Type() types.Type
	// Mapping is the store type mapping, or nil while unresolved.
	Mapping() *storage.TypeMapping
	fmt.Stringer
	scalarNode() // seals the interface
}

// typed carries the result type and mapping shared by every node.
type typed struct {
	typ     types.Type
	mapping *storage.TypeMapping
}

func (t typed) Type() types.Type              { return t.typ }
func (t typed) Mapping() *storage.TypeMapping { return t.mapping }
func (typed) scalarNode()                     {}

// BinaryOp is the operator of a Binary node.
type BinaryOp int

const (
	OpEqual BinaryOp = iota
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpAnd
	OpOr
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
)

var binaryOpSymbols = [...]string{
	OpEqual:              "=",
	OpNotEqual:           "<>",
	OpLessThan:           "<",
	OpLessThanOrEqual:    "<=",
	OpGreaterThan:        ">",
	OpGreaterThanOrEqual: ">=",
	OpAnd:                "AND",
	OpOr:                 "OR",
	OpAdd:                "+",
	OpSubtract:           "-",
	OpMultiply:           "*",
	OpDivide:             "/",
	OpModulo:             "%",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpSymbols) {
		return binaryOpSymbols[op]
	}
	return "?"
}

// IsComparison reports whether op compares its operands.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEqual && op <= OpGreaterThanOrEqual
}

// IsLogical reports whether op is AND or OR.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// UnaryOp is the operator of a Unary node.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNegate
	OpCast
	OpIsNull
	OpIsNotNull
)

var unaryOpNames = [...]string{
	OpNot:       "NOT",
	OpNegate:    "-",
	OpCast:      "CAST",
	OpIsNull:    "IS NULL",
	OpIsNotNull: "IS NOT NULL",
}

func (op UnaryOp) String() string {
	if int(op) < len(unaryOpNames) {
		return unaryOpNames[op]
	}
	return "?"
}
