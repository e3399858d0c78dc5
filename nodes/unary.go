package nodes

import (
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// Unary applies NOT, negation, a null test or an explicit CAST to Operand.
// For OpCast the node's type is the cast target.
type Unary struct {
	typed
	Op      UnaryOp
	Operand Node
}

// NewUnary creates a Unary node.
func NewUnary(op UnaryOp, operand Node, t types.Type, mapping *storage.TypeMapping) *Unary {
	return &Unary{typed: typed{typ: t, mapping: mapping}, Op: op, Operand: operand}
}
