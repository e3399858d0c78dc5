package nodes

import (
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// Binary applies a comparison, logical or arithmetic operator.
type Binary struct {
	typed
	Op    BinaryOp
	Left  Node
	Right Node
}

// NewBinary creates a Binary node. Comparisons and logical operators
// produce bool; arithmetic produces the operand type.
func NewBinary(op BinaryOp, left, right Node, t types.Type, mapping *storage.TypeMapping) *Binary {
	return &Binary{typed: typed{typ: t, mapping: mapping}, Op: op, Left: left, Right: right}
}
