package nodes

import (
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// CaseWhen is one WHEN test THEN result branch.
type CaseWhen struct {
	Test   Node
	Result Node
}

// Case is a searched CASE expression:
//
//	CASE WHEN test THEN result ... [ELSE value] END
type Case struct {
	typed
	Whens []CaseWhen
	Else  Node // nil if omitted
}

// NewCase creates a Case node.
func NewCase(whens []CaseWhen, elseResult Node, t types.Type, mapping *storage.TypeMapping) *Case {
	return &Case{typed: typed{typ: t, mapping: mapping}, Whens: whens, Else: elseResult}
}
