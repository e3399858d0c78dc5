package nodes

import (
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// In tests Item for membership in either Subquery or Values.
type In struct {
	typed
	Item     Node
	Subquery *SelectExpr
	Values   []Node
	Negated  bool
}

// NewInSubquery creates an In node over a single-column subquery.
func NewInSubquery(item Node, subquery *SelectExpr, negated bool, boolMapping *storage.TypeMapping) *In {
	return &In{typed: typed{typ: types.Bool, mapping: boolMapping}, Item: item, Subquery: subquery, Negated: negated}
}

// NewInValues creates an In node over a list of values.
func NewInValues(item Node, values []Node, negated bool, boolMapping *storage.TypeMapping) *In {
	return &In{typed: typed{typ: types.Bool, mapping: boolMapping}, Item: item, Values: values, Negated: negated}
}
