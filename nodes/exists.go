package nodes

import (
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// Exists tests whether Subquery returns any row.
type Exists struct {
	typed
	Subquery *SelectExpr
	Negated  bool
}

// NewExists creates an Exists node; boolMapping is the backend's bool mapping.
func NewExists(subquery *SelectExpr, negated bool, boolMapping *storage.TypeMapping) *Exists {
	return &Exists{typed: typed{typ: types.Bool, mapping: boolMapping}, Subquery: subquery, Negated: negated}
}
