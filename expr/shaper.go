package expr

import (
	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/types"
)

// EntityShaper materializes an entity from the entity projection bound to
// Member of select Select.
type EntityShaper struct {
	Entity   *model.EntityType
	Select   nodes.SelectID
	Member   nodes.ProjectionMember
	Nullable bool
}

// ProjectionBinding reads the scalar projected at Member of select Select.
type ProjectionBinding struct {
	Select nodes.SelectID
	Member nodes.ProjectionMember
	T      types.Type
}

// AggregateGuard evaluates Inner and, when ThrowOnDefault is set, fails
// with "sequence contains no elements" if the value is null or the zero
// value of Inner's type. The result is converted to T.
type AggregateGuard struct {
	Inner          Expr
	ThrowOnDefault bool
	T              types.Type
}

func (e *EntityShaper) Type() types.Type {
	if e.Nullable {
		return e.Entity.Type.AsNullable()
	}
	return e.Entity.Type
}

func (e *ProjectionBinding) Type() types.Type { return e.T }
func (e *AggregateGuard) Type() types.Type    { return e.T }

func (*EntityShaper) exprNode()      {}
func (*ProjectionBinding) exprNode() {}
func (*AggregateGuard) exprNode()    {}

// WithMember returns the shaper bound to another slot of another select.
func (e *EntityShaper) WithMember(sel nodes.SelectID, member nodes.ProjectionMember) *EntityShaper {
	return &EntityShaper{Entity: e.Entity, Select: sel, Member: member, Nullable: e.Nullable}
}
