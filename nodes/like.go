package nodes

import (
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// Like is a pattern match: Match LIKE Pattern [ESCAPE Escape].
type Like struct {
	typed
	Match   Node
	Pattern Node
	Escape  Node // nil when no escape character is given
}

// NewLike creates a Like node. Its result is always bool; mapping is the
// bool mapping once the operands share a mapping.
func NewLike(match, pattern, escape Node, mapping *storage.TypeMapping) *Like {
	return &Like{typed: typed{typ: types.Bool, mapping: mapping}, Match: match, Pattern: pattern, Escape: escape}
}
