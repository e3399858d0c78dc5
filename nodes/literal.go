package nodes

import (
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// Constant is a literal value. A nil Value is SQL NULL.
type Constant struct {
	typed
	Value any
}

// NewConstant creates a Constant of type t. The mapping may be nil.
func NewConstant(value any, t types.Type, mapping *storage.TypeMapping) *Constant {
	return &Constant{typed: typed{typ: t, mapping: mapping}, Value: value}
}

// WithMapping returns a copy of c carrying mapping.
func (c *Constant) WithMapping(mapping *storage.TypeMapping) *Constant {
	return NewConstant(c.Value, c.typ, mapping)
}

// Fragment is raw backend text. It carries no mapping.
type Fragment struct {
	typed
	Raw string
}

// NewFragment creates a Fragment, for example the "*" inside COUNT(*).
func NewFragment(raw string) *Fragment {
	return &Fragment{typed: typed{typ: types.Object}, Raw: raw}
}
