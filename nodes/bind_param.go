package nodes

import (
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// Parameter is a named placeholder bound at execution time.
type Parameter struct {
	typed
	Name string
}

// NewParameter creates a Parameter of type t.
func NewParameter(name string, t types.Type, mapping *storage.TypeMapping) *Parameter {
	return &Parameter{typed: typed{typ: t, mapping: mapping}, Name: name}
}

// WithMapping returns a copy of p carrying mapping.
func (p *Parameter) WithMapping(mapping *storage.TypeMapping) *Parameter {
	return NewParameter(p.Name, p.typ, mapping)
}
