package nodes

import (
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// Function is a call to a backend function such as COUNT, UPPER or ABS.
type Function struct {
	typed
	Name string
	Args []Node
}

// NewFunction creates a Function returning t.
func NewFunction(name string, args []Node, t types.Type, mapping *storage.TypeMapping) *Function {
	return &Function{typed: typed{typ: t, mapping: mapping}, Name: name, Args: args}
}

// ApplyTypeMapping is the function's own mapping rule: the result takes
// mapping and the arguments keep theirs.
func (f *Function) ApplyTypeMapping(mapping *storage.TypeMapping) *Function {
	return NewFunction(f.Name, f.Args, f.typ, mapping)
}
