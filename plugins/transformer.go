// Package plugins holds the extension points of the translator: transformers
// that adjust root selects, and member and method-call translators that lower
// calls the core translator does not understand.
package plugins

import (
	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/typemap"
)

// RootSelect is the select created for a query root, as seen by a
// Transformer. Predicates applied here behave exactly like a Where.
type RootSelect interface {
	Entity() *model.EntityType
	Table() *nodes.TableRef
	Factory() *typemap.Factory
	ApplyPredicate(pred nodes.Node)
}

// Transformer adjusts every root select before operators are applied to it.
// Transformers run in registration order.
type Transformer interface {
	TransformRoot(root RootSelect) error
}

// TransformerFunc adapts a function to Transformer.
type TransformerFunc func(root RootSelect) error

func (f TransformerFunc) TransformRoot(root RootSelect) error { return f(root) }
