// Package typemap fills in the store type mappings of freshly built scalar
// trees and constructs scalar nodes with consistent mappings.
//
// Mapping failures are internal invariant violations. They panic with an
// assertion failure error which the compiler recovers and returns.
package typemap

import (
	"github.com/cockroachdb/errors"

	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// InferTypeMapping returns the first mapping carried by any of ns, or nil.
func InferTypeMapping(ns ...nodes.Node) *storage.TypeMapping {
	for _, n := range ns {
		if n != nil && n.Mapping() != nil {
			return n.Mapping()
		}
	}
	return nil
}

// Applier is the type-mapping propagation pass. Nodes that already carry a
// mapping are returned unchanged, so columns and resolved literals stop the
// walk immediately.
type Applier struct {
	source      storage.TypeMappingSource
	boolMapping *storage.TypeMapping
}

// NewApplier creates an Applier resolving defaults from source.
func NewApplier(source storage.TypeMappingSource) *Applier {
	a := &Applier{source: source}
	a.boolMapping = a.findMapping(types.Bool)
	return a
}

// Apply returns n with mapping applied to it and, where the node kind
// requires it, to its operands.
func (a *Applier) Apply(n nodes.Node, mapping *storage.TypeMapping) nodes.Node {
	if n == nil || n.Mapping() != nil {
		return n
	}
	switch n := n.(type) {
	case *nodes.Like:
		return a.applyOnLike(n)
	case *nodes.Fragment:
		return n
	case *nodes.Function:
		return n.ApplyTypeMapping(mapping)
	case *nodes.Constant:
		if mapping == nil {
			return n
		}
		return n.WithMapping(mapping)
	case *nodes.Parameter:
		if mapping == nil {
			return n
		}
		return n.WithMapping(mapping)
	case *nodes.Binary:
		return a.applyOnBinary(n, mapping)
	case *nodes.Unary:
		return a.applyOnUnary(n, mapping)
	case *nodes.Case:
		return a.applyOnCase(n, mapping)
	case *nodes.In:
		return a.applyOnIn(n)
	default:
		// Columns and existence tests are mapped at construction.
		return n
	}
}

// ApplyDefault applies the default mapping of n's own type.
func (a *Applier) ApplyDefault(n nodes.Node) nodes.Node {
	if n == nil || n.Mapping() != nil {
		return n
	}
	return a.Apply(n, a.source.FindMapping(n.Type()))
}

func (a *Applier) applyOnLike(n *nodes.Like) nodes.Node {
	inferred := InferTypeMapping(n.Match, n.Pattern)
	if inferred == nil {
		inferred = a.source.FindMapping(n.Match.Type())
	}
	if inferred == nil {
		panic(errors.AssertionFailedf("cannot infer a shared type mapping for %s", n))
	}
	return nodes.NewLike(
		a.Apply(n.Match, inferred),
		a.Apply(n.Pattern, inferred),
		a.Apply(n.Escape, inferred),
		a.boolMapping,
	)
}

func (a *Applier) applyOnBinary(n *nodes.Binary, mapping *storage.TypeMapping) nodes.Node {
	var inferred, result *storage.TypeMapping
	resultType := n.Type()
	switch {
	case n.Op.IsComparison():
		inferred = InferTypeMapping(n.Left, n.Right)
		if inferred == nil {
			inferred = a.source.FindMapping(n.Left.Type())
		}
		resultType = types.Bool
		result = a.boolMapping
	case n.Op.IsLogical():
		inferred = a.boolMapping
		resultType = types.Bool
		result = a.boolMapping
	default:
		inferred = mapping
		if inferred == nil {
			inferred = InferTypeMapping(n.Left, n.Right)
		}
		resultType = n.Left.Type()
		result = inferred
	}
	return nodes.NewBinary(n.Op, a.Apply(n.Left, inferred), a.Apply(n.Right, inferred), resultType, result)
}

func (a *Applier) applyOnUnary(n *nodes.Unary, mapping *storage.TypeMapping) nodes.Node {
	switch n.Op {
	case nodes.OpNot:
		return nodes.NewUnary(n.Op, a.Apply(n.Operand, a.boolMapping), types.Bool, a.boolMapping)
	case nodes.OpIsNull, nodes.OpIsNotNull:
		return nodes.NewUnary(n.Op, a.ApplyDefault(n.Operand), types.Bool, a.boolMapping)
	case nodes.OpNegate:
		return nodes.NewUnary(n.Op, a.Apply(n.Operand, mapping), n.Type(), mapping)
	default:
		// The cast operand was mapped before the cast was built.
		return nodes.NewUnary(n.Op, n.Operand, n.Type(), mapping)
	}
}

func (a *Applier) applyOnCase(n *nodes.Case, mapping *storage.TypeMapping) nodes.Node {
	inferred := mapping
	if inferred == nil {
		results := make([]nodes.Node, 0, len(n.Whens)+1)
		for _, w := range n.Whens {
			results = append(results, w.Result)
		}
		results = append(results, n.Else)
		inferred = InferTypeMapping(results...)
	}
	whens := make([]nodes.CaseWhen, len(n.Whens))
	for i, w := range n.Whens {
		whens[i] = nodes.CaseWhen{Test: a.Apply(w.Test, a.boolMapping), Result: a.Apply(w.Result, inferred)}
	}
	return nodes.NewCase(whens, a.Apply(n.Else, inferred), n.Type(), inferred)
}

func (a *Applier) applyOnIn(n *nodes.In) nodes.Node {
	var inferred *storage.TypeMapping
	if n.Subquery != nil {
		if len(n.Subquery.Projection) == 1 && n.Subquery.Projection[0].Scalar != nil {
			inferred = n.Subquery.Projection[0].Scalar.Mapping()
		}
	} else {
		inferred = InferTypeMapping(append([]nodes.Node{n.Item}, n.Values...)...)
	}
	if inferred == nil {
		inferred = a.source.FindMapping(n.Item.Type())
	}
	item := a.Apply(n.Item, inferred)
	if n.Subquery != nil {
		return nodes.NewInSubquery(item, n.Subquery, n.Negated, a.boolMapping)
	}
	values := make([]nodes.Node, len(n.Values))
	for i, v := range n.Values {
		values[i] = a.Apply(v, inferred)
	}
	return nodes.NewInValues(item, values, n.Negated, a.boolMapping)
}

func (a *Applier) findMapping(t types.Type) *storage.TypeMapping {
	m := a.source.FindMapping(t)
	if m == nil {
		panic(errors.AssertionFailedf("type mapping source %s has no mapping for %s", a.source.Dialect(), t))
	}
	return m
}
