package typemap

import (
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// Factory builds scalar nodes with mappings consistent with their operands.
// A Factory is immutable and shared by every compile.
type Factory struct {
	source  storage.TypeMappingSource
	applier *Applier
}

// NewFactory creates a Factory over source.
func NewFactory(source storage.TypeMappingSource) *Factory {
	return &Factory{source: source, applier: NewApplier(source)}
}

// Source returns the mapping source.
func (f *Factory) Source() storage.TypeMappingSource { return f.source }

// BoolMapping returns the backend's bool mapping.
func (f *Factory) BoolMapping() *storage.TypeMapping { return f.applier.boolMapping }

// FindMapping returns the default mapping for t.
func (f *Factory) FindMapping(t types.Type) *storage.TypeMapping { return f.source.FindMapping(t) }

// ApplyTypeMapping applies mapping to an unmapped node.
func (f *Factory) ApplyTypeMapping(n nodes.Node, mapping *storage.TypeMapping) nodes.Node {
	return f.applier.Apply(n, mapping)
}

// ApplyDefaultTypeMapping maps n by its own type when it has no mapping.
func (f *Factory) ApplyDefaultTypeMapping(n nodes.Node) nodes.Node {
	return f.applier.ApplyDefault(n)
}

// MakeBinary combines two operands. A nil mapping is inferred from the
// operands: a = @p gives @p the mapping of a.
func (f *Factory) MakeBinary(op nodes.BinaryOp, left, right nodes.Node, mapping *storage.TypeMapping) nodes.Node {
	t := left.Type()
	if op.IsComparison() || op.IsLogical() {
		t = types.Bool
	}
	return f.applier.Apply(nodes.NewBinary(op, left, right, t, nil), mapping)
}

// And conjoins two predicates.
func (f *Factory) And(left, right nodes.Node) nodes.Node {
	return f.MakeBinary(nodes.OpAnd, left, right, nil)
}

// Not negates a predicate.
func (f *Factory) Not(operand nodes.Node) nodes.Node {
	return f.applier.Apply(nodes.NewUnary(nodes.OpNot, operand, types.Bool, nil), nil)
}

// Negate builds arithmetic negation.
func (f *Factory) Negate(operand nodes.Node) nodes.Node {
	return f.applier.Apply(nodes.NewUnary(nodes.OpNegate, operand, operand.Type(), nil), operand.Mapping())
}

// IsNull tests operand for null.
func (f *Factory) IsNull(operand nodes.Node) nodes.Node {
	return f.applier.Apply(nodes.NewUnary(nodes.OpIsNull, operand, types.Bool, nil), nil)
}

// IsNotNull tests operand for non-null.
func (f *Factory) IsNotNull(operand nodes.Node) nodes.Node {
	return f.applier.Apply(nodes.NewUnary(nodes.OpIsNotNull, operand, types.Bool, nil), nil)
}

// Convert casts operand to t. A nil mapping leaves the cast to be mapped
// by ApplyDefaultTypeMapping.
func (f *Factory) Convert(operand nodes.Node, t types.Type, mapping *storage.TypeMapping) nodes.Node {
	return nodes.NewUnary(nodes.OpCast, f.ApplyDefaultTypeMapping(operand), t, mapping)
}

// Function calls a backend function. Arguments receive their default
// mappings.
func (f *Factory) Function(name string, args []nodes.Node, t types.Type, mapping *storage.TypeMapping) *nodes.Function {
	mapped := make([]nodes.Node, len(args))
	for i, a := range args {
		mapped[i] = f.ApplyDefaultTypeMapping(a)
	}
	return nodes.NewFunction(name, mapped, t, mapping)
}

// Case builds a single- or multi-branch CASE whose result mapping is
// inferred from its results.
func (f *Factory) Case(whens []nodes.CaseWhen, elseResult nodes.Node) nodes.Node {
	t := elseResult.Type()
	if len(whens) > 0 {
		t = whens[0].Result.Type()
	}
	return f.applier.Apply(nodes.NewCase(whens, elseResult, t, nil), nil)
}

// Exists tests a subquery for rows.
func (f *Factory) Exists(sub *nodes.SelectExpr, negated bool) *nodes.Exists {
	return nodes.NewExists(sub, negated, f.BoolMapping())
}

// In tests item for membership in a single-column subquery.
func (f *Factory) In(item nodes.Node, sub *nodes.SelectExpr, negated bool) nodes.Node {
	return f.applier.Apply(nodes.NewInSubquery(item, sub, negated, nil), nil)
}

// InValues tests item for membership in a list.
func (f *Factory) InValues(item nodes.Node, values []nodes.Node, negated bool) nodes.Node {
	return f.applier.Apply(nodes.NewInValues(item, values, negated, nil), nil)
}

// Like builds an unmapped pattern match. The propagation pass gives its
// operands a shared mapping.
func (f *Factory) Like(match, pattern, escape nodes.Node) *nodes.Like {
	return nodes.NewLike(match, pattern, escape, nil)
}

// Constant builds an unmapped constant of t.
func (f *Factory) Constant(value any, t types.Type) *nodes.Constant {
	return nodes.NewConstant(value, t, nil)
}

// MappedConstant builds a constant carrying its default mapping.
func (f *Factory) MappedConstant(value any, t types.Type) *nodes.Constant {
	return nodes.NewConstant(value, t, f.source.FindMapping(t))
}

// Fragment builds raw backend text.
func (f *Factory) Fragment(raw string) *nodes.Fragment {
	return nodes.NewFragment(raw)
}
