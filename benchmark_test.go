package relq_test

import (
	"testing"

	"github.com/bawdo/relq"
	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/plugins/softdelete"
	"github.com/bawdo/relq/types"
	"github.com/bawdo/relq/visitors"
)

// BenchmarkSimpleSelect benchmarks a filtered, ordered and paged query.
func BenchmarkSimpleSelect(b *testing.B) {
	q := newCompiler(b).From("Customer").
		Where(adult).
		OrderBy(expr.Lambda1(c, name)).
		Take(expr.Const(int32(10)))

	b.ResetTimer()
	for b.Loop() {
		_, _ = q.Compile()
	}
}

// BenchmarkPushdownAggregate benchmarks a query that pushes down twice
// before aggregating.
func BenchmarkPushdownAggregate(b *testing.B) {
	q := newCompiler(b).From("Customer").
		Take(expr.Const(int32(50))).
		Where(adult).
		Distinct().
		Skip(expr.Param("offset", types.Int32))

	b.ResetTimer()
	for b.Loop() {
		_, _ = q.Sum(expr.Lambda1(c, age), types.Type{})
	}
}

// BenchmarkProjection benchmarks binding an anonymous projection.
func BenchmarkProjection(b *testing.B) {
	q := newCompiler(b).From("Customer").Select(expr.Lambda1(c, &expr.New{
		Members: []string{"Name", "Older"},
		Args:    []expr.Expr{name, expr.Bin(expr.Add, age, expr.Const(int32(1)))},
	}))

	b.ResetTimer()
	for b.Loop() {
		_, _ = q.Compile()
	}
}

// BenchmarkWithTransformer measures the overhead of a root transformer.
func BenchmarkWithTransformer(b *testing.B) {
	q := newCompiler(b, relq.WithTransformers(softdelete.New())).From("Customer").Where(adult)

	b.ResetTimer()
	for b.Loop() {
		_, _ = q.Compile()
	}
}

// BenchmarkRendering benchmarks the single-line, multi-line and DOT
// renderings of one compiled query.
func BenchmarkRendering(b *testing.B) {
	q, err := newCompiler(b).From("Customer").Where(adult).OrderBy(expr.Lambda1(c, name)).Compile()
	if err != nil {
		b.Fatal(err)
	}
	prov := visitors.NewPluginProvenance()

	b.ResetTimer()
	for b.Loop() {
		_ = q.String()
		_ = q.Format()
		_ = q.Dot(prov)
	}
}
