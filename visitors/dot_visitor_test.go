package visitors

import (
	"strings"
	"testing"

	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/translate"
	"github.com/bawdo/relq/types"
)

func dotOf(res *translate.Result, p *PluginProvenance) string {
	dv := NewDotVisitor()
	dv.SetProvenance(p)
	dv.VisitQuery(res.Core(), res.Shaper)
	return dv.ToDot()
}

func TestDotSelect(t *testing.T) {
	t.Parallel()
	res := compile(t, func(c *expr.Parameter) []translate.Operation {
		return []translate.Operation{
			where(c, expr.Bin(expr.GreaterThan, age(c), expr.Const(int32(18)))),
			{Operator: translate.OrderByDescending, Lambda: expr.Lambda1(c, age(c))},
		}
	})
	dot := dotOf(res, nil)

	for _, want := range []string{
		"digraph AST {",
		`label="Select#0"`,
		`label="Table\ncustomers AS c"`,
		`label="Entity\nCustomer\n<root>"`,
		`label="Column\nc.age\ninteger"`,
		`label="Constant\n18\ninteger"`,
		`label="Ordering\nDESC"`,
		`label="EntityShaper\nCustomer\n<root>"`,
		`[label="WHERE"]`,
		`[label="ORDER[0]"]`,
		`[label="READS"]`,
		`fillcolor="#FFB347"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("expected %s in DOT output, got:\n%s", want, dot)
		}
	}
}

func TestDotSubqueries(t *testing.T) {
	t.Parallel()
	res := compile(t, func(c *expr.Parameter) []translate.Operation {
		return []translate.Operation{
			{Operator: translate.Take, Arg: expr.Const(int32(2))},
			{Operator: translate.All, Lambda: expr.Lambda1(c, expr.Bin(expr.GreaterThan, age(c), expr.Const(int32(1))))},
		}
	})
	dot := dotOf(res, nil)
	for _, want := range []string{
		`label="NOT EXISTS"`,
		`label="Subquery\nt"`,
		`label="NOT"`,
		`label="Binding\n<root>\nbool"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("expected %s in DOT output, got:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "AggregateGuard") {
		t.Errorf("All is not guarded, got:\n%s", dot)
	}
}

func TestDotAggregateShaper(t *testing.T) {
	t.Parallel()
	res := compile(t, func(c *expr.Parameter) []translate.Operation {
		return []translate.Operation{{Operator: translate.Max, Lambda: expr.Lambda1(c, age(c))}}
	})
	dot := dotOf(res, nil)
	if !strings.Contains(dot, `label="AggregateGuard\nint32\nthrows on empty"`) {
		t.Errorf("expected guard node, got:\n%s", dot)
	}
	if !strings.Contains(dot, `label="Function\nMAX\ninteger"`) {
		t.Errorf("expected MAX node, got:\n%s", dot)
	}
}

func TestDotPluginCluster(t *testing.T) {
	t.Parallel()
	res := compile(t, func(c *expr.Parameter) []translate.Operation {
		return []translate.Operation{
			where(c, expr.Bin(expr.GreaterThan, age(c), expr.Const(int32(18)))),
			where(c, expr.Bin(expr.Equal, expr.Prop(c, "Name", types.String), expr.Const("x"))),
		}
	})
	p := NewPluginProvenance()
	pred := res.Core().Predicate
	// Track the right conjunct as if a plugin had added it.
	p.AddPredicate("tenant", "#FF6961", splitAnd(pred)[1])
	if p.Len() != 1 {
		t.Fatalf("expected 1 tracked predicate, got %d", p.Len())
	}
	dot := dotOf(res, p)
	if !strings.Contains(dot, "subgraph cluster_0_tenant {") {
		t.Errorf("expected plugin cluster, got:\n%s", dot)
	}
	clustered := false
	for _, line := range strings.Split(dot, "\n") {
		if strings.HasPrefix(line, "    n") && strings.Contains(line, `label="Constant\n'x'\ntext"`) {
			clustered = true
		}
	}
	if !clustered {
		t.Errorf("expected the tracked constant inside the cluster, got:\n%s", dot)
	}
}

func TestEscapeLabel(t *testing.T) {
	t.Parallel()
	if got := escapeLabel(`say "hi"\n`); got != `say \"hi\"\n` {
		t.Errorf("escapeLabel = %s", got)
	}
}
