package relq

import (
	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/plugins"
	"github.com/bawdo/relq/shaper"
	"github.com/bawdo/relq/translate"
	"github.com/bawdo/relq/types"
	"github.com/bawdo/relq/visitors"
)

// Query is an operator chain over one entity. Every method returns a new
// Query, so a prefix can be shared by several chains.
type Query struct {
	compiler *Compiler
	entity   string
	ops      []translate.Operation
}

func (q *Query) with(op translate.Operation) *Query {
	ops := make([]translate.Operation, len(q.ops), len(q.ops)+1)
	copy(ops, q.ops)
	return &Query{compiler: q.compiler, entity: q.entity, ops: append(ops, op)}
}

// Operations returns the chain so far.
func (q *Query) Operations() []translate.Operation {
	out := make([]translate.Operation, len(q.ops))
	copy(out, q.ops)
	return out
}

// Apply appends an arbitrary operation.
func (q *Query) Apply(op translate.Operation) *Query { return q.with(op) }

func (q *Query) Where(pred *expr.Lambda) *Query {
	return q.with(translate.Operation{Operator: translate.Where, Lambda: pred})
}

func (q *Query) Select(selector *expr.Lambda) *Query {
	return q.with(translate.Operation{Operator: translate.Select, Lambda: selector})
}

func (q *Query) OrderBy(key *expr.Lambda) *Query {
	return q.with(translate.Operation{Operator: translate.OrderBy, Lambda: key})
}

func (q *Query) OrderByDescending(key *expr.Lambda) *Query {
	return q.with(translate.Operation{Operator: translate.OrderByDescending, Lambda: key})
}

func (q *Query) ThenBy(key *expr.Lambda) *Query {
	return q.with(translate.Operation{Operator: translate.ThenBy, Lambda: key})
}

func (q *Query) ThenByDescending(key *expr.Lambda) *Query {
	return q.with(translate.Operation{Operator: translate.ThenByDescending, Lambda: key})
}

// Take limits the result to count rows; count is usually a constant or a
// parameter.
func (q *Query) Take(count expr.Expr) *Query {
	return q.with(translate.Operation{Operator: translate.Take, Arg: count})
}

func (q *Query) Skip(count expr.Expr) *Query {
	return q.with(translate.Operation{Operator: translate.Skip, Arg: count})
}

func (q *Query) Distinct() *Query {
	return q.with(translate.Operation{Operator: translate.Distinct})
}

// Compile compiles the chain as a sequence query.
func (q *Query) Compile() (*CompiledQuery, error) {
	return q.compiler.Compile(q.entity, q.ops...)
}

func (q *Query) terminal(op translate.Operator, l *expr.Lambda) (*CompiledQuery, error) {
	return q.with(translate.Operation{Operator: op, Lambda: l}).Compile()
}

// Count compiles the chain ending in Count. pred may be nil.
func (q *Query) Count(pred *expr.Lambda) (*CompiledQuery, error) {
	return q.terminal(translate.Count, pred)
}

func (q *Query) LongCount(pred *expr.Lambda) (*CompiledQuery, error) {
	return q.terminal(translate.LongCount, pred)
}

func (q *Query) Any(pred *expr.Lambda) (*CompiledQuery, error) {
	return q.terminal(translate.Any, pred)
}

func (q *Query) All(pred *expr.Lambda) (*CompiledQuery, error) {
	return q.terminal(translate.All, pred)
}

// Contains compiles a membership test of item in a single-column chain.
func (q *Query) Contains(item expr.Expr) (*CompiledQuery, error) {
	return q.with(translate.Operation{Operator: translate.Contains, Arg: item}).Compile()
}

func (q *Query) First(pred *expr.Lambda) (*CompiledQuery, error) {
	return q.terminal(translate.First, pred)
}

func (q *Query) FirstOrDefault(pred *expr.Lambda) (*CompiledQuery, error) {
	return q.terminal(translate.FirstOrDefault, pred)
}

func (q *Query) Single(pred *expr.Lambda) (*CompiledQuery, error) {
	return q.terminal(translate.Single, pred)
}

func (q *Query) SingleOrDefault(pred *expr.Lambda) (*CompiledQuery, error) {
	return q.terminal(translate.SingleOrDefault, pred)
}

func (q *Query) Last(pred *expr.Lambda) (*CompiledQuery, error) {
	return q.terminal(translate.Last, pred)
}

func (q *Query) LastOrDefault(pred *expr.Lambda) (*CompiledQuery, error) {
	return q.terminal(translate.LastOrDefault, pred)
}

func (q *Query) Min(selector *expr.Lambda) (*CompiledQuery, error) {
	return q.terminal(translate.Min, selector)
}

func (q *Query) Max(selector *expr.Lambda) (*CompiledQuery, error) {
	return q.terminal(translate.Max, selector)
}

// Sum compiles a sum. resultType may be the zero Type to sum in the
// selector's type; a nullable result type yields null instead of zero.
func (q *Query) Sum(selector *expr.Lambda, resultType types.Type) (*CompiledQuery, error) {
	return q.with(translate.Operation{Operator: translate.Sum, Lambda: selector, Type: resultType}).Compile()
}

func (q *Query) Average(selector *expr.Lambda, resultType types.Type) (*CompiledQuery, error) {
	return q.with(translate.Operation{Operator: translate.Average, Lambda: selector, Type: resultType}).Compile()
}

// CompiledQuery is the result of compiling a chain: the active select, the
// shape plan reading its rows and how many values the query yields.
type CompiledQuery struct {
	Select      *nodes.SelectExpr
	Shaper      expr.Expr
	Cardinality translate.Cardinality
	Root        *model.EntityType
}

// String renders the select on one line.
func (q *CompiledQuery) String() string { return q.Select.String() }

// Format renders the select in multi-line style.
func (q *CompiledQuery) Format(opts ...visitors.Option) string {
	return visitors.Format(q.Select, opts...)
}

// Dot renders the select and shape plan as a Graphviz graph.
func (q *CompiledQuery) Dot(p *visitors.PluginProvenance) string {
	dv := visitors.NewDotVisitor()
	dv.SetProvenance(p)
	dv.VisitQuery(q.Select, q.Shaper)
	return dv.ToDot()
}

// Tables returns every table source the query reads, subqueries included.
func (q *CompiledQuery) Tables() []*nodes.TableRef {
	return plugins.CollectTables(q.Select)
}

// Layout returns the positional layout of the select's result rows.
func (q *CompiledQuery) Layout() *shaper.Layout {
	return shaper.NewLayout(q.Select)
}

// Materialize shapes rows into the query's result: a []any for sequences,
// a single value otherwise.
func (q *CompiledQuery) Materialize(rows []shaper.Row) (any, error) {
	return shaper.Collect(q.Shaper, q.Cardinality, rows)
}
