package translate

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/managers"
	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/plugins"
	"github.com/bawdo/relq/typemap"
	"github.com/bawdo/relq/types"
)

// ShapedQuery is the state threaded through operator translation: the
// active select and the plan that shapes its rows into results.
type ShapedQuery struct {
	Select      nodes.SelectID
	Shaper      expr.Expr
	Cardinality Cardinality
}

// Result is a translated query chain.
type Result struct {
	ShapedQuery
	Arena *managers.Arena
}

// Core returns the active select.
func (r *Result) Core() *nodes.SelectExpr { return r.Arena.Get(r.Select) }

// Config holds the collaborators shared by every translation.
type Config struct {
	Factory      *typemap.Factory
	Methods      *plugins.MethodCallProvider
	Members      *plugins.MemberProvider
	Transformers []plugins.Transformer
	Logger       *slog.Logger
}

// QueryableTranslator applies query operators to a select tree. It holds
// no per-query state and may be shared by concurrent translations.
type QueryableTranslator struct {
	cfg Config
}

// NewQueryableTranslator creates a translator. Nil providers default to
// the built-in translators and a nil logger to slog.Default.
func NewQueryableTranslator(cfg Config) *QueryableTranslator {
	if cfg.Methods == nil {
		cfg.Methods = plugins.NewMethodCallProvider()
	}
	if cfg.Members == nil {
		cfg.Members = plugins.NewMemberProvider()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &QueryableTranslator{cfg: cfg}
}

// Translate applies ops, in order, to a query over root. Errors are
// marked ErrInvalidOperation or ErrNotImplemented, or are assertion
// failures for internal invariant violations.
func (q *QueryableTranslator) Translate(root *model.EntityType, ops []Operation) (res *Result, err error) {
	defer Recover(&err)

	arena := managers.NewArena(q.cfg.Factory, q.cfg.Transformers...)
	sel, err := arena.NewEntitySelect(root)
	if err != nil {
		return nil, err
	}
	c := &compilation{
		arena:   arena,
		factory: q.cfg.Factory,
		sql:     NewSQLTranslator(arena, q.cfg.Methods, q.cfg.Members),
		logger:  q.cfg.Logger,
	}
	sq := ShapedQuery{
		Select: sel.ID(),
		Shaper: &expr.EntityShaper{Entity: root, Select: sel.ID(), Member: nodes.Member()},
	}
	var last Operator
	for _, op := range ops {
		if last.Terminal() {
			return nil, invalidOperationf("%s cannot follow %s", op.Operator, last)
		}
		sq, err = c.apply(sq, op)
		if err != nil {
			return nil, err
		}
		last = op.Operator
		c.logger.Debug("applied operator",
			"op", op.String(),
			"select", int(sq.Select),
			"selects", arena.Len())
	}
	return &Result{ShapedQuery: sq, Arena: arena}, nil
}

// compilation is the state of one Translate call.
type compilation struct {
	arena   *managers.Arena
	factory *typemap.Factory
	sql     *SQLTranslator
	logger  *slog.Logger
}

func (c *compilation) apply(sq ShapedQuery, op Operation) (ShapedQuery, error) {
	switch op.Operator {
	case Where:
		return c.where(sq, op)
	case Select:
		return c.selectOp(sq, op)
	case OrderBy, OrderByDescending:
		return c.orderBy(sq, op, op.Operator == OrderBy)
	case ThenBy, ThenByDescending:
		return c.thenBy(sq, op, op.Operator == ThenBy)
	case Take:
		return c.paging(sq, op, (*managers.SelectManager).ApplyLimit)
	case Skip:
		return c.paging(sq, op, (*managers.SelectManager).ApplyOffset)
	case Distinct:
		c.manager(sq).ApplyDistinct()
		return sq, nil
	case Count:
		return c.count(sq, op, types.Int32)
	case LongCount:
		return c.count(sq, op, types.Int64)
	case Any:
		return c.any(sq, op)
	case All:
		return c.all(sq, op)
	case Contains:
		return c.contains(sq, op)
	case First, Single:
		return c.first(sq, op, One)
	case FirstOrDefault, SingleOrDefault:
		return c.first(sq, op, OneOrDefault)
	case Last:
		return c.last(sq, op, One)
	case LastOrDefault:
		return c.last(sq, op, OneOrDefault)
	case Min:
		return c.minMax(sq, op, "MIN")
	case Max:
		return c.minMax(sq, op, "MAX")
	case Sum:
		return c.sum(sq, op)
	case Average:
		return c.average(sq, op)
	case Cast:
		if op.Type == sq.Shaper.Type() {
			return sq, nil
		}
		return sq, notImplemented(Cast)
	}
	return sq, notImplemented(op.Operator)
}

func (c *compilation) manager(sq ShapedQuery) *managers.SelectManager {
	return c.arena.Manager(sq.Select)
}

// translateLambda binds l's parameter to the current shape and lowers the
// body.
func (c *compilation) translateLambda(sq ShapedQuery, l *expr.Lambda) (nodes.Node, bool) {
	return c.sql.Translate(expr.Replace(l.Body, l.Params[0], sq.Shaper))
}

func requireLambda(op Operation) error {
	if op.Lambda == nil || len(op.Lambda.Params) != 1 {
		return invalidOperationf("%s requires a lambda of one parameter", op.Operator)
	}
	return nil
}

func optionalLambda(op Operation) error {
	if op.Lambda == nil {
		return nil
	}
	return requireLambda(op)
}

func (c *compilation) where(sq ShapedQuery, op Operation) (ShapedQuery, error) {
	if err := requireLambda(op); err != nil {
		return sq, err
	}
	m := c.manager(sq)
	if m.Core().IsPaged() {
		m.Pushdown()
	}
	pred, ok := c.translateLambda(sq, op.Lambda)
	if !ok {
		return sq, invalidOperation(op.Operator, op.Lambda)
	}
	m.ApplyPredicate(pred)
	return sq, nil
}

func (c *compilation) selectOp(sq ShapedQuery, op Operation) (ShapedQuery, error) {
	if err := requireLambda(op); err != nil {
		return sq, err
	}
	l := op.Lambda
	if l.Body == expr.Expr(l.Params[0]) {
		return sq, nil
	}
	body := expr.Replace(l.Body, l.Params[0], sq.Shaper)
	shaper, err := bindProjection(op.Operator, c.sql, c.manager(sq), body)
	if err != nil {
		return sq, err
	}
	sq.Shaper = shaper
	return sq, nil
}

func (c *compilation) orderBy(sq ShapedQuery, op Operation, ascending bool) (ShapedQuery, error) {
	if err := requireLambda(op); err != nil {
		return sq, err
	}
	m := c.manager(sq)
	if s := m.Core(); s.Distinct || s.IsPaged() {
		m.Pushdown()
	}
	key, ok := c.translateLambda(sq, op.Lambda)
	if !ok {
		return sq, invalidOperation(op.Operator, op.Lambda)
	}
	m.ApplyOrderBy(&nodes.Ordering{Expr: key, Ascending: ascending})
	return sq, nil
}

func (c *compilation) thenBy(sq ShapedQuery, op Operation, ascending bool) (ShapedQuery, error) {
	if err := requireLambda(op); err != nil {
		return sq, err
	}
	key, ok := c.translateLambda(sq, op.Lambda)
	if !ok {
		return sq, invalidOperation(op.Operator, op.Lambda)
	}
	c.manager(sq).ApplyThenBy(&nodes.Ordering{Expr: key, Ascending: ascending})
	return sq, nil
}

func (c *compilation) paging(sq ShapedQuery, op Operation, apply func(*managers.SelectManager, nodes.Node)) (ShapedQuery, error) {
	if op.Arg == nil {
		return sq, invalidOperationf("%s requires a count", op.Operator)
	}
	n, ok := c.sql.Translate(op.Arg)
	if !ok {
		return sq, notImplementedArg(op.Operator, op.Arg)
	}
	apply(c.manager(sq), n)
	return sq, nil
}

func (c *compilation) count(sq ShapedQuery, op Operation, t types.Type) (ShapedQuery, error) {
	if err := optionalLambda(op); err != nil {
		return sq, err
	}
	m := c.manager(sq)
	if s := m.Core(); s.Distinct || s.IsPaged() {
		m.Pushdown()
	}
	if op.Lambda != nil {
		var err error
		if sq, err = c.where(sq, op); err != nil {
			return sq, err
		}
	}
	count := c.factory.ApplyDefaultTypeMapping(
		c.factory.Function("COUNT", []nodes.Node{c.factory.Fragment("*")}, t, nil))
	m.ClearOrdering()
	m.ApplyProjection(&nodes.Projection{Member: nodes.Member(), Scalar: count})
	sq.Shaper = &expr.ProjectionBinding{Select: sq.Select, Member: nodes.Member(), T: t}
	sq.Cardinality = One
	return sq, nil
}

// wrap freezes the active select as the subquery of test and returns a
// query over a new source-less select projecting test.
func (c *compilation) wrap(sq ShapedQuery, test func(*nodes.SelectExpr) nodes.Node) ShapedQuery {
	m := c.manager(sq)
	m.Freeze()
	outer := c.arena.NewSelect(&nodes.Projection{Member: nodes.Member(), Scalar: test(m.Core())})
	return ShapedQuery{
		Select:      outer.ID(),
		Shaper:      &expr.ProjectionBinding{Select: outer.ID(), Member: nodes.Member(), T: types.Bool},
		Cardinality: One,
	}
}

// clearUnpagedOrdering drops ordering that no limit or offset depends on.
func clearUnpagedOrdering(m *managers.SelectManager) {
	if !m.Core().IsPaged() {
		m.ClearOrdering()
	}
}

func (c *compilation) any(sq ShapedQuery, op Operation) (ShapedQuery, error) {
	if err := optionalLambda(op); err != nil {
		return sq, err
	}
	if op.Lambda != nil {
		var err error
		if sq, err = c.where(sq, op); err != nil {
			return sq, err
		}
	}
	m := c.manager(sq)
	m.ApplyProjection()
	clearUnpagedOrdering(m)
	return c.wrap(sq, func(s *nodes.SelectExpr) nodes.Node {
		return c.factory.Exists(s, false)
	}), nil
}

func (c *compilation) all(sq ShapedQuery, op Operation) (ShapedQuery, error) {
	if err := requireLambda(op); err != nil {
		return sq, err
	}
	m := c.manager(sq)
	if m.Core().IsPaged() {
		m.Pushdown()
	}
	pred, ok := c.translateLambda(sq, op.Lambda)
	if !ok {
		return sq, invalidOperation(op.Operator, op.Lambda)
	}
	m.ApplyPredicate(c.factory.Not(pred))
	m.ApplyProjection()
	clearUnpagedOrdering(m)
	return c.wrap(sq, func(s *nodes.SelectExpr) nodes.Node {
		return c.factory.Exists(s, true)
	}), nil
}

func (c *compilation) contains(sq ShapedQuery, op Operation) (ShapedQuery, error) {
	if op.Arg == nil {
		return sq, invalidOperationf("%s requires an item", op.Operator)
	}
	item, ok := c.sql.Translate(op.Arg)
	if !ok {
		return sq, notImplementedArg(op.Operator, op.Arg)
	}
	m := c.manager(sq)
	p, ok := m.GetProjection(nodes.Member())
	if !ok || p.Scalar == nil || len(m.Core().Projection) != 1 {
		return sq, notImplementedArg(op.Operator, sq.Shaper)
	}
	clearUnpagedOrdering(m)
	return c.wrap(sq, func(s *nodes.SelectExpr) nodes.Node {
		return c.factory.In(item, s, false)
	}), nil
}

func (c *compilation) limitOne() nodes.Node {
	n, ok := c.sql.Translate(expr.Const(int32(1)))
	if !ok {
		panic(errors.AssertionFailedf("constant limit did not translate"))
	}
	return n
}

func (c *compilation) first(sq ShapedQuery, op Operation, card Cardinality) (ShapedQuery, error) {
	if err := optionalLambda(op); err != nil {
		return sq, err
	}
	if op.Lambda != nil {
		var err error
		if sq, err = c.where(sq, op); err != nil {
			return sq, err
		}
	}
	c.manager(sq).ApplyLimit(c.limitOne())
	sq.Cardinality = card
	return sq, nil
}

func (c *compilation) last(sq ShapedQuery, op Operation, card Cardinality) (ShapedQuery, error) {
	if err := optionalLambda(op); err != nil {
		return sq, err
	}
	if op.Lambda != nil {
		var err error
		if sq, err = c.where(sq, op); err != nil {
			return sq, err
		}
	}
	m := c.manager(sq)
	if m.Core().IsPaged() {
		m.Pushdown()
	}
	if !m.Reverse() {
		return sq, errors.WithHint(
			invalidOperationf("%s requires an ordered source", op.Operator),
			"apply OrderBy before "+string(op.Operator))
	}
	m.ApplyLimit(c.limitOne())
	sq.Cardinality = card
	return sq, nil
}

// aggregateSource prepares the scalar an aggregate reads: a paged or
// distinct source is pushed down, then the optional selector applies.
func (c *compilation) aggregateSource(sq ShapedQuery, op Operation) (ShapedQuery, nodes.Node, error) {
	if err := optionalLambda(op); err != nil {
		return sq, nil, err
	}
	m := c.manager(sq)
	if s := m.Core(); s.Distinct || s.IsPaged() {
		m.Pushdown()
	}
	if op.Lambda != nil {
		var err error
		if sq, err = c.selectOp(sq, op); err != nil {
			return sq, nil, err
		}
	}
	p, ok := m.GetProjection(nodes.Member())
	if !ok || p.Scalar == nil {
		return sq, nil, invalidOperationf("%s requires a scalar selector", op.Operator)
	}
	return sq, p.Scalar, nil
}

func (c *compilation) minMax(sq ShapedQuery, op Operation, fn string) (ShapedQuery, error) {
	sq, proj, err := c.aggregateSource(sq, op)
	if err != nil {
		return sq, err
	}
	rt := op.Type
	if !rt.IsValid() {
		rt = proj.Type()
	}
	agg := c.factory.Function(fn, []nodes.Node{proj}, rt, proj.Mapping())
	return c.aggregateResult(sq, agg, true, rt), nil
}

func (c *compilation) average(sq ShapedQuery, op Operation) (ShapedQuery, error) {
	sq, proj, err := c.aggregateSource(sq, op)
	if err != nil {
		return sq, err
	}
	input := proj.Type().Unwrap()
	if !input.IsNumeric() {
		return sq, invalidOperationf("%s requires a numeric selector, got %s", op.Operator, proj.Type())
	}
	rt := op.Type
	if !rt.IsValid() {
		rt = types.Float64
		if input == types.Float32 || input == types.Decimal {
			rt = input
		}
		if proj.Type().IsNullable() {
			rt = rt.AsNullable()
		}
	}
	if input.IsInteger() {
		proj = c.factory.ApplyDefaultTypeMapping(c.factory.Convert(proj, types.Float64, nil))
	}
	var agg nodes.Node
	if input == types.Float32 {
		agg = c.factory.Convert(
			c.factory.Function("AVG", []nodes.Node{proj}, types.Float64, nil),
			proj.Type(), proj.Mapping())
	} else {
		agg = c.factory.Function("AVG", []nodes.Node{proj}, proj.Type(), proj.Mapping())
	}
	return c.aggregateResult(sq, agg, true, rt), nil
}

func (c *compilation) sum(sq ShapedQuery, op Operation) (ShapedQuery, error) {
	sq, proj, err := c.aggregateSource(sq, op)
	if err != nil {
		return sq, err
	}
	if !proj.Type().IsNumeric() {
		return sq, invalidOperationf("%s requires a numeric selector, got %s", op.Operator, proj.Type())
	}
	rt := op.Type
	if !rt.IsValid() {
		rt = proj.Type()
	}
	server := rt.Unwrap()
	var agg nodes.Node
	if server == types.Float32 {
		agg = c.factory.Convert(
			c.factory.Function("SUM", []nodes.Node{proj}, types.Float64, nil),
			server, proj.Mapping())
	} else {
		agg = c.factory.Function("SUM", []nodes.Node{proj}, server, proj.Mapping())
	}
	return c.aggregateResult(sq, agg, false, rt), nil
}

// aggregateResult projects agg alone and shapes its value. Aggregates
// that need at least one element guard against an empty source; the rest
// only widen to a nullable result type.
func (c *compilation) aggregateResult(sq ShapedQuery, agg nodes.Node, throwOnDefault bool, rt types.Type) ShapedQuery {
	agg = c.factory.ApplyDefaultTypeMapping(agg)
	m := c.manager(sq)
	m.ApplyProjection(&nodes.Projection{Member: nodes.Member(), Scalar: agg})
	m.ClearOrdering()

	var shaper expr.Expr = &expr.ProjectionBinding{Select: sq.Select, Member: nodes.Member(), T: agg.Type()}
	switch {
	case throwOnDefault:
		shaper = &expr.AggregateGuard{Inner: shaper, ThrowOnDefault: true, T: rt}
	case rt.IsNullable():
		shaper = expr.ConvertTo(shaper, rt)
	}
	sq.Shaper = shaper
	sq.Cardinality = One
	return sq
}
