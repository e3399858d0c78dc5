package translate

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/typemap"
	"github.com/bawdo/relq/types"
)

const customerColumns = "c.id, c.name, c.age, c.score, c.balance"

type fixture struct {
	customer *model.EntityType
	tr       *QueryableTranslator
	c        *expr.Parameter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	src := storage.NewPostgresSource()
	b := model.NewBuilder(src)
	b.Entity("Customer", "customers").
		Property("ID", types.Int32, model.Column("id")).
		Property("Name", types.String, model.Column("name")).
		Property("Age", types.Int32, model.Column("age")).
		Property("Score", types.Float32, model.Column("score")).
		Property("Balance", types.Decimal.AsNullable(), model.Column("balance"))
	m, err := b.Build()
	require.NoError(t, err)
	customer, _ := m.FindEntityType("Customer")
	return &fixture{
		customer: customer,
		tr:       NewQueryableTranslator(Config{Factory: typemap.NewFactory(src)}),
		c:        expr.Param("c", customer.Type),
	}
}

func (fx *fixture) prop(name string) *expr.Member {
	p, _ := fx.customer.FindProperty(name)
	return expr.Prop(fx.c, name, p.Type)
}

func (fx *fixture) lambda(body expr.Expr) *expr.Lambda { return expr.Lambda1(fx.c, body) }

func (fx *fixture) op(op Operator, body expr.Expr) Operation {
	return Operation{Operator: op, Lambda: fx.lambda(body)}
}

func (fx *fixture) translate(t *testing.T, ops ...Operation) *Result {
	t.Helper()
	res, err := fx.tr.Translate(fx.customer, ops)
	require.NoError(t, err)
	return res
}

func (fx *fixture) fail(t *testing.T, ops ...Operation) error {
	t.Helper()
	_, err := fx.tr.Translate(fx.customer, ops)
	require.Error(t, err)
	return err
}

func (fx *fixture) adult() expr.Expr {
	return expr.Bin(expr.GreaterThan, fx.prop("Age"), expr.Const(int32(18)))
}

// --- Where ---

func TestWhere(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t, fx.op(Where, fx.adult()))
	assert.Equal(t, "SELECT "+customerColumns+" FROM customers AS c WHERE (c.age > 18)", res.Core().String())
	assert.Equal(t, Sequence, res.Cardinality)
}

func TestWherePushesDownPagedSource(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t,
		Operation{Operator: Take, Arg: expr.Const(int32(5))},
		fx.op(Where, fx.adult()))

	s := res.Core()
	assert.Equal(t,
		"SELECT t.id, t.name, t.age, t.score, t.balance FROM (SELECT "+customerColumns+
			" FROM customers AS c LIMIT 5) AS t WHERE (t.age > 18)",
		s.String())
	assert.Nil(t, s.Limit)
	require.Len(t, s.Tables, 1)
	inner := s.Tables[0].Subquery
	require.NotNil(t, inner)
	assert.Nil(t, inner.Predicate)
	assert.NotNil(t, inner.Limit)
}

func TestWhereUntranslatableIsInvalidOperation(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	call := &expr.Call{Object: fx.prop("Name"), Method: expr.Method{Owner: "string", Name: "Frobnicate"}, T: types.Bool}
	err := fx.fail(t, fx.op(Where, call))
	assert.True(t, errors.Is(err, ErrInvalidOperation))
	assert.Contains(t, err.Error(), "c.Name.Frobnicate()")
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestWhereNullComparison(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	null := expr.TypedConst(nil, types.Decimal.AsNullable())
	res := fx.translate(t,
		fx.op(Where, expr.Bin(expr.Equal, fx.prop("Balance"), null)),
		fx.op(Where, expr.Bin(expr.NotEqual, null, fx.prop("Balance"))))
	assert.Equal(t, "(c.balance IS NULL AND c.balance IS NOT NULL)", res.Core().Predicate.String())
}

func TestWhereStringMethod(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	call := &expr.Call{
		Object: fx.prop("Name"),
		Method: expr.Method{Owner: "string", Name: "StartsWith"},
		Args:   []expr.Expr{expr.Const("Jo")},
		T:      types.Bool,
	}
	res := fx.translate(t, fx.op(Where, call))
	assert.Equal(t, "c.name LIKE 'Jo%'", res.Core().Predicate.String())
}

func TestWhereParameterTakesColumnMapping(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t, fx.op(Where,
		expr.Bin(expr.Equal, fx.prop("Name"), expr.Param("name", types.String))))
	assert.Equal(t, "(c.name = @name)", res.Core().Predicate.String())
}

func TestPropertyMethod(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t, fx.op(Where,
		expr.Bin(expr.GreaterThan, expr.Property(fx.c, "Age", types.Int32), expr.Const(int32(1)))))
	assert.Equal(t, "(c.age > 1)", res.Core().Predicate.String())
}

func TestPropertyMethodOnScalarIsInvalidOperation(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	bad := expr.Bin(expr.Equal, expr.Property(fx.prop("Name"), "Length", types.Int32), expr.Const(int32(1)))
	err := fx.fail(t, fx.op(Where, bad))
	assert.True(t, errors.Is(err, ErrInvalidOperation))
}

func TestUnknownPropertyFails(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	err := fx.fail(t, fx.op(Where,
		expr.Bin(expr.Equal, expr.Prop(fx.c, "Missing", types.Int32), expr.Const(int32(1)))))
	assert.True(t, errors.Is(err, ErrInvalidOperation))
}

// --- Select ---

func TestIdentitySelectIsNoop(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	base := fx.translate(t, fx.op(Where, fx.adult()))
	res := fx.translate(t, fx.op(Where, fx.adult()), fx.op(Select, fx.c))
	assert.Equal(t, base.Core().String(), res.Core().String())
	assert.Equal(t, expr.Print(base.Shaper), expr.Print(res.Shaper))
	assert.Equal(t, base.Arena.Len(), res.Arena.Len())
}

func TestSelectScalar(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t, fx.op(Select, fx.prop("Age")))
	assert.Equal(t, "SELECT c.age FROM customers AS c", res.Core().String())
	binding, ok := res.Shaper.(*expr.ProjectionBinding)
	require.True(t, ok)
	assert.Equal(t, types.Int32, binding.T)
	assert.True(t, binding.Member.IsRoot())
}

func TestSelectAnonymousThenWhere(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	anon := &expr.New{
		Members: []string{"Name", "Years", "Customer"},
		Args:    []expr.Expr{fx.prop("Name"), fx.prop("Age"), fx.c},
	}
	x := expr.Param("x", types.Object)
	res := fx.translate(t,
		fx.op(Select, anon),
		Operation{Operator: Where, Lambda: expr.Lambda1(x,
			expr.Bin(expr.GreaterThan, expr.Prop(x, "Years", types.Int32), expr.Const(int32(18))))},
		Operation{Operator: OrderBy, Lambda: expr.Lambda1(x,
			expr.Prop(expr.Prop(x, "Customer", fx.customer.Type), "Score", types.Float32))})

	assert.Equal(t,
		"SELECT c.name AS Name0, c.age AS Years, "+customerColumns+
			" FROM customers AS c WHERE (c.age > 18) ORDER BY c.score ASC",
		res.Core().String())
	n, ok := res.Shaper.(*expr.New)
	require.True(t, ok)
	require.Len(t, n.Args, 3)
	assert.IsType(t, &expr.ProjectionBinding{}, n.Args[0])
	assert.IsType(t, &expr.EntityShaper{}, n.Args[2])
}

func TestSelectUntranslatableIsInvalidOperation(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	call := &expr.Call{Method: expr.Method{Owner: "client", Name: "Format"}, Args: []expr.Expr{fx.prop("Age")}, T: types.String}
	err := fx.fail(t, fx.op(Select, call))
	assert.True(t, errors.Is(err, ErrInvalidOperation))
}

func TestSelectConditional(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t, fx.op(Select, expr.Cond(fx.adult(), expr.Const("adult"), expr.Const("minor"))))
	assert.Equal(t, "SELECT CASE WHEN (c.age > 18) THEN 'adult' ELSE 'minor' END AS c FROM customers AS c",
		res.Core().String())
}

func TestSelectConvert(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t, fx.op(Select, expr.ConvertTo(fx.prop("Age"), types.Int64)))
	assert.Equal(t, "SELECT CAST(c.age AS bigint) AS c FROM customers AS c", res.Core().String())

	res = fx.translate(t, fx.op(Select, expr.ConvertTo(fx.prop("Age"), types.Int32.AsNullable())))
	assert.Equal(t, "SELECT c.age FROM customers AS c", res.Core().String(), "nullable widening is a no-op")
}

// --- Ordering and paging ---

func TestOrderByThenBy(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t,
		fx.op(OrderByDescending, fx.prop("Age")),
		fx.op(ThenBy, fx.prop("Name")))
	assert.Equal(t, "SELECT "+customerColumns+" FROM customers AS c ORDER BY c.age DESC, c.name ASC",
		res.Core().String())
}

func TestOrderByAfterDistinctPushesDown(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t,
		fx.op(Select, fx.prop("Name")),
		Operation{Operator: Distinct},
		fx.op(OrderBy, fx.c))
	// The key is rebound to the outer select through the current shape.
	assert.Equal(t,
		"SELECT t.name FROM (SELECT DISTINCT c.name FROM customers AS c) AS t ORDER BY t.name ASC",
		res.Core().String())
}

func TestTakeSkip(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t,
		Operation{Operator: Skip, Arg: expr.Param("offset", types.Int32)},
		Operation{Operator: Take, Arg: expr.Const(int32(10))})
	assert.Equal(t, "SELECT "+customerColumns+" FROM customers AS c LIMIT 10 OFFSET @offset",
		res.Core().String())
}

func TestTakeUntranslatableIsNotImplemented(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	count := &expr.Call{Method: expr.Method{Owner: "client", Name: "Random"}, T: types.Int32}
	err := fx.fail(t, Operation{Operator: Take, Arg: count})
	assert.True(t, errors.Is(err, ErrNotImplemented))
	assert.False(t, errors.Is(err, ErrInvalidOperation))
}

// --- Three-way compare ---

func TestThreeWayCompareTable(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	cases := []struct {
		op   expr.BinaryOp
		c    int32
		want string
	}{
		{expr.Equal, 0, "(c.name = 'x')"},
		{expr.NotEqual, 0, "(c.name <> 'x')"},
		{expr.LessThan, 0, "(c.name < 'x')"},
		{expr.LessThanOrEqual, 0, "(c.name <= 'x')"},
		{expr.GreaterThan, 0, "(c.name > 'x')"},
		{expr.GreaterThanOrEqual, 0, "(c.name >= 'x')"},
		{expr.Equal, 1, "(c.name > 'x')"},
		{expr.GreaterThanOrEqual, 1, "(c.name > 'x')"},
		{expr.NotEqual, 1, "(c.name <= 'x')"},
		{expr.LessThan, 1, "(c.name <= 'x')"},
		{expr.GreaterThan, 1, "FALSE"},
		{expr.LessThanOrEqual, 1, "TRUE"},
		{expr.Equal, -1, "(c.name < 'x')"},
		{expr.LessThanOrEqual, -1, "(c.name < 'x')"},
		{expr.NotEqual, -1, "(c.name >= 'x')"},
		{expr.GreaterThan, -1, "(c.name >= 'x')"},
		{expr.LessThan, -1, "FALSE"},
		{expr.GreaterThanOrEqual, -1, "TRUE"},
	}
	compare := &expr.Call{
		Method: expr.Method{Owner: "string", Name: "Compare"},
		Args:   []expr.Expr{fx.prop("Name"), expr.Const("x")},
		T:      types.Int32,
	}
	for _, tc := range cases {
		res := fx.translate(t, fx.op(Select, expr.Bin(tc.op, compare, expr.Const(tc.c))))
		p, ok := res.Core().FindProjection(res.Shaper.(*expr.ProjectionBinding).Member)
		require.True(t, ok)
		assert.Equal(t, tc.want, p.Scalar.String(), "compare(a, b) %s %d", tc.op, tc.c)
	}
}

func TestThreeWayCompareToWithConstantOnLeft(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	compareTo := &expr.Call{
		Object: fx.prop("Name"),
		Method: expr.Method{Owner: "string", Name: "CompareTo"},
		Args:   []expr.Expr{expr.Const("x")},
		T:      types.Int32,
	}
	res := fx.translate(t, fx.op(Where, expr.Bin(expr.LessThan, expr.Const(int32(0)), compareTo)))
	assert.Equal(t, "(c.name > 'x')", res.Core().Predicate.String())

	res = fx.translate(t, fx.op(Where, expr.Bin(expr.Equal, expr.Const(int32(1)), compareTo)))
	assert.Equal(t, "(c.name > 'x')", res.Core().Predicate.String())
}

func TestThreeWayCompareNonstandardConstantFails(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	compare := &expr.Call{
		Method: expr.Method{Owner: "string", Name: "Compare"},
		Args:   []expr.Expr{fx.prop("Name"), expr.Const("x")},
		T:      types.Int32,
	}
	err := fx.fail(t, fx.op(Where, expr.Bin(expr.Equal, compare, expr.Const(int32(2)))))
	assert.True(t, errors.Is(err, ErrInvalidOperation))
}

// --- Count, Any, All, Contains ---

func TestCount(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t,
		fx.op(OrderBy, fx.prop("Name")),
		fx.op(Count, fx.adult()))
	assert.Equal(t, "SELECT COUNT(*) AS c FROM customers AS c WHERE (c.age > 18)", res.Core().String())
	assert.Equal(t, One, res.Cardinality)
	assert.Equal(t, types.Int32, res.Shaper.Type())
	assert.Equal(t, "integer", res.Core().Projection[0].Scalar.Mapping().StoreType)
}

func TestCountOverDistinctPushesDown(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t,
		fx.op(Select, fx.prop("Age")),
		Operation{Operator: Distinct},
		Operation{Operator: LongCount})
	assert.Equal(t, "SELECT COUNT(*) AS c FROM (SELECT DISTINCT c.age FROM customers AS c) AS t",
		res.Core().String())
	assert.Equal(t, types.Int64, res.Shaper.Type())
	assert.Equal(t, "bigint", res.Core().Projection[0].Scalar.Mapping().StoreType)
}

func TestAny(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t,
		fx.op(OrderBy, fx.prop("Name")),
		fx.op(Any, fx.adult()))
	assert.Equal(t, "SELECT EXISTS (SELECT 1 FROM customers AS c WHERE (c.age > 18)) AS c", res.Core().String())
	assert.Equal(t, types.Bool, res.Shaper.Type())
	assert.Empty(t, res.Core().Tables)
}

func TestAnyKeepsOrderingUnderPaging(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t,
		fx.op(OrderBy, fx.prop("Name")),
		Operation{Operator: Take, Arg: expr.Const(int32(3))},
		Operation{Operator: Any})
	assert.Equal(t,
		"SELECT EXISTS (SELECT 1 FROM customers AS c ORDER BY c.name ASC LIMIT 3) AS c",
		res.Core().String())
}

func TestAll(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t, fx.op(All, fx.adult()))
	assert.Equal(t,
		"SELECT NOT EXISTS (SELECT 1 FROM customers AS c WHERE NOT (c.age > 18)) AS c",
		res.Core().String())
}

func TestAllRequiresPredicate(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	err := fx.fail(t, Operation{Operator: All})
	assert.True(t, errors.Is(err, ErrInvalidOperation))
}

func TestContains(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t,
		fx.op(Select, fx.prop("Age")),
		Operation{Operator: Contains, Arg: expr.Param("age", types.Int32)})
	assert.Equal(t, "SELECT @age IN (SELECT c.age FROM customers AS c) AS c", res.Core().String())
	assert.True(t, res.Arena.IsFrozen(0))
}

func TestContainsEntityIsNotImplemented(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	err := fx.fail(t, Operation{Operator: Contains, Arg: expr.Param("age", types.Int32)})
	assert.True(t, errors.Is(err, ErrNotImplemented))
}

// --- First, Single, Last ---

func TestFirstOrDefault(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t, fx.op(FirstOrDefault, fx.adult()))
	assert.Equal(t, "SELECT "+customerColumns+" FROM customers AS c WHERE (c.age > 18) LIMIT 1",
		res.Core().String())
	assert.Equal(t, OneOrDefault, res.Cardinality)
}

func TestSingleAfterTakePushesDown(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t,
		Operation{Operator: Take, Arg: expr.Const(int32(5))},
		Operation{Operator: Single})
	assert.Equal(t,
		"SELECT t.id, t.name, t.age, t.score, t.balance FROM (SELECT "+customerColumns+
			" FROM customers AS c LIMIT 5) AS t LIMIT 1",
		res.Core().String())
	assert.Equal(t, One, res.Cardinality)
}

func TestLastReversesOrdering(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t,
		fx.op(OrderBy, fx.prop("Name")),
		fx.op(ThenByDescending, fx.prop("Age")),
		Operation{Operator: Last})
	assert.Equal(t,
		"SELECT "+customerColumns+" FROM customers AS c ORDER BY c.name DESC, c.age ASC LIMIT 1",
		res.Core().String())
}

func TestLastWithoutOrderingFails(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	err := fx.fail(t, Operation{Operator: LastOrDefault})
	assert.True(t, errors.Is(err, ErrInvalidOperation))
	assert.Contains(t, errors.FlattenHints(err), "OrderBy")
}

// --- Aggregates ---

func TestMinMax(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t, fx.op(OrderBy, fx.prop("Name")), fx.op(Max, fx.prop("Age")))
	assert.Equal(t, "SELECT MAX(c.age) AS c FROM customers AS c", res.Core().String())
	guard, ok := res.Shaper.(*expr.AggregateGuard)
	require.True(t, ok)
	assert.True(t, guard.ThrowOnDefault)
	assert.Equal(t, types.Int32, guard.T)
}

func TestMinRequiresScalar(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	err := fx.fail(t, Operation{Operator: Min})
	assert.True(t, errors.Is(err, ErrInvalidOperation))
}

func TestAverageWidensIntegers(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t, fx.op(Average, fx.prop("Age")))
	assert.Equal(t, "SELECT AVG(CAST(c.age AS double precision)) AS c FROM customers AS c", res.Core().String())
	guard := res.Shaper.(*expr.AggregateGuard)
	assert.Equal(t, types.Float64, guard.T)
	assert.Equal(t, types.Float64, guard.Inner.Type())
}

func TestAverageFloat32ComputesInDouble(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t, fx.op(Average, fx.prop("Score")))
	assert.Equal(t, "SELECT CAST(AVG(c.score) AS real) AS c FROM customers AS c", res.Core().String())
	assert.Equal(t, types.Float32, res.Shaper.Type())
}

func TestSumFloat32ComputesInDouble(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t, fx.op(Sum, fx.prop("Score")))
	assert.Equal(t, "SELECT CAST(SUM(c.score) AS real) AS c FROM customers AS c", res.Core().String())
	assert.IsType(t, &expr.ProjectionBinding{}, res.Shaper, "sum does not guard against empty sources")
}

func TestSumNullableResultConverts(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	op := fx.op(Sum, fx.prop("Balance"))
	op.Type = types.Decimal.AsNullable()
	res := fx.translate(t, op)
	assert.Equal(t, "SELECT SUM(c.balance) AS c FROM customers AS c", res.Core().String())
	u, ok := res.Shaper.(*expr.Unary)
	require.True(t, ok)
	assert.Equal(t, expr.Convert, u.Op)
	assert.Equal(t, types.Decimal.AsNullable(), u.T)
}

func TestSumOverTakePushesDown(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	res := fx.translate(t,
		Operation{Operator: Take, Arg: expr.Const(int32(3))},
		fx.op(Sum, fx.prop("Age")))
	assert.Equal(t,
		"SELECT SUM(t.age) AS c FROM (SELECT "+customerColumns+" FROM customers AS c LIMIT 3) AS t",
		res.Core().String())
}

// --- Unsupported and chaining ---

func TestUnsupportedOperators(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	for _, op := range []Operator{
		GroupBy, Join, GroupJoin, SelectMany, Union, Intersect, Except, Concat,
		Reverse, OfType, ElementAt, ElementAtOrDefault, SkipWhile, TakeWhile, DefaultIfEmpty,
	} {
		shapes := map[string][]Operation{
			"bare":    {{Operator: op}},
			"lambda":  {fx.op(op, fx.adult())},
			"arg":     {{Operator: op, Arg: expr.Const(int32(2))}},
			"typed":   {{Operator: op, Type: types.Int32}},
			"paged":   {{Operator: Take, Arg: expr.Const(int32(5))}, fx.op(op, fx.adult())},
			"pushed":  {{Operator: Take, Arg: expr.Const(int32(5))}, fx.op(Where, fx.adult()), {Operator: op}},
			"ordered": {fx.op(OrderBy, fx.prop("Name")), {Operator: op, Arg: expr.Param("n", types.Int32)}},
		}
		for shape, ops := range shapes {
			err := fx.fail(t, ops...)
			assert.True(t, errors.Is(err, ErrNotImplemented), "%s (%s)", op, shape)
			assert.False(t, errors.Is(err, ErrInvalidOperation), "%s (%s)", op, shape)
			assert.Contains(t, err.Error(), string(op), shape)
		}
	}
}

func TestCast(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.translate(t, Operation{Operator: Cast, Type: fx.customer.Type})
	err := fx.fail(t, Operation{Operator: Cast, Type: types.String})
	assert.True(t, errors.Is(err, ErrNotImplemented))
}

func TestOperatorAfterTerminalFails(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	err := fx.fail(t, Operation{Operator: Count}, fx.op(Where, fx.adult()))
	assert.True(t, errors.Is(err, ErrInvalidOperation))
	assert.Contains(t, err.Error(), "Where cannot follow Count")
}

func TestLookupOperator(t *testing.T) {
	t.Parallel()
	op, ok := LookupOperator("OrderByDescending")
	assert.True(t, ok)
	assert.Equal(t, OrderByDescending, op)
	_, ok = LookupOperator("orderby")
	assert.False(t, ok)
}
