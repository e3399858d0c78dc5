package relq_test

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bawdo/relq"
	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/plugins"
	"github.com/bawdo/relq/plugins/softdelete"
	"github.com/bawdo/relq/shaper"
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/translate"
	"github.com/bawdo/relq/typemap"
	"github.com/bawdo/relq/types"
)

const schemaYAML = `
entities:
  - name: Customer
    table: customers
    properties:
      - {name: ID, type: int32, column: id}
      - {name: Name, type: string, column: name}
      - {name: Age, type: int32, column: age}
`

func buildModel(t testing.TB, src storage.TypeMappingSource) *model.Model {
	t.Helper()
	s, err := model.ParseSchema([]byte(schemaYAML))
	require.NoError(t, err)
	m, err := s.Build(src)
	require.NoError(t, err)
	return m
}

func newCompiler(t testing.TB, opts ...relq.Option) *relq.Compiler {
	t.Helper()
	src := storage.NewPostgresSource()
	c, err := relq.New(append([]relq.Option{relq.WithModel(buildModel(t, src)), relq.WithTypeMappings(src)}, opts...)...)
	require.NoError(t, err)
	return c
}

var (
	customer = types.NewEntity("Customer")
	c        = expr.Param("c", customer)
	age      = expr.Prop(c, "Age", types.Int32)
	name     = expr.Prop(c, "Name", types.String)
	adult    = expr.Lambda1(c, expr.Bin(expr.GreaterThanOrEqual, age, expr.Const(int32(18))))
)

func TestQueryChain(t *testing.T) {
	t.Parallel()
	q, err := newCompiler(t).From("Customer").
		Where(adult).
		OrderBy(expr.Lambda1(c, name)).
		Take(expr.Param("n", types.Int32)).
		Compile()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT c.id, c.name, c.age FROM customers AS c WHERE (c.age >= 18) ORDER BY c.name ASC LIMIT @n",
		q.String())
	assert.Equal(t, translate.Sequence, q.Cardinality)
	assert.Equal(t, "Customer", q.Root.Name)
}

func TestQueryIsPersistent(t *testing.T) {
	t.Parallel()
	base := newCompiler(t).From("Customer").Where(adult)
	a := base.OrderBy(expr.Lambda1(c, name))
	b := base.Distinct()
	assert.Len(t, base.Operations(), 1)
	assert.Len(t, a.Operations(), 2)
	assert.Equal(t, translate.Distinct, b.Operations()[1].Operator)
}

func TestTerminalOperators(t *testing.T) {
	t.Parallel()
	q := newCompiler(t).From("Customer")

	count, err := q.Count(adult)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS c FROM customers AS c WHERE (c.age >= 18)", count.String())
	assert.Equal(t, translate.One, count.Cardinality)

	exists, err := q.Any(nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT EXISTS (SELECT 1 FROM customers AS c) AS c", exists.String())

	first, err := q.OrderBy(expr.Lambda1(c, name)).LastOrDefault(nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT c.id, c.name, c.age FROM customers AS c ORDER BY c.name DESC LIMIT 1", first.String())
	assert.Equal(t, translate.OneOrDefault, first.Cardinality)

	avg, err := q.Average(expr.Lambda1(c, age), types.Type{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT AVG(CAST(c.age AS double precision)) AS c FROM customers AS c", avg.String())
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()
	comp := newCompiler(t)

	_, err := comp.Compile("Order")
	assert.ErrorContains(t, err, `unknown entity "Order"`)

	_, err = comp.From("Customer").Apply(translate.Operation{Operator: translate.GroupBy}).Compile()
	assert.True(t, errors.Is(err, relq.ErrNotImplemented))

	_, err = comp.From("Customer").Last(nil)
	assert.True(t, errors.Is(err, relq.ErrInvalidOperation))
}

func TestNewRequiresModel(t *testing.T) {
	t.Parallel()
	_, err := relq.New()
	assert.ErrorContains(t, err, "model is required")

	_, err = relq.New(relq.WithDialect("oracle"))
	assert.ErrorContains(t, err, "unknown dialect")
}

func TestWithDialect(t *testing.T) {
	t.Parallel()
	src := storage.NewMySQLSource()
	comp, err := relq.New(relq.WithModel(buildModel(t, src)), relq.WithDialect("mysql"))
	require.NoError(t, err)
	assert.Equal(t, storage.MySQL, comp.Dialect())
}

func TestWithTransformers(t *testing.T) {
	t.Parallel()
	comp := newCompiler(t, relq.WithTransformers(softdelete.New(softdelete.WithColumn("removed_at"))))
	q, err := comp.From("Customer").Take(expr.Const(int32(2))).Where(adult).Compile()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT t.id, t.name, t.age FROM (SELECT c.id, c.name, c.age FROM customers AS c "+
			"WHERE c.removed_at IS NULL LIMIT 2) AS t WHERE (t.age >= 18)",
		q.String())
}

type shout struct{}

func (shout) TranslateCall(f *typemap.Factory, instance nodes.Node, m expr.Method, args []nodes.Node, result types.Type) (nodes.Node, bool) {
	if m.Owner != "string" || m.Name != "Shout" || instance == nil {
		return nil, false
	}
	return f.Function("SHOUT", []nodes.Node{instance}, result, instance.Mapping()), true
}

type initial struct{}

func (initial) TranslateMember(f *typemap.Factory, instance nodes.Node, member string, result types.Type) (nodes.Node, bool) {
	if member != "Initial" || instance.Type().Unwrap() != types.String {
		return nil, false
	}
	return f.Function("LEFT", []nodes.Node{instance, f.Constant(int32(1), types.Int32)}, result, instance.Mapping()), true
}

func TestPluginTranslators(t *testing.T) {
	t.Parallel()
	comp := newCompiler(t,
		relq.WithMethodTranslators(shout{}),
		relq.WithMemberTranslators(initial{}))
	q, err := comp.From("Customer").Select(expr.Lambda1(c, &expr.New{
		Members: []string{"Loud", "First"},
		Args: []expr.Expr{
			&expr.Call{Object: name, Method: expr.Method{Owner: "string", Name: "Shout"}, T: types.String},
			expr.Prop(name, "Initial", types.String),
		},
	})).Compile()
	require.NoError(t, err)
	assert.Equal(t, "SELECT SHOUT(c.name) AS Loud, LEFT(c.name, 1) AS First FROM customers AS c", q.String())
}

func TestWithLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	comp := newCompiler(t, relq.WithLogger(logger))
	_, err := comp.From("Customer").Where(adult).Compile()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "applied operator")
	assert.Contains(t, buf.String(), "op=")
}

func TestCompiledQueryRendering(t *testing.T) {
	t.Parallel()
	q, err := newCompiler(t).From("Customer").Where(adult).Compile()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(q.Format(), "SELECT c.id\n\t,c.name"))
	assert.Contains(t, q.Dot(nil), `label="Select#0"`)
	require.Len(t, q.Tables(), 1)
	assert.Equal(t, "customers", q.Tables()[0].Table)
}

func TestMaterialize(t *testing.T) {
	t.Parallel()
	q, err := newCompiler(t).From("Customer").Select(expr.Lambda1(c, &expr.New{
		Members: []string{"Name", "Age"},
		Args:    []expr.Expr{name, age},
	})).Compile()
	require.NoError(t, err)

	layout := q.Layout()
	require.Equal(t, 2, layout.Width())
	row, err := layout.Row([]any{"Ann", int64(30)})
	require.NoError(t, err)
	out, err := q.Materialize([]shaper.Row{row})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"Name": "Ann", "Age": int32(30)}}, out)

	maxAge, err := newCompiler(t).From("Customer").Max(expr.Lambda1(c, age))
	require.NoError(t, err)
	_, err = maxAge.Materialize(nil)
	assert.True(t, errors.Is(err, shaper.ErrNoElements))
}

func TestMaterializeSumOverEmptySet(t *testing.T) {
	t.Parallel()
	nullable, err := newCompiler(t).From("Customer").Sum(expr.Lambda1(c, age), types.Int32.AsNullable())
	require.NoError(t, err)
	row, err := nullable.Layout().Row([]any{nil})
	require.NoError(t, err)
	out, err := nullable.Materialize([]shaper.Row{row})
	require.NoError(t, err)
	assert.Nil(t, out)

	row, err = nullable.Layout().Row([]any{int64(42)})
	require.NoError(t, err)
	out, err = nullable.Materialize([]shaper.Row{row})
	require.NoError(t, err)
	assert.Equal(t, int32(42), out)

	plain, err := newCompiler(t).From("Customer").Sum(expr.Lambda1(c, age), types.Type{})
	require.NoError(t, err)
	row, err = plain.Layout().Row([]any{nil})
	require.NoError(t, err)
	out, err = plain.Materialize([]shaper.Row{row})
	require.NoError(t, err)
	assert.Equal(t, int32(0), out)
}

func TestCompilerConcurrentUse(t *testing.T) {
	t.Parallel()
	comp := newCompiler(t, relq.WithTransformers(plugins.TransformerFunc(func(plugins.RootSelect) error { return nil })))
	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q, err := comp.From("Customer").Where(adult).Take(expr.Const(int32(i + 1))).Compile()
			if err == nil {
				results[i] = q.String()
			}
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		assert.True(t, strings.HasSuffix(r, "LIMIT "+string(rune('1'+i))), r)
	}
}
