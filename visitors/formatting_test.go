package visitors

import (
	"testing"

	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/internal/testutil"
	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/translate"
	"github.com/bawdo/relq/typemap"
	"github.com/bawdo/relq/types"
)

// compile translates ops over a two-column Customer entity.
func compile(t *testing.T, ops func(c *expr.Parameter) []translate.Operation) *translate.Result {
	t.Helper()
	src := storage.NewPostgresSource()
	b := model.NewBuilder(src)
	b.Entity("Customer", "customers").
		Property("Name", types.String, model.Column("name")).
		Property("Age", types.Int32, model.Column("age"))
	m, err := b.Build()
	testutil.AssertNoError(t, err)
	customer, _ := m.FindEntityType("Customer")

	tr := translate.NewQueryableTranslator(translate.Config{Factory: typemap.NewFactory(src)})
	res, err := tr.Translate(customer, ops(expr.Param("c", customer.Type)))
	testutil.AssertNoError(t, err)
	return res
}

func where(c *expr.Parameter, body expr.Expr) translate.Operation {
	return translate.Operation{Operator: translate.Where, Lambda: expr.Lambda1(c, body)}
}

func age(c *expr.Parameter) expr.Expr { return expr.Prop(c, "Age", types.Int32) }

func TestFormatClausesOnOwnLines(t *testing.T) {
	t.Parallel()
	res := compile(t, func(c *expr.Parameter) []translate.Operation {
		return []translate.Operation{
			where(c, expr.Bin(expr.GreaterThan, age(c), expr.Const(int32(18)))),
			where(c, expr.Bin(expr.LessThan, age(c), expr.Const(int32(65)))),
			{Operator: translate.OrderBy, Lambda: expr.Lambda1(c, expr.Prop(c, "Name", types.String))},
			{Operator: translate.ThenByDescending, Lambda: expr.Lambda1(c, age(c))},
			{Operator: translate.Skip, Arg: expr.Const(int32(10))},
		}
	})
	want := "SELECT c.name\n" +
		"\t,c.age\n" +
		"FROM customers AS c\n" +
		"WHERE (c.age > 18)\n" +
		"\tAND (c.age < 65)\n" +
		"ORDER BY c.name ASC\n" +
		"\t,c.age DESC\n" +
		"OFFSET 10"
	testutil.AssertEqual(t, Format(res.Core()), want)
}

func TestFormatSubqueryIndents(t *testing.T) {
	t.Parallel()
	res := compile(t, func(c *expr.Parameter) []translate.Operation {
		return []translate.Operation{
			{Operator: translate.Take, Arg: expr.Const(int32(5))},
			where(c, expr.Bin(expr.GreaterThan, age(c), expr.Const(int32(18)))),
		}
	})
	want := "SELECT t.name\n" +
		"\t,t.age\n" +
		"FROM (\n" +
		"\tSELECT c.name\n" +
		"\t\t,c.age\n" +
		"\tFROM customers AS c\n" +
		"\tLIMIT 5\n" +
		") AS t\n" +
		"WHERE (t.age > 18)"
	testutil.AssertEqual(t, Format(res.Core()), want)
}

func TestFormatExistsSubquery(t *testing.T) {
	t.Parallel()
	res := compile(t, func(c *expr.Parameter) []translate.Operation {
		return []translate.Operation{{Operator: translate.Any}}
	})
	want := "SELECT EXISTS (\n" +
		"\t\tSELECT 1\n" +
		"\t\tFROM customers AS c\n" +
		"\t) AS c"
	testutil.AssertEqual(t, Format(res.Core()), want)
}

func TestFormatOptions(t *testing.T) {
	t.Parallel()
	res := compile(t, func(c *expr.Parameter) []translate.Operation {
		return []translate.Operation{
			{Operator: translate.Take, Arg: expr.Const(int32(1))},
			{Operator: translate.Count},
		}
	})
	got := Format(res.Core(), WithIndent("  "), WithStoreTypes())
	want := "SELECT COUNT(*) AS c /* integer */\n" +
		"FROM (\n" +
		"  SELECT c.name\n" +
		"    ,c.age\n" +
		"  FROM customers AS c\n" +
		"  LIMIT 1\n" +
		") AS t"
	testutil.AssertEqual(t, got, want)
}
