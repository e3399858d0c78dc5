package plugins

import (
	"testing"

	"github.com/bawdo/relq/internal/testutil"
	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

func entities(t *testing.T) (*model.EntityType, *model.EntityType) {
	t.Helper()
	b := model.NewBuilder(storage.NewPostgresSource())
	b.Entity("Customer", "customers").Property("ID", types.Int32, model.Column("id"))
	b.Entity("Order", "orders").Property("CustomerID", types.Int32, model.Column("customer_id"))
	m, err := b.Build()
	testutil.AssertNoError(t, err)
	c, _ := m.FindEntityType("Customer")
	o, _ := m.FindEntityType("Order")
	return c, o
}

func TestCollectTablesFromEntityTable(t *testing.T) {
	t.Parallel()
	c, _ := entities(t)
	s := &nodes.SelectExpr{Tables: []*nodes.TableRef{nodes.NewEntityTable(c, "c")}}

	refs := CollectTables(s)
	testutil.AssertEqual(t, len(refs), 1)
	testutil.AssertEqual(t, refs[0].Table, "customers")
	testutil.AssertEqual(t, refs[0].Alias, "c")
}

func TestCollectTablesDescendsIntoSubquerySources(t *testing.T) {
	t.Parallel()
	c, _ := entities(t)
	inner := &nodes.SelectExpr{Tables: []*nodes.TableRef{nodes.NewEntityTable(c, "c")}}
	outer := &nodes.SelectExpr{Tables: []*nodes.TableRef{nodes.NewSubqueryTable(inner, "t")}}

	refs := CollectTables(outer)
	testutil.AssertEqual(t, len(refs), 1)
	testutil.AssertEqual(t, refs[0].Table, "customers")
}

func TestCollectTablesFindsPredicateSubqueries(t *testing.T) {
	t.Parallel()
	c, o := entities(t)
	orders := &nodes.SelectExpr{Tables: []*nodes.TableRef{nodes.NewEntityTable(o, "o")}}
	s := &nodes.SelectExpr{
		Tables:    []*nodes.TableRef{nodes.NewEntityTable(c, "c")},
		Predicate: nodes.NewExists(orders, false, nil),
	}

	refs := CollectTables(s)
	testutil.AssertEqual(t, len(refs), 2)
	testutil.AssertEqual(t, refs[1].Table, "orders")
}

func TestCollectTablesFindsProjectedSubqueries(t *testing.T) {
	t.Parallel()
	c, _ := entities(t)
	sub := &nodes.SelectExpr{Tables: []*nodes.TableRef{nodes.NewEntityTable(c, "c")}}
	s := &nodes.SelectExpr{Projection: []*nodes.Projection{{
		Member: nodes.Member(),
		Scalar: nodes.NewExists(sub, false, nil),
	}}}

	refs := CollectTables(s)
	testutil.AssertEqual(t, len(refs), 1)
}

func TestCollectTablesEmpty(t *testing.T) {
	t.Parallel()
	if refs := CollectTables(&nodes.SelectExpr{}); len(refs) != 0 {
		t.Errorf("expected no refs, got %d", len(refs))
	}
}

func TestCollectParameters(t *testing.T) {
	t.Parallel()
	c, o := entities(t)
	n := nodes.NewParameter("n", types.Int32, nil)
	id := nodes.NewParameter("id", types.Int32, nil)
	orders := &nodes.SelectExpr{
		Tables:    []*nodes.TableRef{nodes.NewEntityTable(o, "o")},
		Predicate: nodes.NewBinary(nodes.OpEqual, id, nodes.NewConstant(int32(1), types.Int32, nil), types.Bool, nil),
	}
	inner := &nodes.SelectExpr{
		Tables: []*nodes.TableRef{nodes.NewEntityTable(c, "c")},
		Limit:  n,
	}
	s := &nodes.SelectExpr{
		Tables:    []*nodes.TableRef{nodes.NewSubqueryTable(inner, "t")},
		Predicate: nodes.NewExists(orders, false, nil),
		Offset:    n,
	}

	params := CollectParameters(s)
	testutil.AssertEqual(t, len(params), 2)
	testutil.AssertEqual(t, params[0].Name, "n")
	testutil.AssertEqual(t, params[1].Name, "id")
}
