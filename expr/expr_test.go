package expr

import (
	"testing"

	"github.com/bawdo/relq/internal/testutil"
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/types"
)

func TestPrint(t *testing.T) {
	t.Parallel()
	c := Param("c", types.NewEntity("Customer"))
	age := Prop(c, "Age", types.Int32)
	tests := []struct {
		name string
		e    Expr
		want string
	}{
		{"lambda", Lambda1(c, Bin(GreaterThan, age, Const(int32(18)))), "c => (c.Age > 18)"},
		{"string constant", Const("a\"b"), `"a\"b"`},
		{"null", TypedConst(nil, types.String.AsNullable()), "null"},
		{"not", NotOf(Prop(c, "Active", types.Bool)), "!c.Active"},
		{"convert", ConvertTo(age, types.Int64), "Convert(c.Age, int64)"},
		{"call", &Call{Object: Prop(c, "Name", types.String), Method: Method{Owner: "string", Name: "StartsWith"}, Args: []Expr{Const("A")}, T: types.Bool}, `c.Name.StartsWith("A")`},
		{"static call", &Call{Method: Method{Owner: "math", Name: "Abs"}, Args: []Expr{age}, T: types.Int32}, "math.Abs(c.Age)"},
		{"property", Property(c, "Name", types.String), `relq.Property(c, "Name")`},
		{"conditional", Cond(Bin(Equal, age, Const(int32(1))), Const("one"), Const("many")), `((c.Age == 1) ? "one" : "many")`},
		{"new", &New{T: types.Object, Members: []string{"Name", "Age"}, Args: []Expr{Prop(c, "Name", types.String), age}}, "new { Name = c.Name, Age = c.Age }"},
		{"binding", &ProjectionBinding{Select: 2, Member: nodes.Member("Total"), T: types.Int32}, "Projection(select#2, Total)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, Print(tt.e), tt.want)
		})
	}
}

func TestBinTypes(t *testing.T) {
	t.Parallel()
	a := Const(int32(1))
	testutil.AssertEqual(t, Bin(Equal, a, a).Type(), types.Bool)
	testutil.AssertEqual(t, Bin(AndAlso, Const(true), Const(false)).Type(), types.Bool)
	testutil.AssertEqual(t, Bin(Add, a, a).Type(), types.Int32)
	testutil.AssertEqual(t, Cond(Const(true), Const("a"), Const("b")).Type(), types.String)
}

func TestReplace(t *testing.T) {
	t.Parallel()
	c := Param("c", types.Int32)
	x := Param("x", types.Int32)
	body := Bin(Add, c, Bin(Multiply, x, c))

	got := Replace(body, c, Const(int32(2)))
	testutil.AssertEqual(t, Print(got), "(2 + (x * 2))")
	testutil.AssertEqual(t, Print(body), "(c + (x * c))")

	same := Replace(body, Param("c", types.Int32), Const(int32(9)))
	if same != Expr(body) {
		t.Error("expected an unrelated parameter of the same name to leave the tree untouched")
	}

	call := &Call{Method: Method{Owner: "math", Name: "Abs"}, Args: []Expr{Const(int32(1)), x}, T: types.Int32}
	replaced := Replace(call, x, c).(*Call)
	testutil.AssertEqual(t, Print(replaced), "math.Abs(1, c)")
	if replaced.Args[0] != call.Args[0] {
		t.Error("expected untouched arguments to be shared")
	}
}

func TestEntityShaperType(t *testing.T) {
	t.Parallel()
	ent := types.NewEntity("Customer")
	testutil.AssertEqual(t, (&AggregateGuard{T: types.Int32}).Type(), types.Int32)
	p := &ProjectionBinding{T: ent}
	testutil.AssertEqual(t, p.Type(), ent)
}
