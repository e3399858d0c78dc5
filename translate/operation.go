package translate

import (
	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/types"
)

// Operator names a query operator.
type Operator string

// Translated operators.
const (
	Where             Operator = "Where"
	Select            Operator = "Select"
	OrderBy           Operator = "OrderBy"
	OrderByDescending Operator = "OrderByDescending"
	ThenBy            Operator = "ThenBy"
	ThenByDescending  Operator = "ThenByDescending"
	Take              Operator = "Take"
	Skip              Operator = "Skip"
	Distinct          Operator = "Distinct"
	Count             Operator = "Count"
	LongCount         Operator = "LongCount"
	Any               Operator = "Any"
	All               Operator = "All"
	Contains          Operator = "Contains"
	First             Operator = "First"
	FirstOrDefault    Operator = "FirstOrDefault"
	Single            Operator = "Single"
	SingleOrDefault   Operator = "SingleOrDefault"
	Last              Operator = "Last"
	LastOrDefault     Operator = "LastOrDefault"
	Min               Operator = "Min"
	Max               Operator = "Max"
	Sum               Operator = "Sum"
	Average           Operator = "Average"
	Cast              Operator = "Cast"
)

// Operators without a translation strategy.
const (
	GroupBy            Operator = "GroupBy"
	Join               Operator = "Join"
	GroupJoin          Operator = "GroupJoin"
	SelectMany         Operator = "SelectMany"
	Union              Operator = "Union"
	Intersect          Operator = "Intersect"
	Except             Operator = "Except"
	Concat             Operator = "Concat"
	Reverse            Operator = "Reverse"
	OfType             Operator = "OfType"
	ElementAt          Operator = "ElementAt"
	ElementAtOrDefault Operator = "ElementAtOrDefault"
	SkipWhile          Operator = "SkipWhile"
	TakeWhile          Operator = "TakeWhile"
	DefaultIfEmpty     Operator = "DefaultIfEmpty"
)

var operators = map[string]Operator{}

func init() {
	for _, op := range []Operator{
		Where, Select, OrderBy, OrderByDescending, ThenBy, ThenByDescending,
		Take, Skip, Distinct, Count, LongCount, Any, All, Contains,
		First, FirstOrDefault, Single, SingleOrDefault, Last, LastOrDefault,
		Min, Max, Sum, Average, Cast,
		GroupBy, Join, GroupJoin, SelectMany, Union, Intersect, Except, Concat,
		Reverse, OfType, ElementAt, ElementAtOrDefault, SkipWhile, TakeWhile, DefaultIfEmpty,
	} {
		operators[string(op)] = op
	}
}

// LookupOperator resolves an operator by its exact name.
func LookupOperator(name string) (Operator, bool) {
	op, ok := operators[name]
	return op, ok
}

// Terminal reports whether op ends a query with a single value.
func (op Operator) Terminal() bool {
	switch op {
	case Count, LongCount, Any, All, Contains,
		First, FirstOrDefault, Single, SingleOrDefault, Last, LastOrDefault,
		Min, Max, Sum, Average:
		return true
	}
	return false
}

// Operation is one operator application in a query chain.
type Operation struct {
	Operator Operator
	// Lambda is the predicate, selector or key selector, when the operator
	// takes one.
	Lambda *expr.Lambda
	// Arg is the count of Take and Skip or the item of Contains.
	Arg expr.Expr
	// Type is the requested result type of an aggregate or the target of
	// Cast. The zero Type selects the operator's natural result type.
	Type types.Type
}

func (o Operation) String() string {
	switch {
	case o.Lambda != nil:
		return string(o.Operator) + "(" + expr.Print(o.Lambda) + ")"
	case o.Arg != nil:
		return string(o.Operator) + "(" + expr.Print(o.Arg) + ")"
	case o.Type.IsValid():
		return string(o.Operator) + "<" + o.Type.String() + ">()"
	}
	return string(o.Operator) + "()"
}

// Cardinality describes how many values a compiled query yields.
type Cardinality int

const (
	// Sequence yields every row.
	Sequence Cardinality = iota
	// One yields the first row and fails when there is none.
	One
	// OneOrDefault yields the first row, or the default when there is none.
	OneOrDefault
)

func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case OneOrDefault:
		return "one-or-default"
	}
	return "sequence"
}
