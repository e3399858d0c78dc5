package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bawdo/relq/types"
)

// Print renders e in lambda notation for error messages and diagnostics.
func Print(e Expr) string {
	if e == nil {
		return "<nil>"
	}
	return e.String()
}

func (e *Parameter) String() string { return e.Name }

func (e *Constant) String() string {
	switch v := e.Value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprint(v)
	}
}

func (e *Lambda) String() string {
	names := make([]string, len(e.Params))
	for i, p := range e.Params {
		names[i] = p.Name
	}
	if len(names) == 1 {
		return names[0] + " => " + Print(e.Body)
	}
	return "(" + strings.Join(names, ", ") + ") => " + Print(e.Body)
}

func (e *Member) String() string {
	if e.Operand == nil {
		return e.Name
	}
	return Print(e.Operand) + "." + e.Name
}

func (e *Call) String() string {
	var b strings.Builder
	if e.Object != nil {
		b.WriteString(Print(e.Object))
		b.WriteByte('.')
		b.WriteString(e.Method.Name)
	} else {
		b.WriteString(e.Method.String())
	}
	b.WriteByte('(')
	for i, a := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(Print(a))
	}
	b.WriteByte(')')
	return b.String()
}

func (e *Binary) String() string {
	return "(" + Print(e.Left) + " " + e.Op.String() + " " + Print(e.Right) + ")"
}

func (e *Unary) String() string {
	switch e.Op {
	case Not:
		return "!" + Print(e.Operand)
	case Negate:
		return "-" + Print(e.Operand)
	default:
		return "Convert(" + Print(e.Operand) + ", " + e.T.String() + ")"
	}
}

func (e *Conditional) String() string {
	return "(" + Print(e.Test) + " ? " + Print(e.IfTrue) + " : " + Print(e.IfFalse) + ")"
}

func (e *New) String() string {
	var b strings.Builder
	b.WriteString("new ")
	if e.T.IsValid() && e.T.Kind() != types.KindObject {
		b.WriteString(e.T.Name())
		b.WriteByte(' ')
	}
	b.WriteString("{ ")
	for i, a := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.Members[i])
		b.WriteString(" = ")
		b.WriteString(Print(a))
	}
	b.WriteString(" }")
	return b.String()
}

func (e *EntityShaper) String() string {
	return fmt.Sprintf("EntityShaper<%s>(select#%d, %s)", e.Entity.Name, e.Select, e.Member)
}

func (e *ProjectionBinding) String() string {
	return fmt.Sprintf("Projection(select#%d, %s)", e.Select, e.Member)
}

func (e *AggregateGuard) String() string {
	if e.ThrowOnDefault {
		return "ThrowIfEmpty(" + Print(e.Inner) + ")"
	}
	return Print(e.Inner)
}
