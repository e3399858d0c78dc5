package nodes

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bawdo/relq/internal/quoting"
)

// The String methods render nodes as compact SQL-like text for diagnostics
// and error messages. The output is not meant for execution.

func (c *Constant) String() string  { return FormatValue(c.Value) }
func (p *Parameter) String() string { return "@" + p.Name }
func (f *Fragment) String() string  { return f.Raw }

func (c *Column) String() string {
	if c.Table == nil {
		return c.Name
	}
	return c.Table.Alias + "." + c.Name
}

func (f *Function) String() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteByte('(')
	writeList(&b, f.Args)
	b.WriteByte(')')
	return b.String()
}

func (n *Binary) String() string {
	return "(" + n.Left.String() + " " + n.Op.String() + " " + n.Right.String() + ")"
}

func (n *Unary) String() string {
	switch n.Op {
	case OpNot:
		return "NOT " + n.Operand.String()
	case OpNegate:
		return "-" + n.Operand.String()
	case OpCast:
		target := n.typ.Name()
		if n.mapping != nil {
			target = n.mapping.StoreType
		}
		return "CAST(" + n.Operand.String() + " AS " + target + ")"
	default:
		return n.Operand.String() + " " + n.Op.String()
	}
}

func (n *Case) String() string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, w := range n.Whens {
		b.WriteString(" WHEN ")
		b.WriteString(w.Test.String())
		b.WriteString(" THEN ")
		b.WriteString(w.Result.String())
	}
	if n.Else != nil {
		b.WriteString(" ELSE ")
		b.WriteString(n.Else.String())
	}
	b.WriteString(" END")
	return b.String()
}

func (n *Exists) String() string {
	prefix := "EXISTS ("
	if n.Negated {
		prefix = "NOT EXISTS ("
	}
	return prefix + n.Subquery.String() + ")"
}

func (n *In) String() string {
	var b strings.Builder
	b.WriteString(n.Item.String())
	if n.Negated {
		b.WriteString(" NOT")
	}
	b.WriteString(" IN (")
	if n.Subquery != nil {
		b.WriteString(n.Subquery.String())
	} else {
		writeList(&b, n.Values)
	}
	b.WriteByte(')')
	return b.String()
}

func (n *Like) String() string {
	s := n.Match.String() + " LIKE " + n.Pattern.String()
	if n.Escape != nil {
		s += " ESCAPE " + n.Escape.String()
	}
	return s
}

func (t *TableRef) String() string {
	if t.Subquery != nil {
		return "(" + t.Subquery.String() + ") AS " + t.Alias
	}
	return t.Table + " AS " + t.Alias
}

func (o *Ordering) String() string {
	if o.Ascending {
		return o.Expr.String() + " ASC"
	}
	return o.Expr.String() + " DESC"
}

func (s *SelectExpr) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	s.writeProjection(&b)
	if len(s.Tables) > 0 {
		b.WriteString(" FROM ")
		for i, t := range s.Tables {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(t.String())
		}
	}
	if s.Predicate != nil {
		b.WriteString(" WHERE ")
		b.WriteString(s.Predicate.String())
	}
	if len(s.Orderings) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.Orderings {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(o.String())
		}
	}
	if s.Limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(s.Limit.String())
	}
	if s.Offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(s.Offset.String())
	}
	return b.String()
}

func (s *SelectExpr) writeProjection(b *strings.Builder) {
	if len(s.Projection) == 0 {
		b.WriteByte('1')
		return
	}
	first := true
	sep := func() {
		if !first {
			b.WriteString(", ")
		}
		first = false
	}
	for _, p := range s.Projection {
		if p.Entity != nil {
			for i, c := range p.Entity.Columns {
				sep()
				b.WriteString(c.String())
				if alias := p.Entity.Alias(i); alias != c.Name {
					b.WriteString(" AS ")
					b.WriteString(alias)
				}
			}
			continue
		}
		sep()
		b.WriteString(p.Scalar.String())
		if c, ok := p.Scalar.(*Column); !ok || c.Name != p.Alias {
			b.WriteString(" AS ")
			b.WriteString(p.Alias)
		}
	}
}

func writeList(b *strings.Builder, list []Node) {
	for i, n := range list {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(n.String())
	}
}

// FormatValue renders a constant value as a SQL-like literal.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return quoting.Literal(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return quoting.Literal(v.Format(time.RFC3339Nano))
	case []byte:
		return fmt.Sprintf("X'%X'", v)
	case decimal.Decimal:
		return v.String()
	case fmt.Stringer:
		return quoting.Literal(v.String())
	default:
		return fmt.Sprint(v)
	}
}
