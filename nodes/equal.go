package nodes

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"github.com/bawdo/relq/storage"
)

// Equal reports whether a and b are structurally equal: same variant, same
// type and mapping, equal values and equal operands. Columns are equal when
// they bind the same table source; subqueries compare by identity.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() || !storage.Same(a.Mapping(), b.Mapping()) {
		return false
	}
	switch a := a.(type) {
	case *Constant:
		b, ok := b.(*Constant)
		return ok && valueEqual(a.Value, b.Value)
	case *Parameter:
		b, ok := b.(*Parameter)
		return ok && a.Name == b.Name
	case *Column:
		b, ok := b.(*Column)
		return ok && a.Table == b.Table && a.Name == b.Name
	case *Fragment:
		b, ok := b.(*Fragment)
		return ok && a.Raw == b.Raw
	case *Function:
		b, ok := b.(*Function)
		return ok && a.Name == b.Name && equalList(a.Args, b.Args)
	case *Binary:
		b, ok := b.(*Binary)
		return ok && a.Op == b.Op && Equal(a.Left, b.Left) && Equal(a.Right, b.Right)
	case *Unary:
		b, ok := b.(*Unary)
		return ok && a.Op == b.Op && Equal(a.Operand, b.Operand)
	case *Case:
		b, ok := b.(*Case)
		if !ok || len(a.Whens) != len(b.Whens) || !Equal(a.Else, b.Else) {
			return false
		}
		for i := range a.Whens {
			if !Equal(a.Whens[i].Test, b.Whens[i].Test) || !Equal(a.Whens[i].Result, b.Whens[i].Result) {
				return false
			}
		}
		return true
	case *Exists:
		b, ok := b.(*Exists)
		return ok && a.Negated == b.Negated && a.Subquery == b.Subquery
	case *In:
		b, ok := b.(*In)
		return ok && a.Negated == b.Negated && a.Subquery == b.Subquery &&
			Equal(a.Item, b.Item) && equalList(a.Values, b.Values)
	case *Like:
		b, ok := b.(*Like)
		return ok && Equal(a.Match, b.Match) && Equal(a.Pattern, b.Pattern) && Equal(a.Escape, b.Escape)
	}
	return false
}

func equalList(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch a := a.(type) {
	case decimal.Decimal:
		b, ok := b.(decimal.Decimal)
		return ok && a.Equal(b)
	case time.Time:
		b, ok := b.(time.Time)
		return ok && a.Equal(b)
	case []byte:
		b, ok := b.([]byte)
		return ok && bytes.Equal(a, b)
	}
	return reflect.DeepEqual(a, b)
}

// Hash returns a hash of n consistent with Equal.
func Hash(n Node) uint64 {
	h := xxhash.New()
	writeHash(h, n)
	return h.Sum64()
}

type hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

func writeHash(d *xxhash.Digest, n Node) {
	h := &hasher{d: d}
	h.node(n)
}

func (h *hasher) str(s string) {
	_, _ = h.d.WriteString(s)
	_, _ = h.d.Write([]byte{0})
}

func (h *hasher) u64(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	_, _ = h.d.Write(h.buf[:])
}

func (h *hasher) node(n Node) {
	if n == nil {
		h.str("<nil>")
		return
	}
	h.str(fmt.Sprintf("%T", n))
	h.str(n.Type().String())
	if m := n.Mapping(); m != nil {
		h.str(m.StoreType)
	}
	switch n := n.(type) {
	case *Constant:
		h.value(n.Value)
	case *Parameter:
		h.str(n.Name)
	case *Column:
		if n.Table != nil {
			h.str(n.Table.Alias)
		}
		h.str(n.Name)
	case *Fragment:
		h.str(n.Raw)
	case *Function:
		h.str(n.Name)
	case *Binary:
		h.u64(uint64(n.Op))
	case *Unary:
		h.u64(uint64(n.Op))
	case *Exists:
		h.subquery(n.Subquery, n.Negated)
	case *In:
		h.subquery(n.Subquery, n.Negated)
	}
	for _, c := range Children(n) {
		h.node(c)
	}
}

func (h *hasher) subquery(s *SelectExpr, negated bool) {
	if negated {
		h.u64(1)
	} else {
		h.u64(0)
	}
	if s != nil {
		h.u64(uint64(s.ID))
	}
}

func (h *hasher) value(v any) {
	switch v := v.(type) {
	case decimal.Decimal:
		// Equal decimals may differ in exponent.
		h.str(v.String())
	case time.Time:
		h.u64(uint64(v.UnixNano()))
	case float64:
		if v == 0 {
			v = 0 // -0 equals 0
		}
		h.u64(math.Float64bits(v))
	case float32:
		if v == 0 {
			v = 0
		}
		h.u64(uint64(math.Float32bits(v)))
	default:
		h.str(fmt.Sprint(v))
	}
}
