package nodes

// Ordering is one ORDER BY key.
type Ordering struct {
	Expr      Node
	Ascending bool
}

// Reversed returns the ordering with its direction flipped.
func (o *Ordering) Reversed() *Ordering {
	return &Ordering{Expr: o.Expr, Ascending: !o.Ascending}
}
