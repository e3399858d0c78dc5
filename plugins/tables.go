package plugins

import "github.com/bawdo/relq/nodes"

// CollectTables returns every entity table read by s, including those
// inside subquery sources and subquery predicates, in source order.
func CollectTables(s *nodes.SelectExpr) []*nodes.TableRef {
	var refs []*nodes.TableRef
	collectTables(s, &refs)
	return refs
}

func collectTables(s *nodes.SelectExpr, refs *[]*nodes.TableRef) {
	if s == nil {
		return
	}
	for _, t := range s.Tables {
		if t.IsSubquery() {
			collectTables(t.Subquery, refs)
			continue
		}
		*refs = append(*refs, t)
	}
	for _, p := range s.Projection {
		if p.Scalar != nil {
			collectFromNode(p.Scalar, refs)
		}
	}
	if s.Predicate != nil {
		collectFromNode(s.Predicate, refs)
	}
}

func collectFromNode(n nodes.Node, refs *[]*nodes.TableRef) {
	nodes.Inspect(n, func(n nodes.Node) bool {
		switch n := n.(type) {
		case *nodes.Exists:
			collectTables(n.Subquery, refs)
		case *nodes.In:
			collectTables(n.Subquery, refs)
		}
		return true
	})
}

// CollectParameters returns the distinct parameters s binds, in first-use
// order, including those of nested selects.
func CollectParameters(s *nodes.SelectExpr) []*nodes.Parameter {
	var params []*nodes.Parameter
	seen := map[string]bool{}
	walkSelect(s, func(n nodes.Node) {
		if p, ok := n.(*nodes.Parameter); ok && !seen[p.Name] {
			seen[p.Name] = true
			params = append(params, p)
		}
	})
	return params
}

// walkSelect visits every scalar node of s and its nested selects.
func walkSelect(s *nodes.SelectExpr, f func(nodes.Node)) {
	if s == nil {
		return
	}
	visit := func(n nodes.Node) {
		nodes.Inspect(n, func(n nodes.Node) bool {
			f(n)
			switch n := n.(type) {
			case *nodes.Exists:
				walkSelect(n.Subquery, f)
			case *nodes.In:
				walkSelect(n.Subquery, f)
			}
			return true
		})
	}
	for _, t := range s.Tables {
		if t.IsSubquery() {
			walkSelect(t.Subquery, f)
		}
	}
	for _, p := range s.Projection {
		if p.Scalar != nil {
			visit(p.Scalar)
		}
	}
	if s.Predicate != nil {
		visit(s.Predicate)
	}
	for _, o := range s.Orderings {
		visit(o.Expr)
	}
	if s.Limit != nil {
		visit(s.Limit)
	}
	if s.Offset != nil {
		visit(s.Offset)
	}
}
