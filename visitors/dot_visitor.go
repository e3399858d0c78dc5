package visitors

import (
	"fmt"
	"strings"

	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/nodes"
)

// Color constants for DOT node categories.
const (
	colorTable      = "#6CA6CD" // blue: selects, tables
	colorAttribute  = "#B0D4E8" // light blue: columns, projections
	colorComparison = "#FFB347" // orange: comparisons, predicates
	colorLogical    = "#FFEB80" // yellow: AND, OR, NOT, CASE, DISTINCT
	colorLiteral    = "#D3D3D3" // grey: constants, parameters
	colorOrdering   = "#CDA0E0" // purple: ordering
	colorArithmetic = "#98FB98" // mint green: arithmetic, casts
	colorFunction   = "#87CEEB" // sky blue: functions, aggregates
	colorShaper     = "#F4C2C2" // pink: shape plan
)

// dotNode represents a single node in the DOT graph.
type dotNode struct {
	id    string
	label string
	color string
}

// dotEdge represents a directed edge between two nodes in the DOT graph.
type dotEdge struct {
	from  string
	to    string
	label string
}

// pluginCluster groups nodes added by a plugin into a DOT subgraph cluster.
type pluginCluster struct {
	name    string
	color   string
	nodeIDs []string
}

// PluginProvenance records which predicate nodes a plugin contributed.
// Nodes are matched by identity, so a predicate keeps its plugin through
// pushdowns that move it into a subquery.
type PluginProvenance struct {
	entries map[nodes.Node]provenanceEntry
}

type provenanceEntry struct {
	plugin string
	color  string
}

// NewPluginProvenance creates a new PluginProvenance tracker.
func NewPluginProvenance() *PluginProvenance {
	return &PluginProvenance{entries: make(map[nodes.Node]provenanceEntry)}
}

// AddPredicate marks pred as contributed by plugin.
func (pp *PluginProvenance) AddPredicate(plugin, color string, pred nodes.Node) {
	pp.entries[pred] = provenanceEntry{plugin: plugin, color: color}
}

// Len returns the number of tracked predicates.
func (pp *PluginProvenance) Len() int { return len(pp.entries) }

func (pp *PluginProvenance) lookup(n nodes.Node) (provenanceEntry, bool) {
	if pp == nil {
		return provenanceEntry{}, false
	}
	e, ok := pp.entries[n]
	return e, ok
}

// DotVisitor walks a select tree and produces Graphviz DOT output.
type DotVisitor struct {
	nextID     int
	nodes      []dotNode
	edges      []dotEdge
	clusters   []pluginCluster
	provenance *PluginProvenance
}

// NewDotVisitor creates a new DotVisitor ready to walk a tree.
func NewDotVisitor() *DotVisitor {
	return &DotVisitor{}
}

// SetProvenance configures plugin provenance tracking for predicates.
func (dv *DotVisitor) SetProvenance(p *PluginProvenance) {
	dv.provenance = p
}

// addNode creates a new DOT node with the given label and color, returning its ID.
func (dv *DotVisitor) addNode(label, color string) string {
	id := fmt.Sprintf("n%d", dv.nextID)
	dv.nextID++
	dv.nodes = append(dv.nodes, dotNode{id: id, label: label, color: color})
	return id
}

// addEdge records a directed edge from one node to another.
func (dv *DotVisitor) addEdge(from, to, label string) {
	dv.edges = append(dv.edges, dotEdge{from: from, to: to, label: label})
}

// NodeCount returns the number of nodes accumulated so far.
func (dv *DotVisitor) NodeCount() int {
	return len(dv.nodes)
}

// nodeIDsSince returns the IDs of nodes added since (and including) start.
func (dv *DotVisitor) nodeIDsSince(start int) []string {
	if start >= len(dv.nodes) {
		return nil
	}
	ids := make([]string, len(dv.nodes)-start)
	for i := start; i < len(dv.nodes); i++ {
		ids[i-start] = dv.nodes[i].id
	}
	return ids
}

// addPluginCluster registers a plugin cluster, merging with an existing
// cluster of the same plugin.
func (dv *DotVisitor) addPluginCluster(name, color string, nodeIDs []string) {
	if len(nodeIDs) == 0 {
		return
	}
	for i := range dv.clusters {
		if dv.clusters[i].name == name {
			dv.clusters[i].nodeIDs = append(dv.clusters[i].nodeIDs, nodeIDs...)
			return
		}
	}
	dv.clusters = append(dv.clusters, pluginCluster{name: name, color: color, nodeIDs: nodeIDs})
}

// VisitSelect renders s and everything below it, returning its node ID.
func (dv *DotVisitor) VisitSelect(s *nodes.SelectExpr) string {
	label := fmt.Sprintf("Select#%d", s.ID)
	if s.Distinct {
		label += "\\nDISTINCT"
	}
	id := dv.addNode(label, colorTable)

	for i, t := range s.Tables {
		dv.addEdge(id, dv.VisitTable(t), fmt.Sprintf("FROM[%d]", i))
	}
	for i, p := range s.Projection {
		dv.addEdge(id, dv.visitProjection(p), fmt.Sprintf("SELECT[%d]", i))
	}
	if s.Predicate != nil {
		dv.addEdge(id, dv.VisitNode(s.Predicate), "WHERE")
	}
	for i, o := range s.Orderings {
		dir := "ASC"
		if !o.Ascending {
			dir = "DESC"
		}
		oid := dv.addNode("Ordering\\n"+dir, colorOrdering)
		dv.addEdge(id, oid, fmt.Sprintf("ORDER[%d]", i))
		dv.addEdge(oid, dv.VisitNode(o.Expr), "EXPR")
	}
	if s.Limit != nil {
		dv.addEdge(id, dv.VisitNode(s.Limit), "LIMIT")
	}
	if s.Offset != nil {
		dv.addEdge(id, dv.VisitNode(s.Offset), "OFFSET")
	}
	return id
}

// VisitTable renders a table source.
func (dv *DotVisitor) VisitTable(t *nodes.TableRef) string {
	if t.Subquery != nil {
		id := dv.addNode("Subquery\\n"+t.Alias, colorTable)
		dv.addEdge(id, dv.VisitSelect(t.Subquery), "SELECT")
		return id
	}
	return dv.addNode("Table\\n"+t.Table+" AS "+t.Alias, colorTable)
}

func (dv *DotVisitor) visitProjection(p *nodes.Projection) string {
	member := p.Member.String()
	if p.Entity != nil {
		id := dv.addNode("Entity\\n"+p.Entity.Entity.Name+"\\n"+member, colorAttribute)
		for i, c := range p.Entity.Columns {
			dv.addEdge(id, dv.VisitNode(c), fmt.Sprintf("COL[%d]", i))
		}
		return id
	}
	label := "Projection\\n" + member + " AS " + p.Alias
	if p.Hidden {
		label += "\\nhidden"
	}
	id := dv.addNode(label, colorAttribute)
	dv.addEdge(id, dv.VisitNode(p.Scalar), "EXPR")
	return id
}

// VisitNode renders a scalar node and its operands. Nodes registered in
// the provenance tracker are grouped into their plugin's cluster.
func (dv *DotVisitor) VisitNode(n nodes.Node) string {
	entry, tracked := dv.provenance.lookup(n)
	snapshot := dv.NodeCount()
	id := dv.visitNode(n)
	if tracked {
		dv.addPluginCluster(entry.plugin, entry.color, dv.nodeIDsSince(snapshot))
	}
	return id
}

func (dv *DotVisitor) visitNode(n nodes.Node) string {
	switch n := n.(type) {
	case *nodes.Column:
		return dv.addNode("Column\\n"+n.String()+mappingSuffix(n), colorAttribute)
	case *nodes.Constant:
		return dv.addNode("Constant\\n"+n.String()+mappingSuffix(n), colorLiteral)
	case *nodes.Parameter:
		return dv.addNode("Parameter\\n"+n.String()+mappingSuffix(n), colorLiteral)
	case *nodes.Fragment:
		return dv.addNode("Fragment\\n"+n.Raw, colorLiteral)
	case *nodes.Binary:
		color := colorArithmetic
		switch {
		case n.Op.IsComparison():
			color = colorComparison
		case n.Op.IsLogical():
			color = colorLogical
		}
		id := dv.addNode(n.Op.String(), color)
		dv.addEdge(id, dv.VisitNode(n.Left), "LEFT")
		dv.addEdge(id, dv.VisitNode(n.Right), "RIGHT")
		return id
	case *nodes.Unary:
		color := colorComparison
		label := n.Op.String()
		switch n.Op {
		case nodes.OpNot:
			color = colorLogical
		case nodes.OpNegate:
			color = colorArithmetic
		case nodes.OpCast:
			color = colorArithmetic
			label += mappingSuffix(n)
		}
		id := dv.addNode(label, color)
		dv.addEdge(id, dv.VisitNode(n.Operand), "EXPR")
		return id
	case *nodes.Function:
		id := dv.addNode("Function\\n"+n.Name+mappingSuffix(n), colorFunction)
		for i, a := range n.Args {
			dv.addEdge(id, dv.VisitNode(a), fmt.Sprintf("ARG[%d]", i))
		}
		return id
	case *nodes.Case:
		id := dv.addNode("CASE", colorLogical)
		for i, w := range n.Whens {
			dv.addEdge(id, dv.VisitNode(w.Test), fmt.Sprintf("WHEN[%d]", i))
			dv.addEdge(id, dv.VisitNode(w.Result), fmt.Sprintf("THEN[%d]", i))
		}
		if n.Else != nil {
			dv.addEdge(id, dv.VisitNode(n.Else), "ELSE")
		}
		return id
	case *nodes.Like:
		id := dv.addNode("LIKE", colorComparison)
		dv.addEdge(id, dv.VisitNode(n.Match), "MATCH")
		dv.addEdge(id, dv.VisitNode(n.Pattern), "PATTERN")
		if n.Escape != nil {
			dv.addEdge(id, dv.VisitNode(n.Escape), "ESCAPE")
		}
		return id
	case *nodes.Exists:
		label := "EXISTS"
		if n.Negated {
			label = "NOT EXISTS"
		}
		id := dv.addNode(label, colorComparison)
		dv.addEdge(id, dv.VisitSelect(n.Subquery), "SUBQUERY")
		return id
	case *nodes.In:
		label := "IN"
		if n.Negated {
			label = "NOT IN"
		}
		id := dv.addNode(label, colorComparison)
		dv.addEdge(id, dv.VisitNode(n.Item), "ITEM")
		if n.Subquery != nil {
			dv.addEdge(id, dv.VisitSelect(n.Subquery), "SUBQUERY")
		}
		for i, v := range n.Values {
			dv.addEdge(id, dv.VisitNode(v), fmt.Sprintf("VAL[%d]", i))
		}
		return id
	}
	return dv.addNode(fmt.Sprintf("%T", n), colorLiteral)
}

func mappingSuffix(n nodes.Node) string {
	if m := n.Mapping(); m != nil {
		return "\\n" + m.StoreType
	}
	return ""
}

// VisitShaper renders the shape plan and links every binding to the select
// it reads.
func (dv *DotVisitor) VisitShaper(shaper expr.Expr, selectID string) string {
	var id string
	switch e := shaper.(type) {
	case *expr.New:
		id = dv.addNode("New", colorShaper)
		for i, a := range e.Args {
			dv.addEdge(id, dv.VisitShaper(a, selectID), e.Members[i])
		}
	case *expr.EntityShaper:
		id = dv.addNode("EntityShaper\\n"+e.Entity.Name+"\\n"+e.Member.String(), colorShaper)
		dv.addEdge(id, selectID, "READS")
	case *expr.ProjectionBinding:
		id = dv.addNode("Binding\\n"+e.Member.String()+"\\n"+e.T.String(), colorShaper)
		dv.addEdge(id, selectID, "READS")
	case *expr.AggregateGuard:
		label := "AggregateGuard\\n" + e.T.String()
		if e.ThrowOnDefault {
			label += "\\nthrows on empty"
		}
		id = dv.addNode(label, colorShaper)
		dv.addEdge(id, dv.VisitShaper(e.Inner, selectID), "INNER")
	case *expr.Unary:
		id = dv.addNode("Convert\\n"+e.T.String(), colorShaper)
		dv.addEdge(id, dv.VisitShaper(e.Operand, selectID), "EXPR")
	default:
		id = dv.addNode(expr.Print(shaper), colorShaper)
	}
	return id
}

// VisitQuery renders a compiled query: its active select and the shape
// plan that reads it.
func (dv *DotVisitor) VisitQuery(s *nodes.SelectExpr, shaper expr.Expr) string {
	sid := dv.VisitSelect(s)
	if shaper != nil {
		root := dv.addNode("Result", colorShaper)
		dv.addEdge(root, dv.VisitShaper(shaper, sid), "SHAPE")
	}
	return sid
}

// ToDot generates the complete DOT graph text.
func (dv *DotVisitor) ToDot() string {
	var sb strings.Builder

	sb.WriteString("digraph AST {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	sb.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n")

	// Collect IDs that belong to clusters so we can exclude them from the main body.
	clustered := make(map[string]bool)
	for _, c := range dv.clusters {
		for _, id := range c.nodeIDs {
			clustered[id] = true
		}
	}
	byID := make(map[string]dotNode, len(dv.nodes))
	for _, n := range dv.nodes {
		byID[n.id] = n
	}

	// Non-clustered nodes.
	for _, n := range dv.nodes {
		if !clustered[n.id] {
			fmt.Fprintf(&sb, "  %s [label=\"%s\", fillcolor=\"%s\"];\n",
				n.id, escapeLabel(n.label), n.color)
		}
	}

	// Clusters.
	for i, c := range dv.clusters {
		fmt.Fprintf(&sb, "  subgraph cluster_%d_%s {\n", i, c.name)
		fmt.Fprintf(&sb, "    label=\"%s\";\n", c.name)
		sb.WriteString("    style=dashed;\n")
		fmt.Fprintf(&sb, "    color=\"%s\";\n", c.color)
		sb.WriteString("    fontname=\"Helvetica\";\n")
		for _, id := range c.nodeIDs {
			n := byID[id]
			fmt.Fprintf(&sb, "    %s [label=\"%s\", fillcolor=\"%s\"];\n",
				n.id, escapeLabel(n.label), n.color)
		}
		sb.WriteString("  }\n")
	}

	// Edges.
	for _, e := range dv.edges {
		if e.label != "" {
			fmt.Fprintf(&sb, "  %s -> %s [label=\"%s\"];\n", e.from, e.to, escapeLabel(e.label))
		} else {
			fmt.Fprintf(&sb, "  %s -> %s;\n", e.from, e.to)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// escapeLabel escapes double quotes in DOT labels.
// Backslash sequences like \n are intentional DOT line breaks and are preserved.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
