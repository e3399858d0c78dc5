package nodes

import "github.com/bawdo/relq/model"

// TableRef is one table source of a select: either an entity table or a
// frozen subquery. A TableRef is owned by the select that introduced it and
// is shared only as the inner source of a pushdown.
type TableRef struct {
	Alias    string
	Table    string
	Entity   *model.EntityType // nil for subqueries
	Subquery *SelectExpr       // nil for entity tables
}

// NewEntityTable creates a source reading entity's table.
func NewEntityTable(entity *model.EntityType, alias string) *TableRef {
	return &TableRef{Alias: alias, Table: entity.Table, Entity: entity}
}

// NewSubqueryTable creates a source reading a frozen select.
func NewSubqueryTable(sub *SelectExpr, alias string) *TableRef {
	return &TableRef{Alias: alias, Subquery: sub}
}

// IsSubquery reports whether the source is a derived table.
func (t *TableRef) IsSubquery() bool { return t.Subquery != nil }

// SourceName returns the table name, or the alias for a subquery.
func (t *TableRef) SourceName() string {
	if t.Subquery != nil {
		return t.Alias
	}
	return t.Table
}
