package nodes

import (
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/types"
)

// Column references a column of a table source in the enclosing select.
type Column struct {
	typed
	Table *TableRef
	Name  string
}

// NewColumn creates a Column bound to table.
func NewColumn(table *TableRef, name string, t types.Type, mapping *storage.TypeMapping) *Column {
	return &Column{typed: typed{typ: t, mapping: mapping}, Table: table, Name: name}
}
