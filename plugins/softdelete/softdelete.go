// Package softdelete provides a Transformer that filters soft-deleted rows
// out of every query root by adding a "column IS NULL" predicate.
//
// By default every root gets WHERE <alias>.deleted_at IS NULL. Both the
// column name and the set of tables can be customised via options.
//
// # Basic usage
//
//	compiler, err := relq.New(relq.WithModel(m), relq.WithTransformers(softdelete.New()))
//	// Customers.Where(c => c.Age > 18)
//	// SELECT ... FROM customers AS c WHERE c.deleted_at IS NULL AND (c.age > 18)
//
// # Custom column
//
//	sd := softdelete.New(softdelete.WithColumn("removed_at"))
//
// # Restrict to specific tables
//
//	sd := softdelete.New(softdelete.WithTables("customers"))
//	// Only roots reading "customers" are filtered.
//
// # Per-table columns
//
//	sd := softdelete.New(
//	    softdelete.WithTableColumn("customers", "deleted_at"),
//	    softdelete.WithTableColumn("orders", "removed_at"),
//	)
//
// # REPL usage
//
//	relq> plugin softdelete
//	relq> plugin softdelete removed_at
//	relq> plugin softdelete removed_at on customers orders
//	relq> plugin softdelete customers.deleted_at, orders.removed_at
//	relq> plugin off softdelete
//	relq> plugins
package softdelete

import (
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/plugins"
	"github.com/bawdo/relq/types"
)

// SoftDelete is a Transformer that appends an IS NULL condition for a
// soft-delete column on every root select (or a configured subset of
// tables).
type SoftDelete struct {
	Column  string
	Columns map[string]string // per-table column overrides (table name → column name)
	tables  map[string]bool   // nil means apply to all tables
}

// Option configures a SoftDelete transformer.
type Option func(*SoftDelete)

// WithColumn sets the soft-delete column name. Default is "deleted_at".
func WithColumn(name string) Option {
	return func(sd *SoftDelete) { sd.Column = name }
}

// WithTables restricts the plugin to only the named tables.
// By default, the plugin applies to every root table.
func WithTables(names ...string) Option {
	return func(sd *SoftDelete) {
		sd.tables = make(map[string]bool, len(names))
		for _, n := range names {
			sd.tables[n] = true
		}
	}
}

// WithTableColumn sets a per-table column override. The table is
// automatically added to the whitelist, restricting the plugin's scope.
func WithTableColumn(table, column string) Option {
	return func(sd *SoftDelete) {
		if sd.Columns == nil {
			sd.Columns = make(map[string]string)
		}
		sd.Columns[table] = column
		if sd.tables == nil {
			sd.tables = make(map[string]bool)
		}
		sd.tables[table] = true
	}
}

// New creates a SoftDelete transformer with the given options.
func New(opts ...Option) *SoftDelete {
	sd := &SoftDelete{Column: "deleted_at"}
	for _, o := range opts {
		o(sd)
	}
	return sd
}

// TransformRoot applies "column IS NULL" to the root when its table is
// covered. A column mapped by an entity property keeps the property's type
// and mapping; an unmapped column is treated as a nullable timestamp.
func (sd *SoftDelete) TransformRoot(root plugins.RootSelect) error {
	table := root.Table()
	if table == nil || !sd.appliesTo(table.Table) {
		return nil
	}
	f := root.Factory()
	name := sd.columnFor(table.Table)
	typ := types.Time.AsNullable()
	mapping := f.FindMapping(typ)
	for _, p := range root.Entity().Properties() {
		if p.Column == name {
			typ, mapping = p.Type, p.Mapping
			break
		}
	}
	root.ApplyPredicate(f.IsNull(nodes.NewColumn(table, name, typ, mapping)))
	return nil
}

func (sd *SoftDelete) appliesTo(tableName string) bool {
	if sd.tables == nil {
		return true
	}
	return sd.tables[tableName]
}

// columnFor returns the column name to use for the given table.
// It checks Columns for a per-table override, falling back to Column.
func (sd *SoftDelete) columnFor(tableName string) string {
	if sd.Columns != nil {
		if col, ok := sd.Columns[tableName]; ok {
			return col
		}
	}
	return sd.Column
}
