package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/bawdo/relq/plugins"
	"github.com/bawdo/relq/plugins/softdelete"
)

const softdeleteUsage = "usage: plugin softdelete [column] | <column> on <entity|table> ... | <table>.<column>, ..."

// softdeleteScope is the parsed form of the softdelete plugin arguments:
// which root selects receive an IS NULL filter and on which column.
type softdeleteScope struct {
	column  string            // filter column for every root, or for tables
	tables  []string          // roots the column applies to; empty means all
	columns map[string]string // table -> column, replacing column and tables
}

// parseSoftdeleteScope accepts three forms:
//
//	deleted_at
//	removed_at on Customer orders
//	customers.deleted_at, orders.removed_at
//
// Entity names are resolved to their tables through the loaded model.
func (s *Session) parseSoftdeleteScope(args string) (softdeleteScope, error) {
	args = strings.TrimSpace(args)
	if strings.Contains(args, ".") {
		sc := softdeleteScope{columns: map[string]string{}}
		for _, pair := range strings.Split(args, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			table, col, ok := strings.Cut(pair, ".")
			if !ok || table == "" || col == "" {
				return sc, errors.Newf("invalid table.column pair: %q", pair)
			}
			sc.columns[s.rootTable(table)] = col
		}
		if len(sc.columns) == 0 {
			return sc, errors.New(softdeleteUsage)
		}
		return sc, nil
	}

	fields := strings.Fields(args)
	switch {
	case len(fields) == 0:
		return softdeleteScope{column: "deleted_at"}, nil
	case len(fields) == 1:
		return softdeleteScope{column: fields[0]}, nil
	case strings.EqualFold(fields[1], "on") && len(fields) > 2:
		sc := softdeleteScope{column: fields[0]}
		for _, name := range fields[2:] {
			sc.tables = append(sc.tables, s.rootTable(name))
		}
		return sc, nil
	}
	return softdeleteScope{}, errors.New(softdeleteUsage)
}

// rootTable maps an entity name to its table when a model is loaded.
// Anything else is taken as a table name.
func (s *Session) rootTable(name string) string {
	if s.model != nil {
		if e, ok := resolveEntity(s.model, name); ok {
			return e.Table
		}
	}
	return name
}

func (sc softdeleteScope) options() []softdelete.Option {
	if sc.columns != nil {
		opts := make([]softdelete.Option, 0, len(sc.columns))
		for table, col := range sc.columns {
			opts = append(opts, softdelete.WithTableColumn(table, col))
		}
		return opts
	}
	opts := []softdelete.Option{softdelete.WithColumn(sc.column)}
	if len(sc.tables) > 0 {
		opts = append(opts, softdelete.WithTables(sc.tables...))
	}
	return opts
}

func (sc softdeleteScope) String() string {
	if sc.columns != nil {
		pairs := make([]string, 0, len(sc.columns))
		for table, col := range sc.columns {
			pairs = append(pairs, table+"."+col)
		}
		sort.Strings(pairs)
		return "roots reading " + strings.Join(pairs, ", ")
	}
	if len(sc.tables) > 0 {
		return fmt.Sprintf("%s IS NULL on roots reading %s", sc.column, strings.Join(sc.tables, ", "))
	}
	return sc.column + " IS NULL on every root"
}

// configureSoftdelete enables the softdelete transformer. It filters the
// root select of each compiled query, so the predicate lands inside any
// subquery a later pushdown creates.
func configureSoftdelete(s *Session, args string) error {
	sc, err := s.parseSoftdeleteScope(args)
	if err != nil {
		return err
	}
	opts := sc.options()
	s.plugins.register(pluginEntry{
		name:    "softdelete",
		factory: func() plugins.Transformer { return softdelete.New(opts...) },
		status:  sc.String,
		color:   "#CC6666",
	})
	_, _ = fmt.Fprintf(s.out, "  softdelete: %s\n", sc)
	return nil
}
