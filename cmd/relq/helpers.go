package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/bawdo/relq"
	"github.com/bawdo/relq/translate"
)

// renderResult prints a materialized result as a table. Entities and
// projections become one column per member; scalars a single "value"
// column.
func renderResult(q *relq.CompiledQuery, result any) string {
	var values []any
	if q.Cardinality == translate.Sequence {
		values, _ = result.([]any)
	} else {
		values = []any{result}
	}

	columns := resultColumns(q, values)
	if columns == nil {
		rows := make([][]string, len(values))
		for i, v := range values {
			rows[i] = []string{cellText(v)}
		}
		return formatTable([]string{"value"}, rows)
	}
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		m, _ := v.(map[string]any)
		row := make([]string, len(columns))
		for i, c := range columns {
			if m == nil {
				row[i] = "NULL"
				continue
			}
			row[i] = cellText(m[c])
		}
		rows = append(rows, row)
	}
	return formatTable(columns, rows)
}

// resultColumns returns the member names of map-shaped results, in the
// root entity's property order where they match and sorted otherwise.
// It returns nil for scalar results.
func resultColumns(q *relq.CompiledQuery, values []any) []string {
	seen := map[string]bool{}
	for _, v := range values {
		m, ok := v.(map[string]any)
		if !ok {
			if v != nil {
				return nil
			}
			continue
		}
		for k := range m {
			seen[k] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	var columns []string
	for _, p := range q.Root.Properties() {
		if seen[p.Name] {
			columns = append(columns, p.Name)
			delete(seen, p.Name)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(columns, rest...)
}

func cellText(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return v.Format(time.RFC3339)
	case []byte:
		return fmt.Sprintf("\\x%x", v)
	case map[string]any:
		return fmt.Sprintf("%v", v)
	}
	return fmt.Sprint(v)
}
