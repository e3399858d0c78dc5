// Package storage provides type mappings: the backend-specific store type
// attached to every scalar node, and the per-dialect sources that resolve a
// value type to its mapping.
package storage

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/bawdo/relq/types"
)

// TypeMapping binds a value type to a backend store type. Mappings are
// immutable and compared by value.
type TypeMapping struct {
	StoreType string
	Type      types.Type
}

func (m *TypeMapping) String() string {
	if m == nil {
		return "<unmapped>"
	}
	return m.StoreType
}

// Same reports whether two mappings describe the same store encoding.
// Two nil mappings are the same.
func Same(a, b *TypeMapping) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// TypeMappingSource resolves value types to mappings. Implementations are
// built once and shared by every compile.
type TypeMappingSource interface {
	// FindMapping returns the default mapping for t, or nil when t has no
	// store representation (entities, interfaces, objects).
	FindMapping(t types.Type) *TypeMapping
	// FindMappingForStoreType resolves a store type name reported by schema
	// introspection, or nil when the name is unknown.
	FindMappingForStoreType(storeType string) *TypeMapping
	// Dialect names the backend.
	Dialect() Dialect
}

// Dialect identifies a relational backend.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

// Dialects lists the supported backends in display order.
var Dialects = []Dialect{MySQL, Postgres, SQLite}

// ParseDialect resolves a dialect name case-insensitively.
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(name))); d {
	case Postgres, MySQL, SQLite:
		return d, nil
	case "postgresql", "pg":
		return Postgres, nil
	case "sqlite3":
		return SQLite, nil
	}
	return "", errors.Newf("unknown dialect %q", name)
}

// ForDialect returns the mapping source for d.
func ForDialect(d Dialect) (TypeMappingSource, error) {
	switch d {
	case Postgres:
		return NewPostgresSource(), nil
	case MySQL:
		return NewMySQLSource(), nil
	case SQLite:
		return NewSQLiteSource(), nil
	}
	return nil, errors.Newf("no type mapping source for dialect %q", d)
}
