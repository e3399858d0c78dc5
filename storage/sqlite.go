package storage

import "github.com/bawdo/relq/types"

// SQLiteSource maps value types to SQLite storage classes. SQLite has no
// dedicated decimal, time or uuid affinity; those map to TEXT.
type SQLiteSource struct {
	*baseSource
}

// NewSQLiteSource creates a SQLiteSource ready for use.
func NewSQLiteSource() *SQLiteSource {
	return &SQLiteSource{baseSource: &baseSource{
		dialect: SQLite,
		byKind: map[types.Kind]string{
			types.KindBool:    "INTEGER",
			types.KindInt32:   "INTEGER",
			types.KindInt64:   "INTEGER",
			types.KindFloat32: "REAL",
			types.KindFloat64: "REAL",
			types.KindDecimal: "TEXT",
			types.KindString:  "TEXT",
			types.KindTime:    "TEXT",
			types.KindUUID:    "TEXT",
			types.KindBytes:   "BLOB",
		},
		aliases: map[string]types.Kind{
			"integer": types.KindInt64,
			"int":     types.KindInt64,
			"boolean": types.KindBool,
			"real":    types.KindFloat64,
			"double":  types.KindFloat64,
			"float":   types.KindFloat64,
			"numeric": types.KindDecimal,
			"decimal": types.KindDecimal,
			"text":    types.KindString,
			"varchar": types.KindString,
			"blob":    types.KindBytes,
		},
	}}
}

// FindMappingForStoreType treats an empty declared type as BLOB affinity,
// which is what SQLite reports for untyped columns.
func (s *SQLiteSource) FindMappingForStoreType(storeType string) *TypeMapping {
	if storeType == "" {
		return &TypeMapping{StoreType: "BLOB", Type: types.Bytes}
	}
	return s.baseSource.FindMappingForStoreType(storeType)
}
