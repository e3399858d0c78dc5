package storage

import "github.com/bawdo/relq/types"

// PostgresSource maps value types to PostgreSQL column types.
type PostgresSource struct {
	*baseSource
}

// NewPostgresSource creates a PostgresSource ready for use.
func NewPostgresSource() *PostgresSource {
	return &PostgresSource{baseSource: &baseSource{
		dialect: Postgres,
		byKind: map[types.Kind]string{
			types.KindBool:    "boolean",
			types.KindInt32:   "integer",
			types.KindInt64:   "bigint",
			types.KindFloat32: "real",
			types.KindFloat64: "double precision",
			types.KindDecimal: "numeric",
			types.KindString:  "text",
			types.KindTime:    "timestamp with time zone",
			types.KindUUID:    "uuid",
			types.KindBytes:   "bytea",
		},
		aliases: map[string]types.Kind{
			"boolean":                     types.KindBool,
			"bool":                        types.KindBool,
			"smallint":                    types.KindInt32,
			"integer":                     types.KindInt32,
			"int":                         types.KindInt32,
			"int4":                        types.KindInt32,
			"serial":                      types.KindInt32,
			"bigint":                      types.KindInt64,
			"int8":                        types.KindInt64,
			"bigserial":                   types.KindInt64,
			"real":                        types.KindFloat32,
			"float4":                      types.KindFloat32,
			"double precision":            types.KindFloat64,
			"float8":                      types.KindFloat64,
			"numeric":                     types.KindDecimal,
			"decimal":                     types.KindDecimal,
			"money":                       types.KindDecimal,
			"text":                        types.KindString,
			"character varying":           types.KindString,
			"varchar":                     types.KindString,
			"character":                   types.KindString,
			"char":                        types.KindString,
			"timestamp with time zone":    types.KindTime,
			"timestamp without time zone": types.KindTime,
			"timestamptz":                 types.KindTime,
			"timestamp":                   types.KindTime,
			"date":                        types.KindTime,
			"uuid":                        types.KindUUID,
			"bytea":                       types.KindBytes,
		},
	}}
}
