package storage

import "github.com/bawdo/relq/types"

// MySQLSource maps value types to MySQL column types.
type MySQLSource struct {
	*baseSource
}

// NewMySQLSource creates a MySQLSource ready for use.
func NewMySQLSource() *MySQLSource {
	return &MySQLSource{baseSource: &baseSource{
		dialect: MySQL,
		byKind: map[types.Kind]string{
			types.KindBool:    "tinyint(1)",
			types.KindInt32:   "int",
			types.KindInt64:   "bigint",
			types.KindFloat32: "float",
			types.KindFloat64: "double",
			types.KindDecimal: "decimal(65,30)",
			types.KindString:  "longtext",
			types.KindTime:    "datetime(6)",
			types.KindUUID:    "char(36)",
			types.KindBytes:   "longblob",
		},
		aliases: map[string]types.Kind{
			"tinyint(1)": types.KindBool,
			"bit":        types.KindBool,
			"tinyint":    types.KindInt32,
			"smallint":   types.KindInt32,
			"mediumint":  types.KindInt32,
			"int":        types.KindInt32,
			"integer":    types.KindInt32,
			"bigint":     types.KindInt64,
			"float":      types.KindFloat32,
			"double":     types.KindFloat64,
			"decimal":    types.KindDecimal,
			"varchar":    types.KindString,
			"char(36)":   types.KindUUID,
			"char":       types.KindString,
			"text":       types.KindString,
			"mediumtext": types.KindString,
			"longtext":   types.KindString,
			"datetime":   types.KindTime,
			"timestamp":  types.KindTime,
			"date":       types.KindTime,
			"blob":       types.KindBytes,
			"longblob":   types.KindBytes,
			"varbinary":  types.KindBytes,
		},
	}}
}
