package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	_ "modernc.org/sqlite"

	"github.com/bawdo/relq/internal/quoting"
	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/storage"
)

var driverName = map[storage.Dialect]string{
	storage.Postgres: "pgx",
	storage.MySQL:    "mysql",
	storage.SQLite:   "sqlite",
}

const (
	maxRows        = 1000
	connectTimeout = 10 * time.Second
	queryTimeout   = 30 * time.Second
)

// column is one introspected table column.
type column struct {
	name      string
	storeType string
	nullable  bool
}

type dbConn struct {
	db      *sql.DB
	dsn     string
	dialect storage.Dialect
	tables  []string
	columns map[string][]column
}

func connect(ctx context.Context, dialect storage.Dialect, dsn string) (*dbConn, error) {
	driver, ok := driverName[dialect]
	if !ok {
		return nil, errors.Newf("no driver for engine %q", dialect)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping")
	}
	return &dbConn{db: db, dsn: dsn, dialect: dialect, columns: map[string][]column{}}, nil
}

func (c *dbConn) close() error {
	return c.db.Close()
}

// loadTables lists the user tables of the connected database.
func (c *dbConn) loadTables(ctx context.Context) error {
	var query string
	switch c.dialect {
	case storage.Postgres:
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name"
	case storage.MySQL:
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name"
	case storage.SQLite:
		query = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	default:
		return errors.Newf("unsupported engine: %s", c.dialect)
	}
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return errors.Wrap(err, "list tables")
	}
	defer func() { _ = rows.Close() }()
	var tables []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return err
		}
		tables = append(tables, s)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	c.tables = tables
	return nil
}

// tableColumns returns the columns of table, cached after the first call.
func (c *dbConn) tableColumns(ctx context.Context, table string) ([]column, error) {
	if cols, ok := c.columns[table]; ok {
		return cols, nil
	}
	var (
		rows *sql.Rows
		err  error
	)
	switch c.dialect {
	case storage.Postgres:
		rows, err = c.db.QueryContext(ctx,
			"SELECT column_name, data_type, is_nullable = 'YES' FROM information_schema.columns "+
				"WHERE table_schema = 'public' AND table_name = $1 ORDER BY ordinal_position", table)
	case storage.MySQL:
		rows, err = c.db.QueryContext(ctx,
			"SELECT column_name, column_type, is_nullable = 'YES' FROM information_schema.columns "+
				"WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position", table)
	case storage.SQLite:
		return c.sqliteColumns(ctx, table)
	default:
		return nil, errors.Newf("unsupported engine: %s", c.dialect)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "columns of %s", table)
	}
	defer func() { _ = rows.Close() }()
	var cols []column
	for rows.Next() {
		var col column
		if err := rows.Scan(&col.name, &col.storeType, &col.nullable); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	c.columns[table] = cols
	return cols, nil
}

// sqliteColumns reads PRAGMA table_info, whose argument cannot be bound.
func (c *dbConn) sqliteColumns(ctx context.Context, table string) ([]column, error) {
	rows, err := c.db.QueryContext(ctx, "PRAGMA table_info("+quoting.Ident(table, false)+")")
	if err != nil {
		return nil, errors.Wrapf(err, "columns of %s", table)
	}
	defer func() { _ = rows.Close() }()
	var cols []column
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, column{name: name, storeType: typ, nullable: notNull == 0 && pk == 0})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	c.columns[table] = cols
	return cols, nil
}

// introspect builds a model with one entity per table. Entity and property
// names are the Pascal-cased table and column names; columns whose store
// type source cannot map are skipped.
func (c *dbConn) introspect(ctx context.Context, source storage.TypeMappingSource, logger *slog.Logger) (*model.Model, error) {
	if err := c.loadTables(ctx); err != nil {
		return nil, err
	}
	b := model.NewBuilder(source)
	entities := 0
	for _, table := range c.tables {
		cols, err := c.tableColumns(ctx, table)
		if err != nil {
			return nil, err
		}
		var eb *model.EntityBuilder
		for _, col := range cols {
			mapping := source.FindMappingForStoreType(col.storeType)
			if mapping == nil {
				logger.Warn("skipping column with unmapped store type",
					"table", table, "column", col.name, "store_type", col.storeType)
				continue
			}
			if eb == nil {
				eb = b.Entity(entityName(table), table)
				entities++
			}
			opts := []model.PropertyOption{model.Column(col.name), model.StoreType(col.storeType)}
			if col.nullable {
				opts = append(opts, model.Nullable())
			}
			eb.Property(pascalCase(col.name), mapping.Type, opts...)
		}
	}
	if entities == 0 {
		return nil, errors.New("no mappable tables found")
	}
	return b.Build()
}

// execQuery runs a compiled select and returns its raw rows.
func (c *dbConn) execQuery(ctx context.Context, query string) ([]string, [][]any, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, errors.Wrap(err, "query")
	}
	defer func() { _ = rows.Close() }()
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.Wrap(err, "columns")
	}
	var data [][]any
	for rows.Next() {
		if len(data) >= maxRows {
			break
		}
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, errors.Wrap(err, "scan")
		}
		data = append(data, vals)
	}
	return columns, data, errors.Wrap(rows.Err(), "rows")
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// pascalCase turns snake_case into PascalCase; "id" becomes "ID".
func pascalCase(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	var b strings.Builder
	for _, p := range parts {
		if strings.EqualFold(p, "id") {
			b.WriteString("ID")
			continue
		}
		b.WriteString(titleCaser.String(p))
	}
	if b.Len() == 0 {
		return name
	}
	return b.String()
}

// entityName singularizes a table name naively: customers -> Customer,
// categories -> Category.
func entityName(table string) string {
	name := pascalCase(table)
	switch {
	case strings.HasSuffix(name, "ies") && len(name) > 3:
		return name[:len(name)-3] + "y"
	case strings.HasSuffix(name, "sses"):
		return name[:len(name)-2]
	case strings.HasSuffix(name, "s") && !strings.HasSuffix(name, "ss"):
		return name[:len(name)-1]
	}
	return name
}

func formatTable(columns []string, rows [][]string) string {
	if len(columns) == 0 {
		return "(0 rows)\n"
	}

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	sep := buildSeparator(widths)

	b.WriteString(sep)
	b.WriteByte('|')
	for i, c := range columns {
		fmt.Fprintf(&b, " %-*s |", widths[i], c)
	}
	b.WriteByte('\n')
	b.WriteString(sep)

	for _, row := range rows {
		b.WriteByte('|')
		for i, cell := range row {
			fmt.Fprintf(&b, " %-*s |", widths[i], cell)
		}
		b.WriteByte('\n')
	}

	b.WriteString(sep)

	n := len(rows)
	if n == 1 {
		b.WriteString("(1 row)\n")
	} else {
		fmt.Fprintf(&b, "(%d rows)\n", n)
	}
	return b.String()
}

func buildSeparator(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}

func sanitizeDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err == nil && u.Scheme != "" && u.User != nil {
		if _, hasPass := u.User.Password(); hasPass {
			// Rebuilt by hand so the mask is not percent-encoded.
			masked := u.Scheme + "://" + u.User.Username() + ":****@" + u.Host + u.Path
			if u.RawQuery != "" {
				masked += "?" + u.RawQuery
			}
			return masked
		}
		return dsn
	}

	// MySQL style: user:pass@tcp(host)/db
	if atIdx := strings.Index(dsn, "@"); atIdx > 0 {
		userPass := dsn[:atIdx]
		if colonIdx := strings.Index(userPass, ":"); colonIdx >= 0 {
			return userPass[:colonIdx+1] + "****" + dsn[atIdx:]
		}
	}
	return dsn
}
