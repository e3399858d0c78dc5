package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ergochat/readline"

	"github.com/bawdo/relq"
	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/plugins"
	"github.com/bawdo/relq/shaper"
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/visitors"
)

var (
	errNoModel      = errors.New("no model loaded (use 'load <schema.yaml>' or 'connect <dsn>' first)")
	errNotConnected = errors.New("not connected (use 'connect <dsn>' first)")
)

// Session holds the REPL state: the engine, the model queries compile
// against, enabled plugins and the optional database connection.
type Session struct {
	ctx         context.Context
	dialect     storage.Dialect
	source      storage.TypeMappingSource
	model       *model.Model
	schemaPath  string             // set when the model came from a schema file
	plugins     pluginRegistry     // enabled plugins
	configurers []pluginConfigurer // all known plugins
	commands    []commandEntry     // sorted by prefix length desc
	conn        *dbConn            // nil when disconnected
	lastDSN     string             // remembered for reconnect
	multiline   bool               // render selects with visitors.Format
	rl          *readline.Instance
	logger      *slog.Logger
	out         io.Writer
}

// NewSession creates a session for the given engine name.
func NewSession(engine string, rl *readline.Instance, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		ctx:    context.Background(),
		rl:     rl,
		logger: logger,
		out:    os.Stdout,
	}
	s.configurers = []pluginConfigurer{
		{name: "softdelete", configure: configureSoftdelete},
	}
	if err := s.setEngine(engine); err != nil {
		_ = s.setEngine(string(storage.Postgres))
	}
	s.initCommands()
	return s
}

func (s *Session) pluginNames() []string {
	names := make([]string, len(s.configurers))
	for i, c := range s.configurers {
		names[i] = c.name
	}
	return names
}

func (s *Session) setEngine(engine string) error {
	d, err := storage.ParseDialect(engine)
	if err != nil {
		return err
	}
	src, err := storage.ForDialect(d)
	if err != nil {
		return err
	}
	s.dialect, s.source = d, src
	return nil
}

// Execute parses and runs a single REPL command. A line that is neither a
// command nor empty is explained as a query.
func (s *Session) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	lower := strings.ToLower(line)

	for _, cmd := range s.commands {
		if strings.HasSuffix(cmd.prefix, " ") {
			if strings.HasPrefix(lower, cmd.prefix) {
				return cmd.handler(line[len(cmd.prefix):])
			}
		} else if lower == cmd.prefix {
			return cmd.handler("")
		}
	}

	if looksLikeQuery(line) {
		return s.cmdExplain(line)
	}
	word := strings.Fields(line)[0]
	return errors.Newf("unknown command: %s (type 'help' for commands)", word)
}

// looksLikeQuery reports whether line starts "Identifier.".
func looksLikeQuery(line string) bool {
	i := 0
	for i < len(line) && isIdentRune(line[i]) {
		i++
	}
	return i > 0 && i < len(line) && line[i] == '.'
}

// compile parses and compiles a query line. prov, when non-nil, records
// which predicates plugins added.
func (s *Session) compile(line string, prov *visitors.PluginProvenance) (*relq.CompiledQuery, error) {
	if s.model == nil {
		return nil, errNoModel
	}
	ch, err := parseChain(s.model, line)
	if err != nil {
		return nil, err
	}
	comp, err := relq.New(
		relq.WithModel(s.model),
		relq.WithTypeMappings(s.source),
		relq.WithLogger(s.logger),
		relq.WithTransformers(s.plugins.transformers(prov)...),
	)
	if err != nil {
		return nil, err
	}
	return comp.Compile(ch.entity.Name, ch.ops...)
}

// --- Command handlers ---

func (s *Session) cmdEngine(args string) error {
	name := strings.TrimSpace(strings.ToLower(args))
	if err := s.setEngine(name); err != nil {
		return errors.Newf("unknown engine %q (choose: %s)", name, strings.Join(engineNames, ", "))
	}
	_, _ = fmt.Fprintf(s.out, "  Engine set to %s\n", s.dialect)
	switch {
	case s.schemaPath != "":
		return s.loadSchema(s.schemaPath)
	case s.model != nil:
		s.model = nil
		_, _ = fmt.Fprintln(s.out, "  Model cleared; reconnect to introspect it for the new engine")
	}
	return nil
}

func (s *Session) cmdLoad(args string) error {
	path := strings.TrimSpace(args)
	if path == "" {
		return errors.New("usage: load <schema.yaml>")
	}
	return s.loadSchema(path)
}

func (s *Session) loadSchema(path string) error {
	schema, err := model.LoadSchemaFile(path)
	if err != nil {
		return err
	}
	m, err := schema.Build(s.source)
	if err != nil {
		return errors.Wrapf(err, "load %s", path)
	}
	s.model, s.schemaPath = m, path
	_, _ = fmt.Fprintf(s.out, "  Loaded %d entities from %s (%s)\n", len(m.EntityTypes()), path, s.dialect)
	return nil
}

func (s *Session) cmdEntities() error {
	if s.model == nil {
		return errNoModel
	}
	for _, e := range s.model.EntityTypes() {
		_, _ = fmt.Fprintf(s.out, "  %-20s %s\n", e.Name, e.Table)
	}
	return nil
}

func (s *Session) cmdDescribe(args string) error {
	if s.model == nil {
		return errNoModel
	}
	name := strings.TrimSpace(args)
	e, ok := resolveEntity(s.model, name)
	if !ok {
		return errors.Newf("unknown entity %q", name)
	}
	_, _ = fmt.Fprintf(s.out, "  %s (table %s)\n", e.Name, e.Table)
	var rows [][]string
	for _, p := range e.Properties() {
		rows = append(rows, []string{p.Name, p.Column, p.Type.String(), p.Mapping.String()})
	}
	_, _ = fmt.Fprint(s.out, formatTable([]string{"property", "column", "type", "store type"}, rows))
	return nil
}

func (s *Session) cmdExplain(args string) error {
	q, err := s.compile(strings.TrimSpace(args), nil)
	if err != nil {
		return err
	}
	s.printQuery(q)
	return nil
}

func (s *Session) printQuery(q *relq.CompiledQuery) {
	if s.multiline {
		for _, line := range strings.Split(q.Format(), "\n") {
			_, _ = fmt.Fprintf(s.out, "  %s\n", line)
		}
	} else {
		_, _ = fmt.Fprintf(s.out, "  %s\n", q.String())
	}
	_, _ = fmt.Fprintf(s.out, "  Shaper: %s\n", expr.Print(q.Shaper))
	_, _ = fmt.Fprintf(s.out, "  Cardinality: %s\n", q.Cardinality)
	if params := plugins.CollectParameters(q.Select); len(params) > 0 {
		names := make([]string, len(params))
		for i, p := range params {
			names[i] = "@" + p.Name + " " + p.Mapping().String()
		}
		_, _ = fmt.Fprintf(s.out, "  Params: %s\n", strings.Join(names, ", "))
	}
}

func (s *Session) cmdFormat() error {
	s.multiline = !s.multiline
	if s.multiline {
		_, _ = fmt.Fprintln(s.out, "  Multi-line output enabled")
	} else {
		_, _ = fmt.Fprintln(s.out, "  Multi-line output disabled")
	}
	return nil
}

// cmdDot writes the select tree and shape plan of a query as Graphviz.
func (s *Session) cmdDot(args string) error {
	fpath, query, ok := strings.Cut(strings.TrimSpace(args), " ")
	if !ok || strings.TrimSpace(query) == "" {
		return errors.New("usage: dot <filepath> <query>")
	}
	prov := visitors.NewPluginProvenance()
	q, err := s.compile(strings.TrimSpace(query), prov)
	if err != nil {
		return err
	}
	if err := os.WriteFile(fpath, []byte(q.Dot(prov)), 0600); err != nil {
		return errors.Wrap(err, "write DOT file")
	}
	_, _ = fmt.Fprintf(s.out, "  Wrote DOT to %s\n", fpath)
	return nil
}

// cmdRun executes a parameterless query and prints the shaped results.
func (s *Session) cmdRun(args string) error {
	if s.conn == nil {
		return errNotConnected
	}
	q, err := s.compile(strings.TrimSpace(args), nil)
	if err != nil {
		return err
	}
	if params := plugins.CollectParameters(q.Select); len(params) > 0 {
		return errors.Newf("query binds parameter @%s; run executes parameterless queries only", params[0].Name)
	}
	columns, data, err := s.conn.execQuery(s.ctx, q.String())
	if err != nil {
		return err
	}
	layout := q.Layout()
	if layout.Width() != len(columns) {
		return errors.Newf("query returned %d columns, expected %d", len(columns), layout.Width())
	}
	rows := make([]shaper.Row, len(data))
	for i, values := range data {
		if rows[i], err = layout.Row(values); err != nil {
			return err
		}
	}
	result, err := q.Materialize(rows)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprint(s.out, renderResult(q, result))
	return nil
}

func (s *Session) cmdPlugin(args string) error {
	parts := strings.Fields(strings.TrimSpace(args))
	if len(parts) == 0 {
		return errors.New("usage: plugin <name> [args] | plugin off [name]")
	}
	name := strings.ToLower(parts[0])
	if name == "off" {
		return s.cmdPluginOff(parts[1:])
	}
	for _, c := range s.configurers {
		if c.name == name {
			return c.configure(s, strings.TrimSpace(strings.TrimSpace(args)[len(parts[0]):]))
		}
	}
	return errors.Newf("unknown plugin: %s", name)
}

func (s *Session) cmdPluginOff(parts []string) error {
	if len(parts) == 0 {
		s.plugins.deregisterAll()
		_, _ = fmt.Fprintln(s.out, "  All plugins disabled")
		return nil
	}
	name := strings.ToLower(parts[0])
	if !s.plugins.deregister(name) {
		return errors.Newf("plugin %q is not enabled", name)
	}
	_, _ = fmt.Fprintf(s.out, "  %s disabled\n", name)
	return nil
}

func (s *Session) cmdPlugins() {
	_, _ = fmt.Fprintln(s.out, "  Available plugins:")
	for _, c := range s.configurers {
		if entry, ok := s.plugins.get(c.name); ok {
			_, _ = fmt.Fprintf(s.out, "    %-14s on   (%s)\n", c.name, entry.status())
		} else {
			_, _ = fmt.Fprintf(s.out, "    %-14s off\n", c.name)
		}
	}
}

func (s *Session) cmdConnect(args string) error {
	dsn := strings.TrimSpace(args)
	if s.conn != nil {
		return errors.Newf("already connected to %s (use 'disconnect' first)", sanitizeDSN(s.conn.dsn))
	}
	if dsn != "" {
		return s.connectWithDSN(dsn)
	}
	if s.lastDSN != "" {
		choice := prompt(s.rl, fmt.Sprintf("Reconnect to %s? (y/n/setup)", sanitizeDSN(s.lastDSN)), "y")
		switch strings.ToLower(choice) {
		case "y", "yes":
			return s.connectWithDSN(s.lastDSN)
		case "s", "setup":
			return s.connectViaWizard()
		default:
			_, _ = fmt.Fprintln(s.out, "  Connect cancelled")
			return nil
		}
	}
	return s.connectViaWizard()
}

func (s *Session) connectWithDSN(dsn string) error {
	conn, err := connect(s.ctx, s.dialect, dsn)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	s.conn = conn
	s.lastDSN = dsn
	_, _ = fmt.Fprintf(s.out, "  Connected to %s (%s)\n", sanitizeDSN(dsn), s.dialect)
	if s.schemaPath == "" {
		if err := s.cmdIntrospect(); err != nil {
			_, _ = fmt.Fprintf(s.out, "  Note: schema introspection failed: %v\n", err)
		}
	}
	return nil
}

func (s *Session) connectViaWizard() error {
	var dsn string
	switch s.dialect {
	case storage.SQLite:
		dsn = buildSQLiteDSN(s.rl)
	case storage.MySQL:
		dsn = buildMySQLDSN(s.rl)
	default:
		dsn = buildPostgresDSN(s.rl)
	}
	if dsn == "" {
		_, _ = fmt.Fprintln(s.out, "  No connection configured")
		return nil
	}
	_, _ = fmt.Fprintf(s.out, "  DSN: %s\n", sanitizeDSN(dsn))
	return s.connectWithDSN(dsn)
}

func (s *Session) cmdDisconnect() error {
	if s.conn == nil {
		return errors.New("not connected")
	}
	dsn := sanitizeDSN(s.conn.dsn)
	if err := s.conn.close(); err != nil {
		return errors.Wrap(err, "disconnect")
	}
	s.conn = nil
	_, _ = fmt.Fprintf(s.out, "  Disconnected from %s\n", dsn)
	return nil
}

// cmdIntrospect replaces the model with one read from the connection.
func (s *Session) cmdIntrospect() error {
	if s.conn == nil {
		return errNotConnected
	}
	s.conn.columns = map[string][]column{}
	m, err := s.conn.introspect(s.ctx, s.source, s.logger)
	if err != nil {
		return err
	}
	s.model, s.schemaPath = m, ""
	_, _ = fmt.Fprintf(s.out, "  Introspected %d entities\n", len(m.EntityTypes()))
	return nil
}

func (s *Session) cmdStatus() {
	_, _ = fmt.Fprintf(s.out, "  Engine:  %s\n", s.dialect)
	switch {
	case s.model == nil:
		_, _ = fmt.Fprintln(s.out, "  Model:   none")
	case s.schemaPath != "":
		_, _ = fmt.Fprintf(s.out, "  Model:   %s (%d entities)\n", s.schemaPath, len(s.model.EntityTypes()))
	default:
		_, _ = fmt.Fprintf(s.out, "  Model:   introspected (%d entities)\n", len(s.model.EntityTypes()))
	}
	if s.conn != nil {
		_, _ = fmt.Fprintf(s.out, "  Conn:    %s\n", sanitizeDSN(s.conn.dsn))
	} else {
		_, _ = fmt.Fprintln(s.out, "  Conn:    none")
	}
	names := s.plugins.names()
	sort.Strings(names)
	if len(names) == 0 {
		names = []string{"none"}
	}
	_, _ = fmt.Fprintf(s.out, "  Plugins: %s\n", strings.Join(names, ", "))
}

func (s *Session) cmdHelp() {
	_, _ = fmt.Fprintln(s.out, `
  Queries:
    <Entity>.<Op>(...)...     Explain a query, e.g.
                              Customers.Where(c => c.Age > 18).OrderBy(c => c.Name).Take(5)
    explain <query>           Same as a bare query line
    run <query>               Execute a parameterless query and shape the rows
    dot <file> <query>        Write the select tree and shaper as Graphviz DOT
    format                    Toggle multi-line select rendering

  Lambda syntax:
    c => c.Age >= 18 && c.Name != null       Go operators; null or nil
    c => c.Name.StartsWith('Jo')             string methods, 'single' or "double" quotes
    c => New{c.Name, Years: c.Age}           anonymous projection
    c => iif(c.Age > 65, "senior", "adult")  conditional
    c => int64(c.Age)                        conversion
    Take(n)                                  free names become parameters (@n)
    Sum<float64>(c => c.Score)               explicit aggregate result type

  Model:
    load <schema.yaml>        Load entities from a YAML schema
    entities                  List entities
    describe <entity>         Show an entity's properties and mappings
    introspect                Rebuild the model from the connected database

  Engine & connection:
    engine <name>             Switch engine (postgres, mysql, sqlite)
    connect [dsn]             Connect (prompts when no DSN is given)
    disconnect                Close the connection
    status                    Show engine, model, connection and plugins

  Plugins:
    plugin softdelete [col] [on entity|table ...] | [t.col, ...]
    plugin off [name]         Disable one or all plugins
    plugins                   List plugins

    help                      Show this help
    exit | quit               Leave`)
}
