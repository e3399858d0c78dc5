// Command relq compiles LINQ-style query chains against an entity model and
// shows the resulting select trees.
//
// Configuration (flags, with env fallbacks):
//
//	--engine postgres|mysql|sqlite   RELQ_ENGINE   (default postgres)
//	--dsn <dsn>                      DATABASE_URL  (optional, connects and introspects)
//	--schema <schema.yaml>           RELQ_SCHEMA   (optional model file)
//
// Usage:
//
//	relq repl
//	relq explain --schema shop.yaml 'Customers.Where(c => c.Age > 18).Count()'
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	Engine  string
	DSN     string
	Schema  string
	Verbose bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "relq",
		Short: "Compile LINQ-style query chains into relational select trees",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("engine") {
				if env := strings.TrimSpace(strings.ToLower(os.Getenv("RELQ_ENGINE"))); env != "" {
					opts.Engine = env
				}
			}
			if opts.DSN == "" {
				opts.DSN = os.Getenv("DATABASE_URL")
			}
			if opts.Schema == "" {
				opts.Schema = os.Getenv("RELQ_SCHEMA")
			}
			if !isValidEngine(opts.Engine) {
				return fmt.Errorf("invalid engine %q: must be one of %v", opts.Engine, engineNames)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Engine, "engine", "postgres", "database engine (postgres|mysql|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "database connection string")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", "", "YAML model schema file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log operator translation to stderr")

	cmd.AddCommand(newReplCommand(opts))
	cmd.AddCommand(newExplainCommand(opts))
	return cmd
}

// newLogger writes text logs to stderr; debug level when verbose.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

type explainOptions struct {
	*rootOptions
	Multiline  bool
	Dot        string
	SoftDelete string
}

func newExplainCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &explainOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <query>",
		Short: "Compile one query and print its select tree",
		Long: `Compile a query chain such as

  Customers.Where(c => c.Age > 18).OrderBy(c => c.Name).Take(5)

against the model from --schema (or from introspecting --dsn) and print the
select, its shape plan and cardinality.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := NewSession(opts.Engine, nil, newLogger(opts.Verbose))
			sess.out = cmd.OutOrStdout()
			sess.multiline = opts.Multiline
			defer sess.close()
			if err := sess.setup(opts.Schema, opts.DSN); err != nil {
				return err
			}
			if opts.SoftDelete != "" {
				if err := sess.Execute("plugin softdelete " + opts.SoftDelete); err != nil {
					return err
				}
			}
			if opts.Dot != "" {
				return sess.cmdDot(opts.Dot + " " + args[0])
			}
			return sess.cmdExplain(args[0])
		},
	}

	cmd.Flags().BoolVarP(&opts.Multiline, "multiline", "m", false, "render the select over several lines")
	cmd.Flags().StringVar(&opts.Dot, "dot", "", "write a Graphviz DOT file instead of printing")
	cmd.Flags().StringVar(&opts.SoftDelete, "softdelete", "", "enable the softdelete plugin with these arguments")
	return cmd
}

// setup loads the schema file, or connects and introspects when only a DSN
// is given.
func (s *Session) setup(schema, dsn string) error {
	if schema != "" {
		if err := s.loadSchema(schema); err != nil {
			return err
		}
	}
	if dsn != "" {
		if err := s.connectWithDSN(dsn); err != nil {
			return err
		}
	}
	if s.model == nil {
		return errNoModel
	}
	return nil
}

func (s *Session) close() {
	if s.conn != nil {
		_ = s.conn.close()
		s.conn = nil
	}
}

func isValidEngine(engine string) bool {
	for _, e := range engineNames {
		if e == engine {
			return true
		}
	}
	return false
}
