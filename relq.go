// Package relq compiles LINQ-style query chains over an entity model into
// relational select trees plus the shape plan that turns result rows back
// into values.
//
// This package re-exports the common entry points. Advanced users can
// import subpackages directly:
//   - github.com/bawdo/relq/translate (operator and scalar translators)
//   - github.com/bawdo/relq/managers (select-tree arena)
//   - github.com/bawdo/relq/nodes (scalar nodes and the select tree)
//   - github.com/bawdo/relq/plugins (member/method translators, root filters)
//   - github.com/bawdo/relq/shaper (result materialization)
//   - github.com/bawdo/relq/visitors (formatting and DOT rendering)
package relq

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/plugins"
	"github.com/bawdo/relq/storage"
	"github.com/bawdo/relq/translate"
	"github.com/bawdo/relq/typemap"
)

// Re-exported error classes. Test with errors.Is.
var (
	ErrInvalidOperation = translate.ErrInvalidOperation
	ErrNotImplemented   = translate.ErrNotImplemented
)

// Config holds everything a Compiler is built from. It is immutable once
// the Compiler exists.
type Config struct {
	Model        *model.Model
	TypeMappings storage.TypeMappingSource
	Logger       *slog.Logger
	Methods      []plugins.MethodCallTranslator
	Members      []plugins.MemberTranslator
	Transformers []plugins.Transformer
}

// Option configures a Compiler at construction time.
type Option func(*Config) error

// WithModel sets the entity model queries are compiled against.
func WithModel(m *model.Model) Option {
	return func(c *Config) error {
		c.Model = m
		return nil
	}
}

// WithTypeMappings sets the type mapping source. It must be the source
// the model was built with.
func WithTypeMappings(source storage.TypeMappingSource) Option {
	return func(c *Config) error {
		c.TypeMappings = source
		return nil
	}
}

// WithDialect selects the built-in type mapping source for a dialect name
// such as "postgres", "mysql" or "sqlite".
func WithDialect(name string) Option {
	return func(c *Config) error {
		d, err := storage.ParseDialect(name)
		if err != nil {
			return err
		}
		c.TypeMappings, err = storage.ForDialect(d)
		return err
	}
}

// WithLogger sets the logger operator translation reports to at debug
// level. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		c.Logger = l
		return nil
	}
}

// WithMethodTranslators registers method call translators. They run
// before the built-in string and math translators, in order.
func WithMethodTranslators(ts ...plugins.MethodCallTranslator) Option {
	return func(c *Config) error {
		c.Methods = append(c.Methods, ts...)
		return nil
	}
}

// WithMemberTranslators registers member translators ahead of the
// built-ins.
func WithMemberTranslators(ts ...plugins.MemberTranslator) Option {
	return func(c *Config) error {
		c.Members = append(c.Members, ts...)
		return nil
	}
}

// WithTransformers registers root query filters, applied to every entity
// select a compile creates.
func WithTransformers(ts ...plugins.Transformer) Option {
	return func(c *Config) error {
		c.Transformers = append(c.Transformers, ts...)
		return nil
	}
}

// Compiler compiles query chains. It is safe for concurrent use: every
// compile allocates its own arena and translator state.
type Compiler struct {
	cfg        Config
	translator *translate.QueryableTranslator
}

// New creates a Compiler. A model is required; the type mapping source
// defaults to PostgreSQL.
func New(opts ...Option) (*Compiler, error) {
	var cfg Config
	for _, o := range opts {
		if err := o(&cfg); err != nil {
			return nil, errors.Wrap(err, "relq")
		}
	}
	if cfg.Model == nil {
		return nil, errors.New("relq: a model is required (use WithModel)")
	}
	if cfg.TypeMappings == nil {
		cfg.TypeMappings = storage.NewPostgresSource()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Compiler{
		cfg: cfg,
		translator: translate.NewQueryableTranslator(translate.Config{
			Factory:      typemap.NewFactory(cfg.TypeMappings),
			Methods:      plugins.NewMethodCallProvider(cfg.Methods...),
			Members:      plugins.NewMemberProvider(cfg.Members...),
			Transformers: cfg.Transformers,
			Logger:       cfg.Logger,
		}),
	}, nil
}

// Model returns the compiler's entity model.
func (c *Compiler) Model() *model.Model { return c.cfg.Model }

// Dialect returns the backend the compiler maps types for.
func (c *Compiler) Dialect() storage.Dialect { return c.cfg.TypeMappings.Dialect() }

// Compile translates ops over the named entity.
func (c *Compiler) Compile(entity string, ops ...translate.Operation) (*CompiledQuery, error) {
	root, ok := c.cfg.Model.FindEntityType(entity)
	if !ok {
		return nil, errors.Newf("unknown entity %q", entity)
	}
	res, err := c.translator.Translate(root, ops)
	if err != nil {
		return nil, err
	}
	return &CompiledQuery{
		Select:      res.Core(),
		Shaper:      res.Shaper,
		Cardinality: res.Cardinality,
		Root:        root,
	}, nil
}

// From starts a query chain over the named entity.
func (c *Compiler) From(entity string) *Query {
	return &Query{compiler: c, entity: entity}
}
