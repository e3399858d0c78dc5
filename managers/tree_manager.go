package managers

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/plugins"
	"github.com/bawdo/relq/typemap"
)

// treeManager holds the transformer pipeline run against every root select.
type treeManager struct {
	transformers []plugins.Transformer
}

// addTransformer appends a transformer plugin to the pipeline.
func (tm *treeManager) addTransformer(t plugins.Transformer) {
	tm.transformers = append(tm.transformers, t)
}

// Transformers returns the registered transformer pipeline.
func (tm *treeManager) Transformers() []plugins.Transformer {
	return tm.transformers
}

// Arena owns every select created during one compile. Selects are addressed
// by stable ids; a select demoted by Pushdown or wrapped by an existence
// test is frozen and rejects further mutation.
type Arena struct {
	treeManager
	factory *typemap.Factory
	selects []*nodes.SelectExpr
	frozen  map[nodes.SelectID]bool
	aliases map[string]bool
}

// NewArena creates an empty arena. Transformers run, in order, on every
// entity root created with NewEntitySelect.
func NewArena(factory *typemap.Factory, transformers ...plugins.Transformer) *Arena {
	a := &Arena{
		factory: factory,
		frozen:  make(map[nodes.SelectID]bool),
		aliases: make(map[string]bool),
	}
	for _, t := range transformers {
		a.addTransformer(t)
	}
	return a
}

// Factory returns the scalar factory shared by the arena's selects.
func (a *Arena) Factory() *typemap.Factory { return a.factory }

// NewEntitySelect creates the select for a query root reading entity's
// table and projecting the whole entity at the shape root.
func (a *Arena) NewEntitySelect(entity *model.EntityType) (*SelectManager, error) {
	table := nodes.NewEntityTable(entity, a.uniqueAlias(entityAlias(entity.Name)))
	s := a.allocate()
	s.Tables = []*nodes.TableRef{table}
	s.Projection = []*nodes.Projection{{
		Member: nodes.Member(),
		Entity: nodes.NewEntityProjection(entity, table),
	}}
	m := a.Manager(s.ID)
	for _, t := range a.transformers {
		if err := t.TransformRoot(m); err != nil {
			return nil, errors.Wrapf(err, "transforming root %s", entity.Name)
		}
	}
	return m, nil
}

// NewSelect creates a select with no sources, projecting projs.
func (a *Arena) NewSelect(projs ...*nodes.Projection) *SelectManager {
	s := a.allocate()
	m := a.Manager(s.ID)
	m.ApplyProjection(projs...)
	return m
}

// Get returns the select with the given id.
func (a *Arena) Get(id nodes.SelectID) *nodes.SelectExpr {
	if int(id) < 0 || int(id) >= len(a.selects) {
		panic(errors.AssertionFailedf("unknown select#%d", id))
	}
	return a.selects[id]
}

// Manager returns a SelectManager bound to id.
func (a *Arena) Manager(id nodes.SelectID) *SelectManager {
	a.Get(id)
	return &SelectManager{arena: a, id: id}
}

// IsFrozen reports whether the select with id may no longer be mutated.
func (a *Arena) IsFrozen(id nodes.SelectID) bool { return a.frozen[id] }

// Len returns the number of selects allocated so far.
func (a *Arena) Len() int { return len(a.selects) }

func (a *Arena) allocate() *nodes.SelectExpr {
	s := &nodes.SelectExpr{ID: nodes.SelectID(len(a.selects))}
	a.selects = append(a.selects, s)
	return s
}

func (a *Arena) freeze(id nodes.SelectID) { a.frozen[id] = true }

func (a *Arena) uniqueAlias(base string) string {
	return uniqueName(a.aliases, base)
}

// uniqueName returns the first of base, base0, base1, ... absent from used
// and records it. Names compare case-insensitively, as SQL identifiers do.
func uniqueName(used map[string]bool, base string) string {
	name := base
	for i := 0; used[strings.ToLower(name)]; i++ {
		name = base + strconv.Itoa(i)
	}
	used[strings.ToLower(name)] = true
	return name
}

func entityAlias(name string) string {
	if name == "" {
		return "t"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r))
}
