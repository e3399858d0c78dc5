package storage

import (
	"strings"

	"github.com/bawdo/relq/types"
)

// baseSource implements the lookup logic shared by all dialects. Dialect
// sources embed *baseSource and fill in the kind and store-type tables.
type baseSource struct {
	dialect Dialect

	// byKind maps a primitive kind to its default store type.
	byKind map[types.Kind]string

	// aliases maps lower-cased introspected store type names to kinds.
	aliases map[string]types.Kind
}

func (b *baseSource) Dialect() Dialect { return b.dialect }

func (b *baseSource) FindMapping(t types.Type) *TypeMapping {
	t = t.Unwrap()
	store, ok := b.byKind[t.Underlying()]
	if !ok {
		return nil
	}
	return &TypeMapping{StoreType: store, Type: t}
}

func (b *baseSource) FindMappingForStoreType(storeType string) *TypeMapping {
	name := strings.ToLower(strings.TrimSpace(storeType))
	if k, ok := b.aliases[name]; ok {
		return &TypeMapping{StoreType: storeType, Type: types.Primitive(k)}
	}
	// Strip a size or precision suffix: varchar(255), numeric(10,2).
	if i := strings.IndexByte(name, '('); i > 0 {
		if k, ok := b.aliases[strings.TrimSpace(name[:i])]; ok {
			return &TypeMapping{StoreType: storeType, Type: types.Primitive(k)}
		}
	}
	return nil
}
