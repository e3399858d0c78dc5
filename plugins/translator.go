package plugins

import (
	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/typemap"
	"github.com/bawdo/relq/types"
)

// MethodCallTranslator lowers a method call whose receiver and arguments
// were already translated. instance is nil for static methods. Translators
// report false for calls they do not handle.
type MethodCallTranslator interface {
	TranslateCall(f *typemap.Factory, instance nodes.Node, method expr.Method, args []nodes.Node, result types.Type) (nodes.Node, bool)
}

// MemberTranslator lowers a member read on a translated non-entity operand.
type MemberTranslator interface {
	TranslateMember(f *typemap.Factory, instance nodes.Node, member string, result types.Type) (nodes.Node, bool)
}

// MethodCallProvider asks its translators in order; the first that
// handles a call wins.
type MethodCallProvider struct {
	translators []MethodCallTranslator
}

// NewMethodCallProvider creates a provider consulting plugins before the
// built-in string and math translators.
func NewMethodCallProvider(plugins ...MethodCallTranslator) *MethodCallProvider {
	ts := make([]MethodCallTranslator, 0, len(plugins)+2)
	ts = append(ts, plugins...)
	ts = append(ts, StringMethods{}, MathMethods{})
	return &MethodCallProvider{translators: ts}
}

// Translate lowers a call, reporting false when no translator handles it.
func (p *MethodCallProvider) Translate(f *typemap.Factory, instance nodes.Node, method expr.Method, args []nodes.Node, result types.Type) (nodes.Node, bool) {
	for _, t := range p.translators {
		if n, ok := t.TranslateCall(f, instance, method, args, result); ok {
			return n, true
		}
	}
	return nil, false
}

// MemberProvider asks its translators in order; the first that handles a
// member wins.
type MemberProvider struct {
	translators []MemberTranslator
}

// NewMemberProvider creates a provider consulting plugins before the
// built-in member translators.
func NewMemberProvider(plugins ...MemberTranslator) *MemberProvider {
	ts := make([]MemberTranslator, 0, len(plugins)+1)
	ts = append(ts, plugins...)
	ts = append(ts, StringMembers{})
	return &MemberProvider{translators: ts}
}

// Translate lowers a member read, reporting false when no translator
// handles it.
func (p *MemberProvider) Translate(f *typemap.Factory, instance nodes.Node, member string, result types.Type) (nodes.Node, bool) {
	for _, t := range p.translators {
		if n, ok := t.TranslateMember(f, instance, member, result); ok {
			return n, true
		}
	}
	return nil, false
}
