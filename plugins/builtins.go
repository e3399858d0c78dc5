package plugins

import (
	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/internal/quoting"
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/typemap"
	"github.com/bawdo/relq/types"
)

// Method owners understood by the built-in translators.
const (
	StringOwner = "string"
	MathOwner   = "math"
)

// StringMethods translates StartsWith, EndsWith and Contains with a
// constant argument into LIKE, and ToUpper, ToLower and Trim into the
// matching functions.
type StringMethods struct{}

func (StringMethods) TranslateCall(f *typemap.Factory, instance nodes.Node, method expr.Method, args []nodes.Node, result types.Type) (nodes.Node, bool) {
	if method.Owner != StringOwner || instance == nil || instance.Type().Unwrap() != types.String {
		return nil, false
	}
	switch method.Name {
	case "StartsWith", "EndsWith", "Contains":
		if len(args) != 1 {
			return nil, false
		}
		c, ok := args[0].(*nodes.Constant)
		if !ok {
			return nil, false
		}
		s, ok := c.Value.(string)
		if !ok {
			return nil, false
		}
		pattern := quoting.EscapeLike(s)
		switch method.Name {
		case "StartsWith":
			pattern += "%"
		case "EndsWith":
			pattern = "%" + pattern
		default:
			pattern = "%" + pattern + "%"
		}
		var escape nodes.Node
		if quoting.NeedsLikeEscape(s) {
			escape = f.Constant(string(quoting.LikeEscape), types.String)
		}
		return f.Like(instance, f.Constant(pattern, types.String), escape), true
	case "ToUpper", "ToLower", "Trim":
		if len(args) != 0 {
			return nil, false
		}
		name := map[string]string{"ToUpper": "UPPER", "ToLower": "LOWER", "Trim": "TRIM"}[method.Name]
		return f.Function(name, []nodes.Node{instance}, result, typemap.InferTypeMapping(instance)), true
	}
	return nil, false
}

// MathMethods translates the static math functions Abs, Round, Floor and
// Ceiling. Round accepts an optional digits argument.
type MathMethods struct{}

var mathFunctions = map[string]string{
	"Abs":     "ABS",
	"Round":   "ROUND",
	"Floor":   "FLOOR",
	"Ceiling": "CEILING",
}

func (MathMethods) TranslateCall(f *typemap.Factory, instance nodes.Node, method expr.Method, args []nodes.Node, result types.Type) (nodes.Node, bool) {
	if method.Owner != MathOwner || instance != nil || len(args) == 0 {
		return nil, false
	}
	name, ok := mathFunctions[method.Name]
	if !ok || !args[0].Type().IsNumeric() {
		return nil, false
	}
	if len(args) > 1 && (method.Name != "Round" || len(args) != 2) {
		return nil, false
	}
	return f.Function(name, args, result, typemap.InferTypeMapping(args[0])), true
}

// StringMembers translates string.Length into LENGTH.
type StringMembers struct{}

func (StringMembers) TranslateMember(f *typemap.Factory, instance nodes.Node, member string, result types.Type) (nodes.Node, bool) {
	if member != "Length" || instance.Type().Unwrap() != types.String {
		return nil, false
	}
	return f.Function("LENGTH", []nodes.Node{instance}, result, nil), true
}
