package main

import (
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/bawdo/relq/expr"
	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/plugins"
	"github.com/bawdo/relq/translate"
	"github.com/bawdo/relq/types"
)

// errUntyped reports an operand whose type comes from its context: a free
// variable or null.
var errUntyped = errors.New("operand needs a typed context")

// chain is a parsed query line: a root entity and its operators.
type chain struct {
	entity *model.EntityType
	ops    []translate.Operation
}

// rawCall is one ".Name<T>(args)" segment of a query line.
type rawCall struct {
	name     string
	typeArg  string
	args     []string
	position int
}

// parseChain parses a query line such as
//
//	Customers.Where(c => c.Age > 18).OrderBy(c => c.Name).Take(5).Count()
//
// against m. Lambda bodies use Go expression syntax; iif(cond, a, b) stands
// in for the conditional operator and New{Name: c.Name} builds a projection.
func parseChain(m *model.Model, line string) (*chain, error) {
	root, calls, err := splitChain(line)
	if err != nil {
		return nil, err
	}
	entity, ok := resolveEntity(m, root)
	if !ok {
		return nil, errors.Newf("unknown entity %q", root)
	}

	p := &chainParser{model: m, element: entity.Type}
	out := &chain{entity: entity}
	for _, call := range calls {
		op, err := p.operation(call)
		if err != nil {
			return nil, errors.Wrapf(err, "%s (col %d)", call.name, call.position)
		}
		out.ops = append(out.ops, op)
	}
	return out, nil
}

// resolveEntity finds an entity by name, by table name, or by a plural of
// its name.
func resolveEntity(m *model.Model, name string) (*model.EntityType, bool) {
	if e, ok := m.FindEntityType(name); ok {
		return e, true
	}
	for _, e := range m.EntityTypes() {
		if strings.EqualFold(e.Table, name) {
			return e, true
		}
	}
	if base, ok := strings.CutSuffix(name, "s"); ok {
		return m.FindEntityType(base)
	}
	return nil, false
}

// splitChain splits a query line into its root identifier and call
// segments. Parentheses, braces and string literals nest.
func splitChain(line string) (string, []rawCall, error) {
	line = strings.TrimSpace(line)
	i := 0
	for i < len(line) && isIdentRune(line[i]) {
		i++
	}
	if i == 0 {
		return "", nil, errors.New("query must start with an entity name")
	}
	root := line[:i]

	var calls []rawCall
	for i < len(line) {
		if line[i] == ' ' || line[i] == '\t' || line[i] == '\n' {
			i++
			continue
		}
		if line[i] != '.' {
			return "", nil, errors.Newf("unexpected %q at col %d", line[i], i+1)
		}
		i++
		start := i
		for i < len(line) && isIdentRune(line[i]) {
			i++
		}
		if i == start {
			return "", nil, errors.Newf("missing operator name at col %d", start+1)
		}
		call := rawCall{name: line[start:i], position: start + 1}
		if i < len(line) && line[i] == '<' {
			end := strings.IndexByte(line[i:], '>')
			if end < 0 {
				return "", nil, errors.Newf("unterminated type argument at col %d", i+1)
			}
			call.typeArg = strings.TrimSpace(line[i+1 : i+end])
			i += end + 1
		}
		if i >= len(line) || line[i] != '(' {
			return "", nil, errors.Newf("expected ( after %s", call.name)
		}
		end, err := matchParen(line, i)
		if err != nil {
			return "", nil, err
		}
		call.args = splitArgs(line[i+1 : end])
		calls = append(calls, call)
		i = end + 1
	}
	return root, calls, nil
}

func isIdentRune(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// matchParen returns the index of the parenthesis closing the one at open.
func matchParen(s string, open int) (int, error) {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' && quote != '`' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, errors.Newf("unbalanced parentheses starting at col %d", open+1)
}

// splitArgs splits a call's argument text on top-level commas.
func splitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' && quote != '`' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

// chainParser converts call segments into operations, tracking the element
// type flowing through the chain so lambda parameters are typed.
type chainParser struct {
	model   *model.Model
	element types.Type
	params  map[string]*expr.Parameter
}

func (p *chainParser) operation(call rawCall) (translate.Operation, error) {
	op, ok := translate.LookupOperator(call.name)
	if !ok {
		return translate.Operation{}, errors.Newf("unknown operator %q", call.name)
	}
	out := translate.Operation{Operator: op}
	if call.typeArg != "" {
		t, ok := types.Parse(strings.ToLower(call.typeArg))
		if !ok {
			return out, errors.Newf("unknown type %q", call.typeArg)
		}
		out.Type = t
	}
	if len(call.args) > 1 {
		return out, errors.Newf("expected at most one argument, got %d", len(call.args))
	}

	switch op {
	case translate.Take, translate.Skip:
		if len(call.args) == 0 {
			return out, errors.New("missing count")
		}
		arg, err := p.parseValue(call.args[0], types.Int32)
		if err != nil {
			return out, err
		}
		out.Arg = arg
	case translate.Contains:
		if len(call.args) == 0 {
			return out, errors.New("missing item")
		}
		arg, err := p.parseValue(call.args[0], p.element)
		if err != nil {
			return out, err
		}
		out.Arg = arg
	default:
		if len(call.args) == 1 {
			l, err := p.parseLambda(call.args[0])
			if err != nil {
				return out, err
			}
			out.Lambda = l
		}
	}

	switch op {
	case translate.Select:
		if out.Lambda != nil {
			p.element = out.Lambda.Body.Type()
		}
	case translate.Cast:
		if out.Type.IsValid() {
			p.element = out.Type
		}
	}
	return out, nil
}

// parseLambda parses "x => body".
func (p *chainParser) parseLambda(src string) (*expr.Lambda, error) {
	name, body, ok := strings.Cut(src, "=>")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.IndexFunc(name, func(r rune) bool { return r > 127 || !isIdentRune(byte(r)) }) >= 0 {
		return nil, errors.Newf("expected a lambda such as c => c.Name, got %q", src)
	}
	param := expr.Param(name, p.element)
	p.params = map[string]*expr.Parameter{name: param}
	defer func() { p.params = nil }()

	e, err := p.parseExpr(body, types.Type{})
	if err != nil {
		return nil, err
	}
	return expr.Lambda1(param, e), nil
}

// parseValue parses an argument that is not a lambda: a literal or a free
// variable typed by hint.
func (p *chainParser) parseValue(src string, hint types.Type) (expr.Expr, error) {
	return p.parseExpr(src, hint)
}

func (p *chainParser) parseExpr(src string, hint types.Type) (expr.Expr, error) {
	node, err := parser.ParseExpr(normalizeQuotes(strings.TrimSpace(src)))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %q", strings.TrimSpace(src))
	}
	e, err := p.convert(node, hint)
	if errors.Is(err, errUntyped) {
		return nil, errors.Newf("cannot infer a type for %q", strings.TrimSpace(src))
	}
	return e, err
}

// convert lowers a Go expression into an expr tree. hint types free
// variables and null.
func (p *chainParser) convert(n ast.Expr, hint types.Type) (expr.Expr, error) {
	switch n := n.(type) {
	case *ast.ParenExpr:
		return p.convert(n.X, hint)
	case *ast.BasicLit:
		return convertLiteral(n, hint)
	case *ast.Ident:
		return p.convertIdent(n, hint)
	case *ast.SelectorExpr:
		operand, err := p.convert(n.X, types.Type{})
		if err != nil {
			return nil, err
		}
		return p.member(operand, n.Sel.Name)
	case *ast.CallExpr:
		return p.convertCall(n, hint)
	case *ast.UnaryExpr:
		return p.convertUnary(n, hint)
	case *ast.BinaryExpr:
		return p.convertBinary(n)
	case *ast.CompositeLit:
		return p.convertNew(n)
	}
	return nil, errors.Newf("unsupported expression %T", n)
}

// normalizeQuotes rewrites SQL-style 'text' literals as Go strings.
func normalizeQuotes(src string) string {
	if !strings.ContainsRune(src, '\'') {
		return src
	}
	var b strings.Builder
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case quote == '\'':
			switch {
			case c == '\'' && i+1 < len(src) && src[i+1] == '\'':
				b.WriteByte('\'')
				i++
			case c == '\'':
				b.WriteByte('"')
				quote = 0
			case c == '"':
				b.WriteString(`\"`)
			default:
				b.WriteByte(c)
			}
		case quote != 0:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(src) {
				i++
				b.WriteByte(src[i])
			} else if c == quote {
				quote = 0
			}
		case c == '\'':
			b.WriteByte('"')
			quote = c
		case c == '"' || c == '`':
			b.WriteByte(c)
			quote = c
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func convertLiteral(n *ast.BasicLit, hint types.Type) (expr.Expr, error) {
	switch n.Kind {
	case token.INT:
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "integer %s", n.Value)
		}
		switch {
		case hint.Unwrap() == types.Int64:
			return expr.Const(v), nil
		case hint.Unwrap() == types.Float64:
			return expr.Const(float64(v)), nil
		case v > math.MaxInt32 || v < math.MinInt32:
			return expr.Const(v), nil
		}
		return expr.Const(int32(v)), nil
	case token.FLOAT:
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "float %s", n.Value)
		}
		if hint.Unwrap() == types.Float32 {
			return expr.Const(float32(v)), nil
		}
		return expr.Const(v), nil
	case token.STRING, token.CHAR:
		s, err := strconv.Unquote(n.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "string %s", n.Value)
		}
		return expr.Const(s), nil
	}
	return nil, errors.Newf("unsupported literal %s", n.Value)
}

func (p *chainParser) convertIdent(n *ast.Ident, hint types.Type) (expr.Expr, error) {
	if param, ok := p.params[n.Name]; ok {
		return param, nil
	}
	switch n.Name {
	case "true":
		return expr.Const(true), nil
	case "false":
		return expr.Const(false), nil
	case "null", "nil":
		if !hint.IsValid() {
			return nil, errUntyped
		}
		return expr.TypedConst(nil, hint.AsNullable()), nil
	}
	if !hint.IsValid() {
		return nil, errUntyped
	}
	return expr.Param(n.Name, hint), nil
}

// member resolves operand.name: an entity property, a string's Length, or a
// nullable's Value and HasValue.
func (p *chainParser) member(operand expr.Expr, name string) (expr.Expr, error) {
	t := operand.Type()
	switch {
	case t.Kind() == types.KindEntity:
		entity, ok := p.model.FindEntityTypeFor(t)
		if !ok {
			return nil, errors.Newf("no entity for %s", t)
		}
		prop, ok := entity.FindProperty(name)
		if !ok {
			return nil, errors.Newf("%s has no property %q", entity.Name, name)
		}
		return expr.Prop(operand, prop.Name, prop.Type), nil
	case t.IsNullable() && name == "Value":
		return expr.Prop(operand, name, t.Unwrap()), nil
	case t.IsNullable() && name == "HasValue":
		return expr.Bin(expr.NotEqual, operand, expr.TypedConst(nil, t)), nil
	case t.Unwrap() == types.String && name == "Length":
		return expr.Prop(operand, name, types.Int32), nil
	}
	// Left for the translator to reject, so errors read the same as for
	// any other untranslatable member.
	return expr.Prop(operand, name, types.Object), nil
}

var stringResults = map[string]types.Type{
	"StartsWith": types.Bool,
	"EndsWith":   types.Bool,
	"Contains":   types.Bool,
	"ToUpper":    types.String,
	"ToLower":    types.String,
	"Trim":       types.String,
}

func (p *chainParser) convertCall(n *ast.CallExpr, hint types.Type) (expr.Expr, error) {
	switch fun := n.Fun.(type) {
	case *ast.Ident:
		if _, bound := p.params[fun.Name]; bound {
			break
		}
		switch fun.Name {
		case "iif":
			return p.convertIif(n, hint)
		case "compare":
			args, err := p.convertPair(n.Args)
			if err != nil {
				return nil, err
			}
			return &expr.Call{Method: expr.Method{Owner: args[0].Type().String(), Name: "Compare"}, Args: args, T: types.Int32}, nil
		}
		if t, ok := types.Parse(strings.ToLower(fun.Name)); ok {
			if len(n.Args) != 1 {
				return nil, errors.Newf("%s(...) takes one argument", fun.Name)
			}
			operand, err := p.convert(n.Args[0], t)
			if err != nil {
				return nil, err
			}
			return expr.ConvertTo(operand, t), nil
		}
	case *ast.SelectorExpr:
		if id, ok := fun.X.(*ast.Ident); ok {
			if _, bound := p.params[id.Name]; !bound {
				return p.convertStatic(id.Name, fun.Sel.Name, n.Args)
			}
		}
		obj, err := p.convert(fun.X, types.Type{})
		if err != nil {
			return nil, err
		}
		return p.convertMethod(obj, fun.Sel.Name, n.Args)
	}
	return nil, errors.Newf("unsupported call %s", exprText(n.Fun))
}

func (p *chainParser) convertStatic(owner, name string, args []ast.Expr) (expr.Expr, error) {
	switch strings.ToLower(owner) {
	case "math":
		converted, err := p.convertArgs(args, types.Type{})
		if err != nil {
			return nil, err
		}
		if len(converted) == 0 {
			return nil, errors.Newf("%s.%s needs an argument", owner, name)
		}
		return &expr.Call{Method: expr.Method{Owner: plugins.MathOwner, Name: name}, Args: converted, T: converted[0].Type()}, nil
	case "ef", "relq":
		if name != "Property" || len(args) != 2 {
			return nil, errors.Newf("%s.%s is not supported", owner, name)
		}
		entity, err := p.convert(args[0], types.Type{})
		if err != nil {
			return nil, err
		}
		lit, ok := args[1].(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return nil, errors.New("Property needs a string property name")
		}
		prop, _ := strconv.Unquote(lit.Value)
		t := types.Object
		if e, ok := p.model.FindEntityTypeFor(entity.Type()); ok {
			if pr, ok := e.FindProperty(prop); ok {
				t = pr.Type
			}
		}
		return expr.Property(entity, prop, t), nil
	}
	return nil, errors.Newf("unknown function %s.%s", owner, name)
}

func (p *chainParser) convertMethod(obj expr.Expr, name string, args []ast.Expr) (expr.Expr, error) {
	if name == "CompareTo" {
		if len(args) != 1 {
			return nil, errors.New("CompareTo takes one argument")
		}
		arg, err := p.convert(args[0], obj.Type())
		if err != nil {
			return nil, err
		}
		return &expr.Call{Object: obj, Method: expr.Method{Owner: obj.Type().String(), Name: name}, Args: []expr.Expr{arg}, T: types.Int32}, nil
	}
	converted, err := p.convertArgs(args, types.String)
	if err != nil {
		return nil, err
	}
	owner := obj.Type().String()
	result := types.Object
	if obj.Type().Unwrap() == types.String {
		owner = plugins.StringOwner
		if t, ok := stringResults[name]; ok {
			result = t
		}
	}
	return &expr.Call{Object: obj, Method: expr.Method{Owner: owner, Name: name}, Args: converted, T: result}, nil
}

func (p *chainParser) convertIif(n *ast.CallExpr, hint types.Type) (expr.Expr, error) {
	if len(n.Args) != 3 {
		return nil, errors.New("iif(cond, a, b) takes three arguments")
	}
	test, err := p.convert(n.Args[0], types.Bool)
	if err != nil {
		return nil, err
	}
	branches, err := p.convertPair(n.Args[1:])
	if err != nil {
		return nil, err
	}
	return expr.Cond(test, branches[0], branches[1]), nil
}

// convertPair converts two operands that share a type, letting a typed
// side type an untyped one.
func (p *chainParser) convertPair(args []ast.Expr) ([]expr.Expr, error) {
	if len(args) != 2 {
		return nil, errors.Newf("expected two operands, got %d", len(args))
	}
	left, err := p.convert(args[0], types.Type{})
	if errors.Is(err, errUntyped) {
		right, err := p.convert(args[1], types.Type{})
		if err != nil {
			return nil, err
		}
		left, err = p.convert(args[0], right.Type())
		if err != nil {
			return nil, err
		}
		return []expr.Expr{left, right}, nil
	}
	if err != nil {
		return nil, err
	}
	right, err := p.convert(args[1], left.Type())
	if err != nil {
		return nil, err
	}
	return []expr.Expr{left, right}, nil
}

func (p *chainParser) convertArgs(args []ast.Expr, hint types.Type) ([]expr.Expr, error) {
	out := make([]expr.Expr, 0, len(args))
	for _, a := range args {
		e, err := p.convert(a, hint)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (p *chainParser) convertUnary(n *ast.UnaryExpr, hint types.Type) (expr.Expr, error) {
	switch n.Op {
	case token.NOT:
		operand, err := p.convert(n.X, types.Bool)
		if err != nil {
			return nil, err
		}
		return expr.NotOf(operand), nil
	case token.SUB:
		operand, err := p.convert(n.X, hint)
		if err != nil {
			return nil, err
		}
		if c, ok := operand.(*expr.Constant); ok {
			if v, ok := negate(c.Value); ok {
				return expr.TypedConst(v, c.T), nil
			}
		}
		return &expr.Unary{Op: expr.Negate, Operand: operand, T: operand.Type()}, nil
	case token.ADD:
		return p.convert(n.X, hint)
	}
	return nil, errors.Newf("unsupported operator %s", n.Op)
}

func negate(v any) (any, bool) {
	switch v := v.(type) {
	case int32:
		return -v, true
	case int64:
		return -v, true
	case float32:
		return -v, true
	case float64:
		return -v, true
	}
	return nil, false
}

var binaryTokens = map[token.Token]expr.BinaryOp{
	token.EQL:  expr.Equal,
	token.NEQ:  expr.NotEqual,
	token.LSS:  expr.LessThan,
	token.LEQ:  expr.LessThanOrEqual,
	token.GTR:  expr.GreaterThan,
	token.GEQ:  expr.GreaterThanOrEqual,
	token.LAND: expr.AndAlso,
	token.LOR:  expr.OrElse,
	token.ADD:  expr.Add,
	token.SUB:  expr.Subtract,
	token.MUL:  expr.Multiply,
	token.QUO:  expr.Divide,
	token.REM:  expr.Modulo,
}

func (p *chainParser) convertBinary(n *ast.BinaryExpr) (expr.Expr, error) {
	op, ok := binaryTokens[n.Op]
	if !ok {
		return nil, errors.Newf("unsupported operator %s", n.Op)
	}
	if op == expr.AndAlso || op == expr.OrElse {
		left, err := p.convert(n.X, types.Bool)
		if err != nil {
			return nil, err
		}
		right, err := p.convert(n.Y, types.Bool)
		if err != nil {
			return nil, err
		}
		return expr.Bin(op, left, right), nil
	}
	operands, err := p.convertPair([]ast.Expr{n.X, n.Y})
	if err != nil {
		return nil, err
	}
	return expr.Bin(op, operands[0], operands[1]), nil
}

// convertNew lowers New{Name: c.Name, c.Age} into a projection. Unkeyed
// elements take the name of their last member.
func (p *chainParser) convertNew(n *ast.CompositeLit) (expr.Expr, error) {
	if id, ok := n.Type.(*ast.Ident); !ok || id.Name != "New" {
		return nil, errors.Newf("unsupported literal %s", exprText(n.Type))
	}
	out := &expr.New{T: types.Object}
	for _, el := range n.Elts {
		var name string
		value := el
		if kv, ok := el.(*ast.KeyValueExpr); ok {
			key, ok := kv.Key.(*ast.Ident)
			if !ok {
				return nil, errors.New("New member names must be identifiers")
			}
			name, value = key.Name, kv.Value
		} else if sel, ok := el.(*ast.SelectorExpr); ok {
			name = sel.Sel.Name
		} else {
			return nil, errors.Newf("New member %s needs a name", exprText(el))
		}
		e, err := p.convert(value, types.Type{})
		if err != nil {
			return nil, err
		}
		out.Members = append(out.Members, name)
		out.Args = append(out.Args, e)
	}
	if len(out.Members) == 0 {
		return nil, errors.New("New needs at least one member")
	}
	return out, nil
}

func exprText(n ast.Expr) string {
	switch n := n.(type) {
	case *ast.Ident:
		return n.Name
	case *ast.SelectorExpr:
		return exprText(n.X) + "." + n.Sel.Name
	}
	return "expression"
}
