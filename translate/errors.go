package translate

import (
	"github.com/cockroachdb/errors"

	"github.com/bawdo/relq/expr"
)

// Error classes returned by the operator translator. Test with errors.Is.
var (
	// ErrInvalidOperation marks an expression that cannot be translated in
	// the position it was used, such as an untranslatable predicate.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrNotImplemented marks an operator or argument with no translation
	// strategy. The same input always fails the same way.
	ErrNotImplemented = errors.New("not implemented")
)

func invalidOperation(op Operator, e expr.Expr) error {
	err := errors.Newf("%s: could not translate %s", op, expr.Print(e))
	err = errors.WithHint(err, "use members, operators and methods the backend can translate")
	return errors.Mark(err, ErrInvalidOperation)
}

func invalidOperationf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidOperation)
}

func notImplemented(op Operator) error {
	err := errors.UnimplementedErrorf(errors.IssueLink{}, "%s is not supported", op)
	return errors.Mark(err, ErrNotImplemented)
}

func notImplementedArg(op Operator, e expr.Expr) error {
	err := errors.UnimplementedErrorf(errors.IssueLink{}, "%s: argument %s is not supported", op, expr.Print(e))
	return errors.Mark(err, ErrNotImplemented)
}

// Recover converts a panic raised during translation into an error stored
// in *errp. Translation panics with errors for invalid compositions and
// assertion failures; any other panic is re-raised. It must be deferred
// directly.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	if !ok {
		panic(r)
	}
	if !errors.Is(err, ErrInvalidOperation) && !errors.Is(err, ErrNotImplemented) && !errors.HasAssertionFailure(err) {
		panic(r)
	}
	*errp = err
}
