package opts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-pkgtree/document"
)

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Origin string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("opts: %s evaluator %s origin=%s: %v", e.Engine, describeExpression(e.Expr), e.Origin, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExpressionParseError reports an expression that failed to compile. Line and
// Column locate the problem inside the expression (zero when the engine does
// not say); Pos locates the expression inside its document.
type ExpressionParseError struct {
	Engine string
	Expr   string
	Line   int
	Column int
	Pos    document.Position
	Err    error
}

func (e *ExpressionParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var sb strings.Builder
	if e.Pos.File != "" || e.Pos.Line > 0 {
		sb.WriteString(e.Pos.String())
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "invalid %s expression %s", e.Engine, describeExpression(e.Expr))
	if e.Line > 0 {
		fmt.Fprintf(&sb, " at %d:%d", e.Line, e.Column)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *ExpressionParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}
	var parseErr *ExpressionParseError
	if errors.As(err, &parseErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "opts:") {
		return err
	}
	return fmt.Errorf("opts: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, origin string, err error) error {
	if err == nil {
		return nil
	}

	var parseErr *ExpressionParseError
	if errors.As(err, &parseErr) {
		if parseErr.Engine == "" {
			parseErr.Engine = engine
		}
		if parseErr.Expr == "" {
			parseErr.Expr = expr
		}
		return parseErr
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Origin == "" {
			evalErr.Origin = origin
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Origin: origin,
		Err:    err,
	}
}

func parseError(engine, expr string, line, column int, err error) error {
	return &ExpressionParseError{
		Engine: engine,
		Expr:   expr,
		Line:   line,
		Column: column,
		Err:    err,
	}
}
