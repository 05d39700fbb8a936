package opts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "flag && missing", "pkgtree.yml:3:9", base)

	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "expr", evalErr.Engine)
	assert.Equal(t, "flag && missing", evalErr.Expr)
	assert.Equal(t, "pkgtree.yml:3:9", evalErr.Origin)
	assert.ErrorIs(t, evalErr.Err, base)
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "pkgtree-local.yml:1:5", existing)
	require.ErrorIs(t, err, base)
	assert.Equal(t, "expr", existing.Engine, "existing engine is not overwritten")
	assert.Equal(t, "rule", existing.Expr)
	assert.Equal(t, "pkgtree-local.yml:1:5", existing.Origin)
}

func TestWrapEvaluationErrorKeepsParseErrors(t *testing.T) {
	parseErr := &ExpressionParseError{Line: 1, Column: 4, Err: errors.New("unexpected token")}
	err := wrapEvaluationError("expr", "a ==", "pkgtree.yml:2:7", parseErr)

	var got *ExpressionParseError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "expr", got.Engine)
	assert.Equal(t, "a ==", got.Expr)

	var evalErr *EvaluationError
	assert.False(t, errors.As(err, &evalErr), "parse errors are not wrapped in EvaluationError")
}
